// Package storage provides the opaque object-store capability used to persist
// finished reel assets.
package storage

import "context"

// Store persists a blob under a key and returns its public URL.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}
