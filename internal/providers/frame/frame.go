// Package frame abstracts the external generative backend that turns one
// frame prompt into a rendered still.
package frame

import "context"

// Asset is the normalized representation of one rendered frame.
type Asset struct {
	Data []byte
	MIME string
}

// Renderer generates a single frame for a prompt. Implementations may fail
// per call; the render pipeline treats that as a degradation, not an abort.
type Renderer interface {
	RenderFrame(ctx context.Context, prompt string) (*Asset, error)
}
