package render

import (
	"bytes"

	"github.com/disintegration/imaging"
)

const (
	frameWidth  = 1280
	frameHeight = 720
)

// normalizePlaceholder fits the seed image to reel dimensions so placeholder
// frames match rendered ones. Seeds that do not decode as images are used
// verbatim; a placeholder must never be a reason to fail.
func normalizePlaceholder(seed []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(seed))
	if err != nil {
		return seed
	}
	fitted := imaging.Fill(img, frameWidth, frameHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return seed
	}
	return buf.Bytes()
}
