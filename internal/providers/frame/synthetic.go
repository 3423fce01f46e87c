package frame

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// SyntheticRenderer produces deterministic placeholder stills derived from
// the prompt. It keeps the worker fully operational in local and CI
// environments where no generative backend is configured.
type SyntheticRenderer struct {
	Width  int
	Height int
}

// NewSyntheticRenderer returns a renderer emitting small solid-color frames.
func NewSyntheticRenderer() *SyntheticRenderer {
	return &SyntheticRenderer{Width: 64, Height: 64}
}

func (r *SyntheticRenderer) RenderFrame(ctx context.Context, prompt string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(prompt))
	fill := color.NRGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("frame: encode synthetic png: %w", err)
	}
	return &Asset{Data: buf.Bytes(), MIME: "image/png"}, nil
}

var _ Renderer = (*SyntheticRenderer)(nil)
