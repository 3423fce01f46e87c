// Package render orchestrates multi-frame reel generation: deriving frame
// prompts, rendering each frame with per-frame fault tolerance, packaging the
// result into a reel container, and persisting it to object storage.
package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
	"dreamreel/internal/providers/frame"
	"dreamreel/internal/storage"
	"dreamreel/internal/telemetry"
)

// Config selects a render mode. FrameCount is fixed per mode and independent
// of the requested duration; MaxDurationSeconds, when positive, caps the
// duration recorded in the container.
type Config struct {
	FrameCount         int
	MaxDurationSeconds int
}

// Normal is the full-quality render configuration.
var Normal = Config{FrameCount: 6}

// Degraded is the fallback configuration used for the single in-process
// recovery attempt after a hard pipeline failure.
var Degraded = Config{FrameCount: 2, MaxDurationSeconds: 8}

// FrameResult captures the outcome of one frame attempt. A failed attempt is
// substituted with the seed placeholder, never propagated.
type FrameResult struct {
	Index    int
	Rendered bool
	Err      error
}

// Result is the pipeline outcome for one job. FrameCount counts every frame
// prompt attempted; RenderedFrames counts only the genuinely rendered ones.
type Result struct {
	AssetURL       string
	FrameCount     int
	RenderedFrames int
	Frames         []FrameResult
}

const maxSeedBytes = 32 << 20

// Pipeline renders reels. All collaborators are explicit dependencies; there
// is no shared global client state between invocations.
type Pipeline struct {
	renderer   frame.Renderer
	store      storage.Store
	jobs       domain.JobRepository
	usage      *telemetry.UsageRecorder
	httpClient *http.Client
	logger     infra.Logger
}

// NewPipeline constructs a pipeline. httpClient may be nil, in which case a
// default client with a timeout is used for seed fetches.
func NewPipeline(renderer frame.Renderer, store storage.Store, jobs domain.JobRepository, usage *telemetry.UsageRecorder, httpClient *http.Client, logger infra.Logger) *Pipeline {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Pipeline{
		renderer:   renderer,
		store:      store,
		jobs:       jobs,
		usage:      usage,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Render executes the full pipeline for a job under the given configuration.
// Per-frame failures degrade to placeholder frames; only seed-fetch and
// storage failures surface as errors.
func (p *Pipeline) Render(ctx context.Context, job *domain.Job, cfg Config) (*Result, error) {
	started := time.Now()
	defer func() {
		telemetry.RenderDuration.Observe(time.Since(started).Seconds())
	}()

	seed, err := p.fetchSeed(ctx, job.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch seed: %v", domain.ErrRenderFailure, err)
	}
	placeholder := normalizePlaceholder(seed)

	duration := job.DurationSeconds
	if cfg.MaxDurationSeconds > 0 && duration > cfg.MaxDurationSeconds {
		duration = cfg.MaxDurationSeconds
	}

	prompts := framePrompts(job.Prompt, cfg.FrameCount, duration)
	result := &Result{FrameCount: len(prompts)}
	frames := make([][]byte, 0, len(prompts))

	// Frames render strictly in order: later frames build on the mood of
	// earlier ones.
	for i, prompt := range prompts {
		fr := FrameResult{Index: i}
		asset, renderErr := p.renderer.RenderFrame(ctx, prompt)
		if renderErr != nil || asset == nil || len(asset.Data) == 0 {
			fr.Err = renderErr
			frames = append(frames, placeholder)
			p.logger.Warn().Err(renderErr).Str("job_id", job.ID).Int("frame", i).Msg("render: frame degraded to placeholder")
		} else {
			fr.Rendered = true
			result.RenderedFrames++
			frames = append(frames, asset.Data)
		}
		result.Frames = append(result.Frames, fr)

		if err := p.jobs.UpdateProgress(ctx, job.ID, i+1); err != nil {
			p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("render: progress update failed")
		}
	}

	reel, packErr := PackContainer(frames, duration, audioTagFor(duration))
	if packErr != nil {
		p.logger.Error().Err(packErr).Str("job_id", job.ID).Msg("render: packaging failed, emitting empty container")
		reel = EmptyContainer()
	}

	key := fmt.Sprintf("reels/%s/reel.drm", job.ID)
	assetURL, err := p.store.Write(ctx, key, reel)
	if err != nil {
		return nil, fmt.Errorf("%w: store reel: %v", domain.ErrRenderFailure, err)
	}
	result.AssetURL = assetURL

	p.usage.RecordRender(job, result.RenderedFrames, result.FrameCount)
	return result, nil
}

func (p *Pipeline) fetchSeed(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build seed request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("seed status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("seed is empty")
	}
	return data, nil
}
