// Package plan exposes the timeline to outside collaborators: a validation
// summary for humans and the frame-by-frame render plan handed to the
// capture driver.
package plan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/scenescript/internal/script"
	"github.com/ivlev/scenescript/internal/timeline"
)

// Summary is the human-facing result of validating a script.
type Summary struct {
	Scenes          int     `json:"scenes"`
	FrameRate       int     `json:"fps"`
	TotalFrames     int     `json:"total_frames"`
	DurationSeconds float64 `json:"duration_s"`
	Checksum        string  `json:"checksum"`
}

func (s Summary) String() string {
	return fmt.Sprintf("OK: %d scenes, fps=%d, total_frames=%d", s.Scenes, s.FrameRate, s.TotalFrames)
}

// Summarize validates s and reports its size.
func Summarize(s *script.Script) (Summary, error) {
	if err := script.Validate(s); err != nil {
		return Summary{}, err
	}
	sum, err := script.Checksum(s)
	if err != nil {
		return Summary{}, fmt.Errorf("checksum: %w", err)
	}
	total := timeline.TotalFrames(s)
	return Summary{
		Scenes:          s.SceneCount(),
		FrameRate:       s.Meta.FrameRate,
		TotalFrames:     total,
		DurationSeconds: timeline.FrameTime(s, total),
		Checksum:        sum,
	}, nil
}

// Options control plan generation.
type Options struct {
	Context timeline.Options
	Workers int // parallel chunks; <= 1 builds sequentially
}

// minChunk keeps tiny plans from being split into goroutines that cost more
// than the frames they build.
const minChunk = 256

// Build returns one render context per frame, in ascending frame order.
// Chunks are built concurrently, and the output is identical to a
// sequential pass. Cancelling ctx stops the build.
func Build(ctx context.Context, s *script.Script, opts Options) ([]timeline.RenderContext, error) {
	if err := script.Validate(s); err != nil {
		return nil, err
	}
	tl := timeline.New(s)
	total := tl.TotalFrames()
	out := make([]timeline.RenderContext, total)

	workers := max(opts.Workers, 1)
	chunk := max((total+workers-1)/workers, minChunk)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for from := 0; from < total; from += chunk {
		to := min(from+chunk, total)
		g.Go(func() error {
			for f := from; f < to; f++ {
				if (f-from)%minChunk == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[f] = tl.Build(f, opts.Context)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Range builds the contexts for frames [from, to). Frames outside the
// timeline are clamped per timeline.Locate.
func Range(tl *timeline.Timeline, from, to int, opts timeline.Options) []timeline.RenderContext {
	if to < from {
		return nil
	}
	out := make([]timeline.RenderContext, 0, to-from)
	for f := from; f < to; f++ {
		out = append(out, tl.Build(f, opts))
	}
	return out
}
