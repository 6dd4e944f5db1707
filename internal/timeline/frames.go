// Package timeline converts scene durations into whole frames and maps
// absolute frame numbers back to the scene that owns them.
//
// Every function here is a pure function of its arguments. The same script
// and frame always produce the same result, which is what lets independent
// renderer processes capture frames in any order.
package timeline

import (
	"math"
	"sort"

	"github.com/ivlev/scenescript/internal/script"
)

// MaxSceneFrames caps the frame count of a single scene so that summing
// scene counts cannot overflow.
const MaxSceneFrames = math.MaxInt32

// FrameCount returns the number of frames a duration occupies at frameRate:
// the product rounded half away from zero, never less than one and never
// more than MaxSceneFrames.
func FrameCount(durationSeconds float64, frameRate int) int {
	n := math.Round(durationSeconds * float64(frameRate))
	switch {
	case n < 1 || math.IsNaN(n):
		return 1
	case n > MaxSceneFrames:
		return MaxSceneFrames
	}
	return int(n)
}

// SceneFrames returns the frame count of sc at frameRate.
func SceneFrames(sc *script.Scene, frameRate int) int {
	return FrameCount(sc.DurationSeconds, frameRate)
}

// TotalFrames returns the sum of all scene frame counts. Valid frame indices
// are 0 through TotalFrames-1.
func TotalFrames(s *script.Script) int {
	total := 0
	for i := range s.Scenes {
		total += SceneFrames(&s.Scenes[i], s.Meta.FrameRate)
	}
	return total
}

// Location identifies the scene owning an absolute frame.
type Location struct {
	SceneIndex int `json:"scene_index"`
	LocalFrame int `json:"scene_frame"`
	SceneStart int `json:"scene_start"`
}

// Locate walks the scenes in order and returns the first one whose
// [start, start+frames) interval contains frame.
//
// Frames past the end clamp to the first frame of the last scene:
// SceneIndex is the last index, LocalFrame is 0 and SceneStart is that
// scene's real start offset. Negative frames clamp to frame 0.
func Locate(s *script.Script, frame int) Location {
	if frame < 0 {
		frame = 0
	}
	start := 0
	last := 0
	for i := range s.Scenes {
		n := SceneFrames(&s.Scenes[i], s.Meta.FrameRate)
		if frame < start+n {
			return Location{SceneIndex: i, LocalFrame: frame - start, SceneStart: start}
		}
		last = start
		start += n
	}
	return Location{SceneIndex: max(len(s.Scenes)-1, 0), LocalFrame: 0, SceneStart: last}
}

// Progress returns localFrame/frames clamped to 1.0.
func Progress(frames, localFrame int) float64 {
	if frames <= 0 {
		return 1.0
	}
	return math.Min(1.0, float64(localFrame)/float64(frames))
}

// SceneProgress returns the fraction of sc elapsed at localFrame.
func SceneProgress(sc *script.Scene, localFrame, frameRate int) float64 {
	return Progress(SceneFrames(sc, frameRate), localFrame)
}

// TimeSeconds converts a frame offset into seconds.
func TimeSeconds(localFrame, frameRate int) float64 {
	return float64(localFrame) / float64(frameRate)
}

// FrameTime returns the absolute timestamp of frame since playback start.
func FrameTime(s *script.Script, frame int) float64 {
	return TimeSeconds(frame, s.Meta.FrameRate)
}

// Span is the frame interval a scene occupies.
type Span struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Start  int    `json:"start"`
	Frames int    `json:"frames"`
}

// End returns the first frame after the span.
func (sp Span) End() int { return sp.Start + sp.Frames }

// Timeline caches scene offsets of a script so frames can be located with a
// binary search. It must agree exactly with Locate.
type Timeline struct {
	script *script.Script
	spans  []Span
	total  int
}

// New precomputes the scene spans of s.
func New(s *script.Script) *Timeline {
	spans := make([]Span, len(s.Scenes))
	start := 0
	for i := range s.Scenes {
		n := SceneFrames(&s.Scenes[i], s.Meta.FrameRate)
		spans[i] = Span{Index: i, ID: s.Scenes[i].ID, Start: start, Frames: n}
		start += n
	}
	return &Timeline{script: s, spans: spans, total: start}
}

// Script returns the script the timeline was built from.
func (t *Timeline) Script() *script.Script { return t.script }

// Spans returns a copy of the scene spans in scene order.
func (t *Timeline) Spans() []Span {
	out := make([]Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// TotalFrames returns the number of frames in the timeline.
func (t *Timeline) TotalFrames() int { return t.total }

// Locate is the binary-search equivalent of the package-level Locate.
func (t *Timeline) Locate(frame int) Location {
	if frame < 0 {
		frame = 0
	}
	if len(t.spans) == 0 {
		return Location{}
	}
	if frame >= t.total {
		last := t.spans[len(t.spans)-1]
		return Location{SceneIndex: last.Index, LocalFrame: 0, SceneStart: last.Start}
	}
	i := sort.Search(len(t.spans), func(i int) bool { return t.spans[i].End() > frame })
	sp := t.spans[i]
	return Location{SceneIndex: i, LocalFrame: frame - sp.Start, SceneStart: sp.Start}
}

// Clamped reports whether frame lies outside [0, TotalFrames).
func (t *Timeline) Clamped(frame int) bool {
	return frame < 0 || frame >= t.total
}
