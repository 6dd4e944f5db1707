package timeline

import (
	"github.com/ivlev/scenescript/internal/script"
)

// DefaultBackground is used when neither the script nor Options name a
// background colour.
const DefaultBackground = "#0e1117"

// Options tune render context assembly.
type Options struct {
	// DefaultBackground replaces the package default when the script has no
	// background of its own. Empty means DefaultBackground.
	DefaultBackground string
}

func (o Options) background() string {
	if o.DefaultBackground != "" {
		return o.DefaultBackground
	}
	return DefaultBackground
}

// RenderContext is everything the renderer needs to draw one absolute frame.
// It is rebuilt on demand and never stored.
type RenderContext struct {
	SceneID     string  `json:"scene_id"`
	SceneIndex  int     `json:"scene_index"`
	Frame       int     `json:"frame"`
	LocalFrame  int     `json:"local_frame"`
	SceneStart  int     `json:"scene_start"`
	SceneFrames int     `json:"scene_frames"`
	FrameRate   int     `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Progress    float64 `json:"progress"`
	TimeSeconds float64 `json:"time_s"`
	Timestamp   float64 `json:"t"`
	Background  string  `json:"background"`

	Theme     string           `json:"theme,omitempty"`
	SceneType script.SceneType `json:"scene_type"`
	Audio     script.AudioMode `json:"audio"`
	Text      string           `json:"text,omitempty"`
	Subtitle  string           `json:"subtitle,omitempty"`
	Script    string           `json:"script,omitempty"`
	Source    string           `json:"source,omitempty"`
	Layers    []script.Layer   `json:"layers,omitempty"`
}

// Build assembles the render context for frame. Out-of-range frames follow
// the clamping rules of Locate.
func Build(s *script.Script, frame int, opts Options) RenderContext {
	return assemble(s, frame, Locate(s, frame), opts)
}

// Build is the Timeline equivalent of the package-level Build.
func (t *Timeline) Build(frame int, opts Options) RenderContext {
	return assemble(t.script, frame, t.Locate(frame), opts)
}

func assemble(s *script.Script, frame int, loc Location, opts Options) RenderContext {
	sc := &s.Scenes[loc.SceneIndex]
	fps := s.Meta.FrameRate
	n := SceneFrames(sc, fps)

	return RenderContext{
		SceneID:     sc.ID,
		SceneIndex:  loc.SceneIndex,
		Frame:       frame,
		LocalFrame:  loc.LocalFrame,
		SceneStart:  loc.SceneStart,
		SceneFrames: n,
		FrameRate:   fps,
		Width:       s.Meta.Width,
		Height:      s.Meta.Height,
		Progress:    Progress(n, loc.LocalFrame),
		TimeSeconds: TimeSeconds(loc.LocalFrame, fps),
		Timestamp:   TimeSeconds(frame, fps),
		Background:  s.BackgroundOr(opts.background()),
		Theme:       s.Meta.Theme,
		SceneType:   sc.Type,
		Audio:       sc.Audio,
		Text:        sc.Text,
		Subtitle:    sc.Subtitle,
		Script:      sc.Script,
		Source:      sc.Source,
		Layers:      sc.Layers,
	}
}
