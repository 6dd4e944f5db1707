// Package script holds the typed form of a scene script: global playback
// metadata plus an ordered list of timed scenes and their visual layers.
//
// A Script is built once by Parse, validated immediately and never mutated
// afterwards, so it can be shared between any number of goroutines.
package script

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Script is the root of a parsed scene script.
type Script struct {
	Meta   Meta    `yaml:"meta" json:"meta"`
	Scenes []Scene `yaml:"scenes" json:"scenes"`

	source string
}

// Meta holds the global playback parameters.
type Meta struct {
	FrameRate  int    `yaml:"frame_rate" json:"frame_rate"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
	Theme      string `yaml:"theme,omitempty" json:"theme,omitempty"`
	Background string `yaml:"background,omitempty" json:"background,omitempty"`
}

// Scene is one timed segment of the video.
type Scene struct {
	ID              string    `yaml:"id" json:"id"`
	DurationSeconds float64   `yaml:"duration_seconds" json:"duration_seconds"`
	Type            SceneType `yaml:"type" json:"type"`
	Audio           AudioMode `yaml:"audio" json:"audio"`
	Text            string    `yaml:"text,omitempty" json:"text,omitempty"`
	Subtitle        string    `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Script          string    `yaml:"script,omitempty" json:"script,omitempty"`
	Source          string    `yaml:"source,omitempty" json:"source,omitempty"`
	Layers          []Layer   `yaml:"layers,omitempty" json:"layers,omitempty"`
}

// Animation is renderer-side timing data attached to a layer. Times are in
// seconds relative to the start of the owning scene.
type Animation struct {
	Kind     AnimationKind `yaml:"kind" json:"kind"`
	T0       float64       `yaml:"t0" json:"t0"`
	T1       *float64      `yaml:"t1,omitempty" json:"t1,omitempty"`
	Duration *float64      `yaml:"duration,omitempty" json:"duration,omitempty"`
	To       *float64      `yaml:"to,omitempty" json:"to,omitempty"`
	CPS      *int          `yaml:"cps,omitempty" json:"cps,omitempty"`
}

// Source returns the identifier the script was parsed from.
func (s *Script) Source() string { return s.source }

// SetSource records where the script came from; it is used in error messages.
func (s *Script) SetSource(src string) { s.source = src }

// SceneCount returns the number of scenes.
func (s *Script) SceneCount() int { return len(s.Scenes) }

// SceneByID returns the first scene whose id equals id. Duplicate ids are
// allowed; later scenes with the same id are unreachable through this call.
func (s *Script) SceneByID(id string) (*Scene, bool) {
	for i := range s.Scenes {
		if s.Scenes[i].ID == id {
			return &s.Scenes[i], true
		}
	}
	return nil, false
}

// BackgroundOr returns the script background, or def when none is set.
func (s *Script) BackgroundOr(def string) string {
	if s.Meta.Background != "" {
		return s.Meta.Background
	}
	return def
}

// UnmarshalYAML decodes a whole script, recording the key path of any
// failure.
func (s *Script) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: script must be a mapping", node.Line)
	}

	var raw struct {
		Meta   yaml.Node `yaml:"meta"`
		Scenes yaml.Node `yaml:"scenes"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.Meta.Kind == 0 {
		return missingKey("meta", node.Line)
	}
	var meta Meta
	if err := raw.Meta.Decode(&meta); err != nil {
		return prefixErr("meta", raw.Meta.Line, err)
	}

	if raw.Scenes.Kind == 0 {
		return missingKey("scenes", node.Line)
	}
	if raw.Scenes.Kind != yaml.SequenceNode {
		return newFieldError("scenes", raw.Scenes.Line, fmt.Errorf("expected a sequence"))
	}
	scenes := make([]Scene, len(raw.Scenes.Content))
	for i, n := range raw.Scenes.Content {
		if err := n.Decode(&scenes[i]); err != nil {
			return prefixErr(fmt.Sprintf("scenes[%d]", i), n.Line, err)
		}
	}

	s.Meta = meta
	s.Scenes = scenes
	return nil
}

// UnmarshalYAML accepts the legacy key "fps" as an alias of "frame_rate".
func (m *Meta) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		FrameRate  *int   `yaml:"frame_rate"`
		FPS        *int   `yaml:"fps"`
		Width      *int   `yaml:"width"`
		Height     *int   `yaml:"height"`
		Theme      string `yaml:"theme"`
		Background string `yaml:"background"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	switch {
	case raw.FrameRate != nil:
		m.FrameRate = *raw.FrameRate
	case raw.FPS != nil:
		m.FrameRate = *raw.FPS
	default:
		return missingKey("frame_rate", node.Line)
	}
	if raw.Width == nil {
		return missingKey("width", node.Line)
	}
	if raw.Height == nil {
		return missingKey("height", node.Line)
	}
	m.Width = *raw.Width
	m.Height = *raw.Height
	m.Theme = raw.Theme
	m.Background = raw.Background
	return nil
}

// UnmarshalYAML applies scene defaults and accepts the legacy key "dur_s"
// as an alias of "duration_seconds".
func (sc *Scene) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		ID              *string     `yaml:"id"`
		DurationSeconds *float64    `yaml:"duration_seconds"`
		DurS            *float64    `yaml:"dur_s"`
		Type            SceneType   `yaml:"type"`
		Audio           AudioMode   `yaml:"audio"`
		Text            string      `yaml:"text"`
		Subtitle        string      `yaml:"subtitle"`
		Script          string      `yaml:"script"`
		Source          string      `yaml:"source"`
		Layers          []yaml.Node `yaml:"layers"`
	}{
		Type:  SceneSlide,
		Audio: AudioMusic,
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.ID == nil {
		return missingKey("id", node.Line)
	}
	switch {
	case raw.DurationSeconds != nil:
		sc.DurationSeconds = *raw.DurationSeconds
	case raw.DurS != nil:
		sc.DurationSeconds = *raw.DurS
	default:
		return missingKey("duration_seconds", node.Line)
	}
	if math.IsInf(sc.DurationSeconds, 0) || math.IsNaN(sc.DurationSeconds) {
		return newFieldError("duration_seconds", node.Line, errors.New("must be a finite number"))
	}

	sc.ID = *raw.ID
	sc.Type = raw.Type
	sc.Audio = raw.Audio
	sc.Text = raw.Text
	sc.Subtitle = raw.Subtitle
	sc.Script = raw.Script
	sc.Source = raw.Source

	layers, err := decodeLayers(raw.Layers, 1, "layers")
	if err != nil {
		return err
	}
	sc.Layers = layers
	return nil
}

// Animations is a layer's animation list.
type Animations []Animation

// UnmarshalYAML decodes the list element by element so a bad kind is
// reported with its index.
func (a *Animations) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: anim must be a sequence", node.Line)
	}
	out := make(Animations, len(node.Content))
	for i, n := range node.Content {
		if err := n.Decode(&out[i]); err != nil {
			return prefixErr(fmt.Sprintf("anim[%d]", i), n.Line, err)
		}
		if out[i].Kind == "" {
			return prefixErr(fmt.Sprintf("anim[%d]", i), n.Line, missingKey("kind", n.Line))
		}
	}
	*a = out
	return nil
}
