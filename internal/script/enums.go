package script

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SceneType describes what kind of scene the renderer should draw. The
// timeline never looks at it.
type SceneType string

const (
	SceneSlide   SceneType = "slide"
	SceneContent SceneType = "content"
	SceneEpilog  SceneType = "epilog"
)

// AudioMode describes which audio bed plays under a scene.
type AudioMode string

const (
	AudioMusic  AudioMode = "music"
	AudioAvatar AudioMode = "avatar"
	AudioShared AudioMode = "shared"
	AudioNone   AudioMode = "none"
)

// AnimationKind names one of the renderer's built-in animations.
type AnimationKind string

const (
	AnimFadeIn            AnimationKind = "fade_in"
	AnimFadeUp            AnimationKind = "fade_up"
	AnimFadeOut           AnimationKind = "fade_out"
	AnimTypeOn            AnimationKind = "type_on"
	AnimSweep             AnimationKind = "sweep"
	AnimOverflow          AnimationKind = "overflow"
	AnimIncrease          AnimationKind = "increase"
	AnimHighlightSequence AnimationKind = "highlight_sequence"
	AnimAssemble          AnimationKind = "assemble"
	AnimCatalogSearch     AnimationKind = "catalog_search"
)

// LayerKind is the wire tag of a layer (the value of its "type" key).
type LayerKind string

const (
	LayerText      LayerKind = "text"
	LayerSvg       LayerKind = "svg"
	LayerCode      LayerKind = "code"
	LayerGrid      LayerKind = "grid"
	LayerGauge     LayerKind = "gauge"
	LayerParticles LayerKind = "particles"
	LayerOverlay   LayerKind = "overlay"
	LayerSplit     LayerKind = "split"
	LayerBlock     LayerKind = "block"
)

var sceneTypes = map[SceneType]bool{SceneSlide: true, SceneContent: true, SceneEpilog: true}

var audioModes = map[AudioMode]bool{AudioMusic: true, AudioAvatar: true, AudioShared: true, AudioNone: true}

var animationKinds = map[AnimationKind]bool{
	AnimFadeIn:            true,
	AnimFadeUp:            true,
	AnimFadeOut:           true,
	AnimTypeOn:            true,
	AnimSweep:             true,
	AnimOverflow:          true,
	AnimIncrease:          true,
	AnimHighlightSequence: true,
	AnimAssemble:          true,
	AnimCatalogSearch:     true,
}

var layerKinds = map[LayerKind]bool{
	LayerText:      true,
	LayerSvg:       true,
	LayerCode:      true,
	LayerGrid:      true,
	LayerGauge:     true,
	LayerParticles: true,
	LayerOverlay:   true,
	LayerSplit:     true,
	LayerBlock:     true,
}

// ParseSceneType returns the SceneType for a wire tag.
func ParseSceneType(s string) (SceneType, error) {
	if !sceneTypes[SceneType(s)] {
		return "", fmt.Errorf("unknown scene type %q", s)
	}
	return SceneType(s), nil
}

// ParseAudioMode returns the AudioMode for a wire tag.
func ParseAudioMode(s string) (AudioMode, error) {
	if !audioModes[AudioMode(s)] {
		return "", fmt.Errorf("unknown audio mode %q", s)
	}
	return AudioMode(s), nil
}

// ParseAnimationKind returns the AnimationKind for a wire tag.
func ParseAnimationKind(s string) (AnimationKind, error) {
	if !animationKinds[AnimationKind(s)] {
		return "", fmt.Errorf("unknown animation kind %q", s)
	}
	return AnimationKind(s), nil
}

// ParseLayerKind returns the LayerKind for a wire tag.
func ParseLayerKind(s string) (LayerKind, error) {
	if !layerKinds[LayerKind(s)] {
		return "", fmt.Errorf("unknown layer type %q", s)
	}
	return LayerKind(s), nil
}

func (t *SceneType) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeTag(node, "type", ParseSceneType)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (a *AudioMode) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeTag(node, "audio", ParseAudioMode)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (k *AnimationKind) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeTag(node, "kind", ParseAnimationKind)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// decodeTag decodes a scalar tag and maps it through parse. Failures are
// reported against key so callers can build the full field path.
func decodeTag[T any](node *yaml.Node, key string, parse func(string) (T, error)) (T, error) {
	var zero T
	var s string
	if err := node.Decode(&s); err != nil {
		return zero, newFieldError(key, node.Line, err)
	}
	v, err := parse(s)
	if err != nil {
		return zero, newFieldError(key, node.Line, err)
	}
	return v, nil
}
