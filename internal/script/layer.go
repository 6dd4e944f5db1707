package script

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MaxLayerDepth bounds how deeply split layers may nest. A scene's own
// layers are at depth 1.
const MaxLayerDepth = 8

// Point is an [x, y] position in pixels.
type Point [2]float64

// Layer is one visual element of a scene. Exactly one payload pointer is set,
// matching Kind. The timeline carries layers through to the renderer without
// looking inside them.
type Layer struct {
	Kind LayerKind

	Text      *TextLayer
	Svg       *SvgLayer
	Code      *CodeLayer
	Grid      *GridLayer
	Gauge     *GaugeLayer
	Particles *ParticlesLayer
	Overlay   *OverlayLayer
	Split     *SplitLayer
	Block     *BlockLayer
}

type TextLayer struct {
	Text  string     `yaml:"text" json:"text"`
	At    Point      `yaml:"at" json:"at"`
	Style TextStyle  `yaml:"style" json:"style"`
	Anim  Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

type SvgLayer struct {
	Asset string     `yaml:"asset" json:"asset"`
	ID    string     `yaml:"id,omitempty" json:"id,omitempty"`
	At    Point      `yaml:"at" json:"at"`
	Scale float64    `yaml:"scale" json:"scale"`
	Anim  Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

type CodeLayer struct {
	Language string     `yaml:"language" json:"language"`
	Text     string     `yaml:"text" json:"text"`
	At       Point      `yaml:"at" json:"at"`
	Style    CodeStyle  `yaml:"style" json:"style"`
	Anim     Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

type GridLayer struct {
	Rows  int        `yaml:"rows" json:"rows"`
	Cols  int        `yaml:"cols" json:"cols"`
	ID    string     `yaml:"id,omitempty" json:"id,omitempty"`
	At    Point      `yaml:"at" json:"at"`
	Style GridStyle  `yaml:"style" json:"style"`
	Anim  Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

type GaugeLayer struct {
	Label string     `yaml:"label" json:"label"`
	From  float64    `yaml:"from" json:"from"`
	To    float64    `yaml:"to" json:"to"`
	At    Point      `yaml:"at" json:"at"`
	Style GaugeStyle `yaml:"style" json:"style"`
	Anim  Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

type ParticlesLayer struct {
	Kind   string     `yaml:"kind" json:"kind"`
	Count  int        `yaml:"count" json:"count"`
	Bounds string     `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	Anim   Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

type OverlayLayer struct {
	Kind    string     `yaml:"kind" json:"kind"`
	Opacity float64    `yaml:"opacity" json:"opacity"`
	Anim    Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

// SplitLayer divides the frame into two columns of nested layers.
type SplitLayer struct {
	Left  []Layer `yaml:"left" json:"left"`
	Right []Layer `yaml:"right" json:"right"`
}

type BlockLayer struct {
	Label string     `yaml:"label" json:"label"`
	Style BlockStyle `yaml:"style" json:"style"`
	Anim  Animations `yaml:"anim,omitempty" json:"anim,omitempty"`
}

type TextStyle struct {
	Size   int    `yaml:"size" json:"size"`
	Weight int    `yaml:"weight" json:"weight"`
	Color  string `yaml:"color" json:"color"`
	Font   string `yaml:"font,omitempty" json:"font,omitempty"`
}

type CodeStyle struct {
	Size int    `yaml:"size" json:"size"`
	Font string `yaml:"font,omitempty" json:"font,omitempty"`
}

type GridStyle struct {
	Gap      int `yaml:"gap" json:"gap"`
	CellSize int `yaml:"cell_size" json:"cell_size"`
}

type GaugeStyle struct {
	Size  int    `yaml:"size" json:"size"`
	Color string `yaml:"color" json:"color"`
}

type BlockStyle struct {
	Color string `yaml:"color" json:"color"`
}

// Style defaults applied to keys the author leaves out.
func DefaultTextStyle() TextStyle   { return TextStyle{Size: 48, Weight: 600, Color: "#ffffff"} }
func DefaultCodeStyle() CodeStyle   { return CodeStyle{Size: 24} }
func DefaultGridStyle() GridStyle   { return GridStyle{Gap: 10, CellSize: 100} }
func DefaultGaugeStyle() GaugeStyle { return GaugeStyle{Size: 200, Color: "#44ff88"} }
func DefaultBlockStyle() BlockStyle { return BlockStyle{Color: "#4488ff"} }

// Payload returns the layer's kind-specific data, or nil if Kind is unset
// or its payload pointer is nil.
func (l Layer) Payload() any {
	switch l.Kind {
	case LayerText:
		return payload(l.Text)
	case LayerSvg:
		return payload(l.Svg)
	case LayerCode:
		return payload(l.Code)
	case LayerGrid:
		return payload(l.Grid)
	case LayerGauge:
		return payload(l.Gauge)
	case LayerParticles:
		return payload(l.Particles)
	case LayerOverlay:
		return payload(l.Overlay)
	case LayerSplit:
		return payload(l.Split)
	case LayerBlock:
		return payload(l.Block)
	}
	return nil
}

// payload keeps a nil pointer from turning into a non-nil interface.
func payload[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}

// Animations returns the layer's animations. Split layers have none of their
// own, and neither does a layer without a payload.
func (l Layer) Animations() []Animation {
	switch p := l.Payload().(type) {
	case *TextLayer:
		return p.Anim
	case *SvgLayer:
		return p.Anim
	case *CodeLayer:
		return p.Anim
	case *GridLayer:
		return p.Anim
	case *GaugeLayer:
		return p.Anim
	case *ParticlesLayer:
		return p.Anim
	case *OverlayLayer:
		return p.Anim
	case *BlockLayer:
		return p.Anim
	}
	return nil
}

// Depth returns how many levels the layer occupies: 1 for a leaf, more for
// nested splits.
func (l Layer) Depth() int {
	if l.Kind != LayerSplit || l.Split == nil {
		return 1
	}
	d := 0
	for _, side := range [][]Layer{l.Split.Left, l.Split.Right} {
		for _, c := range side {
			if cd := c.Depth(); cd > d {
				d = cd
			}
		}
	}
	return d + 1
}

// UnmarshalYAML decodes a layer as a top-level (depth 1) layer.
func (l *Layer) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeLayer(node, 1)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// MarshalYAML writes the payload keys with the "type" tag in front.
func (l Layer) MarshalYAML() (interface{}, error) {
	payload := l.Payload()
	if payload == nil {
		return nil, fmt.Errorf("layer has no payload for type %q", l.Kind)
	}
	var n yaml.Node
	if err := n.Encode(payload); err != nil {
		return nil, err
	}
	tag := []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "type"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(l.Kind)},
	}
	n.Content = append(tag, n.Content...)
	return &n, nil
}

// MarshalJSON writes the same flat, tagged shape as MarshalYAML.
func (l Layer) MarshalJSON() ([]byte, error) {
	payload := l.Payload()
	if payload == nil {
		return nil, fmt.Errorf("layer has no payload for type %q", l.Kind)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(string(l.Kind))
	out := append([]byte(`{"type":`), kind...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// UnmarshalJSON reads the shape written by MarshalJSON, applying the same
// style defaults and depth limit as the YAML decoder.
func (l *Layer) UnmarshalJSON(data []byte) error {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Type == nil {
		return errors.New("layer: missing required key \"type\"")
	}
	kind, err := ParseLayerKind(*head.Type)
	if err != nil {
		return err
	}
	var v Layer
	payload, err := v.newPayload(kind)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return err
	}
	if d := v.Depth(); d > MaxLayerDepth {
		return fmt.Errorf("layers nested deeper than %d levels", MaxLayerDepth)
	}
	*l = v
	return nil
}

// newPayload resets l to kind and allocates its payload with style defaults
// applied.
func (l *Layer) newPayload(kind LayerKind) (interface{}, error) {
	*l = Layer{Kind: kind}
	switch kind {
	case LayerText:
		l.Text = &TextLayer{Style: DefaultTextStyle()}
		return l.Text, nil
	case LayerSvg:
		l.Svg = &SvgLayer{Scale: 1.0}
		return l.Svg, nil
	case LayerCode:
		l.Code = &CodeLayer{Style: DefaultCodeStyle()}
		return l.Code, nil
	case LayerGrid:
		l.Grid = &GridLayer{Style: DefaultGridStyle()}
		return l.Grid, nil
	case LayerGauge:
		l.Gauge = &GaugeLayer{Style: DefaultGaugeStyle()}
		return l.Gauge, nil
	case LayerParticles:
		l.Particles = &ParticlesLayer{}
		return l.Particles, nil
	case LayerOverlay:
		l.Overlay = &OverlayLayer{}
		return l.Overlay, nil
	case LayerBlock:
		l.Block = &BlockLayer{Style: DefaultBlockStyle()}
		return l.Block, nil
	case LayerSplit:
		l.Split = &SplitLayer{}
		return l.Split, nil
	}
	return nil, errors.New("unhandled layer type")
}

func decodeLayers(nodes []yaml.Node, depth int, key string) ([]Layer, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]Layer, len(nodes))
	for i := range nodes {
		l, err := decodeLayer(&nodes[i], depth)
		if err != nil {
			return nil, prefixErr(fmt.Sprintf("%s[%d]", key, i), nodes[i].Line, err)
		}
		out[i] = l
	}
	return out, nil
}

func decodeLayer(node *yaml.Node, depth int) (Layer, error) {
	if depth > MaxLayerDepth {
		return Layer{}, fmt.Errorf("line %d: layers nested deeper than %d levels", node.Line, MaxLayerDepth)
	}
	if node.Kind != yaml.MappingNode {
		return Layer{}, fmt.Errorf("line %d: layer must be a mapping", node.Line)
	}

	var head struct {
		Type *string `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return Layer{}, err
	}
	if head.Type == nil {
		return Layer{}, missingKey("type", node.Line)
	}
	kind, err := ParseLayerKind(*head.Type)
	if err != nil {
		return Layer{}, newFieldError("type", node.Line, err)
	}

	var l Layer
	if kind == LayerSplit {
		l.Kind = kind
		l.Split, err = decodeSplit(node, depth)
	} else {
		var payload interface{}
		if payload, err = l.newPayload(kind); err == nil {
			err = node.Decode(payload)
		}
	}
	if err != nil {
		return Layer{}, err
	}
	return l, nil
}

func decodeSplit(node *yaml.Node, depth int) (*SplitLayer, error) {
	var raw struct {
		Left  []yaml.Node `yaml:"left"`
		Right []yaml.Node `yaml:"right"`
	}
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	left, err := decodeLayers(raw.Left, depth+1, "left")
	if err != nil {
		return nil, err
	}
	right, err := decodeLayers(raw.Right, depth+1, "right")
	if err != nil {
		return nil, err
	}
	return &SplitLayer{Left: left, Right: right}, nil
}
