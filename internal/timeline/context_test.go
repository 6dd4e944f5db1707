package timeline

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"

	"github.com/ivlev/scenescript/internal/script"
)

func TestBuild(t *testing.T) {
	s := newScript(30, 1.0, 2.0)
	s.Scenes[1].Text = "B"
	s.Scenes[1].Subtitle = "sub"

	rc := Build(s, 45, Options{})
	if rc.SceneID != "b" || rc.SceneIndex != 1 {
		t.Errorf("unexpected scene %q/%d", rc.SceneID, rc.SceneIndex)
	}
	if rc.Frame != 45 || rc.LocalFrame != 15 || rc.SceneStart != 30 || rc.SceneFrames != 60 {
		t.Errorf("unexpected frame fields: %+v", rc)
	}
	if rc.Progress != 0.25 {
		t.Errorf("Progress = %v, want 0.25", rc.Progress)
	}
	if rc.TimeSeconds != 0.5 || rc.Timestamp != 1.5 {
		t.Errorf("TimeSeconds/Timestamp = %v/%v, want 0.5/1.5", rc.TimeSeconds, rc.Timestamp)
	}
	if rc.FrameRate != 30 || rc.Width != 1920 || rc.Height != 1080 {
		t.Errorf("unexpected meta fields: %+v", rc)
	}
	if rc.Text != "B" || rc.Subtitle != "sub" {
		t.Errorf("scene text not carried: %+v", rc)
	}
	if rc.Background != DefaultBackground {
		t.Errorf("Background = %q, want %q", rc.Background, DefaultBackground)
	}
}

func TestBuildBackground(t *testing.T) {
	s := newScript(30, 1.0)
	if got := Build(s, 0, Options{DefaultBackground: "#123456"}).Background; got != "#123456" {
		t.Errorf("override default: got %q", got)
	}

	s.Meta.Background = "#ffffff"
	if got := Build(s, 0, Options{DefaultBackground: "#123456"}).Background; got != "#ffffff" {
		t.Errorf("script background should win: got %q", got)
	}
}

func TestBuildIdempotent(t *testing.T) {
	s := newScript(30, 0.7, 1.3, 0.01)
	s.Scenes[0].Layers = []script.Layer{{Kind: script.LayerBlock, Block: &script.BlockLayer{Label: "x", Style: script.DefaultBlockStyle()}}}
	tl := New(s)

	for f := 0; f < tl.TotalFrames()+2; f++ {
		a := Build(s, f, Options{})
		b := Build(s, f, Options{})
		c := tl.Build(f, Options{})
		if !reflect.DeepEqual(a, b) || !reflect.DeepEqual(a, c) {
			t.Fatalf("frame %d: contexts differ:\n%+v\n%+v\n%+v", f, a, b, c)
		}
	}
}

func TestBuildConcurrent(t *testing.T) {
	s := newScript(24, 1.1, 0.9, 2.6)
	total := TotalFrames(s)

	want := make([][]byte, total)
	for f := 0; f < total; f++ {
		data, err := json.Marshal(Build(s, f, Options{}))
		if err != nil {
			t.Fatalf("marshal frame %d: %v", f, err)
		}
		want[f] = data
	}

	var wg sync.WaitGroup
	errs := make(chan int, total)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			// Walk the frames backwards from a different offset per worker.
			for i := 0; i < total; i++ {
				f := (total - 1 - i + w*7) % total
				data, _ := json.Marshal(Build(s, f, Options{}))
				if string(data) != string(want[f]) {
					errs <- f
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for f := range errs {
		t.Errorf("frame %d differed under concurrent access", f)
	}
}

func TestBuildClamped(t *testing.T) {
	s := newScript(30, 1.0, 2.0)
	rc := Build(s, 500, Options{})
	if rc.SceneID != "b" || rc.LocalFrame != 0 || rc.SceneStart != 30 || rc.Progress != 0 {
		t.Errorf("unexpected clamped context: %+v", rc)
	}
	if rc.Frame != 500 {
		t.Errorf("Frame should echo the request, got %d", rc.Frame)
	}
}

func TestRenderContextJSON(t *testing.T) {
	s := newScript(30, 1.0)
	s.Scenes[0].Layers = []script.Layer{{Kind: script.LayerText, Text: &script.TextLayer{Text: "hi", Style: script.DefaultTextStyle()}}}

	data, err := json.Marshal(Build(s, 3, Options{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"scene_id", "frame", "local_frame", "fps", "width", "height", "progress", "time_s", "background"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	layers, ok := m["layers"].([]interface{})
	if !ok || len(layers) != 1 {
		t.Fatalf("unexpected layers: %v", m["layers"])
	}
	layer := layers[0].(map[string]interface{})
	if layer["type"] != "text" || layer["text"] != "hi" {
		t.Errorf("unexpected layer encoding: %v", layer)
	}
}
