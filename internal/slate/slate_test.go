package slate

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/scenescript/internal/script"
	"github.com/ivlev/scenescript/internal/timeline"
)

func testContexts(t *testing.T) []timeline.RenderContext {
	t.Helper()
	s, err := script.Parse("scenes.yaml", []byte(`
meta: { frame_rate: 10, width: 640, height: 360, background: "#336699" }
scenes:
  - { id: intro, duration_seconds: 0.5, text: "Hello" }
  - { id: outro, duration_seconds: 0.3 }
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tl := timeline.New(s)
	out := make([]timeline.RenderContext, tl.TotalFrames())
	for f := range out {
		out[f] = tl.Build(f, timeline.Options{})
	}
	return out
}

func TestFrameKey(t *testing.T) {
	rc := testContexts(t)[6]
	if got := FrameKey(rc); got != "outro/6" {
		t.Errorf("FrameKey() = %q, want outro/6", got)
	}
	if got := FileName(42); got != "frame_000042.png" {
		t.Errorf("FileName(42) = %q", got)
	}
}

func TestParseColor(t *testing.T) {
	def := color.RGBA{1, 2, 3, 255}
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#336699", color.RGBA{0x33, 0x66, 0x99, 0xff}},
		{"336699", color.RGBA{0x33, 0x66, 0x99, 0xff}},
		{"#fff", color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{"#12345", def},
		{"#zzzzzz", def},
		{"", def},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in, def); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	rc := testContexts(t)[2]

	img, err := Render(rc, Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 360 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if got := img.RGBAAt(639, 359); got != (color.RGBA{0x33, 0x66, 0x99, 0xff}) {
		t.Errorf("background pixel = %v", got)
	}

	again, err := Render(rc, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img.Pix, again.Pix) {
		t.Error("Render is not deterministic")
	}

	other, _ := Render(testContexts(t)[3], Options{})
	if bytes.Equal(img.Pix, other.Pix) {
		t.Error("different frames rendered identical slates")
	}
}

func TestRender_CustomSize(t *testing.T) {
	img, err := Render(testContexts(t)[0], Options{Width: 200, Height: 120, QRSize: 40})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 120 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestRender_InvalidSize(t *testing.T) {
	rc := testContexts(t)[0]
	rc.Width = 0
	if _, err := Render(rc, Options{}); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestRenderAll(t *testing.T) {
	contexts := testContexts(t)
	dir := filepath.Join(t.TempDir(), "slates")

	if err := RenderAll(context.Background(), contexts, dir, Options{Width: 160, Height: 90}, 4); err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(contexts) {
		t.Fatalf("expected %d files, got %d", len(contexts), len(entries))
	}

	f, err := os.Open(filepath.Join(dir, FileName(7)))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if img.Bounds().Dx() != 160 {
		t.Errorf("unexpected width %d", img.Bounds().Dx())
	}

	want, _ := Render(contexts[7], Options{Width: 160, Height: 90})
	for _, p := range [][2]int{{0, 0}, {20, 20}, {159, 89}} {
		r1, g1, b1, _ := img.At(p[0], p[1]).RGBA()
		r2, g2, b2, _ := want.At(p[0], p[1]).RGBA()
		if r1 != r2 || g1 != g2 || b1 != b2 {
			t.Errorf("pixel %v differs between RenderAll and Render", p)
		}
	}
}

func TestRenderAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RenderAll(ctx, testContexts(t), t.TempDir(), Options{Width: 64, Height: 64}, 2)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RenderAll() error = %v, want context.Canceled", err)
	}
}
