// Package slate draws verification frames: a flat background in the scene's
// colour, a QR code carrying the frame key and a few lines of timing text.
// A capture driver can decode the QR code from its own output to check that
// it rendered the frame it was asked for.
package slate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/scenescript/internal/system"
	"github.com/ivlev/scenescript/internal/timeline"
)

const (
	padding    = 16
	lineHeight = 16
)

// Options size the slate. Zero values take the context's resolution and a
// QR code a third of the shorter side.
type Options struct {
	Width  int
	Height int
	QRSize int
}

func (o Options) resolve(rc timeline.RenderContext) (w, h, qr int) {
	w, h = o.Width, o.Height
	if w <= 0 {
		w = rc.Width
	}
	if h <= 0 {
		h = rc.Height
	}
	qr = o.QRSize
	if qr <= 0 {
		qr = min(w, h) / 3
	}
	return w, h, qr
}

// FrameKey is the string encoded in a slate's QR code.
func FrameKey(rc timeline.RenderContext) string {
	return rc.SceneID + "/" + strconv.Itoa(rc.Frame)
}

// FileName is the PNG name RenderAll uses for frame.
func FileName(frame int) string {
	return fmt.Sprintf("frame_%06d.png", frame)
}

// Render draws the slate for rc into a new image.
func Render(rc timeline.RenderContext, opts Options) (*image.RGBA, error) {
	w, h, _ := opts.resolve(rc)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid slate size %dx%d", w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := renderInto(img, rc, opts); err != nil {
		return nil, err
	}
	return img, nil
}

func renderInto(dst *image.RGBA, rc timeline.RenderContext, opts Options) error {
	_, _, qrSize := opts.resolve(rc)

	bg := ParseColor(rc.Background, color.RGBA{0x0e, 0x11, 0x17, 0xff})
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if qrSize > 0 {
		q, err := qrcode.New(FrameKey(rc), qrcode.Medium)
		if err != nil {
			return fmt.Errorf("encode frame key: %w", err)
		}
		code := q.Image(qrSize)
		at := image.Pt(padding, padding)
		draw.Draw(dst, code.Bounds().Add(at), code, code.Bounds().Min, draw.Src)
	}

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor(bg)),
		Face: basicfont.Face7x13,
	}
	y := padding + qrSize + padding + lineHeight
	for _, line := range infoLines(rc) {
		drawer.Dot = fixed.P(padding, y)
		drawer.DrawString(line)
		y += lineHeight
	}
	return nil
}

func infoLines(rc timeline.RenderContext) []string {
	lines := []string{
		fmt.Sprintf("scene %s (#%d, %s)", rc.SceneID, rc.SceneIndex, rc.SceneType),
		fmt.Sprintf("frame %d  local %d/%d  start %d", rc.Frame, rc.LocalFrame, rc.SceneFrames, rc.SceneStart),
		fmt.Sprintf("t=%.3fs  scene t=%.3fs  progress=%.3f", rc.Timestamp, rc.TimeSeconds, rc.Progress),
	}
	if rc.Text != "" {
		lines = append(lines, rc.Text)
	}
	return lines
}

// RenderAll writes one PNG per context into dir, rendering up to workers
// slates at a time.
func RenderAll(ctx context.Context, contexts []timeline.RenderContext, dir string, opts Options, workers int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create slate directory: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, rc := range contexts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeSlate(filepath.Join(dir, FileName(rc.Frame)), rc, opts)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func writeSlate(path string, rc timeline.RenderContext, opts Options) error {
	w, h, _ := opts.resolve(rc)
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid slate size %dx%d", w, h)
	}
	img := system.GetImage(image.Rect(0, 0, w, h))
	defer system.PutImage(img)

	if err := renderInto(img, rc, opts); err != nil {
		return fmt.Errorf("frame %d: %w", rc.Frame, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %d: %w", rc.Frame, err)
	}
	return f.Close()
}

// ParseColor parses #rgb or #rrggbb. Anything else yields def.
func ParseColor(s string, def color.RGBA) color.RGBA {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return def
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// textColor picks black or white, whichever reads better on bg.
func textColor(bg color.RGBA) color.Color {
	lum := 299*int(bg.R) + 587*int(bg.G) + 114*int(bg.B)
	if lum > 128*1000 {
		return color.Black
	}
	return color.White
}
