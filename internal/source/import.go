package source

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/ivlev/scenescript/internal/script"
)

// ImportOptions shape the generated script.
type ImportOptions struct {
	FrameRate int
	Width     int
	Height    int
	Theme     string

	// FitPage keeps Width and derives Height from the first page's aspect
	// ratio, rounded to an even number.
	FitPage bool

	// SecondsPerPage is the duration of every scene. When zero and
	// TotalSeconds is set, the total is spread over the pages and clamped
	// to [MinDwell, MaxDwell].
	SecondsPerPage float64
	TotalSeconds   float64
	MinDwell       float64
	MaxDwell       float64
}

// DefaultImportOptions returns 30 fps 1080p with five seconds per page.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		FrameRate:      30,
		Width:          1920,
		Height:         1080,
		SecondsPerPage: 5,
		MinDwell:       1,
		MaxDwell:       30,
	}
}

func (o ImportOptions) dwell(pages int) float64 {
	if o.SecondsPerPage > 0 {
		return o.SecondsPerPage
	}
	if o.TotalSeconds <= 0 || pages == 0 {
		return DefaultImportOptions().SecondsPerPage
	}
	d := o.TotalSeconds / float64(pages)
	if o.MinDwell > 0 {
		d = math.Max(d, o.MinDwell)
	}
	if o.MaxDwell > 0 {
		d = math.Min(d, o.MaxDwell)
	}
	return d
}

// ImportPDF builds a skeleton script with one slide scene per page of the
// PDF at path.
func ImportPDF(path string, opts ImportOptions) (*script.Script, error) {
	deck, err := NewFitzDeck(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer deck.Close()

	return FromDeck(deck, filepath.Base(path), opts)
}

// FromDeck builds a skeleton script from any deck. The first non-empty line
// of a page becomes the scene text and the remaining lines its narration
// script. name is used for scene sources as name#page=N.
func FromDeck(deck Deck, name string, opts ImportOptions) (*script.Script, error) {
	pages := deck.PageCount()
	if pages == 0 {
		return nil, fmt.Errorf("%s has no pages", name)
	}

	def := DefaultImportOptions()
	if opts.FrameRate <= 0 {
		opts.FrameRate = def.FrameRate
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.FitPage {
		w, h, err := deck.PageDimensions(0)
		if err != nil {
			return nil, fmt.Errorf("page 1: %w", err)
		}
		if w > 0 && h > 0 {
			opts.Height = max(2, int(math.Round(float64(opts.Width)*h/w/2))*2)
		}
	}
	dwell := opts.dwell(pages)

	s := &script.Script{
		Meta: script.Meta{
			FrameRate: opts.FrameRate,
			Width:     opts.Width,
			Height:    opts.Height,
			Theme:     opts.Theme,
		},
		Scenes: make([]script.Scene, 0, pages),
	}
	for i := 0; i < pages; i++ {
		text, err := deck.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		title, body := splitPageText(text)
		s.Scenes = append(s.Scenes, script.Scene{
			ID:              fmt.Sprintf("page-%02d", i+1),
			DurationSeconds: dwell,
			Type:            script.SceneSlide,
			Audio:           script.AudioMusic,
			Text:            title,
			Script:          body,
			Source:          fmt.Sprintf("%s#page=%d", name, i+1),
		})
	}
	s.SetSource(name)

	if err := script.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func splitPageText(text string) (title, body string) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", ""
	}
	return lines[0], strings.Join(lines[1:], "\n")
}
