package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/scenescript/internal/script"
)

// ImageDeck treats a folder of slide images as a deck. Images carry no
// text, so a page's text is its file name with separators turned into
// spaces.
type ImageDeck struct {
	paths []string
}

func NewImageDeck(path string) (*ImageDeck, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".jpg", ".jpeg", ".png":
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &ImageDeck{paths: paths}, nil
}

func (d *ImageDeck) PageCount() int {
	return len(d.paths)
}

func (d *ImageDeck) PageText(index int) (string, error) {
	if index < 0 || index >= len(d.paths) {
		return "", fmt.Errorf("page %d out of range", index+1)
	}
	name := strings.TrimSuffix(filepath.Base(d.paths[index]), filepath.Ext(d.paths[index]))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.TrimSpace(name), nil
}

func (d *ImageDeck) PageDimensions(index int) (float64, float64, error) {
	f, err := os.Open(d.paths[index])
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

func (d *ImageDeck) Close() error {
	return nil
}

// ImportImages builds a skeleton script with one slide scene per image in
// dir, in file name order.
func ImportImages(dir string, opts ImportOptions) (*script.Script, error) {
	deck, err := NewImageDeck(dir)
	if err != nil {
		return nil, err
	}
	return FromDeck(deck, filepath.Base(dir), opts)
}
