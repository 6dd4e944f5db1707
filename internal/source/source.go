// Package source turns existing documents into skeleton scene scripts.
package source

import (
	"github.com/gen2brain/go-fitz"
)

// Deck is a paged document that text can be pulled from.
type Deck interface {
	PageCount() int
	PageText(index int) (string, error)
	PageDimensions(index int) (width, height float64, err error)
	Close() error
}

// FitzDeck reads PDF pages through MuPDF.
type FitzDeck struct {
	doc  *fitz.Document
	path string
}

func NewFitzDeck(path string) (*FitzDeck, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzDeck{doc: doc, path: path}, nil
}

func (f *FitzDeck) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzDeck) PageText(index int) (string, error) {
	return f.doc.Text(index)
}

func (f *FitzDeck) PageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzDeck) Close() error {
	return f.doc.Close()
}
