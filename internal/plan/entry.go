package plan

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ivlev/scenescript/internal/timeline"
)

// Entry is one record of the exported render plan. Key names are what the
// capture driver reads.
type Entry struct {
	Frame      int     `json:"frame"`
	Time       float64 `json:"t"`
	SceneID    string  `json:"scene_id"`
	SceneIndex int     `json:"scene_index"`
	SceneFrame int     `json:"scene_frame"`
	SceneStart int     `json:"scene_start"`
	FrameRate  int     `json:"fps"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Text       *string `json:"text"`
}

// EntryFor flattens a render context into an export record.
func EntryFor(rc timeline.RenderContext) Entry {
	e := Entry{
		Frame:      rc.Frame,
		Time:       rc.Timestamp,
		SceneID:    rc.SceneID,
		SceneIndex: rc.SceneIndex,
		SceneFrame: rc.LocalFrame,
		SceneStart: rc.SceneStart,
		FrameRate:  rc.FrameRate,
		Width:      rc.Width,
		Height:     rc.Height,
	}
	if rc.Text != "" {
		text := rc.Text
		e.Text = &text
	}
	return e
}

// Entries flattens every context.
func Entries(contexts []timeline.RenderContext) []Entry {
	out := make([]Entry, len(contexts))
	for i, rc := range contexts {
		out[i] = EntryFor(rc)
	}
	return out
}

// WriteJSON writes entries to path as an indented JSON array, creating
// parent directories as needed.
func WriteJSON(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plan directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteJSONL writes one entry per line.
func WriteJSONL(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return fmt.Errorf("encode frame %d: %w", entries[i].Frame, err)
		}
	}
	return bw.Flush()
}

// WriteJSONLFile writes entries to path in JSON Lines form, creating parent
// directories as needed.
func WriteJSONLFile(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plan directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSONL(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON loads a plan written by WriteJSON.
func ReadJSON(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}
