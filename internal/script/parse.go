package script

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML scene script and validates it. source identifies the
// input (usually its path) in error messages. A script that fails
// validation is not returned.
func Parse(source string, data []byte) (*Script, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return nil, &ParseError{Source: source, Err: errors.New("empty document")}
	}

	var s Script
	if err := root.Decode(&s); err != nil {
		return nil, toParseError(source, err)
	}
	s.source = source

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports whether s can be rendered. It never modifies s, so
// calling it again on a valid script is a no-op success.
func Validate(s *Script) error {
	if len(s.Scenes) == 0 {
		return &ValidationError{Kind: EmptyScenes, Source: s.source, Field: "scenes"}
	}
	if s.Meta.FrameRate <= 0 {
		return &ValidationError{Kind: InvalidFrameRate, Source: s.source, Field: "meta.frame_rate"}
	}
	return nil
}

// ReadFile reads and parses the script at path.
func ReadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Marshal encodes s as YAML using the canonical key names.
func Marshal(s *Script) ([]byte, error) {
	return yaml.Marshal(s)
}

// Checksum returns the SHA-256 of the canonical YAML encoding of s. Two
// scripts with the same checksum produce the same render plan.
func Checksum(s *Script) (string, error) {
	data, err := Marshal(s)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteFile writes s to path as YAML, creating parent directories.
func WriteFile(s *Script, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func toParseError(source string, err error) error {
	var fe *fieldError
	if errors.As(err, &fe) {
		return &ParseError{
			Source: source,
			Field:  strings.Join(fe.path, "."),
			Line:   fe.line,
			Err:    fe.err,
		}
	}
	return &ParseError{Source: source, Err: err}
}
