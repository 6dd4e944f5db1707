package script

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports a script that could not be turned into a typed
// document: malformed YAML, a missing required key, an unknown tag or a
// layer tree nested too deeply.
type ParseError struct {
	Source string // file path or other identifier of the input
	Field  string // dotted path to the offending key, empty if unknown
	Line   int    // 1-based line of the offending node, 0 if unknown
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse ")
	if e.Source != "" {
		b.WriteString(e.Source)
	} else {
		b.WriteString("script")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationKind classifies why a parsed script is not renderable.
type ValidationKind string

const (
	EmptyScenes      ValidationKind = "EmptyScenes"
	InvalidFrameRate ValidationKind = "InvalidFrameRate"
)

var (
	ErrEmptyScenes      = errors.New("script must contain at least one scene")
	ErrInvalidFrameRate = errors.New("invalid frame_rate (must be > 0)")
)

// ValidationError reports a structurally valid script that cannot be
// rendered. It unwraps to ErrEmptyScenes or ErrInvalidFrameRate.
type ValidationError struct {
	Kind   ValidationKind
	Source string
	Field  string
}

func (e *ValidationError) Error() string {
	src := e.Source
	if src == "" {
		src = "script"
	}
	return fmt.Sprintf("validate %s: %s: %v", src, e.Field, e.Unwrap())
}

func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case EmptyScenes:
		return ErrEmptyScenes
	case InvalidFrameRate:
		return ErrInvalidFrameRate
	}
	return fmt.Errorf("validation failed: %s", e.Kind)
}

// fieldError carries the key path of a decode failure up through nested
// UnmarshalYAML calls. Parse turns it into a ParseError.
type fieldError struct {
	path []string
	line int
	err  error
}

func (e *fieldError) Error() string {
	return strings.Join(e.path, ".") + ": " + e.err.Error()
}

func (e *fieldError) Unwrap() error { return e.err }

func newFieldError(key string, line int, err error) *fieldError {
	return &fieldError{path: []string{key}, line: line, err: err}
}

// prefixErr prepends seg to the path of err, wrapping plain errors.
func prefixErr(seg string, line int, err error) error {
	var fe *fieldError
	if errors.As(err, &fe) {
		fe.path = append([]string{seg}, fe.path...)
		return fe
	}
	return &fieldError{path: []string{seg}, line: line, err: err}
}

func missingKey(key string, line int) error {
	return newFieldError(key, line, errors.New("missing required key"))
}
