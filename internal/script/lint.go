package script

import "fmt"

// Warning is a non-fatal authoring finding. Rendering still works, but the
// result is probably not what the author meant.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return w.Field + ": " + w.Message
}

// Lint returns authoring warnings for s in document order.
//
// Duplicate scene ids are reported here rather than rejected by Validate:
// frame addressing is by index and never needs ids, and SceneByID keeps
// returning the first match.
func Lint(s *Script) []Warning {
	var out []Warning
	if s.Meta.Width <= 0 || s.Meta.Height <= 0 {
		out = append(out, Warning{
			Field:   "meta",
			Message: fmt.Sprintf("non-positive resolution %dx%d", s.Meta.Width, s.Meta.Height),
		})
	}

	first := make(map[string]int, len(s.Scenes))
	for i, sc := range s.Scenes {
		field := fmt.Sprintf("scenes[%d]", i)
		if sc.ID == "" {
			out = append(out, Warning{Field: field + ".id", Message: "empty scene id"})
		} else if j, ok := first[sc.ID]; ok {
			out = append(out, Warning{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate scene id %q (first used by scenes[%d]; lookups by id return that one)", sc.ID, j),
			})
		} else {
			first[sc.ID] = i
		}
		if sc.DurationSeconds <= 0 {
			out = append(out, Warning{
				Field:   field + ".duration_seconds",
				Message: fmt.Sprintf("non-positive duration %g; the scene still occupies one frame", sc.DurationSeconds),
			})
		}
	}
	return out
}
