package pattern

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// ContentMapping carries JSON-path expressions ("items[0].title") that pluck
// {title, description?, body?, metadata?} out of an API response. Each path
// is parsed into a gojq query every time Apply runs.
type ContentMapping struct {
	Title       string
	Description string
	Body        string
	Metadata    map[string]string
}

// MappedContent is the result of applying a ContentMapping to a JSON value.
type MappedContent struct {
	Title       string
	Description string
	Body        string
	Metadata    map[string]string
}

// Apply walks data (as produced by encoding/json.Unmarshal into `any`) using
// the mapping's path expressions. A missing path yields an empty string for
// that field rather than an error — only the required-field gate in
// validation decides whether the overall result is acceptable.
func (m ContentMapping) Apply(data any) (MappedContent, error) {
	out := MappedContent{Metadata: make(map[string]string, len(m.Metadata))}

	var err error
	if out.Title, err = evalPath(m.Title, data); err != nil {
		return MappedContent{}, fmt.Errorf("content mapping title: %w", err)
	}
	if out.Description, err = evalPath(m.Description, data); err != nil {
		return MappedContent{}, fmt.Errorf("content mapping description: %w", err)
	}
	if out.Body, err = evalPath(m.Body, data); err != nil {
		return MappedContent{}, fmt.Errorf("content mapping body: %w", err)
	}
	for key, path := range m.Metadata {
		v, verr := evalPath(path, data)
		if verr != nil {
			return MappedContent{}, fmt.Errorf("content mapping metadata[%s]: %w", key, verr)
		}
		out.Metadata[key] = v
	}
	return out, nil
}

// evalPath compiles and runs a dot-plus-bracket path ("items[0].title")
// against data. An empty path or any traversal step that resolves to
// Missing yields "", matching §9's "traversal returns Missing on any step".
func evalPath(path string, data any) (string, error) {
	if path == "" {
		return "", nil
	}
	query, err := gojq.Parse("." + path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	iter := query.Run(data)
	v, ok := iter.Next()
	if !ok {
		return "", nil
	}
	if err, ok := v.(error); ok {
		return "", nil //nolint:nilerr // a failed traversal step is Missing, not a hard error
	}
	return stringify(v), nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
