// Package frontmatter separates YAML front matter from a markdown body.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrUnterminated indicates the document opened a front matter block but never closed it.
var ErrUnterminated = errors.New("front matter opened with --- but never closed")

// Split returns the raw YAML block (without delimiters) and the body that follows.
// A document that does not start with `---` has no front matter and is returned
// unchanged as body.
func Split(content []byte) (fm []byte, body []byte, ok bool, err error) {
	nl := newline(content)
	open := []byte(delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}

	closing := []byte(nl + delimiter)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		return nil, nil, false, ErrUnterminated
	}
	after := rest[idx+len(closing):]
	switch {
	case len(after) == 0:
	case bytes.HasPrefix(after, []byte(nl)):
		after = after[len(nl):]
	default:
		// `---` followed by more text on the same line is not a delimiter.
		return nil, nil, false, ErrUnterminated
	}
	return rest[:idx+len(nl)], after, true, nil
}

// Parse splits content and decodes the YAML block into a field map. Documents
// without front matter yield an empty map and the full content as body.
func Parse(content []byte) (map[string]any, []byte, error) {
	fm, body, ok, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	fields := map[string]any{}
	if !ok || len(bytes.TrimSpace(fm)) == 0 {
		return fields, body, nil
	}
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, body, nil
}

func newline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
