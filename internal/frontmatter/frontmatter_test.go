package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantFM   string
		wantBody string
		wantOK   bool
		wantErr  error
	}{
		{name: "no front matter", in: "# Title\n", wantBody: "# Title\n"},
		{name: "simple", in: "---\ntitle: A\n---\nbody\n", wantFM: "title: A\n", wantBody: "body\n", wantOK: true},
		{name: "empty block", in: "---\n---\nbody", wantFM: "", wantBody: "body", wantOK: true},
		{name: "crlf", in: "---\r\ntitle: A\r\n---\r\nbody", wantFM: "title: A\r\n", wantBody: "body", wantOK: true},
		{name: "closing at eof", in: "---\ntitle: A\n---", wantFM: "title: A\n", wantBody: "", wantOK: true},
		{name: "unterminated", in: "---\ntitle: A\n", wantErr: ErrUnterminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, ok, err := Split([]byte(tt.in))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFM, string(fm))
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestParse(t *testing.T) {
	fields, body, err := Parse([]byte("---\ntitle: Hello\ndate: 2021-01-02\ntags: [go, web]\n---\nText\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", fields["title"])
	// Untagged timestamps decode to strings when the target is interface{}.
	assert.Equal(t, "2021-01-02", fields["date"])
	assert.Equal(t, []any{"go", "web"}, fields["tags"])
	assert.Equal(t, "Text\n", string(body))
}

func TestParse_NoFrontMatter(t *testing.T) {
	fields, body, err := Parse([]byte("plain"))
	require.NoError(t, err)
	assert.Empty(t, fields)
	assert.Equal(t, "plain", string(body))
}

func TestParse_InvalidYAML(t *testing.T) {
	_, _, err := Parse([]byte("---\ntitle: [unclosed\n---\n"))
	require.Error(t, err)
}
