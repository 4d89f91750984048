package content

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

// Kind classifies an item by how the build treats its body.
type Kind int

const (
	KindAsset    Kind = iota // copied verbatim, never scanned
	KindMarkdown             // rendered to HTML, references rewritten by the renderer
	KindHTML                 // authored HTML, references rewritten by the tokenizer pass
)

func (k Kind) String() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindHTML:
		return "html"
	default:
		return "asset"
	}
}

// Item is one content item flowing through the build.
type Item struct {
	original string

	// Current is the output path. Route assignment rewrites it; once the
	// identity map is frozen it must not change.
	Current string

	Content   []byte
	Meta      Metadata
	Kind      Kind
	Synthetic bool // created by the build, never read from source
}

// NewItem creates an item whose original and current paths are both p.
func NewItem(p string, body []byte, meta Metadata, kind Kind) *Item {
	p = NormalizePath(p)
	if meta == nil {
		meta = Metadata{}
	}
	return &Item{original: p, Current: p, Content: body, Meta: meta, Kind: kind}
}

// Original returns the source path. It never changes after being set.
func (it *Item) Original() string { return it.original }

// SetOriginal sets the source path of an item constructed without one.
func (it *Item) SetOriginal(p string) error {
	p = NormalizePath(p)
	if it.original != "" && it.original != p {
		return errors.IdentityError("original path is immutable").
			WithContext("original", it.original).
			WithContext("attempted", p).
			Build()
	}
	it.original = p
	return nil
}

// IsPage reports whether the body contains references worth rewriting.
func (it *Item) IsPage() bool { return it.Kind != KindAsset }

// IsHTMLOutput reports whether the current path is an HTML document.
func (it *Item) IsHTMLOutput() bool {
	ext := strings.ToLower(path.Ext(it.Current))
	return ext == ".html" || ext == ".htm"
}
