package linkverify

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/reference"
)

// Link represents an extracted link from HTML content.
type Link struct {
	URL       string // attribute value, entities decoded
	Text      string // link text, alt or rel
	Tag       string
	Attribute string
	Kind      reference.Kind
}

// Document is the parsed form of one HTML page.
type Document struct {
	Links   []Link
	Anchors map[string]struct{} // id and a[name] values
}

// HasAnchor reports whether an element with the given fragment identifier exists.
func (d *Document) HasAnchor(fragment string) bool {
	if _, ok := d.Anchors[fragment]; ok {
		return true
	}
	if unescaped, err := url.PathUnescape(fragment); err == nil {
		_, ok := d.Anchors[unescaped]
		return ok
	}
	return false
}

// ParseDocument extracts links and fragment anchors from an HTML body.
func ParseDocument(body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	doc := &Document{Anchors: map[string]struct{}{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := getAttr(n, "id"); id != "" {
				doc.Anchors[id] = struct{}{}
			}
			if n.Data == "a" {
				if name := getAttr(n, "name"); name != "" {
					doc.Anchors[name] = struct{}{}
				}
			}
			extractElementLinks(n, doc)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return doc, nil
}

// extractElementLinks extracts links from a single HTML element.
func extractElementLinks(n *html.Node, doc *Document) {
	add := func(attr, text string, kind reference.Kind) {
		if v := getAttr(n, attr); v != "" {
			doc.Links = append(doc.Links, Link{URL: v, Text: text, Tag: n.Data, Attribute: attr, Kind: kind})
		}
	}
	switch n.Data {
	case "a", "area":
		add("href", extractText(n), reference.KindLink)
	case "img":
		add("src", getAttr(n, "alt"), reference.KindImage)
	case "link":
		add("href", getAttr(n, "rel"), reference.KindLink)
	case "script", "source", "audio", "track", "iframe":
		add("src", "", reference.KindImage)
	case "video":
		add("src", "", reference.KindImage)
		add("poster", "", reference.KindImage)
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key && attr.Namespace == "" {
			return attr.Val
		}
	}
	return ""
}

// extractText extracts text content from an HTML node and its children.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.TrimSpace(text.String())
}

// linkClass tells the validator how to check a reference.
type linkClass int

const (
	classSkip linkClass = iota
	classFragment
	classInternal // relative to the referencing page
	classRooted   // root-absolute, or absolute on the site's own host
	classExternal
)

// classify decides how raw is checked. site may be nil. For classRooted the
// returned path is root-relative without the leading slash.
func classify(raw string, site *url.URL) (linkClass, string) {
	if raw == "" {
		return classSkip, ""
	}
	if raw[0] == '#' {
		return classFragment, ""
	}
	lower := strings.ToLower(raw)
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return classSkip, ""
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return classInternal, raw
	}
	switch {
	case u.Host != "":
		if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
			return classSkip, ""
		}
		if site != nil && strings.EqualFold(u.Host, site.Host) {
			return classRooted, stripBase(u.Path, site.Path)
		}
		if u.Scheme == "" {
			return classExternal, "https:" + raw
		}
		return classExternal, raw
	case u.Scheme != "":
		return classSkip, ""
	case strings.HasPrefix(raw, "/"):
		base := ""
		if site != nil {
			base = site.Path
		}
		return classRooted, stripBase(u.Path, base)
	default:
		return classInternal, raw
	}
}

func stripBase(p, base string) string {
	base = strings.Trim(base, "/")
	p = strings.TrimPrefix(p, "/")
	if base != "" {
		if p == base {
			return ""
		}
		p = strings.TrimPrefix(p, base+"/")
	}
	return p
}
