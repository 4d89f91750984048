package content

import (
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/frontmatter"
)

// LoadDir reads every file under dir into a collection. See LoadFS.
func LoadDir(dir string, markdownExts []string) (*Collection, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "content directory not readable").
			WithContext("path", dir).Build()
	}
	if !info.IsDir() {
		return nil, errors.FileSystemError("content path is not a directory").WithContext("path", dir).Build()
	}
	return LoadFS(os.DirFS(dir), markdownExts)
}

// LoadFS walks fsys in lexical order. Markdown files have their front matter
// decoded into metadata and stripped from the body. Hidden files and
// directories are skipped.
func LoadFS(fsys fs.FS, markdownExts []string) (*Collection, error) {
	coll := &Collection{}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to read content file").
				WithContext("path", p).Build()
		}
		it, err := loadItem(p, data, markdownExts)
		if err != nil {
			return err
		}
		return coll.Add(it)
	})
	if err != nil {
		return nil, err
	}
	return coll, nil
}

func loadItem(p string, data []byte, markdownExts []string) (*Item, error) {
	ext := strings.ToLower(path.Ext(p))
	switch {
	case slices.Contains(markdownExts, ext):
		fields, body, err := frontmatter.Parse(data)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryValidation, "invalid front matter").
				WithContext("path", p).Build()
		}
		return NewItem(p, body, Metadata(fields), KindMarkdown), nil
	case ext == ".html" || ext == ".htm":
		return NewItem(p, data, nil, KindHTML), nil
	default:
		return NewItem(p, data, nil, KindAsset), nil
	}
}
