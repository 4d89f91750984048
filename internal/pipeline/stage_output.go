package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/linkverify"
	"git.home.luguber.info/inful/sitelinks/internal/logfields"
)

// pageLink strips the index document from an output path: "a/index.html"
// becomes "a/" and the root index becomes "".
func pageLink(current string) string {
	if current == "index.html" {
		return ""
	}
	if strings.HasSuffix(current, "/index.html") {
		return strings.TrimSuffix(current, "index.html")
	}
	return current
}

// stageDeriveLinks stores each page's published link in its metadata for
// templates downstream.
func stageDeriveLinks(_ context.Context, bs *BuildState) error {
	site := strings.TrimRight(bs.Builder.cfg.Site.URL, "/")
	for _, it := range bs.Collection.Items() {
		if !it.IsPage() {
			continue
		}
		link := pageLink(it.Current)
		it.Meta.Set(content.KeyLink, link)
		it.Meta.Set(content.KeyLinkFromRoot, "/"+link)
		it.Meta.Set(content.KeyPathToRoot, content.PathToRoot(it.Current))
		if site != "" {
			it.Meta.Set(content.KeyLinkAbsolute, site+"/"+link)
		}
	}
	return nil
}

// cleanOutput removes the output directory, refusing paths that would take the
// content tree or the working directory with it.
func cleanOutput(outDir, contentDir string) error {
	out, err := filepath.Abs(outDir)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve output directory").Build()
	}
	wd, _ := os.Getwd()
	src, _ := filepath.Abs(contentDir)
	if out == filepath.Dir(out) || out == wd || out == src || strings.HasPrefix(src, out+string(filepath.Separator)) {
		return errors.ConfigError("refusing to clean output directory").
			WithContext("output", out).
			WithContext("content", src).
			Build()
	}
	if err := os.RemoveAll(out); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean output directory").
			WithContext("output", out).
			Build()
	}
	return nil
}

func stageWriteOutput(_ context.Context, bs *BuildState) error {
	cfg := bs.Builder.cfg
	if cfg.Output.Clean {
		if err := cleanOutput(cfg.Output.Directory, cfg.Content.Directory); err != nil {
			return err
		}
	}
	for _, it := range bs.Collection.Items() {
		dest := filepath.Join(cfg.Output.Directory, filepath.FromSlash(it.Current))
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
				WithContext("path", dest).
				Build()
		}
		if err := os.WriteFile(dest, it.Content, 0o600); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to write output file").
				WithContext("item", it.Original()).
				WithContext("path", dest).
				Build()
		}
	}
	slog.Info("Output written",
		slog.String("directory", cfg.Output.Directory),
		logfields.Count(bs.Collection.Len()))
	return nil
}

// stageValidate re-scans the output tree. Unresolved references from the
// rewrite stages are always reported, even with validation disabled.
func stageValidate(ctx context.Context, bs *BuildState) error {
	v := bs.Builder.validator
	if v == nil {
		bs.Report = linkverify.ReportUnresolved(bs.Unresolved)
	} else {
		report, err := v.Validate(ctx, bs.Collection.Items(), bs.Unresolved)
		if err != nil {
			return err
		}
		bs.Report = report
	}

	for _, f := range bs.Report.Failures {
		level := slog.LevelError
		if f.Severity == linkverify.SeverityWarning {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Broken reference",
			logfields.Item(f.Source),
			logfields.CurrentPath(f.Current),
			logfields.Reference(f.Raw),
			logfields.Reason(string(f.Reason)))
	}
	slog.Info("Validation finished",
		logfields.BuildID(bs.Report.BuildID),
		slog.Int("pages", bs.Report.Pages),
		slog.Int("checked", bs.Report.Checked),
		slog.Int("errors", len(bs.Report.Errors())),
		slog.Int("warnings", len(bs.Report.Warnings())))
	return nil
}
