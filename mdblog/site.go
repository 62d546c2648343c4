package mdblog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// indexPage is the listing written into every output directory.
const indexPage = "index.html"

// Listing is the context of one directory's index page.
type Listing struct {
	Articles  []*Article
	Title     string
	CSSPrefix string
}

// Result counts what a Generate run wrote.
type Result struct {
	Dirs     int
	Articles int
	Duration time.Duration
}

// Generator mirrors a source tree of markdown files into an output tree of
// HTML pages, with an index.html listing per directory.
type Generator struct {
	cfg  Config
	tree Tree
	conv Converter
	tmpl Renderer
	log  Logger
}

// Option replaces one of the parts NewGenerator would otherwise build from
// the Config.
type Option func(*Generator)

// WithTree reads sources from t instead of the source root on disk.
func WithTree(t Tree) Option { return func(g *Generator) { g.tree = t } }

// WithConverter sets the markdown converter.
func WithConverter(c Converter) Option { return func(g *Generator) { g.conv = c } }

// WithRenderer sets the template renderer.
func WithRenderer(r Renderer) Option { return func(g *Generator) { g.tmpl = r } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(l Logger) Option { return func(g *Generator) { g.log = l } }

// NewGenerator builds the converter and renderer named by cfg unless they
// are supplied as options. Templates are loaded here, so every generator
// sees the template directory as it was when it was created.
func NewGenerator(cfg Config, opts ...Option) (g *Generator, err error) {
	if len(cfg.MarkdownExtensions) == 0 {
		cfg.MarkdownExtensions = DefaultConfig().MarkdownExtensions
	}
	exts := make([]string, 0, len(cfg.MarkdownExtensions))
	for _, ext := range cfg.MarkdownExtensions {
		exts = append(exts, strings.ToLower(strings.TrimSpace(ext)))
	}
	cfg.MarkdownExtensions = exts
	if cfg.TitleFile == "" {
		cfg.TitleFile = DefaultTitleFile
	}
	if cfg.OutputRoot == "" {
		return nil, fmt.Errorf("%w: output_root is empty", ErrInvalidConfig)
	}
	g = &Generator{cfg: cfg}
	for _, o := range opts {
		o(g)
	}
	if g.log == nil {
		g.log = NopLogger()
	}
	if g.tree == nil {
		if cfg.SourceRoot == "" {
			return nil, fmt.Errorf("%w: source_root is empty", ErrInvalidConfig)
		}
		if err = checkOutputRoot(cfg.OutputRoot, "source_root", cfg.SourceRoot); err != nil {
			return nil, err
		}
		g.tree = DirTree(cfg.SourceRoot)
	}
	if g.conv == nil {
		if g.conv, err = NewConverter(cfg.Markdown); err != nil {
			return nil, err
		}
	}
	if g.tmpl == nil {
		if err = checkOutputRoot(cfg.OutputRoot, "template_dir", cfg.TemplateDir); err != nil {
			return nil, err
		}
		if g.tmpl, err = NewRenderer(cfg.TemplateEngine, cfg.TemplateDir); err != nil {
			return nil, err
		}
	}
	return
}

// Generate walks the whole source tree. The first error aborts the run and
// may leave a partially written output tree.
func (g *Generator) Generate(ctx context.Context) (res Result, err error) {
	t0 := time.Now()
	g.log.Info("generating site", "source", g.tree.Path("."), "output", g.cfg.OutputRoot)
	err = g.walk(ctx, "", &res)
	res.Duration = time.Since(t0)
	if err != nil {
		g.log.Error("generation failed", "error", err)
		return
	}
	g.log.Info("generated site", "dirs", res.Dirs, "articles", res.Articles, "took", res.Duration)
	return
}

// walk handles the directory at extra, which is "" for the root and
// otherwise a slash separated path ending in "/".
func (g *Generator) walk(ctx context.Context, extra string, res *Result) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	prefix := CSSPrefix(extra)
	outDir := filepath.Join(g.cfg.OutputRoot, filepath.FromSlash(extra))
	if err = os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, outDir, err)
	}

	entries, err := g.tree.ReadDir(treeName(extra))
	if err != nil {
		return sourceError(g.tree, treeName(extra), err)
	}

	l, err := g.listing(extra, entries, prefix)
	if err != nil {
		return
	}
	var buf bytes.Buffer
	err = g.tmpl.Render(&buf, ListTemplate, map[string]any{
		"Articles":  l.Articles,
		"Title":     l.Title,
		"CSSPrefix": l.CSSPrefix,
	})
	if err != nil {
		return
	}
	if err = writeOutput(filepath.Join(outDir, indexPage), buf.Bytes()); err != nil {
		return
	}
	res.Dirs++
	g.log.Debug("wrote listing", "dir", outDir, "articles", len(l.Articles))

	for _, e := range entries {
		name := e.Name()
		if skipEntry(name) {
			continue
		}
		dir, file, zerr := g.kind(extra+name, e)
		if zerr != nil {
			return zerr
		}
		switch {
		case dir:
			if err = g.walk(ctx, extra+name+"/", res); err != nil {
				return
			}
		case file && g.isMarkdown(name):
			if err = g.writeArticle(extra+name, prefix); err != nil {
				return
			}
			res.Articles++
		}
	}
	return
}

// listing loads the markdown files directly under extra. Two sources that
// map to the same page, or a page that would replace index.html, fail the
// run instead of silently overwriting each other.
func (g *Generator) listing(extra string, entries []fs.DirEntry, prefix string) (l *Listing, err error) {
	l = &Listing{CSSPrefix: prefix}
	pages := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if skipEntry(name) || !g.isMarkdown(name) {
			continue
		}
		_, file, zerr := g.kind(extra+name, e)
		if zerr != nil {
			return nil, zerr
		}
		if !file {
			continue
		}
		url := htmlName(name)
		if url == indexPage {
			return nil, fmt.Errorf("%w: %s would replace the listing %s",
				ErrOutputConflict, g.tree.Path(extra+name), extra+indexPage)
		}
		if prev, ok := pages[url]; ok {
			return nil, fmt.Errorf("%w: %s and %s both render to %s",
				ErrOutputConflict, g.tree.Path(extra+prev), g.tree.Path(extra+name), extra+url)
		}
		pages[url] = name
		a, zerr := LoadArticle(g.tree, g.conv, extra+name, url)
		if zerr != nil {
			return nil, zerr
		}
		l.Articles = append(l.Articles, a)
	}
	if l.Title, err = g.listingTitle(extra); err != nil {
		return
	}
	sort.Stable(sortRecent(l.Articles))
	return
}

// listingTitle is the full content of the sidecar title file, or the
// default title when there is none.
func (g *Generator) listingTitle(extra string) (string, error) {
	name := extra + g.cfg.TitleFile
	fi, err := g.tree.Stat(name)
	if err != nil || !fi.Mode().IsRegular() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return g.defaultTitle(), nil
		}
		return "", sourceError(g.tree, name, err)
	}
	zb, err := g.tree.ReadFile(name)
	if err != nil {
		return "", sourceError(g.tree, name, err)
	}
	return string(zb), nil
}

func (g *Generator) defaultTitle() string {
	if g.cfg.DefaultTitle == "" {
		return DefaultListingTitle
	}
	return g.cfg.DefaultTitle
}

// writeArticle renders the source at page, a path relative to the source
// root, next to its listing.
func (g *Generator) writeArticle(page, prefix string) (err error) {
	fi, err := g.tree.Stat(page)
	if err != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s does not exist", ErrSourceNotFound, g.tree.Path(page))
	}
	a, err := LoadArticle(g.tree, g.conv, page, htmlName(path.Base(page)))
	if err != nil {
		return
	}
	var buf bytes.Buffer
	err = g.tmpl.Render(&buf, ArticleTemplate, map[string]any{
		"Article":   a,
		"CSSPrefix": prefix,
	})
	if err != nil {
		return
	}
	dest := filepath.Join(g.cfg.OutputRoot, filepath.FromSlash(htmlName(page)))
	if err = writeOutput(dest, buf.Bytes()); err != nil {
		return
	}
	g.log.Debug("wrote article", "source", a.Path(), "output", dest)
	return
}

// kind reports whether the entry is a directory or a regular file,
// following symlinks.
func (g *Generator) kind(name string, e fs.DirEntry) (dir, file bool, err error) {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir(), e.Type().IsRegular(), nil
	}
	fi, err := g.tree.Stat(name)
	if err != nil {
		return false, false, sourceError(g.tree, name, err)
	}
	return fi.IsDir(), fi.Mode().IsRegular(), nil
}

func (g *Generator) isMarkdown(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return false
	}
	ext := strings.ToLower(name[i:])
	for _, x := range g.cfg.MarkdownExtensions {
		if ext == x {
			return true
		}
	}
	return false
}

// CSSPrefix climbs from a page in the output directory at extra back to
// the parent of the output root, where shared assets live: one "../" per
// segment of extra, plus one for the output root.
func CSSPrefix(extra string) string {
	n := 1
	for _, s := range strings.Split(extra, "/") {
		if s != "" {
			n++
		}
	}
	return strings.Repeat("../", n)
}

func htmlName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".html"
}

func treeName(extra string) string {
	if extra = strings.TrimSuffix(extra, "/"); extra == "" {
		return "."
	}
	return extra
}

// skipEntry drops hidden files such as editor swap files and .git.
func skipEntry(name string) bool {
	return name == "" || name[0] == '.'
}

func writeOutput(fpath string, zb []byte) error {
	if err := os.WriteFile(fpath, zb, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, fpath, err)
	}
	return nil
}
