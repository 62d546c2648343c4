package mdblog

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

// The two templates every template directory must provide.
const (
	ListTemplate    = "list.html"
	ArticleTemplate = "article.html"
)

// Engine names accepted by NewRenderer and Config.TemplateEngine.
const (
	EngineHTML   = "html"
	EnginePongo2 = "pongo2"
)

// Renderer executes a named template against a context. Contexts for
// ListTemplate carry Articles, Title and CSSPrefix; contexts for
// ArticleTemplate carry Article and CSSPrefix.
type Renderer interface {
	Render(w io.Writer, name string, data map[string]any) error
}

// NewRenderer loads the templates in dir for engine. An empty engine means
// html/template. Each engine has its own syntax, so each needs its own
// template directory.
func NewRenderer(engine, dir string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineHTML:
		return newHTMLRenderer(dir)
	case EnginePongo2:
		return newPongo2Renderer(dir)
	}
	return nil, fmt.Errorf("%w: unknown template engine %q", ErrInvalidConfig, engine)
}

var tmplFn = template.FuncMap{
	"_fmt_date":   formatDate,
	"_has_prefix": strings.HasPrefix,
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

type htmlRenderer struct {
	dir string
	t   *template.Template
}

func newHTMLRenderer(dir string) (r *htmlRenderer, err error) {
	if err = checkTemplateDir(dir); err != nil {
		return
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no *.html templates in %s", ErrTemplateNotFound, dir)
	}
	t := template.New("").Funcs(tmplFn).Option("missingkey=error")
	if t, err = t.ParseFiles(files...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateRender, dir, err)
	}
	return &htmlRenderer{dir: dir, t: t}, nil
}

func (r *htmlRenderer) Render(w io.Writer, name string, data map[string]any) error {
	t := r.t.Lookup(name)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, filepath.Join(r.dir, name))
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTemplateRender, name, err)
	}
	return nil
}

type pongo2Renderer struct {
	dir string
	set *pongo2.TemplateSet
}

func newPongo2Renderer(dir string) (*pongo2Renderer, error) {
	if err := checkTemplateDir(dir); err != nil {
		return nil, err
	}
	loader, err := pongo2.NewLocalFileSystemLoader(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateNotFound, dir, err)
	}
	return &pongo2Renderer{dir: dir, set: pongo2.NewSet("mdblog", loader)}, nil
}

func (r *pongo2Renderer) Render(w io.Writer, name string, data map[string]any) error {
	fpath := filepath.Join(r.dir, name)
	if _, err := os.Stat(fpath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, fpath)
		}
		return err
	}
	t, err := r.set.FromFile(name)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTemplateRender, name, err)
	}
	if err = t.ExecuteWriter(pongo2.Context(data), w); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTemplateRender, name, err)
	}
	return nil
}

func checkTemplateDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: template directory %s does not exist", ErrTemplateNotFound, dir)
		}
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrTemplateNotFound, dir)
	}
	return nil
}
