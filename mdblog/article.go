package mdblog

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Article is one markdown source rendered to HTML, with the title taken
// from its first line and dates from the filesystem. It is built fresh for
// every render and never changes afterwards.
type Article struct {
	path     string
	url      string
	title    string
	source   string
	body     template.HTML
	created  time.Time
	modified time.Time
	modTime  time.Time
}

// LoadArticle reads name from tree and converts it. url is where the
// rendered page will live, relative to its listing.
func LoadArticle(tree Tree, conv Converter, name, url string) (a *Article, err error) {
	zb, err := tree.ReadFile(name)
	if err != nil {
		return nil, sourceError(tree, name, err)
	}
	title, src := splitTitle(zb)
	body, err := conv.Convert(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tree.Path(name), err)
	}
	created, modTime, err := tree.Times(name)
	if err != nil {
		return nil, sourceError(tree, name, err)
	}
	a = &Article{
		path:     tree.Path(name),
		url:      url,
		title:    title,
		source:   string(src),
		body:     template.HTML(body),
		created:  toDate(created),
		modified: toDate(modTime),
		modTime:  modTime,
	}
	return
}

func sourceError(tree Tree, name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, tree.Path(name))
	}
	return fmt.Errorf("%s: %w", tree.Path(name), err)
}

// splitTitle returns the first line, without its line ending and trailing
// blanks, and everything after it.
func splitTitle(zb []byte) (title string, body []byte) {
	i := bytes.IndexByte(zb, '\n')
	if i == -1 {
		return strings.TrimRight(string(zb), " \t\r"), nil
	}
	return strings.TrimRight(string(zb[:i]), " \t\r"), zb[i+1:]
}

func toDate(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Path is where the source was read from.
func (a *Article) Path() string { return a.path }

// URL is the rendered page, relative to its listing.
func (a *Article) URL() string { return a.url }

// Title is the first line of the source.
func (a *Article) Title() string { return a.title }

// Source is the markdown after the title line.
func (a *Article) Source() string { return a.source }

// Body is the converted HTML, safe to emit unescaped.
func (a *Article) Body() template.HTML { return a.body }

// Created and Modified are calendar dates in local time.
func (a *Article) Created() time.Time  { return a.created }
func (a *Article) Modified() time.Time { return a.modified }

// Name is the source base name, without directories.
func (a *Article) Name() string {
	return filepath.Base(a.path)
}

// ReadableTimestamp is the creation date, plus the modification date when
// they differ.
func (a *Article) ReadableTimestamp() string {
	const timefmt = "02 Jan 2006"
	if a.created.Equal(a.modified) {
		return a.modified.Format(timefmt)
	}
	return a.created.Format(timefmt) + " (updated " + a.modified.Format(timefmt) + ")"
}

var (
	paraRe    = regexp.MustCompile(`(?si)<p>(.+?)</p>`)
	htmlTagRe = regexp.MustCompile(`(?s)</?[a-zA-Z]+.*?/?>`)
)

// Summary is the text of the first paragraph of the body, tags stripped and
// whitespace collapsed.
func (a *Article) Summary() string {
	q := paraRe.FindStringSubmatch(string(a.body))
	if q == nil {
		return ""
	}
	s := html.UnescapeString(htmlTagRe.ReplaceAllString(q[1], ""))
	return strings.Join(strings.Fields(s), " ")
}

// sortRecent orders articles most recently modified first, keeping scan
// order among equal times.
type sortRecent []*Article

func (x sortRecent) Len() int           { return len(x) }
func (x sortRecent) Less(i, j int) bool { return x[i].modTime.After(x[j].modTime) }
func (x sortRecent) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }
