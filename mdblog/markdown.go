package mdblog

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/russross/blackfriday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter turns a markdown body into an HTML fragment.
type Converter interface {
	Convert(src []byte) ([]byte, error)
}

// Converter names accepted by NewConverter and Config.Markdown.
const (
	MarkdownGoldmark    = "goldmark"
	MarkdownBlackfriday = "blackfriday"
)

// HighlightStyle is the chroma style used when code is highlighted inline.
// Pages get CSS classes instead, so a stylesheet decides the colors.
const HighlightStyle = "friendly"

// NewConverter returns the converter called name. An empty name means
// goldmark.
func NewConverter(name string) (Converter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MarkdownGoldmark:
		return newGoldmarkConverter(), nil
	case MarkdownBlackfriday:
		return blackfridayConverter{}, nil
	}
	return nil, fmt.Errorf("%w: unknown markdown converter %q", ErrInvalidConfig, name)
}

type goldmarkConverter struct {
	md goldmark.Markdown
}

// The "extra" set: tables, footnotes, definition lists, fenced code (core),
// attribute lists and inline HTML. Code blocks are highlighted with chroma.
func newGoldmarkConverter() goldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Footnote,
			extension.DefinitionList,
			highlighting.NewHighlighting(
				highlighting.WithStyle(HighlightStyle),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(parser.WithAttribute()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return goldmarkConverter{md: md}
}

func (c goldmarkConverter) Convert(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	markdownExtensions int
	markdownFlags      int
)

func init() {
	// configure precisely what "extra" needs instead of using MarkdownCommon.
	markdownExtensions = 0 |
		blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
		blackfriday.EXTENSION_TABLES |
		blackfriday.EXTENSION_FENCED_CODE |
		blackfriday.EXTENSION_FOOTNOTES |
		blackfriday.EXTENSION_DEFINITION_LISTS |
		blackfriday.EXTENSION_SPACE_HEADERS |
		0
	markdownFlags = 0 |
		blackfriday.HTML_USE_XHTML |
		blackfriday.HTML_FOOTNOTE_RETURN_LINKS |
		0
}

type blackfridayConverter struct{}

// A renderer cannot be shared across calls, so one is built per conversion.
func (blackfridayConverter) Convert(src []byte) ([]byte, error) {
	r := blackfriday.HtmlRenderer(markdownFlags, "", "")
	return blackfriday.Markdown(src, r, markdownExtensions), nil
}
