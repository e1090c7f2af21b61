package widgets

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Briefing is the rendered onboarding copy of the start widget
type Briefing struct {
	Title string
	HTML  template.HTML
}

var markdown = goldmark.New()

// LoadBriefing reads a Markdown briefing and renders it to HTML. The document
// must open with a heading, which becomes the briefing title.
func LoadBriefing(fsys fs.FS, name string) (*Briefing, error) {
	source, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read briefing: %w", err)
	}

	title, err := ExtractTitle(source)
	if err != nil {
		return nil, fmt.Errorf("invalid briefing %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := markdown.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("failed to render briefing: %w", err)
	}

	return &Briefing{Title: title, HTML: template.HTML(buf.String())}, nil
}

// ExtractTitle returns the text of the first level-one heading
func ExtractTitle(source []byte) (string, error) {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = headingText(heading, source)
		return ast.WalkStop, nil
	})

	if title == "" {
		return "", fmt.Errorf("document must contain a level-one heading")
	}
	return title, nil
}

func headingText(heading *ast.Heading, source []byte) string {
	var buf bytes.Buffer
	for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}
