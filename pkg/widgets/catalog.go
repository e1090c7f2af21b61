package widgets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"cityquest-mcp-service/pkg/baseurl"
	"cityquest-mcp-service/pkg/content"
)

//go:embed templates
var embedded embed.FS

// Template file names inside the template filesystem
const (
	BriefingFile       = "briefing.md"
	StartTemplate      = "start-cityquest.html"
	ScoreTemplate      = "update-score.html"
	VideoTemplate      = "video-summary.html"
	CalculatorTemplate = "calculator.html"
)

// CatalogOptions configures NewCatalog
type CatalogOptions struct {
	// BaseURL is the externally reachable base URL; it is normalized to end
	// in one slash.
	BaseURL string

	// Clock stamps updatedAt fields. Defaults to the system clock.
	Clock content.Clock

	// Templates replaces the embedded template directory
	Templates fs.FS
}

// EmbeddedTemplates returns the template directory compiled into the binary
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Sprintf("embedded templates missing: %v", err))
	}
	return sub
}

// NewCatalog builds the CityQuest widget catalog in registration order
func NewCatalog(opts CatalogOptions) Catalog {
	base := baseurl.Normalize(opts.BaseURL)
	clock := opts.Clock
	if clock == nil {
		clock = content.SystemClock
	}
	templates := opts.Templates
	if templates == nil {
		templates = EmbeddedTemplates()
	}

	return Catalog{
		startCityQuest(base, templates),
		updateScore(clock, templates),
		videoSummary(templates),
		calculator(templates),
	}
}

// staticHTML supplies a template file verbatim
func staticHTML(fsys fs.FS, name string) func() (string, error) {
	return func() (string, error) {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", fmt.Errorf("failed to read widget template %s: %w", name, err)
		}
		return string(data), nil
	}
}

type startPage struct {
	Briefing     template.HTML
	Title        string
	AdventureURL string
}

// startHTML renders the onboarding console with the Markdown briefing
func startHTML(fsys fs.FS, adventureURL string) func() (string, error) {
	return func() (string, error) {
		briefing, err := LoadBriefing(fsys, BriefingFile)
		if err != nil {
			return "", err
		}

		tmpl, err := template.ParseFS(fsys, StartTemplate)
		if err != nil {
			return "", fmt.Errorf("failed to parse widget template %s: %w", StartTemplate, err)
		}

		var buf bytes.Buffer
		page := startPage{Briefing: briefing.HTML, Title: briefing.Title, AdventureURL: adventureURL}
		if err := tmpl.Execute(&buf, page); err != nil {
			return "", fmt.Errorf("failed to render widget template %s: %w", StartTemplate, err)
		}
		return buf.String(), nil
	}
}
