package config

// Widget URI scheme and format constants
const (
	WidgetURIScheme = "ui://widget/"
	WidgetURISuffix = ".html"
	URIFormatError  = "Invalid URI format, expected 'ui://widget/{name}.html'"
)

// MIME types and extensions
const (
	MimeTypeHTML      = "text/html"
	MimeTypeJSON      = "application/json"
	HTMLExtension     = ".html"
	MarkdownExtension = ".md"
	JSONExtension     = ".json"
)

// WidgetURI builds the resource URI for a version-qualified widget name
func WidgetURI(qualifiedName string) string {
	return WidgetURIScheme + qualifiedName + WidgetURISuffix
}
