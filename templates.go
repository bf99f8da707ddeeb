package customfields

import (
	"io/fs"

	"github.com/goliatone/go-customfields/pkg/renderers/html"
)

// PreviewTemplates exposes the built-in HTML preview templates.
func PreviewTemplates() fs.FS {
	return html.TemplatesFS()
}
