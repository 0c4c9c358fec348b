package sectionviewer

import (
	"html/template"
	"strings"
)

var (
	loadingTemplate = template.Must(template.New("loading").Parse(`
<div class="page-header" data-section="{{.}}">
  <h2>Loading...</h2>
  <p class="subtitle">Loading content...</p>
</div>
`))

	errorTemplate = template.Must(template.New("error").Parse(`
<section class="section active">
  <div class="page-header">
    <span class="chapter-label">⚠️ Error</span>
    <h2>Content Could Not Be Loaded</h2>
  </div>
  <div class="warn-box">
    <div class="warn-title">⚠ Warning</div>
    <p>{{.}}</p>
  </div>
</section>
`))

	// fragments are trusted markup and are inserted as-is
	sectionTemplate = template.Must(template.New("section").Parse(`
<section class="section active" data-section="{{.ID}}">
  {{.Content}}
</section>
`))
)

func execute(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return ""
	}
	return b.String()
}

// LoadingMarkup is shown while a section is being retrieved.
func LoadingMarkup(id string) string {
	return execute(loadingTemplate, id)
}

// ErrorMarkup is shown in place of content that cannot be produced at all,
// e.g. for a section without a configured path.
func ErrorMarkup(message string) string {
	return execute(errorTemplate, message)
}

// SectionMarkup wraps a fragment for display.
func SectionMarkup(id, fragment string) string {
	return execute(sectionTemplate, struct {
		ID      string
		Content template.HTML
	}{id, template.HTML(fragment)})
}
