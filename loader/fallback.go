package loader

import (
	"html"
	"html/template"
	"strings"
)

var fallbackTemplate = template.Must(template.New("fallback").Parse(`
<div class="page-header" data-section="{{.ID}}">
  <span class="chapter-label">⚠️ Error</span>
  <h2>Content Unavailable</h2>
  <p class="subtitle">Something went wrong while loading {{.ID}}</p>
</div>
<div class="warn-box">
  <div class="warn-title">⚠ Warning</div>
  <p>This section could not be loaded. Check your connection or contact the administrator.</p>
</div>
`))

// FallbackFragment renders the warning fragment shown in place of a section
// whose retrieval failed. The failure itself is not exposed to readers.
func FallbackFragment(id string, _ error) string {
	var b strings.Builder
	if err := fallbackTemplate.Execute(&b, struct{ ID string }{id}); err != nil {
		return `<div class="warn-box"><p>Content for ` + html.EscapeString(id) + ` could not be loaded.</p></div>`
	}
	return b.String()
}
