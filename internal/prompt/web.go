package prompt

import (
	"fmt"
	"strings"

	"github.com/sakif/codeagentix/internal/apperror"
)

// WebKind is one pane of the HTML/CSS/JS editor.
type WebKind string

const (
	WebHTML WebKind = "html"
	WebCSS  WebKind = "css"
	WebJS   WebKind = "js"
)

// ParseWebKind validates a pane name.
func ParseWebKind(s string) (WebKind, error) {
	switch k := WebKind(strings.ToLower(strings.TrimSpace(s))); k {
	case WebHTML, WebCSS, WebJS:
		return k, nil
	}
	return "", apperror.ValidationFailed("type", fmt.Sprintf("invalid web type %q, want html, css or js", s))
}

// WebSources is the current content of the three panes.
type WebSources struct {
	HTML string
	CSS  string
	JS   string
}

// WebGenerate renders the generation prompt for one pane. CSS and JS see the
// panes before them as context.
func WebGenerate(kind WebKind, description string, src WebSources) string {
	switch kind {
	case WebCSS:
		return join(cssGenerateInstruction, fill(cssTemplate, map[string]string{
			"project_description": description,
			"html_content":        src.HTML,
		}))
	case WebJS:
		return join(jsGenerateInstruction, fill(jsTemplate, map[string]string{
			"project_description": description,
			"html_content":        src.HTML,
			"css_content":         src.CSS,
		}))
	default:
		return join(htmlGenerateInstruction, fill(htmlTemplate, map[string]string{
			"prompt": description,
		}))
	}
}

// WebRefactor renders the refactor prompt for one pane. A non-empty problem
// selects the "fix this" variant of the template.
func WebRefactor(kind WebKind, problem string, src WebSources) string {
	withProblem := strings.TrimSpace(problem) != ""

	var tmpl string
	switch kind {
	case WebCSS:
		tmpl = refactorCSSTemplate
		if withProblem {
			tmpl = refactorCSSUserTemplate
		}
	case WebJS:
		tmpl = refactorJSTemplate
		if withProblem {
			tmpl = refactorJSUserTemplate
		}
	default:
		tmpl = refactorHTMLTemplate
		if withProblem {
			tmpl = refactorHTMLUserTemplate
		}
	}

	return join(refactorInstruction, fill(tmpl, map[string]string{
		"problem_description": problem,
		"html_content":        src.HTML,
		"css_content":         src.CSS,
		"js_content":          src.JS,
	}))
}
