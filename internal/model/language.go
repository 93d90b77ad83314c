package model

import "strings"

// supportedLanguages is the set of languages the editor accepts for sharing
// and for AI assistance. Real execution has its own, narrower table.
var supportedLanguages = map[string]struct{}{
	"python":     {},
	"javascript": {},
	"rust":       {},
	"mongodb":    {},
	"swift":      {},
	"ruby":       {},
	"dart":       {},
	"perl":       {},
	"scala":      {},
	"julia":      {},
	"go":         {},
	"java":       {},
	"cpp":        {},
	"csharp":     {},
	"c":          {},
	"sql":        {},
	"typescript": {},
	"kotlin":     {},
	"verilog":    {},
}

// NormalizeLanguage lower-cases and trims a language identifier.
func NormalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

// IsSupportedLanguage reports whether language (already normalized) is in the editor's set.
func IsSupportedLanguage(language string) bool {
	_, ok := supportedLanguages[language]
	return ok
}
