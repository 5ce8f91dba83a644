// Package languages resolves the ordered set of languages to analyze.
package languages

import "strings"

// Language is a canonical language identifier understood by the analysis tool.
type Language string

// Canonical language identifiers.
const (
	CPP        Language = "cpp"
	CSharp     Language = "csharp"
	Go         Language = "go"
	Java       Language = "java"
	JavaScript Language = "javascript"
	Python     Language = "python"
)

// canonical maps hosting platform language names to identifiers.
var canonical = map[string]Language{
	"C":          CPP,
	"C++":        CPP,
	"C#":         CSharp,
	"Go":         Go,
	"Java":       Java,
	"JavaScript": JavaScript,
	"TypeScript": JavaScript,
	"Python":     Python,
}

// Canonical maps a platform-reported language name to its identifier.
// The second result is false for names the analysis tool does not support.
func Canonical(name string) (Language, bool) {
	lang, ok := canonical[name]

	return lang, ok
}

// IsTraced reports whether lang needs its build intercepted.
func IsTraced(lang Language) bool {
	switch lang {
	case CPP, Java, CSharp:
		return true
	default:
		return false
	}
}

// IsInterpreted reports whether lang honors include/exclude path filters.
func IsInterpreted(lang Language) bool {
	return lang == JavaScript || lang == Python
}

// ParseOverride splits a comma-separated override list. Entries are trimmed,
// empty ones dropped and duplicates removed; names are not validated.
func ParseOverride(value string) []Language {
	set := NewOrderedSet()

	for part := range strings.SplitSeq(value, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			set.Add(Language(name))
		}
	}

	return set.Values()
}

// Join renders languages as a comma-separated list.
func Join(langs []Language) string {
	names := make([]string, len(langs))
	for i, lang := range langs {
		names[i] = string(lang)
	}

	return strings.Join(names, ",")
}
