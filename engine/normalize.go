// Package engine implements the vulnerability lookup and caching engine:
// package name normalization, keyword selection, rate limiting and the
// lookup orchestration over an external vulnerability source.
package engine

import (
	"regexp"
	"strings"

	"github.com/package-url/packageurl-go"
)

// SentinelUnknown is the normalized form of names that strip down to
// nothing. It keeps empty names cacheable as themselves while the engine
// treats it as degenerate input and never queries the source for it.
const SentinelUnknown = "unknown"

var (
	archPattern      = regexp.MustCompile(`\b(x86-64|x86|x64|i686|arm64|arm|amd64|ia64|32-?bit|64-?bit)\b`)
	qualifierPattern = regexp.MustCompile(`\b(update|patch|version|redistributable|runtime|bin|src|source|alpha|beta|rc|hotfix|sp\d+)\b`)
	versionPattern   = regexp.MustCompile(`[\s-]v?\d+[\d._]*\b`)
	leadingVersion   = regexp.MustCompile(`^v\d+[\d._]*\b`)
	parenPattern     = regexp.MustCompile(`\s*\([^)]*\d[^)]*\)`)
	punctPattern     = regexp.MustCompile(`[^a-z0-9\s_-]`)
)

// Normalize canonicalizes a raw package name for keyword search: lowercase,
// architecture tags, qualifier words, version tokens and digit-bearing
// parentheticals stripped, punctuation collapsed to spaces.
//
// Examples:
//
//	"7-zip_25_01_x64"          -> "7 zip"
//	"Java 8 Update 401 64-bit" -> "java"
//	"Microsoft Edge"           -> "microsoft edge"
//	"pkg:npm/lodash@4.17.21"   -> "lodash"
//
// Normalize is pure and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return SentinelUnknown
	}

	// Container hosts report purls; the purl name is the product name.
	if strings.HasPrefix(name, "pkg:") {
		if purl, err := packageurl.FromString(name); err == nil {
			name = strings.ToLower(purl.Name)
		}
	}

	name = parenPattern.ReplaceAllString(name, " ")
	name = punctPattern.ReplaceAllString(name, " ")
	name = strings.ReplaceAll(name, "_", " ")
	name = archPattern.ReplaceAllString(name, " ")
	name = qualifierPattern.ReplaceAllString(name, " ")
	name = versionPattern.ReplaceAllString(name, " ")
	name = leadingVersion.ReplaceAllString(strings.TrimSpace(name), "")
	name = strings.ReplaceAll(name, "-", " ")

	words := strings.Fields(name)
	if len(words) > 3 {
		words = coreWords(words)
	}

	result := strings.Join(words, " ")
	if result == "" || allNumeric(words) {
		return SentinelUnknown
	}
	return result
}

// Ecosystem returns the package ecosystem ("npm", "pypi", ...) when the raw
// name is a purl, or empty for plain free-text names. It selects the
// version parser used for affected-range checks.
func Ecosystem(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if !strings.HasPrefix(name, "pkg:") {
		return ""
	}
	purl, err := packageurl.FromString(name)
	if err != nil {
		return ""
	}
	return strings.ToLower(purl.Type)
}

// coreWords keeps up to 3 leading tokens that are not pure-numeric
// leftovers, so overly specific names still match broad product entries.
func coreWords(words []string) []string {
	limit := 4
	if len(words) < limit {
		limit = len(words)
	}

	var core []string
	for _, word := range words[:limit] {
		if len(word) > 1 && !isNumeric(word) {
			core = append(core, word)
		}
		if len(core) == 3 {
			break
		}
	}
	if len(core) == 0 {
		return words[:1]
	}
	return core
}

// allNumeric reports whether every remaining token is a bare number, which
// means the name carried no product words at all.
func allNumeric(words []string) bool {
	for _, word := range words {
		if !isNumeric(word) {
			return false
		}
	}
	return len(words) > 0
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
