package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/fleetscan/fleetscan-backend/util"
)

// maxKeywords bounds worst-case external calls per package.
const maxKeywords = 3

// AliasRule maps raw names onto a known canonical search alias. A rule
// fires when the lowercased raw name contains every Contains substring and
// none of the NotContains substrings, and the normalized name contains
// none of the NotNormalized substrings (so an alias already covered by the
// normalized keyword is not repeated).
type AliasRule struct {
	Contains      []string `yaml:"contains"`
	NotContains   []string `yaml:"not_contains,omitempty"`
	NotNormalized []string `yaml:"not_normalized,omitempty"`
	Alias         string   `yaml:"alias"`
}

func (r AliasRule) matches(lowerRaw, normalized string) bool {
	for _, s := range r.Contains {
		if !strings.Contains(lowerRaw, s) {
			return false
		}
	}
	for _, s := range r.NotContains {
		if strings.Contains(lowerRaw, s) {
			return false
		}
	}
	for _, s := range r.NotNormalized {
		if strings.Contains(normalized, s) {
			return false
		}
	}
	return r.Alias != ""
}

// DefaultAliasRules returns the built-in alias table.
func DefaultAliasRules() []AliasRule {
	return []AliasRule{
		{Contains: []string{"java"}, NotContains: []string{"python"}, NotNormalized: []string{"jre"}, Alias: "jre"},
		{Contains: []string{"git"}, NotNormalized: []string{"git"}, Alias: "git-scm"},
		{Contains: []string{"7", "zip"}, NotNormalized: []string{"7zip", "7-zip"}, Alias: "7-zip"},
	}
}

// LoadAliasRules reads extra alias rules from a YAML file and prepends
// them to the built-in table, so file rules win on the single alias slot.
func LoadAliasRules(path string) ([]AliasRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias config: %w", err)
	}

	var config struct {
		Aliases []AliasRule `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse alias config: %w", err)
	}

	return append(config.Aliases, DefaultAliasRules()...), nil
}

// KeywordSelector derives the ordered, capped list of search terms for a
// raw package name.
type KeywordSelector struct {
	aliases []AliasRule
}

// NewKeywordSelector creates a selector; nil rules means the built-in
// alias table.
func NewKeywordSelector(rules []AliasRule) *KeywordSelector {
	if rules == nil {
		rules = DefaultAliasRules()
	}
	return &KeywordSelector{aliases: rules}
}

// SelectKeywords returns 1..3 search keywords: the normalized name first,
// then the first token alone for broader recall, then at most one alias.
// Degenerate input (normalizes to the sentinel) yields no keywords at all;
// the engine skips the source entirely for it.
func (s *KeywordSelector) SelectKeywords(raw string) []string {
	normalized := Normalize(raw)
	if normalized == SentinelUnknown {
		return nil
	}

	keywords := []string{normalized}

	if words := strings.Fields(normalized); len(words) > 1 {
		keywords = append(keywords, words[0])
	}

	lowerRaw := strings.ToLower(raw)
	for _, rule := range s.aliases {
		if rule.matches(lowerRaw, normalized) {
			keywords = append(keywords, rule.Alias)
			break
		}
	}

	return dedupeKeywords(keywords)
}

// dedupeKeywords lowercases, removes duplicates preserving first-seen
// order and applies the hard cap. Keyword searches are case-insensitive
// anyway, so lowercasing costs nothing and makes duplicates exact.
func dedupeKeywords(keywords []string) []string {
	result := make([]string, 0, maxKeywords)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" || util.Contains(result, kw) {
			continue
		}
		result = append(result, kw)
		if len(result) == maxKeywords {
			break
		}
	}
	return result
}
