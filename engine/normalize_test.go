package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Normalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "installer name with arch and version", raw: "7-zip_25_01_x64", want: "7 zip"},
		{name: "windows display name", raw: "Java 8 Update 401 64-bit", want: "java"},
		{name: "plain product name", raw: "Microsoft Edge", want: "microsoft edge"},
		{name: "python with version", raw: "Python 3.11", want: "python"},
		{name: "trailing version token", raw: "nginx 1.24.0", want: "nginx"},
		{name: "parenthetical version", raw: "Mozilla Firefox (64-bit) (115.0.2)", want: "mozilla firefox"},
		{name: "npm purl", raw: "pkg:npm/lodash@4.17.21", want: "lodash"},
		{name: "pypi purl", raw: "pkg:pypi/django@4.2.1", want: "django"},
		{name: "empty input", raw: "", want: SentinelUnknown},
		{name: "whitespace only", raw: "   ", want: SentinelUnknown},
		{name: "version only", raw: "v1.2.3", want: SentinelUnknown},
		{name: "already normalized", raw: "microsoft edge", want: "microsoft edge"},
		{name: "long vendor name capped", raw: "Microsoft Visual C++ 2015 Redistributable Package", want: "microsoft visual package"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func Test_NormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"7-zip_25_01_x64",
		"Java 8 Update 401 64-bit",
		"Microsoft Edge",
		"pkg:npm/lodash@4.17.21",
		"Mozilla Firefox (115.0.2)",
		"",
		"v1.2.3",
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), "input %q", raw)
	}
}

func Test_Ecosystem(t *testing.T) {
	assert.Equal(t, "npm", Ecosystem("pkg:npm/lodash@4.17.21"))
	assert.Equal(t, "pypi", Ecosystem("pkg:pypi/django@4.2.1"))
	assert.Equal(t, "", Ecosystem("Microsoft Edge"))
	assert.Equal(t, "", Ecosystem("pkg:"))
}
