package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_IsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   "))
	assert.False(t, IsEmpty("nginx"))

	assert.False(t, IsNotEmpty("\t"))
	assert.True(t, IsNotEmpty("nginx"))
}

func Test_Contains(t *testing.T) {
	keywords := []string{"nginx", "7 zip"}
	assert.True(t, Contains(keywords, "nginx"))
	assert.False(t, Contains(keywords, "redis"))
	assert.False(t, Contains(nil, "nginx"))
}

func Test_GetEnvInt(t *testing.T) {
	t.Setenv("FLEETSCAN_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvInt("FLEETSCAN_TEST_INT", 5))

	t.Setenv("FLEETSCAN_TEST_INT", "not a number")
	assert.Equal(t, 5, GetEnvInt("FLEETSCAN_TEST_INT", 5))

	assert.Equal(t, 5, GetEnvInt("FLEETSCAN_TEST_INT_UNSET", 5))
}

func Test_GetSeverityScore(t *testing.T) {
	assert.Equal(t, 0.0, GetSeverityScore(""))
	assert.Equal(t, 0.0, GetSeverityScore("NONE"))
	assert.Equal(t, 0.1, GetSeverityScore("low"))
	assert.Equal(t, 4.0, GetSeverityScore("Medium"))
	assert.Equal(t, 7.0, GetSeverityScore(" HIGH "))
	assert.Equal(t, 9.0, GetSeverityScore("CRITICAL"))
	assert.Equal(t, 0.0, GetSeverityScore("bogus"))
}
