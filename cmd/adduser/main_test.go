package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, validateEmail("alice@example.com"))
	assert.Error(t, validateEmail(""))
	assert.Error(t, validateEmail("alice@"))
}

func TestValidateRole(t *testing.T) {
	assert.NoError(t, validateRole("admin"))
	assert.Error(t, validateRole("root"))
}

func TestParseCreatedAt(t *testing.T) {
	zero, err := parseCreatedAt("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	day, err := parseCreatedAt("2024-11-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), day)

	ts, err := parseCreatedAt("2024-11-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC), ts)

	_, err = parseCreatedAt("yesterday")
	assert.Error(t, err)
}
