package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	at, err := parseExpiry("36h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(36*time.Hour), at)

	at, err = parseExpiry("2024-03-05", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local), at)

	_, err = parseExpiry("someday", now)
	assert.Error(t, err)
}
