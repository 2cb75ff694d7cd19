package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestSameSession tests UTC session-date equality
func TestSameSession(t *testing.T) {
	a := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	b := time.Date(2026, 1, 5, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 1, 6, 0, 1, 0, 0, time.UTC)

	assert.True(t, SameSession(a, b))
	assert.False(t, SameSession(b, c))
}

// TestSessionsBetween tests day counting: same day is zero, boundaries count whole days
func TestSessionsBetween(t *testing.T) {
	entry := time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, SessionsBetween(entry, entry.Add(8*time.Hour)))
	assert.Equal(t, 1, SessionsBetween(entry, time.Date(2026, 1, 6, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10, SessionsBetween(entry, entry.AddDate(0, 0, 10)))
	assert.Equal(t, 31, SessionsBetween(entry, time.Date(2026, 2, 5, 15, 0, 0, 0, time.UTC)))
}
