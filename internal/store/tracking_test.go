package store

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTrackingId(t *testing.T) {
	re := regexp.MustCompile(`^HX\d+$`)

	id := newTrackingId()
	assert.Regexp(t, re, id, "expected tracking id to match HX<digits>")
	// millisecond epoch plus a 3-digit suffix
	assert.GreaterOrEqual(t, len(id), 2+13+3, "expected tracking id to carry epoch and suffix")
}

func TestNewTrackingIdDistinctWithinMillisecond(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		seen[newTrackingId()] = struct{}{}
	}

	// The random suffix makes collisions within a tight loop unlikely; a
	// run of 50 should produce far more than one distinct id even when
	// several land on the same millisecond.
	assert.Greater(t, len(seen), 1, "expected distinct tracking ids")
}
