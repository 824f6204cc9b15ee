package store

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// newTrackingId generates a customer-facing order identifier in the form
// HX<millisecond epoch><3-digit random suffix>. The suffix disambiguates
// orders created within the same millisecond; the unique index on
// orders.tracking_id is the final arbiter.
func newTrackingId() string {
	return fmt.Sprintf("HX%d%03d", time.Now().UnixMilli(), rand.IntN(1000))
}
