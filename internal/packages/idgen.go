package packages

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewPackageID derives the customer-facing package reference from the intake
// timestamp: "PKG" plus the last six digits of the unix-millisecond clock.
func NewPackageID(at time.Time) string {
	millis := strconv.FormatInt(at.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return "PKG" + millis
}

// NewTrackingNumber builds an opaque tracking reference: "TRK" plus the first
// eight hex characters of a fresh UUID, uppercased. Collisions are resolved by
// the caller retrying on the unique index.
func NewTrackingNumber() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TRK" + strings.ToUpper(hex[:8])
}
