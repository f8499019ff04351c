package packages

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPackageID(t *testing.T) {
	at := time.UnixMilli(1736951234567)
	assert.Equal(t, "PKG234567", NewPackageID(at))
}

func TestNewTrackingNumber(t *testing.T) {
	tracking := NewTrackingNumber()
	assert.Len(t, tracking, 11)
	assert.True(t, strings.HasPrefix(tracking, "TRK"))
	assert.Equal(t, strings.ToUpper(tracking), tracking)

	assert.NotEqual(t, tracking, NewTrackingNumber())
}
