package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageStatusOrdering(t *testing.T) {
	assert.True(t, PackageStatusInTransit.IsForwardOf(PackageStatusProcessing))
	assert.True(t, PackageStatusDelivered.IsForwardOf(PackageStatusOutForDelivery))
	assert.True(t, PackageStatusReadyForPickup.IsForwardOf(PackageStatusReadyForPickup))

	assert.False(t, PackageStatusProcessing.IsForwardOf(PackageStatusArrivedInJamaica))
	assert.False(t, PackageStatus("bogus").IsForwardOf(PackageStatusProcessing))
}

func TestPackageStatusIndexCoversPipeline(t *testing.T) {
	statuses := PackageStatuses()
	require.Len(t, statuses, 8)
	for i, status := range statuses {
		assert.Equal(t, i, status.Index())
		assert.True(t, status.IsValid())
	}
	assert.Equal(t, -1, PackageStatus("bogus").Index())
}

func TestParsePackageStatus(t *testing.T) {
	parsed, err := ParsePackageStatus("Arrived in Jamaica")
	require.NoError(t, err)
	assert.Equal(t, PackageStatusArrivedInJamaica, parsed)

	_, err = ParsePackageStatus("arrived in jamaica")
	assert.Error(t, err)
}

func TestPackageStatusTerminal(t *testing.T) {
	assert.True(t, PackageStatusDelivered.IsTerminal())
	assert.False(t, PackageStatusReadyForPickup.IsTerminal())
}
