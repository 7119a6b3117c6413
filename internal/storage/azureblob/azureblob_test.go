package azureblob

import (
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/stretchr/testify/assert"

	"go-cloud-etl/internal/model"
)

func TestAccessTier(t *testing.T) {
	tests := []struct {
		tier model.StorageTier
		want blob.AccessTier
	}{
		{model.TierCool, blob.AccessTierCool},
		{model.TierHot, blob.AccessTierHot},
		{model.TierCold, blob.AccessTierCold},
		{model.TierArchive, blob.AccessTierArchive},
		{"", blob.AccessTierCool},
		{"COOL", blob.AccessTierCool},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AccessTier(tt.tier), "tier %q", tt.tier)
	}
}

func TestAccountURL(t *testing.T) {
	assert.Equal(t, "https://demo.blob.core.windows.net/", AccountURL("demo"))
}

func TestCopyOutcome(t *testing.T) {
	assert.NoError(t, copyOutcome("a.csv", to.Ptr(blob.CopyStatusTypeSuccess), nil))

	err := copyOutcome("a.csv", to.Ptr(blob.CopyStatusTypeFailed), to.Ptr("500 InternalError"))
	assert.ErrorContains(t, err, "copy of a.csv ended failed: 500 InternalError")

	assert.ErrorContains(t, copyOutcome("a.csv", to.Ptr(blob.CopyStatusTypeAborted), nil), "ended aborted")
	assert.ErrorContains(t, copyOutcome("a.csv", nil, nil), "no status")
}
