package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_BitsAreUnique(t *testing.T) {
	t.Parallel()

	var seen uint64
	for c, info := range catalog {
		assert.Zero(t, seen&info.bit, "bit collision for category %s", c)
		seen |= info.bit
	}
}

func TestCategory_Known(t *testing.T) {
	t.Parallel()

	assert.True(t, CategorySystem.Known())
	assert.False(t, Category("nope").Known())
}

func TestCategory_Locked(t *testing.T) {
	t.Parallel()

	assert.True(t, CategoryVerification.Locked())
	assert.True(t, CategorySecurity.Locked())
	assert.True(t, CategoryDirectMessage.Locked())
	assert.False(t, CategoryMarketing.Locked())
	assert.False(t, Category("nope").Locked())
}

func TestOptionalMask_ExcludesLocked(t *testing.T) {
	t.Parallel()

	for c, info := range catalog {
		if info.locked {
			assert.Zero(t, optionalMask&info.bit, "locked category %s in optional mask", c)
		} else {
			assert.NotZero(t, optionalMask&info.bit, "optional category %s missing from mask", c)
		}
	}
}
