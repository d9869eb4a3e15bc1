package catchall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinRandomLocalLength_MeetsSpecFloor(t *testing.T) {
	assert.GreaterOrEqual(t, minRandomLocalLength, 16)
}
