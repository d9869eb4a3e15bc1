package smtp

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSMTPError_ParsesCodeAndMessage(t *testing.T) {
	code, msg := splitSMTPError(errors.New("550 5.1.1 user unknown"))
	assert.Equal(t, 550, code)
	assert.Equal(t, "5.1.1 user unknown", msg)
}

func TestSplitSMTPError_MultilineDashPrefixStripped(t *testing.T) {
	code, msg := splitSMTPError(errors.New("421-4.3.0 try again later"))
	assert.Equal(t, 421, code)
	assert.Equal(t, "4.3.0 try again later", msg)
}

func TestSplitSMTPError_UnparsableFallsBackToRawMessage(t *testing.T) {
	code, msg := splitSMTPError(errors.New("connection reset by peer"))
	assert.Equal(t, 0, code)
	assert.Equal(t, "connection reset by peer", msg)
}

func TestRandomLocalPart_RespectsRequestedLength(t *testing.T) {
	local := RandomLocalPart(16)
	assert.Len(t, local, 16)
	assert.False(t, strings.ContainsAny(local, "@ \t\n"))
}

func TestRandomLocalPart_ProducesDistinctValues(t *testing.T) {
	a := RandomLocalPart(24)
	b := RandomLocalPart(24)
	assert.NotEqual(t, a, b)
}

func TestDialAny_EmptyHostsReturnsError(t *testing.T) {
	p := New("verify.example.com", "probe@verify.example.com", 0, 0, "")
	_, _, err := p.dialAny(nil, nil)
	assert.Error(t, err)
}
