package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_GmailDotAndPlusStripping(t *testing.T) {
	addr, flags, err := Normalize("First.Last+promo@gmail.com")
	require.NoError(t, err)
	assert.True(t, flags.SyntacticOK)
	assert.True(t, flags.Free)
	assert.Equal(t, "firstlast@gmail.com", addr.Normalized)
}

func TestNormalize_GooglemailAliasFoldsToGmail(t *testing.T) {
	addr, _, err := Normalize("jane.doe@googlemail.com")
	require.NoError(t, err)
	assert.Equal(t, "gmail.com", addr.Domain)
	assert.Equal(t, "janedoe@gmail.com", addr.Normalized)
}

func TestNormalize_NonGmailKeepsDotsAndPlus(t *testing.T) {
	addr, _, err := Normalize("first.last+tag@example.com")
	require.NoError(t, err)
	assert.Equal(t, "first.last+tag@example.com", addr.Normalized)
}

func TestNormalize_IdempotentOnNormalizedOutput(t *testing.T) {
	addr1, _, err := Normalize("A.B+x@GMAIL.com")
	require.NoError(t, err)
	addr2, _, err := Normalize(addr1.Normalized)
	require.NoError(t, err)
	assert.Equal(t, addr1.Normalized, addr2.Normalized)
}

func TestNormalize_RejectsMissingAt(t *testing.T) {
	_, _, err := Normalize("not-an-email")
	require.Error(t, err)
}

func TestNormalize_RejectsEmptyLocalOrDomain(t *testing.T) {
	_, _, err := Normalize("@example.com")
	require.Error(t, err)

	_, _, err = Normalize("user@")
	require.Error(t, err)
}

func TestNormalize_RejectsDoubleDot(t *testing.T) {
	_, _, err := Normalize("john..doe@example.com")
	require.Error(t, err)
}

func TestNormalize_RejectsOversizedLocalPart(t *testing.T) {
	local := ""
	for i := 0; i < 70; i++ {
		local += "a"
	}
	_, _, err := Normalize(local + "@example.com")
	require.Error(t, err)
}

func TestNormalize_RejectsMissingTLD(t *testing.T) {
	_, _, err := Normalize("user@localhost")
	require.Error(t, err)
}

func TestNormalize_FlagsDisposableDomain(t *testing.T) {
	_, flags, err := Normalize("someone@mailinator.com")
	require.NoError(t, err)
	assert.True(t, flags.Disposable)
}

func TestNormalize_FlagsRoleAccount(t *testing.T) {
	_, flags, err := Normalize("support@example.com")
	require.NoError(t, err)
	assert.True(t, flags.Role)
}

func TestNormalize_IDNADomain(t *testing.T) {
	addr, _, err := Normalize("user@münchen.de")
	require.NoError(t, err)
	assert.Equal(t, "xn--mnchen-3ya.de", addr.Domain)
}

func TestSuggestTypo_ClosebyMisspellingSuggested(t *testing.T) {
	suggestion, ok := SuggestTypo("gmial.com")
	require.True(t, ok)
	assert.Equal(t, "gmail.com", suggestion)
}

func TestSuggestTypo_ExactMatchSuggestsNothing(t *testing.T) {
	_, ok := SuggestTypo("gmail.com")
	assert.False(t, ok)
}

func TestSuggestTypo_UnrelatedDomainSuggestsNothing(t *testing.T) {
	_, ok := SuggestTypo("mycompany.io")
	assert.False(t, ok)
}
