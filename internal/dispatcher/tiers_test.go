package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadenwood/verifyd/internal/verdict"
)

func TestFastTierConfidence_GoogleWorkspaceIsHighConfidence(t *testing.T) {
	c := fastTierConfidence(verdict.Flags{}, verdict.ProviderGoogleWorkspace)
	assert.GreaterOrEqual(t, c, 0.85)
}

func TestFastTierConfidence_DisposableLowersConfidence(t *testing.T) {
	baseline := fastTierConfidence(verdict.Flags{}, verdict.ProviderGeneric)
	disposable := fastTierConfidence(verdict.Flags{Disposable: true}, verdict.ProviderGeneric)
	assert.Less(t, disposable, baseline)
}

func TestFastTierConfidence_ClampedToUnitInterval(t *testing.T) {
	c := fastTierConfidence(verdict.Flags{Free: true}, verdict.ProviderGmail)
	assert.LessOrEqual(t, c, 1.0)
	assert.GreaterOrEqual(t, c, 0.0)
}

func TestInferFastReachability_DisposableIsRisky(t *testing.T) {
	r := inferFastReachability(verdict.Flags{Disposable: true}, verdict.ProviderGeneric)
	assert.Equal(t, verdict.Risky, r)
}

func TestInferFastReachability_GmailIsSafe(t *testing.T) {
	r := inferFastReachability(verdict.Flags{}, verdict.ProviderGmail)
	assert.Equal(t, verdict.Safe, r)
}

func TestInferFastReachability_GenericUnknownProviderIsUnknown(t *testing.T) {
	r := inferFastReachability(verdict.Flags{}, verdict.ProviderGeneric)
	assert.Equal(t, verdict.Unknown, r)
}

func TestReachabilityFromSMTPReason_MailboxUnknownIsInvalid(t *testing.T) {
	assert.Equal(t, verdict.Invalid, reachabilityFromSMTPReason("mailbox_unknown"))
}

func TestReachabilityFromSMTPReason_GreylistIsUnknown(t *testing.T) {
	assert.Equal(t, verdict.Unknown, reachabilityFromSMTPReason("greylist"))
}

func TestReachabilityFromSMTPReason_PolicyBlockIsRisky(t *testing.T) {
	assert.Equal(t, verdict.Risky, reachabilityFromSMTPReason("policy_block"))
}

func TestReachabilityFromSMTPReason_RelayDeniedIsUnknown(t *testing.T) {
	assert.Equal(t, verdict.Unknown, reachabilityFromSMTPReason("relay_denied"))
}
