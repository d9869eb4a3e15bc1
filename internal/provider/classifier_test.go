package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadenwood/verifyd/internal/verdict"
)

func TestClassify_GoogleWorkspace(t *testing.T) {
	p, prior := Classify([]verdict.MXHost{{Host: "ASPMX.L.GOOGLE.COM", Preference: 1}})
	assert.Equal(t, verdict.ProviderGoogleWorkspace, p)
	assert.Greater(t, prior, 0.9)
}

func TestClassify_Microsoft365(t *testing.T) {
	p, _ := Classify([]verdict.MXHost{{Host: "contoso-com.mail.protection.outlook.com", Preference: 0}})
	assert.Equal(t, verdict.ProviderMicrosoft365, p)
}

func TestClassify_UnknownFallsBackToGeneric(t *testing.T) {
	p, prior := Classify([]verdict.MXHost{{Host: "mx.somecompany.io", Preference: 10}})
	assert.Equal(t, verdict.ProviderGeneric, p)
	assert.Less(t, prior, 0.6)
}

func TestConfigFor_OutlookConsumerMarksRisky(t *testing.T) {
	c := ConfigFor(verdict.ProviderOutlookConsumer)
	assert.True(t, c.MarkRisky)
	assert.False(t, c.DoSMTP)
}

func TestConfigFor_GmailSkipsCatchAll(t *testing.T) {
	c := ConfigFor(verdict.ProviderGmail)
	assert.True(t, c.DoSMTP)
	assert.False(t, c.DoCatchAll)
}
