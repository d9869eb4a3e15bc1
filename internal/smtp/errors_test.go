package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReply_SuccessHasNoReason(t *testing.T) {
	resp := ClassifyReply(250, "OK")
	assert.Equal(t, ReasonNone, resp.Reason)
}

func TestClassifyReply_MailboxUnknownEnglish(t *testing.T) {
	resp := ClassifyReply(550, "5.1.1 User unknown")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}

func TestClassifyReply_MailboxUnknownFrench(t *testing.T) {
	resp := ClassifyReply(550, "Destinataire inconnu")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}

func TestClassifyReply_MailboxUnknownGerman(t *testing.T) {
	resp := ClassifyReply(550, "Benutzer nicht gefunden")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}

func TestClassifyReply_MailboxUnknownSpanish(t *testing.T) {
	resp := ClassifyReply(550, "Usuario desconocido")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}

func TestClassifyReply_MailboxUnknownItalian(t *testing.T) {
	resp := ClassifyReply(550, "Utente sconosciuto")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}

func TestClassifyReply_MailboxUnknownPolish(t *testing.T) {
	resp := ClassifyReply(550, "Nie istnieje taki uzytkownik")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}

func TestClassifyReply_MailboxUnknownCzech(t *testing.T) {
	resp := ClassifyReply(550, "Tento uzivatel neexistuje")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}

func TestClassifyReply_GreylistOn4xxDefault(t *testing.T) {
	resp := ClassifyReply(450, "Temporary failure, please try again")
	assert.Equal(t, ReasonGreylisted, resp.Reason)
}

func TestClassifyReply_GenericTemporaryDefaultsToGreylist(t *testing.T) {
	resp := ClassifyReply(451, "4.3.0 something went sideways")
	assert.Equal(t, ReasonGreylisted, resp.Reason)
}

func TestClassifyReply_FullInbox(t *testing.T) {
	resp := ClassifyReply(552, "mailbox full")
	assert.Equal(t, ReasonMailboxFull, resp.Reason)
}

func TestClassifyReply_Disabled(t *testing.T) {
	resp := ClassifyReply(550, "account has been disabled")
	assert.Equal(t, ReasonDisabled, resp.Reason)
}

func TestClassifyReply_Blacklisted(t *testing.T) {
	resp := ClassifyReply(550, "Your message was rejected due to Spamhaus listing")
	assert.Equal(t, ReasonBlacklisted, resp.Reason)
}

func TestClassifyReply_RelayDenied(t *testing.T) {
	resp := ClassifyReply(550, "relay not permitted")
	assert.Equal(t, ReasonRelayDenied, resp.Reason)
}

func TestClassifyReply_GenericFiveFiftyFallsBackToUnknown(t *testing.T) {
	resp := ClassifyReply(550, "5.7.1 no thanks")
	assert.Equal(t, ReasonMailboxUnknown, resp.Reason)
}
