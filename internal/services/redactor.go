package services

import "regexp"

const (
	EmailPlaceholder = "[email masqué]"
	PhonePlaceholder = "[téléphone masqué]"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// French mobile/landline numbers: 0X or +33 X / 0033 X followed by four
	// digit pairs, with space, dot or hyphen separators. The trailing \b keeps
	// shorter codes (e.g. "1234") and longer digit runs from matching.
	phonePattern = regexp.MustCompile(`(?:(?:\+|00)33[\s.\-]?|0)[1-9](?:[\s.\-]?\d{2}){4}\b`)
)

// RedactContactInfo scrubs email addresses and phone numbers from free-text
// chat content before it is stored. Emails are replaced first so a digit
// sequence inside an address is never re-matched by the phone pass.
//
// This is deliberately best-effort: spelled-out numbers ("zéro six...") pass
// through, which is accepted — the paid unlock remains the enforcement point.
func RedactContactInfo(text string) string {
	redacted := emailPattern.ReplaceAllString(text, EmailPlaceholder)
	return phonePattern.ReplaceAllString(redacted, PhonePlaceholder)
}
