package notify

import (
	"net/url"
	"strings"
)

// NormalizePhone converts a free-form phone input to the canonical
// international form used for sending: digits only, prefixed with the 966
// country code, leading zero dropped.
func NormalizePhone(raw string) string {
	var digits strings.Builder

	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	clean := digits.String()

	if strings.HasPrefix(clean, "966") {
		return clean
	}

	return "966" + strings.TrimPrefix(clean, "0")
}

// WhatsAppLink builds a wa.me deep link with the message prefilled; used by
// the operator-triggered manual send path
func WhatsAppLink(rawPhone, message string) string {
	return "https://wa.me/" + NormalizePhone(rawPhone) + "?text=" + url.QueryEscape(message)
}
