package models

// NotificationSettings is the messaging gateway configuration. It is
// persisted in the settings table so the operator can change it at runtime.
type NotificationSettings struct {
	AccountSid string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
	FromNumber string `json:"fromNumber"`
	Enabled    bool   `json:"enabled"`
}

// Configured reports whether automatic sending may run: it requires the
// enabled flag and at minimum an account identifier
func (s NotificationSettings) Configured() bool {
	return s.Enabled && s.AccountSid != ""
}
