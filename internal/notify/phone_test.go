package notify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local with leading zero", "0501234567", "966501234567"},
		{"already international", "966501234567", "966501234567"},
		{"plus and spaces", "+966 50 123 4567", "966501234567"},
		{"dashes", "050-123-4567", "966501234567"},
		{"bare subscriber number", "501234567", "966501234567"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NormalizePhone(tc.in))
		})
	}
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("0501234567", "مرحباً أحمد")

	require.Contains(t, link, "https://wa.me/966501234567?text=")
	// The message must be URL-escaped, never raw
	require.NotContains(t, link, " ")
	require.NotContains(t, link, "مرحباً")
}
