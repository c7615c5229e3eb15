package simpleblog

import "strings"

// normalizeEmail lowercases and trims an email address so lookups and the
// uniqueness constraint agree on a canonical form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
