package auth

import "time"

// Token is an issued access token. A Token is never modified; refresh replaces it.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token is usable at now with margin to spare.
func (t *Token) ValidAt(now time.Time, margin time.Duration) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return t.ExpiresAt.After(now.Add(margin))
}
