package model

// IsInternalUserID reports whether s already has the shape of an internal
// user identifier (a Firebase-style UID: 20-40 chars of [A-Za-z0-9_-]).
// Emails and gateway customer references never match.
func IsInternalUserID(s string) bool {
	if len(s) < 20 || len(s) > 40 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
