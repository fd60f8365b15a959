package model

import "strings"

// Status is the canonical payment status. Every raw vocabulary coming from
// the gateway or persisted rows is folded into this closed set; nothing
// outside this file compares raw status strings.
type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
	StatusUnknown Status = "unknown"
)

// Raw gateway vocabularies. Exposed (read-only, via the accessors below) so
// the candidate selection query can filter on last-known gateway status
// without re-stating raw strings.
var (
	settledLikeVocab = []string{"settlement", "capture", "success", "paid", "completed"}
	failedLikeVocab  = []string{"deny", "cancel", "expire", "failure"}
)

// NormalizeStatus maps an arbitrary raw status string to a canonical Status.
// The mapping is total: unrecognized input (including empty) yields
// StatusUnknown. Matching is case- and whitespace-insensitive.
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case inVocab(settledLikeVocab, s):
		return StatusSettled
	case s == "pending":
		return StatusPending
	case inVocab(failedLikeVocab, s):
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// IsSettledLike reports whether a raw status string indicates a completed,
// paid transaction.
func IsSettledLike(raw string) bool {
	return NormalizeStatus(raw) == StatusSettled
}

// SettledLikeVocabulary returns the raw strings that normalize to Settled.
func SettledLikeVocabulary() []string {
	return append([]string(nil), settledLikeVocab...)
}

// IsPaid reports whether a canonical status represents money received.
func (s Status) IsPaid() bool { return s == StatusSettled }

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusFailed || s == StatusExpired
}

func inVocab(vocab []string, s string) bool {
	for _, v := range vocab {
		if v == s {
			return true
		}
	}
	return false
}
