package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DeferredKind is the record family held in the unresolved side-channel.
type DeferredKind string

const (
	DeferredCandidate        DeferredKind = "CANDIDATE"
	DeferredMember           DeferredKind = "MEMBER"
	DeferredVote             DeferredKind = "VOTE"
	DeferredDonation         DeferredKind = "DONATION"
	DeferredIdentityConflict DeferredKind = "IDENTITY_CONFLICT"
)

// ParseDeferredKind parses a kind name, case-insensitively.
func ParseDeferredKind(s string) (DeferredKind, error) {
	k := DeferredKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case DeferredCandidate, DeferredMember, DeferredVote, DeferredDonation, DeferredIdentityConflict:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown deferred kind %q", ErrInvalidInput, s)
	}
}

// DeferredRecord is a record the resolver or linker declined to attach.
// Payload holds the normalized record so that later runs can retry it
// without re-reading the original snapshot.
type DeferredRecord struct {
	ID          int64           `json:"id"`
	Kind        DeferredKind    `json:"kind"`
	System      SourceSystem    `json:"system"`
	LocalID     string          `json:"local_id"`
	Reason      ErrorKind       `json:"reason"`
	Detail      string          `json:"detail"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Attempts    int             `json:"attempts"`
	FirstSeenAt time.Time       `json:"first_seen_at"`
	LastSeenAt  time.Time       `json:"last_seen_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
}

// Ref returns the deferred record's source reference.
func (d *DeferredRecord) Ref() SourceRef {
	return SourceRef{System: d.System, LocalID: d.LocalID}
}

// Validate checks the side-channel key.
func (d *DeferredRecord) Validate() error {
	if _, err := ParseDeferredKind(string(d.Kind)); err != nil {
		return &ValidationError{Field: "kind", Message: err.Error()}
	}
	if d.LocalID == "" {
		return &ValidationError{Field: "local_id", Message: "local id is required"}
	}
	if d.Reason == "" {
		return &ValidationError{Field: "reason", Message: "reason is required"}
	}
	return nil
}
