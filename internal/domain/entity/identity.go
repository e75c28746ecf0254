package entity

import (
	"fmt"
	"strings"
	"time"
)

// SourceSystem names an external identifier scheme.
type SourceSystem string

const (
	SystemFEC      SourceSystem = "FEC"
	SystemICPSR    SourceSystem = "ICPSR"
	SystemBioguide SourceSystem = "BIOGUIDE"
)

// ParseSourceSystem parses a source system name, case-insensitively.
func ParseSourceSystem(s string) (SourceSystem, error) {
	switch SourceSystem(strings.ToUpper(strings.TrimSpace(s))) {
	case SystemFEC:
		return SystemFEC, nil
	case SystemICPSR:
		return SystemICPSR, nil
	case SystemBioguide:
		return SystemBioguide, nil
	default:
		return "", fmt.Errorf("%w: unknown source system %q", ErrInvalidInput, s)
	}
}

// Confidence is the strength of an accepted identity match.
type Confidence string

const (
	// ConfidenceExact covers direct hits and deterministic crosswalks.
	ConfidenceExact Confidence = "EXACT"
	// ConfidenceHeuristic covers unique name/state/office/period matches.
	ConfidenceHeuristic Confidence = "HEURISTIC"
)

// SourceRef identifies a record in its own source's identifier scheme.
type SourceRef struct {
	System  SourceSystem `json:"system"`
	LocalID string       `json:"local_id"`
}

func (r SourceRef) String() string {
	return string(r.System) + ":" + r.LocalID
}

// IdentityMapping ties a source-local identifier to a canonical politician.
// Once created it is never overwritten.
type IdentityMapping struct {
	System       SourceSystem
	LocalID      string
	PoliticianID int64
	Confidence   Confidence
	CreatedAt    time.Time
}

// Ref returns the mapping's source reference.
func (m IdentityMapping) Ref() SourceRef {
	return SourceRef{System: m.System, LocalID: m.LocalID}
}

// Validate checks that the mapping is complete.
func (m *IdentityMapping) Validate() error {
	if _, err := ParseSourceSystem(string(m.System)); err != nil {
		return &ValidationError{Field: "system", Message: err.Error()}
	}
	if strings.TrimSpace(m.LocalID) == "" {
		return &ValidationError{Field: "local_id", Message: "local id is required"}
	}
	if m.PoliticianID <= 0 {
		return &ValidationError{Field: "politician_id", Message: "politician id must be positive"}
	}
	if m.Confidence != ConfidenceExact && m.Confidence != ConfidenceHeuristic {
		return &ValidationError{Field: "confidence", Message: fmt.Sprintf("invalid confidence %q", m.Confidence)}
	}
	return nil
}
