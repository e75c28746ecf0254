package entity

import (
	"fmt"
	"strings"
	"time"
)

// Position is how a member voted on a roll call.
type Position string

const (
	PositionYea       Position = "YEA"
	PositionNay       Position = "NAY"
	PositionPresent   Position = "PRESENT"
	PositionNotVoting Position = "NOT_VOTING"
)

// ParsePosition parses a position name, case-insensitively.
func ParsePosition(s string) (Position, error) {
	switch Position(strings.ToUpper(strings.TrimSpace(s))) {
	case PositionYea:
		return PositionYea, nil
	case PositionNay:
		return PositionNay, nil
	case PositionPresent:
		return PositionPresent, nil
	case PositionNotVoting:
		return PositionNotVoting, nil
	default:
		return "", fmt.Errorf("%w: unknown vote position %q", ErrInvalidInput, s)
	}
}

// RollCallID builds the roll-call identifier "118-H-412".
func RollCallID(congress int, chamber Office, rollNumber int) string {
	return fmt.Sprintf("%d-%s-%d", congress, chamber.Code(), rollNumber)
}

// Vote is one politician's position on one roll call. The roll call
// determines the bill.
type Vote struct {
	PoliticianID int64
	RollCallID   string
	Bill         BillKey
	Position     Position
	CreatedAt    time.Time
}

// Validate checks that the vote references a politician, roll call and bill.
func (v *Vote) Validate() error {
	if v.PoliticianID <= 0 {
		return &ValidationError{Field: "politician_id", Message: "politician id must be positive"}
	}
	if v.RollCallID == "" {
		return &ValidationError{Field: "roll_call_id", Message: "roll call id is required"}
	}
	if v.Bill.Congress <= 0 || v.Bill.Type == "" || v.Bill.Number <= 0 {
		return &ValidationError{Field: "bill", Message: "bill key is incomplete"}
	}
	if _, err := ParsePosition(string(v.Position)); err != nil {
		return &ValidationError{Field: "position", Message: err.Error()}
	}
	return nil
}
