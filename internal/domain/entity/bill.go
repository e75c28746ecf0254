package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var billTypes = map[string]struct{}{
	"HR":      {},
	"S":       {},
	"HJRES":   {},
	"SJRES":   {},
	"HCONRES": {},
	"SCONRES": {},
	"HRES":    {},
	"SRES":    {},
}

// BillKey is the canonical key of a bill: (congress, type, number).
// Type is always one of the upper-case legislation type codes (HR, S, HJRES, ...).
type BillKey struct {
	Congress int    `json:"congress"`
	Type     string `json:"type"`
	Number   int    `json:"number"`
}

// String formats the key as "118-hr-1234".
func (k BillKey) String() string {
	return fmt.Sprintf("%d-%s-%d", k.Congress, strings.ToLower(k.Type), k.Number)
}

// NormalizeBillType canonicalizes a type code such as "H.R." or "hjres".
func NormalizeBillType(s string) (string, bool) {
	t := strings.ToUpper(s)
	t = strings.NewReplacer(".", "", " ", "").Replace(t)
	_, ok := billTypes[t]
	return t, ok
}

// ParseBillReference resolves a source-specific bill identifier such as
// "H.R. 1234", "hr1234" or "S 5" into a canonical key for the given congress.
// Identifiers that are not legislation (nominations, treaties) are rejected.
func ParseBillReference(congress int, ref string) (BillKey, error) {
	compact := strings.ToUpper(ref)
	compact = strings.NewReplacer(".", "", " ", "", "\t", "").Replace(compact)
	if compact == "" {
		return BillKey{}, fmt.Errorf("%w: empty bill reference", ErrInvalidInput)
	}

	split := strings.IndexFunc(compact, func(r rune) bool { return r >= '0' && r <= '9' })
	if split <= 0 {
		return BillKey{}, fmt.Errorf("%w: bill reference %q has no type or number", ErrInvalidInput, ref)
	}

	billType, ok := NormalizeBillType(compact[:split])
	if !ok {
		return BillKey{}, fmt.Errorf("%w: unsupported bill type in %q", ErrInvalidInput, ref)
	}
	number, err := strconv.Atoi(compact[split:])
	if err != nil || number <= 0 {
		return BillKey{}, fmt.Errorf("%w: invalid bill number in %q", ErrInvalidInput, ref)
	}
	if congress <= 0 {
		return BillKey{}, fmt.Errorf("%w: invalid congress %d", ErrInvalidInput, congress)
	}

	return BillKey{Congress: congress, Type: billType, Number: number}, nil
}

// Bill is an enacted piece of legislation. Bills are immutable once loaded.
type Bill struct {
	Congress   int
	Type       string
	Number     int
	Title      string
	EnactedOn  time.Time
	PolicyArea string
	CreatedAt  time.Time
}

// Key returns the bill's canonical key.
func (b *Bill) Key() BillKey {
	return BillKey{Congress: b.Congress, Type: b.Type, Number: b.Number}
}

// Validate checks the canonical key and required metadata.
func (b *Bill) Validate() error {
	if b.Congress <= 0 {
		return &ValidationError{Field: "congress", Message: "congress must be positive"}
	}
	if _, ok := NormalizeBillType(b.Type); !ok || b.Type != strings.ToUpper(b.Type) {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("invalid bill type %q", b.Type)}
	}
	if b.Number <= 0 {
		return &ValidationError{Field: "number", Message: "bill number must be positive"}
	}
	if strings.TrimSpace(b.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if b.EnactedOn.IsZero() {
		return &ValidationError{Field: "enacted_on", Message: "enactment date is required"}
	}
	return nil
}
