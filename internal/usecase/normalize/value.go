package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"paper-trail/internal/domain/entity"

	"github.com/shopspring/decimal"
)

const (
	fecDateLayout = "01022006"
	isoDateLayout = "2006-01-02"

	minYear = 1789
	maxYear = 2100
)

var amountPattern = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)

// ParseFECDate parses an FEC MMDDYYYY date.
func ParseFECDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(fecDateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	t, err := time.Parse(fecDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}

// ParseISODate parses a YYYY-MM-DD date. A trailing time part is accepted
// and dropped.
func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(isoDateLayout) && (s[len(isoDateLayout)] == 'T' || s[len(isoDateLayout)] == ' ') {
		s = s[:len(isoDateLayout)]
	}
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}

// ParseYear parses a four-digit year within the span of the Congress.
func ParseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < minYear || y > maxYear {
		return 0, fmt.Errorf("%w: year %q", ErrMalformedDate, s)
	}
	return y, nil
}

// ParseAmount parses a currency amount into an exact decimal. Dollar signs
// and thousands separators are accepted; exponents, NaN and more than two
// decimal places are not.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if !amountPattern.MatchString(clean) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return d, nil
}

// CastCodePosition maps a Voteview cast code to a vote position:
// 1-3 yea, 4-6 nay, 7-8 present, 9 not voting. Code 0 means the member was
// not in the chamber for the roll call and has no position.
func CastCodePosition(code int) (entity.Position, error) {
	switch {
	case code >= 1 && code <= 3:
		return entity.PositionYea, nil
	case code >= 4 && code <= 6:
		return entity.PositionNay, nil
	case code == 7 || code == 8:
		return entity.PositionPresent, nil
	case code == 9:
		return entity.PositionNotVoting, nil
	default:
		return "", fmt.Errorf("%w: cast code %d", entity.ErrInvalidInput, code)
	}
}

var fecParties = map[string]string{
	"DEM": "Democrat",
	"DFL": "Democrat",
	"REP": "Republican",
	"IND": "Independent",
	"LIB": "Libertarian",
	"GRE": "Green",
}

var voteviewParties = map[int]string{
	100: "Democrat",
	200: "Republican",
	328: "Independent",
}

// PartyName canonicalizes FEC party codes; other values pass through trimmed.
func PartyName(s string) string {
	s = CollapseSpace(s)
	if name, ok := fecParties[strings.ToUpper(s)]; ok {
		return name
	}
	return s
}

// VoteviewPartyName maps a Voteview party code, or returns "" if unknown.
func VoteviewPartyName(code int) string {
	return voteviewParties[code]
}
