package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"paper-trail/internal/domain/record"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	honorifics = tokenSet("MR", "MRS", "MS", "MISS", "DR", "HON", "HONORABLE", "SEN", "SENATOR",
		"REP", "REPRESENTATIVE", "GOV", "GOVERNOR", "THE")
	suffixes = tokenSet("JR", "SR", "II", "III", "IV", "V", "MD", "PHD", "ESQ", "DDS", "RET")

	// "(DEM)" after FEC candidate names, "(Bernie)" in Voteview bionames.
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	// `James "Jim" Smith`
	quotedNickname = regexp.MustCompile(`"[^"]*"`)
)

func tokenSet(tokens ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// CollapseSpace trims s and collapses internal runs of whitespace to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldKey turns text into its matching form: accents removed, upper case,
// hyphens read as spaces, every other non-alphanumeric rune dropped.
func FoldKey(s string) string {
	// The chain is stateful, so it is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return CollapseSpace(b.String())
}

func isSuffix(token string) bool {
	_, ok := suffixes[FoldKey(token)]
	return ok
}

func isHonorific(token string) bool {
	_, ok := honorifics[FoldKey(token)]
	return ok
}

func dropSuffixes(tokens []string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if !isSuffix(t) {
			out = append(out, t)
		}
	}
	return out
}

func dropHonorifics(tokens []string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if !isHonorific(t) {
			out = append(out, t)
		}
	}
	return out
}

func stripDecorations(raw string) string {
	s := parenthetical.ReplaceAllString(raw, " ")
	s = quotedNickname.ReplaceAllString(s, " ")
	return CollapseSpace(s)
}

func nameKey(last, first string) string {
	return FoldKey(last) + "|" + FoldKey(first)
}

// ParsePersonName parses a personal name in either "LAST, FIRST MIDDLE" form
// (FEC, Voteview) or "First Middle Last" form. Honorifics, generational and
// professional suffixes, parenthesized party tags and quoted nicknames are
// removed. The key uses the last name and the first given-name token.
func ParsePersonName(raw string) (record.PersonName, error) {
	display := stripDecorations(raw)
	if display == "" {
		return record.PersonName{}, ErrEmptyName
	}

	var lastTokens, givenTokens []string
	if i := strings.Index(display, ","); i >= 0 {
		lastTokens = dropSuffixes(strings.Fields(display[:i]))
		given := strings.ReplaceAll(display[i+1:], ",", " ")
		givenTokens = dropSuffixes(dropHonorifics(strings.Fields(given)))
	} else {
		tokens := dropSuffixes(dropHonorifics(strings.Fields(display)))
		if len(tokens) >= 2 {
			lastTokens = tokens[len(tokens)-1:]
			givenTokens = tokens[:len(tokens)-1]
		}
	}

	if len(lastTokens) == 0 || len(givenTokens) == 0 {
		return record.PersonName{}, ErrEmptyName
	}

	last := strings.Join(lastTokens, " ")
	first := strings.TrimRight(givenTokens[0], ".")
	if FoldKey(last) == "" || FoldKey(first) == "" {
		return record.PersonName{}, ErrEmptyName
	}

	return record.PersonName{
		FullName:  display,
		FirstName: first,
		LastName:  last,
		NameKey:   nameKey(last, first),
	}, nil
}

// NameFromParts builds a name from structured roster fields. display may be
// empty, in which case "First Last" is used.
func NameFromParts(first, last, display string) (record.PersonName, error) {
	lastTokens := dropSuffixes(strings.Fields(stripDecorations(last)))
	firstTokens := dropHonorifics(strings.Fields(stripDecorations(first)))
	if len(lastTokens) == 0 || len(firstTokens) == 0 {
		return record.PersonName{}, ErrEmptyName
	}

	lastName := strings.Join(lastTokens, " ")
	firstName := strings.TrimRight(firstTokens[0], ".")
	if FoldKey(lastName) == "" || FoldKey(firstName) == "" {
		return record.PersonName{}, ErrEmptyName
	}

	full := CollapseSpace(display)
	if full == "" {
		full = CollapseSpace(first + " " + last)
	}

	return record.PersonName{
		FullName:  full,
		FirstName: firstName,
		LastName:  lastName,
		NameKey:   nameKey(lastName, firstName),
	}, nil
}

// DonorNameKey returns the dedup key of an individual donor's name: the full
// folded name with suffixes and honorifics removed. Spelling variants such as
// "JOHN A SMITH" and "JOHN SMITH" stay distinct.
func DonorNameKey(raw string) string {
	s := strings.ReplaceAll(stripDecorations(raw), ",", " ")
	tokens := dropSuffixes(dropHonorifics(strings.Fields(s)))
	return FoldKey(strings.Join(tokens, " "))
}

// CommitteeNameKey returns the folded form of a committee name.
func CommitteeNameKey(raw string) string {
	return FoldKey(stripDecorations(raw))
}
