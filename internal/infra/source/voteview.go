package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"paper-trail/internal/domain/record"
)

type memberJSON struct {
	Congress    int    `json:"congress"`
	Chamber     string `json:"chamber"`
	ICPSR       int    `json:"icpsr"`
	StateAbbrev string `json:"state_abbrev"`
	BioName     string `json:"bioname"`
	PartyCode   int    `json:"party_code"`
	BioguideID  string `json:"bioguide_id"`
}

type rollCallJSON struct {
	Congress   int     `json:"congress"`
	Chamber    string  `json:"chamber"`
	RollNumber int     `json:"rollnumber"`
	BillNumber *string `json:"bill_number"`
}

type voteJSON struct {
	Congress   int    `json:"congress"`
	Chamber    string `json:"chamber"`
	RollNumber int    `json:"rollnumber"`
	ICPSR      int    `json:"icpsr"`
	CastCode   int    `json:"cast_code"`
}

type rollCallKey struct {
	congress int
	chamber  string
	roll     int
}

// VoteviewReader reads the Voteview member, roll-call and vote files.
// Each file is a JSON array or newline-delimited JSON objects.
type VoteviewReader struct {
	MemberPaths   []string
	RollCallPaths []string
	VotePaths     []string
}

// Members returns the member-congress rows as a source.
func (r *VoteviewReader) Members() *VoteviewMembers {
	return &VoteviewMembers{paths: r.MemberPaths}
}

// Votes returns the individual votes, each joined with its roll call's
// bill number.
func (r *VoteviewReader) Votes() *VoteviewVotes {
	return &VoteviewVotes{rollCalls: r.RollCallPaths, votes: r.VotePaths}
}

// VoteviewMembers yields HSall_members rows.
type VoteviewMembers struct {
	paths []string
}

func (m *VoteviewMembers) Name() string { return "voteview-members" }

func (m *VoteviewMembers) Records() iter.Seq2[record.Member, error] {
	return func(yield func(record.Member, error) bool) {
		err := walk(m.paths, ".json", func(name string, rd io.Reader) error {
			return eachJSON(name, rd, func(raw json.RawMessage, n int) error {
				var v memberJSON
				if err := json.Unmarshal(raw, &v); err != nil {
					if !yield(record.Member{}, &record.ParseError{SourceFile: name, Line: n, Err: err}) {
						return errStopped
					}
					return nil
				}
				rec := record.Member{
					Origin:     record.Origin{SourceFile: name, Line: n},
					ICPSR:      itoa(v.ICPSR),
					Congress:   v.Congress,
					Chamber:    v.Chamber,
					BioName:    v.BioName,
					State:      v.StateAbbrev,
					PartyCode:  v.PartyCode,
					BioguideID: v.BioguideID,
				}
				if !yield(rec, nil) {
					return errStopped
				}
				return nil
			})
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(record.Member{}, err)
		}
	}
}

// VoteviewVotes yields votes. The roll-call files are read first and held
// in memory as a (congress, chamber, roll) to bill number map.
type VoteviewVotes struct {
	rollCalls []string
	votes     []string
}

func (v *VoteviewVotes) Name() string { return "voteview-votes" }

func (v *VoteviewVotes) Records() iter.Seq2[record.Vote, error] {
	return func(yield func(record.Vote, error) bool) {
		bills := make(map[rollCallKey]string)
		err := walk(v.rollCalls, ".json", func(name string, rd io.Reader) error {
			return eachJSON(name, rd, func(raw json.RawMessage, n int) error {
				var rc rollCallJSON
				if err := json.Unmarshal(raw, &rc); err != nil {
					if !yield(record.Vote{}, &record.ParseError{SourceFile: name, Line: n, Err: err}) {
						return errStopped
					}
					return nil
				}
				if rc.BillNumber != nil && *rc.BillNumber != "" {
					bills[rollCallKey{rc.Congress, rc.Chamber, rc.RollNumber}] = *rc.BillNumber
				}
				return nil
			})
		})
		if err != nil {
			if !errors.Is(err, errStopped) {
				yield(record.Vote{}, err)
			}
			return
		}

		err = walk(v.votes, ".json", func(name string, rd io.Reader) error {
			return eachJSON(name, rd, func(raw json.RawMessage, n int) error {
				var vj voteJSON
				if err := json.Unmarshal(raw, &vj); err != nil {
					if !yield(record.Vote{}, &record.ParseError{SourceFile: name, Line: n, Err: err}) {
						return errStopped
					}
					return nil
				}
				rec := record.Vote{
					Origin:     record.Origin{SourceFile: name, Line: n},
					Congress:   vj.Congress,
					Chamber:    vj.Chamber,
					RollNumber: vj.RollNumber,
					BillNumber: bills[rollCallKey{vj.Congress, vj.Chamber, vj.RollNumber}],
					ICPSR:      itoa(vj.ICPSR),
					CastCode:   vj.CastCode,
				}
				if !yield(rec, nil) {
					return errStopped
				}
				return nil
			})
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(record.Vote{}, err)
		}
	}
}

// eachJSON streams the objects of a JSON array, or of newline-delimited
// JSON, to fn with their 1-based position. A syntax error ends the file.
func eachJSON(name string, rd io.Reader, fn func(raw json.RawMessage, n int) error) error {
	br := bufio.NewReader(rd)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
	}

	for n := 1; ; n++ {
		if first == '[' && !dec.More() {
			return nil
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if first != '[' && errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode %s object %d: %w", name, n, err)
		}
		if err := fn(raw, n); err != nil {
			return err
		}
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		}
		return b, br.UnreadByte()
	}
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
