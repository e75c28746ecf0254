package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"paper-trail/internal/domain/record"

	"golang.org/x/text/encoding/charmap"
)

// FEC bulk files are ISO-8859-1, pipe-delimited, unquoted and headerless.
// The column positions below follow the FEC data dictionaries.

const (
	cnCandidateID = 0
	cnName        = 1
	cnParty       = 2
	cnElectionYr  = 3
	cnState       = 4
	cnOffice      = 5
	cnDistrict    = 6
	cnColumns     = 15
)

const (
	cmCommitteeID = 0
	cmName        = 1
	cmDesignation = 8
	cmType        = 9
	cmParty       = 10
	cmCandidateID = 14
	cmColumns     = 15
)

const (
	cclCandidateID   = 0
	cclElectionYr    = 1
	cclCommitteeID   = 3
	cclCommitteeType = 4
	cclDesignation   = 5
	cclLinkageID     = 6
	cclColumns       = 7
)

// Columns shared by itcont and pas2; pas2 inserts CAND_ID after OTHER_ID.
const (
	txCommitteeID = 0
	txType        = 5
	txEntityType  = 6
	txName        = 7
	txCity        = 8
	txState       = 9
	txEmployer    = 11
	txOccupation  = 12
	txDate        = 13
	txAmount      = 14
	txOtherID     = 15
	itcontTranID  = 16
	itcontMemoCd  = 18
	itcontSubID   = 20
	itcontColumns = 21
	pas2CandID    = 16
	pas2TranID    = 17
	pas2MemoCd    = 19
	pas2SubID     = 21
	pas2Columns   = 22
)

// maxLine bounds one FEC row. Memo text makes some rows long.
const maxLine = 1 << 20

// FECFile reads one kind of FEC bulk file from plain .txt files or zip
// archives.
type FECFile[T any] struct {
	name    string
	paths   []string
	columns int
	parse   func(fields []string, origin record.Origin) T
}

func (f *FECFile[T]) Name() string { return f.name }

// Records yields one record per row. A row with too few columns is a parse
// error.
func (f *FECFile[T]) Records() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		err := walk(f.paths, ".txt", func(name string, rd io.Reader) error {
			return eachRow(name, rd, func(fields []string, line int) error {
				if len(fields) < f.columns {
					err := &record.ParseError{SourceFile: name, Line: line,
						Err: fmt.Errorf("%d columns, want %d", len(fields), f.columns)}
					if !yield(zero, err) {
						return errStopped
					}
					return nil
				}
				if !yield(f.parse(fields, record.Origin{SourceFile: name, Line: line}), nil) {
					return errStopped
				}
				return nil
			})
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(zero, err)
		}
	}
}

// eachRow decodes rd from latin-1 and splits every non-empty line on '|'.
func eachRow(name string, rd io.Reader, fn func(fields []string, line int) error) error {
	sc := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(rd))
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		if err := fn(strings.Split(text, "|"), line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s line %d: %w", name, line+1, err)
	}
	return nil
}

// NewCandidateFile reads candidate master (cn) files.
func NewCandidateFile(paths ...string) *FECFile[record.Candidate] {
	return &FECFile[record.Candidate]{
		name:    "fec-cn",
		paths:   paths,
		columns: cnColumns,
		parse: func(f []string, o record.Origin) record.Candidate {
			return record.Candidate{
				Origin:       o,
				CandidateID:  f[cnCandidateID],
				Name:         f[cnName],
				Party:        f[cnParty],
				ElectionYear: f[cnElectionYr],
				State:        f[cnState],
				Office:       f[cnOffice],
				District:     f[cnDistrict],
			}
		},
	}
}

// NewCommitteeFile reads committee master (cm) files.
func NewCommitteeFile(paths ...string) *FECFile[record.Committee] {
	return &FECFile[record.Committee]{
		name:    "fec-cm",
		paths:   paths,
		columns: cmColumns,
		parse: func(f []string, o record.Origin) record.Committee {
			return record.Committee{
				Origin:      o,
				CommitteeID: f[cmCommitteeID],
				Name:        f[cmName],
				Party:       f[cmParty],
				Type:        f[cmType],
				Designation: f[cmDesignation],
				CandidateID: f[cmCandidateID],
			}
		},
	}
}

// NewLinkageFile reads candidate-committee linkage (ccl) files.
func NewLinkageFile(paths ...string) *FECFile[record.Linkage] {
	return &FECFile[record.Linkage]{
		name:    "fec-ccl",
		paths:   paths,
		columns: cclColumns,
		parse: func(f []string, o record.Origin) record.Linkage {
			return record.Linkage{
				Origin:        o,
				CandidateID:   f[cclCandidateID],
				ElectionYear:  f[cclElectionYr],
				CommitteeID:   f[cclCommitteeID],
				CommitteeType: f[cclCommitteeType],
				Designation:   f[cclDesignation],
				LinkageID:     f[cclLinkageID],
			}
		},
	}
}

// NewIndividualContributionFile reads individual contribution (itcont) files.
func NewIndividualContributionFile(paths ...string) *FECFile[record.Contribution] {
	return &FECFile[record.Contribution]{
		name:    "fec-itcont",
		paths:   paths,
		columns: itcontColumns,
		parse: func(f []string, o record.Origin) record.Contribution {
			c := contribution(f, o, record.ContributionIndividual)
			c.TxID = f[itcontTranID]
			c.MemoCode = f[itcontMemoCd]
			c.SubID = f[itcontSubID]
			return c
		},
	}
}

// NewCommitteeContributionFile reads committee-to-candidate (pas2) files.
func NewCommitteeContributionFile(paths ...string) *FECFile[record.Contribution] {
	return &FECFile[record.Contribution]{
		name:    "fec-pas2",
		paths:   paths,
		columns: pas2Columns,
		parse: func(f []string, o record.Origin) record.Contribution {
			c := contribution(f, o, record.ContributionCommittee)
			c.CandidateID = f[pas2CandID]
			c.TxID = f[pas2TranID]
			c.MemoCode = f[pas2MemoCd]
			c.SubID = f[pas2SubID]
			return c
		},
	}
}

func contribution(f []string, o record.Origin, kind record.ContributionKind) record.Contribution {
	return record.Contribution{
		Origin:          o,
		Kind:            kind,
		CommitteeID:     f[txCommitteeID],
		TransactionType: f[txType],
		OtherID:         f[txOtherID],
		Name:            f[txName],
		EntityType:      f[txEntityType],
		City:            f[txCity],
		State:           f[txState],
		Employer:        f[txEmployer],
		Occupation:      f[txOccupation],
		Date:            f[txDate],
		Amount:          f[txAmount],
	}
}
