package source

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"paper-trail/internal/domain/record"

	"gopkg.in/yaml.v3"
)

// legislatorYAML is one entry of legislators-current.yaml or
// legislators-historical.yaml.
type legislatorYAML struct {
	ID struct {
		Bioguide string   `yaml:"bioguide"`
		ICPSR    int      `yaml:"icpsr"`
		FEC      []string `yaml:"fec"`
	} `yaml:"id"`
	Name struct {
		First        string `yaml:"first"`
		Middle       string `yaml:"middle"`
		Last         string `yaml:"last"`
		Suffix       string `yaml:"suffix"`
		Nickname     string `yaml:"nickname"`
		OfficialFull string `yaml:"official_full"`
	} `yaml:"name"`
	Bio struct {
		Birthday string `yaml:"birthday"`
	} `yaml:"bio"`
	Terms []struct {
		Type     string `yaml:"type"`
		Start    string `yaml:"start"`
		End      string `yaml:"end"`
		State    string `yaml:"state"`
		District *int   `yaml:"district"`
		Party    string `yaml:"party"`
	} `yaml:"terms"`
}

func (l legislatorYAML) record(file string, line int) record.Legislator {
	out := record.Legislator{
		Origin:       record.Origin{SourceFile: file, Line: line},
		BioguideID:   l.ID.Bioguide,
		First:        l.Name.First,
		Middle:       l.Name.Middle,
		Last:         l.Name.Last,
		Suffix:       l.Name.Suffix,
		Nickname:     l.Name.Nickname,
		OfficialName: l.Name.OfficialFull,
		Birthday:     l.Bio.Birthday,
		FECIDs:       l.ID.FEC,
	}
	if l.ID.ICPSR > 0 {
		out.ICPSRID = strconv.Itoa(l.ID.ICPSR)
	}
	for _, t := range l.Terms {
		out.Terms = append(out.Terms, record.RawTerm{
			Type:     t.Type,
			Start:    t.Start,
			End:      t.End,
			State:    t.State,
			District: t.District,
			Party:    t.Party,
		})
	}
	return out
}

// RosterReader reads the unitedstates/congress-legislators YAML files.
type RosterReader struct {
	Paths []string
}

func NewRosterReader(paths ...string) *RosterReader {
	return &RosterReader{Paths: paths}
}

func (r *RosterReader) Name() string { return "roster" }

// Records yields one legislator per entry of the top-level sequence. An
// entry that does not decode is a parse error; a file that is not a YAML
// sequence fails the read.
func (r *RosterReader) Records() iter.Seq2[record.Legislator, error] {
	return func(yield func(record.Legislator, error) bool) {
		err := walk(r.Paths, ".yaml", func(name string, rd io.Reader) error {
			return readRoster(name, rd, yield)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(record.Legislator{}, err)
		}
	}
}

func readRoster(name string, rd io.Reader, yield func(record.Legislator, error) bool) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(rd).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s: %w", name, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.SequenceNode {
		return fmt.Errorf("decode %s: top level is not a sequence", name)
	}

	for _, item := range doc.Content[0].Content {
		var l legislatorYAML
		if err := item.Decode(&l); err != nil {
			if !yield(record.Legislator{}, &record.ParseError{SourceFile: name, Line: item.Line, Err: err}) {
				return errStopped
			}
			continue
		}
		if !yield(l.record(name, item.Line), nil) {
			return errStopped
		}
	}
	return nil
}
