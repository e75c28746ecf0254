package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned for a manifest that parses but cannot be used.
var ErrInvalidManifest = errors.New("invalid sources manifest")

// Manifest lists the local bulk files of each source. Entries are paths or
// glob patterns; relative entries are resolved against the manifest's
// directory.
type Manifest struct {
	Roster []string `yaml:"roster"`
	Bills  []string `yaml:"bills"`

	Voteview struct {
		Members   []string `yaml:"members"`
		RollCalls []string `yaml:"rollcalls"`
		Votes     []string `yaml:"votes"`
	} `yaml:"voteview"`

	FEC struct {
		Candidates             []string `yaml:"candidates"`
		Committees             []string `yaml:"committees"`
		Linkages               []string `yaml:"linkages"`
		Individual             []string `yaml:"individual"`
		CommitteeContributions []string `yaml:"committee_contributions"`
	} `yaml:"fec"`
}

// LoadManifest reads and validates the manifest at path.
// The path comes from the operator's environment or command line.
func LoadManifest(path string) (*Manifest, error) {
	// #nosec G304 -- path is provided by the operator, not by request input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.resolve(filepath.Dir(path))
	return &m, nil
}

// Validate requires the roster; every other source is optional.
func (m *Manifest) Validate() error {
	if len(m.Roster) == 0 {
		return fmt.Errorf("%w: roster is required", ErrInvalidManifest)
	}
	if len(m.Voteview.Votes) > 0 && len(m.Voteview.RollCalls) == 0 {
		return fmt.Errorf("%w: voteview votes need rollcalls", ErrInvalidManifest)
	}
	hasContributions := len(m.FEC.Individual) > 0 || len(m.FEC.CommitteeContributions) > 0
	if hasContributions && len(m.FEC.Committees) == 0 {
		return fmt.Errorf("%w: fec contributions need committees", ErrInvalidManifest)
	}
	return nil
}

func (m *Manifest) resolve(base string) {
	for _, list := range []*[]string{
		&m.Roster, &m.Bills,
		&m.Voteview.Members, &m.Voteview.RollCalls, &m.Voteview.Votes,
		&m.FEC.Candidates, &m.FEC.Committees, &m.FEC.Linkages,
		&m.FEC.Individual, &m.FEC.CommitteeContributions,
	} {
		for i, p := range *list {
			if !filepath.IsAbs(p) {
				(*list)[i] = filepath.Join(base, p)
			}
		}
	}
}
