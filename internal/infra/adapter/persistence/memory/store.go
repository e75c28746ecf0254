// Package memory is an in-process implementation of the repository ports.
// It backs dry runs and tests. Units of work are serialized by one mutex;
// every write inside one journals its inverse, and a failed unit replays the
// journal backwards.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"
)

type voteKey struct {
	politicianID int64
	rollCallID   string
}

type deferredKey struct {
	kind entity.DeferredKind
	ref  entity.SourceRef
}

type state struct {
	nextPoliticianID int64
	nextDonorID      int64
	nextDeferredID   int64
	runSeq           int64

	politicians map[int64]*entity.Politician
	identities  map[entity.SourceRef]entity.IdentityMapping
	bills       map[entity.BillKey]entity.Bill
	votes       map[voteKey]entity.Vote
	donors      map[int64]entity.Donor
	donorKeys   map[entity.DonorKey]int64
	donations   map[string]entity.Donation
	deferred    map[deferredKey]*entity.DeferredRecord
	runs        map[string]storedRun

	// journal is non-nil inside a unit of work.
	journal []func()
}

// onRollback registers the inverse of a write about to be applied. Outside
// a unit of work writes are final and nothing is kept.
func (s *state) onRollback(undo func()) {
	if s.journal != nil {
		s.journal = append(s.journal, undo)
	}
}

func (s *state) rollback() {
	for i := len(s.journal) - 1; i >= 0; i-- {
		s.journal[i]()
	}
}

type storedRun struct {
	seq  int64
	data []byte
}

func newState() *state {
	return &state{
		politicians: make(map[int64]*entity.Politician),
		identities:  make(map[entity.SourceRef]entity.IdentityMapping),
		bills:       make(map[entity.BillKey]entity.Bill),
		votes:       make(map[voteKey]entity.Vote),
		donors:      make(map[int64]entity.Donor),
		donorKeys:   make(map[entity.DonorKey]int64),
		donations:   make(map[string]entity.Donation),
		deferred:    make(map[deferredKey]*entity.DeferredRecord),
		runs:        make(map[string]storedRun),
	}
}

// Store holds all data in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

var _ repository.Store = (*Store)(nil)

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() repository.Repositories {
	return s.repos(false)
}

// Within runs fn under the store lock and undoes its writes if fn fails.
// The cost of a unit is proportional to what it writes, not to the size of
// the store.
func (s *Store) Within(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.journal = make([]func(), 0, 4)
	defer func() { s.st.journal = nil }()

	if err := fn(s.repos(true)); err != nil {
		s.st.rollback()
		return err
	}
	return nil
}

func (s *Store) repos(inTx bool) repository.Repositories {
	v := view{s: s, inTx: inTx}
	return repository.Repositories{
		Politicians: politicianRepo{v},
		Identities:  identityRepo{v},
		Bills:       billRepo{v},
		Votes:       voteRepo{v},
		Donors:      donorRepo{v},
		Donations:   donationRepo{v},
		Deferred:    deferredRepo{v},
		Runs:        runRepo{v},
	}
}

// view gives repositories access to the current state. Inside a unit of
// work the store is already locked.
type view struct {
	s    *Store
	inTx bool
}

func (v view) with(fn func(st *state)) {
	if !v.inTx {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	fn(v.s.st)
}

func clonePolitician(p *entity.Politician) *entity.Politician {
	c := *p
	if p.BirthDate != nil {
		bd := *p.BirthDate
		c.BirthDate = &bd
	}
	c.Offices = make([]entity.OfficeTerm, len(p.Offices))
	for i, t := range p.Offices {
		if t.District != nil {
			d := *t.District
			t.District = &d
		}
		c.Offices[i] = t
	}
	return &c
}

func cloneDeferred(d *entity.DeferredRecord) *entity.DeferredRecord {
	c := *d
	c.Payload = append(json.RawMessage(nil), d.Payload...)
	if d.ResolvedAt != nil {
		at := *d.ResolvedAt
		c.ResolvedAt = &at
	}
	return &c
}
