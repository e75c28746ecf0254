package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
	"paper-trail/internal/repository"
	"paper-trail/internal/usecase/load"
)

// IdentityStore is where the resolver writes new politicians and mappings.
// load.Loader implements it.
type IdentityStore interface {
	CreatePolitician(ctx context.Context, p *entity.Politician, mappings []entity.IdentityMapping) error
	AddMapping(ctx context.Context, m *entity.IdentityMapping) (load.Result, error)
	UpdatePolitician(ctx context.Context, p *entity.Politician) (load.Result, error)
}

// Method is how a record was attached to a politician.
type Method string

const (
	MethodExact     Method = "exact"
	MethodCrossRef  Method = "crossref"
	MethodHeuristic Method = "heuristic"
	MethodCreated   Method = "created"
)

// Conflict is a source reference that a record claims for one politician
// while an existing mapping holds it for another. Existing mappings win;
// the conflict goes to the side-channel for an operator.
type Conflict struct {
	Ref       entity.SourceRef
	HeldBy    int64
	ClaimedBy int64
}

// Decision is the resolver's verdict on one record. Exactly one of Method
// and Deferred is set.
type Decision struct {
	Ref          entity.SourceRef
	PoliticianID int64
	Method       Method
	Deferred     entity.ErrorKind
	Detail       string
	Candidates   []int64
	Updated      bool
	Conflicts    []Conflict
}

// Resolved reports whether the record is attached to a politician.
func (d Decision) Resolved() bool {
	return d.Deferred == "" && d.PoliticianID > 0
}

// Outcome is the metrics label of the decision.
func (d Decision) Outcome() string {
	if d.Deferred != "" {
		return string(d.Deferred)
	}
	return string(d.Method)
}

// Resolver holds the identity table of the current run. It is not safe for
// concurrent use: records are resolved one at a time, in input order.
type Resolver struct {
	store       IdentityStore
	politicians map[int64]*entity.Politician
	byName      map[string][]*entity.Politician
	mappings    map[entity.SourceRef]entity.IdentityMapping
}

// NewResolver loads every persisted politician and mapping into memory.
func NewResolver(ctx context.Context, politicians repository.PoliticianRepository, identities repository.IdentityRepository, store IdentityStore) (*Resolver, error) {
	ps, err := politicians.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load politicians: %w", err)
	}
	ms, err := identities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load identity mappings: %w", err)
	}

	r := &Resolver{
		store:       store,
		politicians: make(map[int64]*entity.Politician, len(ps)),
		byName:      make(map[string][]*entity.Politician, len(ps)),
		mappings:    make(map[entity.SourceRef]entity.IdentityMapping, len(ms)),
	}
	for _, p := range ps {
		r.indexPolitician(p)
	}
	for _, m := range ms {
		r.mappings[m.Ref()] = m
	}
	return r, nil
}

func (r *Resolver) indexPolitician(p *entity.Politician) {
	r.politicians[p.ID] = p
	r.byName[p.NameKey] = append(r.byName[p.NameKey], p)
}

// Lookup returns the politician a source reference is mapped to.
func (r *Resolver) Lookup(ref entity.SourceRef) (int64, bool) {
	m, ok := r.mappings[ref]
	return m.PoliticianID, ok
}

// Politician returns the in-memory politician with the given ID.
func (r *Resolver) Politician(id int64) (*entity.Politician, bool) {
	p, ok := r.politicians[id]
	return p, ok
}

// Size returns the number of politicians and mappings held.
func (r *Resolver) Size() (politicians, mappings int) {
	return len(r.politicians), len(r.mappings)
}

// ResolveLegislator attaches a roster entry. The bioguide ID is
// authoritative: a known one extends that politician's office history and
// fills unknown metadata, an unknown one creates a new politician. Cross
// references held by someone else are reported as conflicts, never moved.
func (r *Resolver) ResolveLegislator(ctx context.Context, rec record.LegislatorRecord) (Decision, error) {
	if m, ok := r.mappings[rec.Ref]; ok {
		return r.extend(ctx, rec, m.PoliticianID)
	}

	p := &entity.Politician{
		FullName:  rec.Name.FullName,
		FirstName: rec.Name.FirstName,
		LastName:  rec.Name.LastName,
		NameKey:   rec.Name.NameKey,
	}
	p.AppendOffices(rec.Terms...)
	p.Enrich(rec.Party, rec.BirthDate)

	mappings := []entity.IdentityMapping{{System: rec.Ref.System, LocalID: rec.Ref.LocalID, Confidence: entity.ConfidenceExact}}
	var conflicts []Conflict
	claimed := map[entity.SourceRef]bool{rec.Ref: true}
	for _, x := range rec.CrossRefs {
		if claimed[x] {
			continue
		}
		claimed[x] = true
		if held, ok := r.mappings[x]; ok {
			conflicts = append(conflicts, Conflict{Ref: x, HeldBy: held.PoliticianID})
			continue
		}
		mappings = append(mappings, entity.IdentityMapping{System: x.System, LocalID: x.LocalID, Confidence: entity.ConfidenceExact})
	}

	if err := r.store.CreatePolitician(ctx, p, mappings); err != nil {
		if errors.Is(err, entity.ErrMappingConflict) {
			return Decision{Ref: rec.Ref, Deferred: entity.KindReconciliationRequired, Detail: err.Error()}, nil
		}
		return Decision{}, err
	}

	r.indexPolitician(p)
	for _, m := range mappings {
		r.mappings[m.Ref()] = m
	}
	for i := range conflicts {
		conflicts[i].ClaimedBy = p.ID
	}
	return Decision{Ref: rec.Ref, PoliticianID: p.ID, Method: MethodCreated, Conflicts: conflicts}, nil
}

func (r *Resolver) extend(ctx context.Context, rec record.LegislatorRecord, id int64) (Decision, error) {
	p, ok := r.politicians[id]
	if !ok {
		return Decision{}, fmt.Errorf("mapping %s points at unknown politician %d", rec.Ref, id)
	}
	d := Decision{Ref: rec.Ref, PoliticianID: id, Method: MethodExact}

	changed := p.AppendOffices(rec.Terms...)
	if p.Enrich(rec.Party, rec.BirthDate) {
		changed = true
	}
	if changed {
		res, err := r.store.UpdatePolitician(ctx, p)
		if err != nil {
			return Decision{}, err
		}
		d.Updated = res == load.Updated
	}

	for _, x := range rec.CrossRefs {
		if x == rec.Ref {
			continue
		}
		if held, ok := r.mappings[x]; ok {
			if held.PoliticianID != id {
				d.Conflicts = append(d.Conflicts, Conflict{Ref: x, HeldBy: held.PoliticianID, ClaimedBy: id})
			}
			continue
		}
		m := &entity.IdentityMapping{System: x.System, LocalID: x.LocalID, PoliticianID: id, Confidence: entity.ConfidenceExact}
		if _, err := r.store.AddMapping(ctx, m); err != nil {
			if errors.Is(err, entity.ErrMappingConflict) {
				d.Conflicts = append(d.Conflicts, Conflict{Ref: x, ClaimedBy: id})
				continue
			}
			return Decision{}, err
		}
		r.mappings[x] = *m
	}
	return d, nil
}

// ResolveCandidate attaches an FEC candidate: by its FEC ID if mapped,
// otherwise by a unique heuristic match on name, state, office and
// election period.
func (r *Resolver) ResolveCandidate(ctx context.Context, rec record.CandidateRecord) (Decision, error) {
	return r.resolveSubject(ctx, rec.Ref, nil, Subject{
		NameKey: rec.Name.NameKey,
		State:   rec.State,
		Office:  rec.Office,
		Period:  rec.Period,
	})
}

// ResolveMember attaches a Voteview member: by ICPSR if mapped, then by the
// bioguide ID Voteview publishes, then heuristically on the congress's years.
func (r *Resolver) ResolveMember(ctx context.Context, rec record.MemberRecord) (Decision, error) {
	return r.resolveSubject(ctx, rec.Ref, rec.CrossRefs, Subject{
		NameKey: rec.Name.NameKey,
		State:   rec.State,
		Office:  rec.Office,
		Period:  rec.Period,
	})
}

func (r *Resolver) resolveSubject(ctx context.Context, ref entity.SourceRef, crossRefs []entity.SourceRef, s Subject) (Decision, error) {
	if m, ok := r.mappings[ref]; ok {
		return Decision{Ref: ref, PoliticianID: m.PoliticianID, Method: MethodExact}, nil
	}

	if ids := r.crossRefTargets(crossRefs); len(ids) == 1 {
		return r.accept(ctx, ref, ids[0], MethodCrossRef, entity.ConfidenceExact, ids)
	} else if len(ids) > 1 {
		return Decision{
			Ref:        ref,
			Deferred:   entity.KindResolutionAmbiguous,
			Detail:     fmt.Sprintf("cross references point to %d politicians", len(ids)),
			Candidates: ids,
		}, nil
	}

	res := Match(s, r.byName[s.NameKey])
	switch res.Outcome {
	case Unique:
		return r.accept(ctx, ref, res.PoliticianID, MethodHeuristic, entity.ConfidenceHeuristic, res.Candidates)
	case Ambiguous:
		return Decision{
			Ref:        ref,
			Deferred:   entity.KindResolutionAmbiguous,
			Detail:     fmt.Sprintf("%s %s %s %d-%d matches %d politicians", s.NameKey, s.Office, s.State, s.Period.Start, s.Period.End, len(res.Candidates)),
			Candidates: res.Candidates,
		}, nil
	default:
		return Decision{
			Ref:      ref,
			Deferred: entity.KindResolutionNotFound,
			Detail:   fmt.Sprintf("no politician matches %s %s %s %d-%d", s.NameKey, s.Office, s.State, s.Period.Start, s.Period.End),
		}, nil
	}
}

func (r *Resolver) crossRefTargets(refs []entity.SourceRef) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, x := range refs {
		m, ok := r.mappings[x]
		if !ok || seen[m.PoliticianID] {
			continue
		}
		seen[m.PoliticianID] = true
		ids = append(ids, m.PoliticianID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Resolver) accept(ctx context.Context, ref entity.SourceRef, id int64, method Method, conf entity.Confidence, candidates []int64) (Decision, error) {
	m := &entity.IdentityMapping{System: ref.System, LocalID: ref.LocalID, PoliticianID: id, Confidence: conf}
	if _, err := r.store.AddMapping(ctx, m); err != nil {
		if errors.Is(err, entity.ErrMappingConflict) {
			return Decision{Ref: ref, Deferred: entity.KindReconciliationRequired, Detail: err.Error(), Candidates: candidates}, nil
		}
		return Decision{}, err
	}
	r.mappings[ref] = *m
	return Decision{Ref: ref, PoliticianID: id, Method: method, Candidates: candidates}, nil
}
