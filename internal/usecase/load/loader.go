package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"
)

// Result is the outcome of one load operation.
type Result string

const (
	Inserted  Result = entity.ResultInserted
	Updated   Result = entity.ResultUpdated
	Duplicate Result = entity.ResultDuplicate
)

// Loader is the only writer of the store. Storage errors are returned
// unchanged in meaning and are fatal to the run; ErrMappingConflict and
// validation errors are per-record.
type Loader struct {
	uow repository.UnitOfWork
	now func() time.Time
}

// NewLoader returns a loader writing through uow.
func NewLoader(uow repository.UnitOfWork) *Loader {
	return &Loader{uow: uow, now: time.Now}
}

// CreatePolitician inserts p and its mappings in one transaction. The
// mappings' PoliticianID is set to the new ID. If any mapping is already
// held by another politician nothing is written and ErrMappingConflict is returned.
func (l *Loader) CreatePolitician(ctx context.Context, p *entity.Politician, mappings []entity.IdentityMapping) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("create politician: %w", err)
	}

	now := l.now().UTC()
	err := l.uow.Within(ctx, func(r repository.Repositories) error {
		p.CreatedAt, p.UpdatedAt = now, now
		if err := r.Politicians.Create(ctx, p); err != nil {
			return fmt.Errorf("insert politician: %w", err)
		}
		for i := range mappings {
			m := &mappings[i]
			m.PoliticianID = p.ID
			m.CreatedAt = now
			if err := m.Validate(); err != nil {
				return err
			}
			if _, err := addMapping(ctx, r, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.ID = 0
		return fmt.Errorf("create politician %s: %w", p.NameKey, err)
	}
	return nil
}

// AddMapping writes m unless its source reference is already mapped.
// Existing mappings are never overwritten: a mapping to the same politician
// is a Duplicate, one to another politician is ErrMappingConflict.
func (l *Loader) AddMapping(ctx context.Context, m *entity.IdentityMapping) (Result, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = l.now().UTC()
	}
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("add mapping: %w", err)
	}

	var res Result
	err := l.uow.Within(ctx, func(r repository.Repositories) error {
		var err error
		res, err = addMapping(ctx, r, m)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("add mapping %s: %w", m.Ref(), err)
	}
	return res, nil
}

func addMapping(ctx context.Context, r repository.Repositories, m *entity.IdentityMapping) (Result, error) {
	inserted, err := r.Identities.Insert(ctx, m)
	if err != nil {
		return "", fmt.Errorf("insert mapping: %w", err)
	}
	if inserted {
		return Inserted, nil
	}

	existing, err := r.Identities.Get(ctx, m.Ref())
	if err != nil {
		return "", fmt.Errorf("get mapping: %w", err)
	}
	if existing == nil {
		return "", fmt.Errorf("mapping %s neither inserted nor found", m.Ref())
	}
	if existing.PoliticianID != m.PoliticianID {
		return "", fmt.Errorf("%w: %s is held by politician %d", entity.ErrMappingConflict, m.Ref(), existing.PoliticianID)
	}
	return Duplicate, nil
}

// UpdatePolitician writes p's office history, party and birth date if they
// differ from the stored row.
func (l *Loader) UpdatePolitician(ctx context.Context, p *entity.Politician) (Result, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("update politician: %w", err)
	}

	res := Duplicate
	err := l.uow.Within(ctx, func(r repository.Repositories) error {
		cur, err := r.Politicians.Get(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("get politician: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("%w: id %d", ErrPoliticianMissing, p.ID)
		}
		if samePoliticianState(cur, p) {
			return nil
		}
		p.UpdatedAt = l.now().UTC()
		if err := r.Politicians.Update(ctx, p); err != nil {
			return fmt.Errorf("write politician: %w", err)
		}
		res = Updated
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("update politician %d: %w", p.ID, err)
	}
	return res, nil
}

func samePoliticianState(a, b *entity.Politician) bool {
	if a.State != b.State || a.Party != b.Party {
		return false
	}
	if (a.BirthDate == nil) != (b.BirthDate == nil) {
		return false
	}
	if a.BirthDate != nil && !a.BirthDate.Equal(*b.BirthDate) {
		return false
	}
	if len(a.Offices) != len(b.Offices) {
		return false
	}
	for i := range a.Offices {
		if !sameTerm(a.Offices[i], b.Offices[i]) {
			return false
		}
	}
	return true
}

func sameTerm(a, b entity.OfficeTerm) bool {
	if a.Office != b.Office || a.State != b.State || a.Party != b.Party ||
		a.StartYear != b.StartYear || a.EndYear != b.EndYear {
		return false
	}
	if (a.District == nil) != (b.District == nil) {
		return false
	}
	return a.District == nil || *a.District == *b.District
}

// LoadBill inserts b or does nothing if its key exists.
func (l *Loader) LoadBill(ctx context.Context, b *entity.Bill) (Result, error) {
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("load bill: %w", err)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = l.now().UTC()
	}
	return l.insert(ctx, "load bill "+b.Key().String(), func(r repository.Repositories) (bool, error) {
		return r.Bills.Insert(ctx, b)
	})
}

// LoadVote inserts v or does nothing if the politician already has a
// position on the roll call.
func (l *Loader) LoadVote(ctx context.Context, v *entity.Vote) (Result, error) {
	if err := v.Validate(); err != nil {
		return "", fmt.Errorf("load vote: %w", err)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = l.now().UTC()
	}
	return l.insert(ctx, "load vote "+v.RollCallID, func(r repository.Repositories) (bool, error) {
		return r.Votes.Insert(ctx, v)
	})
}

// LoadDonation upserts the donor and inserts the donation in one
// transaction, so a donation is never stored without its donor. A donation
// whose source transaction ID exists is a Duplicate.
func (l *Loader) LoadDonation(ctx context.Context, donor *entity.Donor, d *entity.Donation) (Result, error) {
	if err := donor.Validate(); err != nil {
		return "", fmt.Errorf("load donation: %w", err)
	}
	// DonorID is assigned inside the transaction; validate the rest first.
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("load donation: %w", err)
	}

	now := l.now().UTC()
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}

	return l.insert(ctx, "load donation "+d.SourceTxID, func(r repository.Repositories) (bool, error) {
		if _, err := r.Donors.Upsert(ctx, donor); err != nil {
			return false, fmt.Errorf("upsert donor: %w", err)
		}
		d.DonorID = donor.ID
		return r.Donations.Insert(ctx, d)
	})
}

// Defer records rec in the side-channel. A new key is Inserted; a key seen
// before is Updated with a bumped attempt count.
func (l *Loader) Defer(ctx context.Context, rec *entity.DeferredRecord) (Result, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("defer: %w", err)
	}
	now := l.now().UTC()
	if rec.FirstSeenAt.IsZero() {
		rec.FirstSeenAt = now
	}
	rec.LastSeenAt = now

	var res Result
	err := l.uow.Within(ctx, func(r repository.Repositories) error {
		created, err := r.Deferred.Upsert(ctx, rec)
		if err != nil {
			return err
		}
		res = Updated
		if created {
			res = Inserted
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("defer %s %s: %w", rec.Kind, rec.Ref(), err)
	}
	return res, nil
}

// Resolve closes the pending side-channel record for (kind, ref), if any.
func (l *Loader) Resolve(ctx context.Context, kind entity.DeferredKind, ref entity.SourceRef) (bool, error) {
	var closed bool
	err := l.uow.Within(ctx, func(r repository.Repositories) error {
		var err error
		closed, err = r.Deferred.MarkResolved(ctx, kind, ref, l.now().UTC())
		return err
	})
	if err != nil {
		return false, fmt.Errorf("resolve %s %s: %w", kind, ref, err)
	}
	return closed, nil
}

// SaveRun persists the run summary.
func (l *Loader) SaveRun(ctx context.Context, run *entity.RunSummary) error {
	err := l.uow.Within(ctx, func(r repository.Repositories) error {
		return r.Runs.Save(ctx, run)
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

func (l *Loader) insert(ctx context.Context, op string, fn func(repository.Repositories) (bool, error)) (Result, error) {
	var inserted bool
	err := l.uow.Within(ctx, func(r repository.Repositories) error {
		var err error
		inserted, err = fn(r)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if inserted {
		return Inserted, nil
	}
	return Duplicate, nil
}

// IsRecordError reports whether err concerns only the record being loaded
// (a validation failure or a mapping conflict) rather than the store.
func IsRecordError(err error) bool {
	return errors.Is(err, entity.ErrValidationFailed) || errors.Is(err, entity.ErrMappingConflict)
}
