package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"

	"github.com/shopspring/decimal"
)

/* ───────────── politicians ───────────── */

type politicianRepo struct{ view }

func (r politicianRepo) Get(_ context.Context, id int64) (p *entity.Politician, _ error) {
	r.with(func(st *state) {
		if cur, ok := st.politicians[id]; ok {
			p = clonePolitician(cur)
		}
	})
	return p, nil
}

func (r politicianRepo) List(_ context.Context) (out []*entity.Politician, _ error) {
	r.with(func(st *state) {
		out = make([]*entity.Politician, 0, len(st.politicians))
		for _, p := range st.politicians {
			out = append(out, clonePolitician(p))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r politicianRepo) Search(ctx context.Context, name string, limit int) ([]*entity.Politician, error) {
	all, _ := r.List(ctx)
	q := strings.ToUpper(strings.TrimSpace(name))
	out := make([]*entity.Politician, 0)
	for _, p := range all {
		if strings.Contains(strings.ToUpper(p.FullName), q) || strings.Contains(p.NameKey, q) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r politicianRepo) Create(_ context.Context, p *entity.Politician) error {
	r.with(func(st *state) {
		prevID := st.nextPoliticianID
		st.nextPoliticianID++
		p.ID = st.nextPoliticianID
		st.politicians[p.ID] = clonePolitician(p)
		id := p.ID
		st.onRollback(func() {
			delete(st.politicians, id)
			st.nextPoliticianID = prevID
		})
	})
	return nil
}

func (r politicianRepo) Update(_ context.Context, p *entity.Politician) (err error) {
	r.with(func(st *state) {
		cur, ok := st.politicians[p.ID]
		if !ok {
			err = fmt.Errorf("Update: politician %d: %w", p.ID, entity.ErrNotFound)
			return
		}
		next := clonePolitician(p)
		next.CreatedAt = cur.CreatedAt
		st.politicians[p.ID] = next
		id := p.ID
		st.onRollback(func() { st.politicians[id] = cur })
	})
	return err
}

func (r politicianRepo) Count(_ context.Context) (n int64, _ error) {
	r.with(func(st *state) { n = int64(len(st.politicians)) })
	return n, nil
}

/* ───────────── identity mappings ───────────── */

type identityRepo struct{ view }

func (r identityRepo) List(_ context.Context) (out []entity.IdentityMapping, _ error) {
	r.with(func(st *state) {
		out = make([]entity.IdentityMapping, 0, len(st.identities))
		for _, m := range st.identities {
			out = append(out, m)
		}
	})
	sortMappings(out)
	return out, nil
}

func (r identityRepo) Get(_ context.Context, ref entity.SourceRef) (m *entity.IdentityMapping, _ error) {
	r.with(func(st *state) {
		if cur, ok := st.identities[ref]; ok {
			m = &cur
		}
	})
	return m, nil
}

func (r identityRepo) ListByPolitician(_ context.Context, politicianID int64) (out []entity.IdentityMapping, _ error) {
	r.with(func(st *state) {
		for _, m := range st.identities {
			if m.PoliticianID == politicianID {
				out = append(out, m)
			}
		}
	})
	sortMappings(out)
	return out, nil
}

func (r identityRepo) Insert(_ context.Context, m *entity.IdentityMapping) (inserted bool, err error) {
	r.with(func(st *state) {
		if _, ok := st.politicians[m.PoliticianID]; !ok {
			err = fmt.Errorf("Insert: politician %d: %w", m.PoliticianID, entity.ErrNotFound)
			return
		}
		if _, ok := st.identities[m.Ref()]; ok {
			return
		}
		ref := m.Ref()
		st.identities[ref] = *m
		st.onRollback(func() { delete(st.identities, ref) })
		inserted = true
	})
	return inserted, err
}

func (r identityRepo) Count(_ context.Context) (n int64, _ error) {
	r.with(func(st *state) { n = int64(len(st.identities)) })
	return n, nil
}

func sortMappings(ms []entity.IdentityMapping) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].System != ms[j].System {
			return ms[i].System < ms[j].System
		}
		return ms[i].LocalID < ms[j].LocalID
	})
}

/* ───────────── bills and votes ───────────── */

type billRepo struct{ view }

func (r billRepo) Get(_ context.Context, key entity.BillKey) (b *entity.Bill, _ error) {
	r.with(func(st *state) {
		if cur, ok := st.bills[key]; ok {
			b = &cur
		}
	})
	return b, nil
}

func (r billRepo) Insert(_ context.Context, b *entity.Bill) (inserted bool, _ error) {
	r.with(func(st *state) {
		if _, ok := st.bills[b.Key()]; ok {
			return
		}
		key := b.Key()
		st.bills[key] = *b
		st.onRollback(func() { delete(st.bills, key) })
		inserted = true
	})
	return inserted, nil
}

func (r billRepo) Count(_ context.Context) (n int64, _ error) {
	r.with(func(st *state) { n = int64(len(st.bills)) })
	return n, nil
}

type voteRepo struct{ view }

func (r voteRepo) Insert(_ context.Context, v *entity.Vote) (inserted bool, err error) {
	r.with(func(st *state) {
		if _, ok := st.bills[v.Bill]; !ok {
			err = fmt.Errorf("Insert: bill %s: %w", v.Bill, entity.ErrNotFound)
			return
		}
		k := voteKey{politicianID: v.PoliticianID, rollCallID: v.RollCallID}
		if _, ok := st.votes[k]; ok {
			return
		}
		st.votes[k] = *v
		st.onRollback(func() { delete(st.votes, k) })
		inserted = true
	})
	return inserted, err
}

func (r voteRepo) ListByPolitician(_ context.Context, politicianID int64, f repository.VoteFilter) (out []repository.VoteWithBill, _ error) {
	r.with(func(st *state) {
		for k, v := range st.votes {
			if k.politicianID == politicianID && (f.BillType == "" || v.Bill.Type == f.BillType) {
				out = append(out, repository.VoteWithBill{Vote: v, Bill: st.bills[v.Bill]})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if c := compareBills(out[i].Bill, out[j].Bill); c != 0 {
			if f.Ascending {
				return c < 0
			}
			return c > 0
		}
		return out[i].Vote.RollCallID < out[j].Vote.RollCallID
	})
	return page(out, f.Offset, f.Limit), nil
}

// compareBills orders bills by enactment date, then key.
func compareBills(a, b entity.Bill) int {
	if c := a.EnactedOn.Compare(b.EnactedOn); c != 0 {
		return c
	}
	if a.Congress != b.Congress {
		return cmp.Compare(a.Congress, b.Congress)
	}
	if a.Type != b.Type {
		return strings.Compare(a.Type, b.Type)
	}
	return cmp.Compare(a.Number, b.Number)
}

// page returns items[offset:offset+limit], clipped. limit <= 0 means no limit.
func page[T any](items []T, offset, limit int) []T {
	offset = min(max(offset, 0), len(items))
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (r voteRepo) CountByPolitician(_ context.Context, politicianID int64, billType string) (n int64, _ error) {
	r.with(func(st *state) {
		for k, v := range st.votes {
			if k.politicianID == politicianID && (billType == "" || v.Bill.Type == billType) {
				n++
			}
		}
	})
	return n, nil
}

func (r voteRepo) Count(_ context.Context) (n int64, _ error) {
	r.with(func(st *state) { n = int64(len(st.votes)) })
	return n, nil
}

/* ───────────── donors and donations ───────────── */

type donorRepo struct{ view }

func (r donorRepo) Upsert(_ context.Context, d *entity.Donor) (inserted bool, _ error) {
	r.with(func(st *state) {
		if id, ok := st.donorKeys[d.Key()]; ok {
			d.ID = id
			return
		}
		prevID := st.nextDonorID
		st.nextDonorID++
		d.ID = st.nextDonorID
		id, key := d.ID, d.Key()
		st.donors[id] = *d
		st.donorKeys[key] = id
		st.onRollback(func() {
			delete(st.donors, id)
			delete(st.donorKeys, key)
			st.nextDonorID = prevID
		})
		inserted = true
	})
	return inserted, nil
}

func (r donorRepo) Get(_ context.Context, id int64) (d *entity.Donor, _ error) {
	r.with(func(st *state) {
		if cur, ok := st.donors[id]; ok {
			d = &cur
		}
	})
	return d, nil
}

func (r donorRepo) Search(_ context.Context, q string, limit int) ([]entity.Donor, error) {
	needle := strings.ToUpper(q)
	out := make([]entity.Donor, 0)
	r.with(func(st *state) {
		for _, d := range st.donors {
			if strings.Contains(strings.ToUpper(d.Name), needle) || strings.Contains(strings.ToUpper(d.Employer), needle) {
				out = append(out, d)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, 0, limit), nil
}

func (r donorRepo) Count(_ context.Context) (n int64, _ error) {
	r.with(func(st *state) { n = int64(len(st.donors)) })
	return n, nil
}

type donationRepo struct{ view }

func (r donationRepo) Insert(_ context.Context, d *entity.Donation) (inserted bool, err error) {
	r.with(func(st *state) {
		if _, ok := st.donors[d.DonorID]; !ok {
			err = fmt.Errorf("Insert: donor %d: %w", d.DonorID, entity.ErrNotFound)
			return
		}
		if _, ok := st.donations[d.SourceTxID]; ok {
			return
		}
		txID := d.SourceTxID
		st.donations[txID] = *d
		st.onRollback(func() { delete(st.donations, txID) })
		inserted = true
	})
	return inserted, err
}

func (r donationRepo) ExistingTxIDs(_ context.Context, txIDs []string) (map[string]bool, error) {
	found := make(map[string]bool)
	r.with(func(st *state) {
		for _, id := range txIDs {
			if _, ok := st.donations[id]; ok {
				found[id] = true
			}
		}
	})
	return found, nil
}

func (r donationRepo) DonorTotals(_ context.Context, politicianID int64, donorType entity.DonorType, limit int) ([]repository.DonorTotal, error) {
	totals := make(map[int64]*repository.DonorTotal)
	r.with(func(st *state) {
		for _, d := range st.donations {
			donor := st.donors[d.DonorID]
			if d.PoliticianID != politicianID || (donorType != "" && donor.Type != donorType) {
				continue
			}
			t, ok := totals[d.DonorID]
			if !ok {
				t = &repository.DonorTotal{Donor: donor, Total: decimal.Zero}
				totals[d.DonorID] = t
			}
			t.Total = t.Total.Add(d.Amount)
			t.Count++
		}
	})

	out := make([]repository.DonorTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Donor.ID < out[j].Donor.ID
	})
	return page(out, 0, limit), nil
}

func (r donationRepo) Received(_ context.Context, politicianID int64, donorType entity.DonorType) (total decimal.Decimal, n int64, _ error) {
	total = decimal.Zero
	r.with(func(st *state) {
		for _, d := range st.donations {
			if d.PoliticianID != politicianID || (donorType != "" && st.donors[d.DonorID].Type != donorType) {
				continue
			}
			total = total.Add(d.Amount)
			n++
		}
	})
	return total, n, nil
}

func (r donationRepo) ListByDonor(_ context.Context, donorID int64, limit int) ([]repository.DonationWithRecipient, error) {
	out := make([]repository.DonationWithRecipient, 0)
	r.with(func(st *state) {
		for _, d := range st.donations {
			if d.DonorID != donorID {
				continue
			}
			dr := repository.DonationWithRecipient{Donation: d}
			if p, ok := st.politicians[d.PoliticianID]; ok {
				dr.Recipient = entity.Politician{ID: p.ID, FullName: p.FullName, State: p.State, Party: p.Party}
			}
			out = append(out, dr)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Donation, out[j].Donation
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.SourceTxID < b.SourceTxID
	})
	return page(out, 0, limit), nil
}

func (r donationRepo) Count(_ context.Context) (n int64, _ error) {
	r.with(func(st *state) { n = int64(len(st.donations)) })
	return n, nil
}

/* ───────────── side-channel and runs ───────────── */

type deferredRepo struct{ view }

func (r deferredRepo) Upsert(_ context.Context, d *entity.DeferredRecord) (created bool, _ error) {
	r.with(func(st *state) {
		k := deferredKey{kind: d.Kind, ref: d.Ref()}
		if cur, ok := st.deferred[k]; ok {
			prev := cloneDeferred(cur)
			st.onRollback(func() { st.deferred[k] = prev })
			cur.Attempts++
			cur.Reason = d.Reason
			cur.Detail = d.Detail
			cur.Payload = append(json.RawMessage(nil), d.Payload...)
			cur.LastSeenAt = d.LastSeenAt
			cur.ResolvedAt = nil
			*d = *cloneDeferred(cur)
			return
		}
		prevID := st.nextDeferredID
		st.nextDeferredID++
		d.ID = st.nextDeferredID
		d.Attempts = 1
		d.ResolvedAt = nil
		st.deferred[k] = cloneDeferred(d)
		st.onRollback(func() {
			delete(st.deferred, k)
			st.nextDeferredID = prevID
		})
		created = true
	})
	return created, nil
}

func (r deferredRepo) ListPending(_ context.Context, kind entity.DeferredKind, limit int) (out []*entity.DeferredRecord, _ error) {
	r.with(func(st *state) {
		for _, d := range st.deferred {
			if d.ResolvedAt == nil && (kind == "" || d.Kind == kind) {
				out = append(out, cloneDeferred(d))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r deferredRepo) MarkResolved(_ context.Context, kind entity.DeferredKind, ref entity.SourceRef, at time.Time) (closed bool, _ error) {
	r.with(func(st *state) {
		k := deferredKey{kind: kind, ref: ref}
		cur, ok := st.deferred[k]
		if !ok || cur.ResolvedAt != nil {
			return
		}
		prev := cloneDeferred(cur)
		st.onRollback(func() { st.deferred[k] = prev })
		cur.ResolvedAt = &at
		closed = true
	})
	return closed, nil
}

func (r deferredRepo) CountPending(_ context.Context) (map[entity.DeferredKind]int64, error) {
	counts := make(map[entity.DeferredKind]int64)
	r.with(func(st *state) {
		for _, d := range st.deferred {
			if d.ResolvedAt == nil {
				counts[d.Kind]++
			}
		}
	})
	return counts, nil
}

type runRepo struct{ view }

func (r runRepo) Save(_ context.Context, run *entity.RunSummary) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	r.with(func(st *state) {
		id := run.RunID
		prev, existed := st.runs[id]
		prevSeq := st.runSeq
		st.onRollback(func() {
			if existed {
				st.runs[id] = prev
			} else {
				delete(st.runs, id)
			}
			st.runSeq = prevSeq
		})
		seq := prev.seq
		if seq == 0 {
			st.runSeq++
			seq = st.runSeq
		}
		st.runs[id] = storedRun{seq: seq, data: data}
	})
	return nil
}

func (r runRepo) Get(_ context.Context, runID string) (*entity.RunSummary, error) {
	var data []byte
	r.with(func(st *state) { data = st.runs[runID].data })
	if data == nil {
		return nil, nil
	}
	return decodeRun(data)
}

func (r runRepo) Latest(_ context.Context) (*entity.RunSummary, error) {
	var data []byte
	r.with(func(st *state) {
		var best int64
		for _, run := range st.runs {
			if run.seq > best {
				best, data = run.seq, run.data
			}
		}
	})
	if data == nil {
		return nil, nil
	}
	return decodeRun(data)
}

func decodeRun(data []byte) (*entity.RunSummary, error) {
	var run entity.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}
