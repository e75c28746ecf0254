package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type DonorRepo struct{ db DBTX }

func NewDonorRepo(db DBTX) repository.DonorRepository {
	return &DonorRepo{db: db}
}

// Upsert inserts the donor or resolves the id of the row holding its
// natural key. The stored attributes of an existing donor are kept.
func (repo *DonorRepo) Upsert(ctx context.Context, d *entity.Donor) (bool, error) {
	const query = `
WITH ins AS (
    INSERT INTO donors (donor_type, name, name_key, committee_id, employer, occupation, city, state)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (donor_type, name_key, committee_id) DO NOTHING
    RETURNING id
)
SELECT id, TRUE FROM ins
UNION ALL
SELECT id, FALSE FROM donors
WHERE donor_type = $1 AND name_key = $3 AND committee_id = $4
LIMIT 1`
	var created bool
	err := repo.db.QueryRowContext(ctx, query,
		d.Type, d.Name, d.NameKey, d.CommitteeID,
		d.Employer, d.Occupation, d.City, d.State,
	).Scan(&d.ID, &created)
	if err != nil {
		return false, fmt.Errorf("Upsert: %w", err)
	}
	return created, nil
}

const donorColumns = `id, donor_type, name, name_key, committee_id, employer, occupation, city, state, created_at`

func scanDonor(row rowScanner, d *entity.Donor, extra ...any) error {
	return row.Scan(append([]any{
		&d.ID, &d.Type, &d.Name, &d.NameKey, &d.CommitteeID,
		&d.Employer, &d.Occupation, &d.City, &d.State, &d.CreatedAt,
	}, extra...)...)
}

func (repo *DonorRepo) Get(ctx context.Context, id int64) (*entity.Donor, error) {
	const query = `
SELECT ` + donorColumns + `
FROM donors
WHERE id = $1`
	var d entity.Donor
	err := scanDonor(repo.db.QueryRowContext(ctx, query, id), &d)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &d, nil
}

func (repo *DonorRepo) Search(ctx context.Context, q string, limit int) ([]entity.Donor, error) {
	const query = `
SELECT ` + donorColumns + `
FROM donors
WHERE name     ILIKE $1
   OR employer ILIKE $1
ORDER BY name ASC, id ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, "%"+q+"%", nullLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	donors := make([]entity.Donor, 0, 32)
	for rows.Next() {
		var d entity.Donor
		if err := scanDonor(rows, &d); err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		donors = append(donors, d)
	}
	return donors, rows.Err()
}

func (repo *DonorRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, repo.db, "donors")
}

/* ───────────── donations ───────────── */

type DonationRepo struct{ db DBTX }

func NewDonationRepo(db DBTX) repository.DonationRepository {
	return &DonationRepo{db: db}
}

func (repo *DonationRepo) Insert(ctx context.Context, d *entity.Donation) (bool, error) {
	const query = `
INSERT INTO donations (source_tx_id, donor_id, politician_id, amount, donation_date, source_file)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (source_tx_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query,
		d.SourceTxID, d.DonorID, d.PoliticianID, d.Amount, d.Date, d.SourceFile,
	)
	if err != nil {
		return false, wrapErr("Insert", err)
	}
	ok, err := oneRow(res)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	return ok, nil
}

func (repo *DonationRepo) ExistingTxIDs(ctx context.Context, txIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(txIDs))
	if len(txIDs) == 0 {
		return result, nil
	}

	const query = `
SELECT source_tx_id
FROM donations
WHERE source_tx_id = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(txIDs))
	if err != nil {
		return nil, fmt.Errorf("ExistingTxIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistingTxIDs: %w", err)
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (repo *DonationRepo) DonorTotals(ctx context.Context, politicianID int64, donorType entity.DonorType, limit int) ([]repository.DonorTotal, error) {
	const query = `
SELECT d.id, d.donor_type, d.name, d.name_key, d.committee_id,
       d.employer, d.occupation, d.city, d.state, d.created_at,
       SUM(n.amount) AS total, COUNT(*) AS donations
FROM donations n
JOIN donors d ON d.id = n.donor_id
WHERE n.politician_id = $1
  AND ($2::text = '' OR d.donor_type = $2)
GROUP BY d.id
ORDER BY total DESC, d.id ASC
LIMIT $3`
	rows, err := repo.db.QueryContext(ctx, query, politicianID, string(donorType), nullLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("DonorTotals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	totals := make([]repository.DonorTotal, 0, 32)
	for rows.Next() {
		var t repository.DonorTotal
		if err := scanDonor(rows, &t.Donor, &t.Total, &t.Count); err != nil {
			return nil, fmt.Errorf("DonorTotals: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (repo *DonationRepo) Received(ctx context.Context, politicianID int64, donorType entity.DonorType) (decimal.Decimal, int64, error) {
	const query = `
SELECT COALESCE(SUM(n.amount), 0), COUNT(*)
FROM donations n
JOIN donors d ON d.id = n.donor_id
WHERE n.politician_id = $1
  AND ($2::text = '' OR d.donor_type = $2)`
	var (
		total decimal.Decimal
		n     int64
	)
	if err := repo.db.QueryRowContext(ctx, query, politicianID, string(donorType)).Scan(&total, &n); err != nil {
		return decimal.Zero, 0, fmt.Errorf("Received: %w", err)
	}
	return total, n, nil
}

func (repo *DonationRepo) ListByDonor(ctx context.Context, donorID int64, limit int) ([]repository.DonationWithRecipient, error) {
	const query = `
SELECT n.source_tx_id, n.donor_id, n.politician_id, n.amount, n.donation_date, n.source_file, n.created_at,
       p.full_name, p.state, p.party
FROM donations n
JOIN politicians p ON p.id = n.politician_id
WHERE n.donor_id = $1
ORDER BY n.donation_date DESC, n.source_tx_id ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, donorID, nullLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("ListByDonor: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]repository.DonationWithRecipient, 0, 32)
	for rows.Next() {
		var dr repository.DonationWithRecipient
		d, p := &dr.Donation, &dr.Recipient
		if err := rows.Scan(
			&d.SourceTxID, &d.DonorID, &d.PoliticianID, &d.Amount, &d.Date, &d.SourceFile, &d.CreatedAt,
			&p.FullName, &p.State, &p.Party,
		); err != nil {
			return nil, fmt.Errorf("ListByDonor: %w", err)
		}
		p.ID = d.PoliticianID
		out = append(out, dr)
	}
	return out, rows.Err()
}

func (repo *DonationRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, repo.db, "donations")
}
