package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"
)

type PoliticianRepo struct{ db DBTX }

func NewPoliticianRepo(db DBTX) repository.PoliticianRepository {
	return &PoliticianRepo{db: db}
}

const politicianColumns = `id, full_name, first_name, last_name, name_key, state, party, birth_date, offices, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolitician(row rowScanner) (*entity.Politician, error) {
	var p entity.Politician
	var birth sql.NullTime
	var offices []byte
	if err := row.Scan(
		&p.ID, &p.FullName, &p.FirstName, &p.LastName, &p.NameKey,
		&p.State, &p.Party, &birth, &offices, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if birth.Valid {
		bd := birth.Time
		p.BirthDate = &bd
	}
	if len(offices) > 0 {
		if err := json.Unmarshal(offices, &p.Offices); err != nil {
			return nil, fmt.Errorf("unmarshal offices: %w", err)
		}
	}
	return &p, nil
}

func encodeOffices(terms []entity.OfficeTerm) (string, error) {
	if terms == nil {
		terms = []entity.OfficeTerm{}
	}
	b, err := json.Marshal(terms)
	if err != nil {
		return "", fmt.Errorf("marshal offices: %w", err)
	}
	return string(b), nil
}

func birthArg(p *entity.Politician) sql.NullTime {
	if p.BirthDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p.BirthDate, Valid: true}
}

func (repo *PoliticianRepo) Get(ctx context.Context, id int64) (*entity.Politician, error) {
	const query = `
SELECT ` + politicianColumns + `
FROM politicians
WHERE id = $1`
	p, err := scanPolitician(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return p, nil
}

func (repo *PoliticianRepo) List(ctx context.Context) ([]*entity.Politician, error) {
	const query = `
SELECT ` + politicianColumns + `
FROM politicians
ORDER BY id ASC`
	return repo.query(ctx, "List", query)
}

func (repo *PoliticianRepo) Search(ctx context.Context, name string, limit int) ([]*entity.Politician, error) {
	const query = `
SELECT ` + politicianColumns + `
FROM politicians
WHERE full_name ILIKE $1
   OR name_key  ILIKE $1
ORDER BY id ASC
LIMIT $2`
	return repo.query(ctx, "Search", query, "%"+name+"%", nullLimit(limit))
}

func (repo *PoliticianRepo) query(ctx context.Context, op, query string, args ...any) ([]*entity.Politician, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	politicians := make([]*entity.Politician, 0, 64)
	for rows.Next() {
		p, err := scanPolitician(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		politicians = append(politicians, p)
	}
	return politicians, rows.Err()
}

func (repo *PoliticianRepo) Create(ctx context.Context, p *entity.Politician) error {
	offices, err := encodeOffices(p.Offices)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO politicians (full_name, first_name, last_name, name_key, state, party, birth_date, offices)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`
	err = repo.db.QueryRowContext(ctx, query,
		p.FullName, p.FirstName, p.LastName, p.NameKey,
		p.State, p.Party, birthArg(p), offices,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *PoliticianRepo) Update(ctx context.Context, p *entity.Politician) error {
	offices, err := encodeOffices(p.Offices)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	const query = `
UPDATE politicians SET
       state      = $1,
       party      = $2,
       birth_date = $3,
       offices    = $4,
       updated_at = NOW()
WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, p.State, p.Party, birthArg(p), offices, p.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Update: politician %d: %w", p.ID, entity.ErrNotFound)
	}
	return nil
}

func (repo *PoliticianRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, repo.db, "politicians")
}

// count is only called with table names from this package.
func count(ctx context.Context, db DBTX, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

/* ───────────── identity mappings ───────────── */

type IdentityRepo struct{ db DBTX }

func NewIdentityRepo(db DBTX) repository.IdentityRepository {
	return &IdentityRepo{db: db}
}

func scanMapping(row rowScanner) (entity.IdentityMapping, error) {
	var m entity.IdentityMapping
	err := row.Scan(&m.System, &m.LocalID, &m.PoliticianID, &m.Confidence, &m.CreatedAt)
	return m, err
}

func (repo *IdentityRepo) List(ctx context.Context) ([]entity.IdentityMapping, error) {
	const query = `
SELECT system, local_id, politician_id, confidence, created_at
FROM identity_mappings
ORDER BY system ASC, local_id ASC`
	return repo.query(ctx, "List", query)
}

func (repo *IdentityRepo) ListByPolitician(ctx context.Context, politicianID int64) ([]entity.IdentityMapping, error) {
	const query = `
SELECT system, local_id, politician_id, confidence, created_at
FROM identity_mappings
WHERE politician_id = $1
ORDER BY system ASC, local_id ASC`
	return repo.query(ctx, "ListByPolitician", query, politicianID)
}

func (repo *IdentityRepo) query(ctx context.Context, op, query string, args ...any) ([]entity.IdentityMapping, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []entity.IdentityMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (repo *IdentityRepo) Get(ctx context.Context, ref entity.SourceRef) (*entity.IdentityMapping, error) {
	const query = `
SELECT system, local_id, politician_id, confidence, created_at
FROM identity_mappings
WHERE system = $1 AND local_id = $2`
	m, err := scanMapping(repo.db.QueryRowContext(ctx, query, ref.System, ref.LocalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &m, nil
}

func (repo *IdentityRepo) Insert(ctx context.Context, m *entity.IdentityMapping) (bool, error) {
	const query = `
INSERT INTO identity_mappings (system, local_id, politician_id, confidence)
VALUES ($1, $2, $3, $4)
ON CONFLICT (system, local_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query, m.System, m.LocalID, m.PoliticianID, m.Confidence)
	if err != nil {
		return false, wrapErr("Insert", err)
	}
	ok, err := oneRow(res)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	return ok, nil
}

func (repo *IdentityRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, repo.db, "identity_mappings")
}
