package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"
)

type BillRepo struct{ db DBTX }

func NewBillRepo(db DBTX) repository.BillRepository {
	return &BillRepo{db: db}
}

func (repo *BillRepo) Get(ctx context.Context, key entity.BillKey) (*entity.Bill, error) {
	const query = `
SELECT congress, bill_type, bill_number, title, enacted_on, policy_area, created_at
FROM bills
WHERE congress = $1 AND bill_type = $2 AND bill_number = $3`
	var b entity.Bill
	err := repo.db.QueryRowContext(ctx, query, key.Congress, key.Type, key.Number).Scan(
		&b.Congress, &b.Type, &b.Number, &b.Title, &b.EnactedOn, &b.PolicyArea, &b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &b, nil
}

func (repo *BillRepo) Insert(ctx context.Context, b *entity.Bill) (bool, error) {
	const query = `
INSERT INTO bills (congress, bill_type, bill_number, title, enacted_on, policy_area)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (congress, bill_type, bill_number) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query,
		b.Congress, b.Type, b.Number, b.Title, b.EnactedOn, b.PolicyArea,
	)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	ok, err := oneRow(res)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	return ok, nil
}

func (repo *BillRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, repo.db, "bills")
}

/* ───────────── votes ───────────── */

type VoteRepo struct{ db DBTX }

func NewVoteRepo(db DBTX) repository.VoteRepository {
	return &VoteRepo{db: db}
}

func (repo *VoteRepo) Insert(ctx context.Context, v *entity.Vote) (bool, error) {
	const query = `
INSERT INTO votes (politician_id, roll_call_id, congress, bill_type, bill_number, position)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (politician_id, roll_call_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query,
		v.PoliticianID, v.RollCallID, v.Bill.Congress, v.Bill.Type, v.Bill.Number, v.Position,
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

// voteOrder holds the ORDER BY of ListByPolitician for each direction.
var voteOrder = map[bool]string{
	false: "b.enacted_on DESC, b.congress DESC, b.bill_type DESC, b.bill_number DESC, v.roll_call_id ASC",
	true:  "b.enacted_on ASC, b.congress ASC, b.bill_type ASC, b.bill_number ASC, v.roll_call_id ASC",
}

func (repo *VoteRepo) ListByPolitician(ctx context.Context, politicianID int64, f repository.VoteFilter) ([]repository.VoteWithBill, error) {
	query := `
SELECT v.politician_id, v.roll_call_id, v.position, v.created_at,
       b.congress, b.bill_type, b.bill_number, b.title, b.enacted_on, b.policy_area, b.created_at
FROM votes v
JOIN bills b
  ON b.congress = v.congress AND b.bill_type = v.bill_type AND b.bill_number = v.bill_number
WHERE v.politician_id = $1
  AND ($2::text = '' OR v.bill_type = $2)
ORDER BY ` + voteOrder[f.Ascending] + `
LIMIT $3 OFFSET $4`
	rows, err := repo.db.QueryContext(ctx, query, politicianID, f.BillType, nullLimit(f.Limit), max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("ListByPolitician: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]repository.VoteWithBill, 0, 64)
	for rows.Next() {
		var vb repository.VoteWithBill
		if err := rows.Scan(
			&vb.Vote.PoliticianID, &vb.Vote.RollCallID, &vb.Vote.Position, &vb.Vote.CreatedAt,
			&vb.Bill.Congress, &vb.Bill.Type, &vb.Bill.Number, &vb.Bill.Title,
			&vb.Bill.EnactedOn, &vb.Bill.PolicyArea, &vb.Bill.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListByPolitician: %w", err)
		}
		vb.Vote.Bill = vb.Bill.Key()
		out = append(out, vb)
	}
	return out, rows.Err()
}

func (repo *VoteRepo) CountByPolitician(ctx context.Context, politicianID int64, billType string) (int64, error) {
	const query = `
SELECT COUNT(*)
FROM votes
WHERE politician_id = $1
  AND ($2::text = '' OR bill_type = $2)`
	var n int64
	if err := repo.db.QueryRowContext(ctx, query, politicianID, billType).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountByPolitician: %w", err)
	}
	return n, nil
}

func (repo *VoteRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, repo.db, "votes")
}
