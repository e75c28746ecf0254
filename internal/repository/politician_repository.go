package repository

import (
	"context"

	"paper-trail/internal/domain/entity"
)

// PoliticianRepository persists canonical politicians. Politicians are never deleted.
type PoliticianRepository interface {
	// Get returns (nil, nil) if the politician does not exist.
	Get(ctx context.Context, id int64) (*entity.Politician, error)
	// List returns every politician ordered by ID. The resolver loads its
	// in-memory index from it at the start of a run.
	List(ctx context.Context) ([]*entity.Politician, error)
	// Search matches the display name or the name key, case-insensitively.
	Search(ctx context.Context, name string, limit int) ([]*entity.Politician, error)
	// Create inserts p and sets its ID and timestamps.
	Create(ctx context.Context, p *entity.Politician) error
	// Update writes office history, party and birth date.
	Update(ctx context.Context, p *entity.Politician) error
	Count(ctx context.Context) (int64, error)
}

// IdentityRepository persists source-identifier mappings. A mapping, once
// written, is never overwritten or removed.
type IdentityRepository interface {
	List(ctx context.Context) ([]entity.IdentityMapping, error)
	// Get returns (nil, nil) if the reference is not mapped.
	Get(ctx context.Context, ref entity.SourceRef) (*entity.IdentityMapping, error)
	ListByPolitician(ctx context.Context, politicianID int64) ([]entity.IdentityMapping, error)
	// Insert writes m unless (system, local id) is already mapped, and
	// reports whether a row was written.
	Insert(ctx context.Context, m *entity.IdentityMapping) (bool, error)
	Count(ctx context.Context) (int64, error)
}
