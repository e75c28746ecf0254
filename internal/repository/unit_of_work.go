package repository

import "context"

// Repositories groups the repositories that share one connection or transaction.
type Repositories struct {
	Politicians PoliticianRepository
	Identities  IdentityRepository
	Bills       BillRepository
	Votes       VoteRepository
	Donors      DonorRepository
	Donations   DonationRepository
	Deferred    DeferredRepository
	Runs        RunRepository
}

// UnitOfWork runs fn inside a transaction. The repositories passed to fn are
// bound to it; the transaction commits if fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(Repositories) error) error
}

// Store is a persistence backend: repositories for reads plus a unit of work for writes.
type Store interface {
	UnitOfWork
	Repos() Repositories
}
