// Package resilience groups the fault tolerance helpers used by the ingest
// pipeline and the read API.
//
//   - circuitbreaker: fail fast on the database connection and the NATS
//     event publisher
//   - retry: exponential backoff with jitter for the initial database connect
//
// Usage:
//
//	conn := circuitbreaker.NewDBCircuitBreaker(db)
//	store := postgres.NewStore(conn)
//
//	err := retry.WithBackoff(ctx, retry.DBConnectConfig(), func() error {
//	    return db.PingContext(ctx)
//	})
package resilience
