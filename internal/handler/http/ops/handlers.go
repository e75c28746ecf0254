// Package ops serves the operator endpoints: the deferred side-channel and
// the latest ingest run report.
package ops

import (
	"context"
	"errors"
	"net/http"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/handler/http/pathutil"
	"paper-trail/internal/handler/http/respond"
	"paper-trail/internal/usecase/query"
)

// Service is the part of the query service these handlers need.
type Service interface {
	ListDeferred(ctx context.Context, kind string, limit int) ([]*entity.DeferredRecord, error)
	LatestRun(ctx context.Context) (*entity.RunSummary, error)
}

// DeferredHandler lists pending deferred records, optionally of one kind:
// GET /deferred?kind=&limit=, kind being CANDIDATE, MEMBER, VOTE, DONATION
// or IDENTITY_CONFLICT.
type DeferredHandler struct{ Svc Service }

func (h DeferredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := pathutil.ParseLimit(q.Get("limit"))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	recs, err := h.Svc.ListDeferred(r.Context(), q.Get("kind"), limit)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, entity.ErrInvalidInput) {
			code = http.StatusBadRequest
		}
		respond.SafeError(w, code, err)
		return
	}
	if recs == nil {
		recs = []*entity.DeferredRecord{}
	}
	respond.JSON(w, http.StatusOK, recs)
}

// LatestRunHandler returns the most recent run summary.
type LatestRunHandler struct{ Svc Service }

func (h LatestRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	run, err := h.Svc.LatestRun(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, query.ErrNoRuns) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	respond.JSON(w, http.StatusOK, run)
}

// Register mounts the operator routes on mux.
func Register(mux *http.ServeMux, svc Service) {
	mux.Handle("GET /deferred", DeferredHandler{svc})
	mux.Handle("GET /runs/latest", LatestRunHandler{svc})
}
