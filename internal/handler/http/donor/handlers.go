package donor

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
	SearchDonors(ctx context.Context, q string, limit int) ([]entity.Donor, error)
	DonorDonations(ctx context.Context, donorID int64, limit int) (*query.DonorHistory, error)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrQueryTooShort),
		errors.Is(err, query.ErrInvalidDonorID),
		errors.Is(err, pathutil.ErrInvalidID),
		errors.Is(err, pathutil.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrDonorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, err error) {
	respond.SafeError(w, statusFor(err), err)
}

// SearchHandler matches donors by name or employer:
// GET /donors?name=&limit=. name needs at least three characters.
type SearchHandler struct{ Svc Service }

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := pathutil.ParseLimit(q.Get("limit"))
	if err != nil {
		fail(w, err)
		return
	}

	donors, err := h.Svc.SearchDonors(r.Context(), q.Get("name"), limit)
	if err != nil {
		fail(w, err)
		return
	}

	out := make([]DTO, 0, len(donors))
	for i := range donors {
		out = append(out, toDTO(&donors[i]))
	}
	respond.JSON(w, http.StatusOK, out)
}

// DonationsHandler lists a donor's donations, newest first, with the
// politicians who received them: GET /donors/{id}/donations?limit=.
type DonationsHandler struct{ Svc Service }

func (h DonationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	limit, err := pathutil.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		fail(w, err)
		return
	}

	history, err := h.Svc.DonorDonations(r.Context(), id, limit)
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toHistoryDTO(history))
}

// Register mounts the donor routes on mux.
func Register(mux *http.ServeMux, svc Service) {
	mux.Handle("GET /donors", SearchHandler{svc})
	mux.Handle("GET /donors/{id}/donations", DonationsHandler{svc})
}
