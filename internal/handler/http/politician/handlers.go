package politician

import (
	"context"
	"errors"
	"net/http"

	"paper-trail/internal/common/pagination"
	"paper-trail/internal/domain/entity"
	"paper-trail/internal/handler/http/pathutil"
	"paper-trail/internal/handler/http/respond"
	"paper-trail/internal/usecase/query"
)

// Service is the part of the query service these handlers need.
type Service interface {
	GetPolitician(ctx context.Context, id int64) (*query.PoliticianDetail, error)
	SearchPoliticians(ctx context.Context, name string, limit int) ([]*entity.Politician, error)
	VotesByPolitician(ctx context.Context, id int64, q query.VoteQuery) (*query.VotePage, error)
	DonationSummary(ctx context.Context, id int64, donorType string, limit int) (*query.DonationSummary, error)
}

// statusFor maps query errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrInvalidPoliticianID),
		errors.Is(err, query.ErrEmptyQuery),
		errors.Is(err, query.ErrInvalidBillType),
		errors.Is(err, query.ErrInvalidSort),
		errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, pathutil.ErrInvalidID),
		errors.Is(err, pathutil.ErrInvalidLimit),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrPoliticianNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, err error) {
	respond.SafeError(w, statusFor(err), err)
}

// SearchHandler matches politicians by name: GET /politicians?name=&limit=.
type SearchHandler struct{ Svc Service }

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := pathutil.ParseLimit(q.Get("limit"))
	if err != nil {
		fail(w, err)
		return
	}

	ps, err := h.Svc.SearchPoliticians(r.Context(), q.Get("name"), limit)
	if err != nil {
		fail(w, err)
		return
	}

	out := make([]DTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toDTO(p))
	}
	respond.JSON(w, http.StatusOK, out)
}

// GetHandler returns one politician with its source identities.
type GetHandler struct{ Svc Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}

	detail, err := h.Svc.GetPolitician(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDetailDTO(detail))
}

// VotesHandler pages through a politician's votes:
// GET /politicians/{id}/votes?page=&limit=&type=&sort=.
// type is a bill type such as hr or sjres; sort is asc or desc (default).
type VotesHandler struct {
	Svc    Service
	Paging pagination.Config
}

func (h VotesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	params, err := pagination.ParseQueryParams(r, h.Paging)
	if err != nil {
		fail(w, err)
		return
	}

	q := r.URL.Query()
	page, err := h.Svc.VotesByPolitician(r.Context(), id, query.VoteQuery{
		BillType: q.Get("type"),
		Sort:     q.Get("sort"),
		Page:     params,
	})
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(toVoteDTOs(page.Votes), page.Meta))
}

// DonationsHandler returns a politician's top donors by amount:
// GET /politicians/{id}/donations?type=&limit=. type narrows to INDIVIDUAL,
// PAC or PARTY_COMMITTEE donors.
type DonationsHandler struct{ Svc Service }

func (h DonationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	q := r.URL.Query()
	limit, err := pathutil.ParseLimit(q.Get("limit"))
	if err != nil {
		fail(w, err)
		return
	}

	sum, err := h.Svc.DonationSummary(r.Context(), id, q.Get("type"), limit)
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDonationsDTO(sum))
}

// Register mounts the politician routes on mux.
func Register(mux *http.ServeMux, svc Service) {
	mux.Handle("GET /politicians", SearchHandler{svc})
	mux.Handle("GET /politicians/{id}", GetHandler{svc})
	mux.Handle("GET /politicians/{id}/votes", VotesHandler{Svc: svc, Paging: pagination.DefaultConfig()})
	mux.Handle("GET /politicians/{id}/donations", DonationsHandler{svc})
}
