// Package politician provides the HTTP handlers for politician lookups:
// name search, detail with source identities, votes and donor totals.
package politician

import (
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"
	"paper-trail/internal/usecase/query"

	"github.com/shopspring/decimal"
)

// DTO is a politician without its source identities.
type DTO struct {
	ID        int64               `json:"id"`
	FullName  string              `json:"full_name"`
	FirstName string              `json:"first_name"`
	LastName  string              `json:"last_name"`
	State     string              `json:"state"`
	Party     string              `json:"party,omitempty"`
	BirthDate *string             `json:"birth_date,omitempty"`
	Offices   []entity.OfficeTerm `json:"offices"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// MappingDTO is one source identifier pointing at the politician.
type MappingDTO struct {
	System     string `json:"system"`
	LocalID    string `json:"local_id"`
	Confidence string `json:"confidence"`
}

// DetailDTO is the response of GET /politicians/{id}.
type DetailDTO struct {
	DTO
	Mappings []MappingDTO `json:"mappings"`
}

// VoteDTO is one roll-call position with its bill.
type VoteDTO struct {
	RollCallID string         `json:"roll_call_id"`
	Position   string         `json:"position"`
	Bill       entity.BillKey `json:"bill"`
	BillTitle  string         `json:"bill_title"`
	EnactedOn  string         `json:"enacted_on"`
	PolicyArea string         `json:"policy_area,omitempty"`
}

// DonorDTO is one donor's contribution total.
type DonorDTO struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	CommitteeID string          `json:"committee_id,omitempty"`
	Employer    string          `json:"employer,omitempty"`
	State       string          `json:"state,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Count       int64           `json:"count"`
	Share       decimal.Decimal `json:"share"`
}

// DonationsDTO is the response of GET /politicians/{id}/donations.
type DonationsDTO struct {
	PoliticianID int64           `json:"politician_id"`
	DonorType    string          `json:"donor_type,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
	Donors       []DonorDTO      `json:"donors"`
}

const dateLayout = "2006-01-02"

func toDTO(p *entity.Politician) DTO {
	out := DTO{
		ID:        p.ID,
		FullName:  p.FullName,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		State:     p.State,
		Party:     p.Party,
		Offices:   p.Offices,
		UpdatedAt: p.UpdatedAt,
	}
	if out.Offices == nil {
		out.Offices = []entity.OfficeTerm{}
	}
	if p.BirthDate != nil {
		s := p.BirthDate.Format(dateLayout)
		out.BirthDate = &s
	}
	return out
}

func toDetailDTO(d *query.PoliticianDetail) DetailDTO {
	out := DetailDTO{DTO: toDTO(d.Politician), Mappings: make([]MappingDTO, 0, len(d.Mappings))}
	for _, m := range d.Mappings {
		out.Mappings = append(out.Mappings, MappingDTO{
			System:     string(m.System),
			LocalID:    m.LocalID,
			Confidence: string(m.Confidence),
		})
	}
	return out
}

func toVoteDTOs(votes []repository.VoteWithBill) []VoteDTO {
	out := make([]VoteDTO, 0, len(votes))
	for _, v := range votes {
		out = append(out, VoteDTO{
			RollCallID: v.Vote.RollCallID,
			Position:   string(v.Vote.Position),
			Bill:       v.Bill.Key(),
			BillTitle:  v.Bill.Title,
			EnactedOn:  v.Bill.EnactedOn.Format(dateLayout),
			PolicyArea: v.Bill.PolicyArea,
		})
	}
	return out
}

func toDonationsDTO(s *query.DonationSummary) DonationsDTO {
	out := DonationsDTO{
		PoliticianID: s.PoliticianID,
		DonorType:    string(s.DonorType),
		Total:        s.Total,
		Count:        s.Count,
		Donors:       make([]DonorDTO, 0, len(s.Donors)),
	}
	for _, t := range s.Donors {
		out.Donors = append(out.Donors, DonorDTO{
			ID:          t.Donor.ID,
			Type:        string(t.Donor.Type),
			Name:        t.Donor.Name,
			CommitteeID: t.Donor.CommitteeID,
			Employer:    t.Donor.Employer,
			State:       t.Donor.State,
			Total:       t.Total,
			Count:       t.Count,
			Share:       t.Share,
		})
	}
	return out
}
