// Package donor provides the HTTP handlers for donor lookups: search by
// name or employer and a donor's donations with their recipients.
package donor

import (
	"paper-trail/internal/domain/entity"
	"paper-trail/internal/usecase/query"

	"github.com/shopspring/decimal"
)

// DTO is one donor.
type DTO struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	CommitteeID string `json:"committee_id,omitempty"`
	Employer    string `json:"employer,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
}

// RecipientDTO is the politician a donation went to.
type RecipientDTO struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	State    string `json:"state"`
	Party    string `json:"party,omitempty"`
}

// DonationDTO is one donation with its recipient.
type DonationDTO struct {
	SourceTxID string          `json:"source_tx_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	Recipient  RecipientDTO    `json:"recipient"`
}

// HistoryDTO is the response of GET /donors/{id}/donations.
type HistoryDTO struct {
	Donor     DTO             `json:"donor"`
	Total     decimal.Decimal `json:"total"`
	Donations []DonationDTO   `json:"donations"`
}

const dateLayout = "2006-01-02"

func toDTO(d *entity.Donor) DTO {
	return DTO{
		ID:          d.ID,
		Type:        string(d.Type),
		Name:        d.Name,
		CommitteeID: d.CommitteeID,
		Employer:    d.Employer,
		Occupation:  d.Occupation,
		City:        d.City,
		State:       d.State,
	}
}

// toHistoryDTO totals the listed donations.
func toHistoryDTO(h *query.DonorHistory) HistoryDTO {
	out := HistoryDTO{
		Donor:     toDTO(h.Donor),
		Total:     decimal.Zero,
		Donations: make([]DonationDTO, 0, len(h.Donations)),
	}
	for _, dr := range h.Donations {
		out.Total = out.Total.Add(dr.Donation.Amount)
		out.Donations = append(out.Donations, DonationDTO{
			SourceTxID: dr.Donation.SourceTxID,
			Amount:     dr.Donation.Amount,
			Date:       dr.Donation.Date.Format(dateLayout),
			Recipient: RecipientDTO{
				ID:       dr.Recipient.ID,
				FullName: dr.Recipient.FullName,
				State:    dr.Recipient.State,
				Party:    dr.Recipient.Party,
			},
		})
	}
	return out
}
