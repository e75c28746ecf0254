package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBillReference(t *testing.T) {
	tests := []struct {
		name     string
		congress int
		ref      string
		want     BillKey
		wantErr  bool
	}{
		{name: "voteview compact", congress: 118, ref: "HR1234", want: BillKey{118, "HR", 1234}},
		{name: "dotted with space", congress: 117, ref: "H.R. 5376", want: BillKey{117, "HR", 5376}},
		{name: "senate lower case", congress: 116, ref: "s 178", want: BillKey{116, "S", 178}},
		{name: "joint resolution", congress: 118, ref: "H.J.Res. 7", want: BillKey{118, "HJRES", 7}},
		{name: "concurrent resolution", congress: 115, ref: "SCONRES3", want: BillKey{115, "SCONRES", 3}},
		{name: "nomination", congress: 118, ref: "PN1234", wantErr: true},
		{name: "missing number", congress: 118, ref: "HR", wantErr: true},
		{name: "missing type", congress: 118, ref: "1234", wantErr: true},
		{name: "empty", congress: 118, ref: "  ", wantErr: true},
		{name: "bad congress", congress: 0, ref: "HR1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBillReference(tt.congress, tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBillKey_String(t *testing.T) {
	assert.Equal(t, "118-hr-1234", BillKey{118, "HR", 1234}.String())
}

func TestBill_Validate(t *testing.T) {
	b := Bill{Congress: 118, Type: "HR", Number: 3746, Title: "Fiscal Responsibility Act of 2023",
		EnactedOn: time.Date(2023, 6, 3, 0, 0, 0, 0, time.UTC)}
	assert.NoError(t, b.Validate())
	assert.Equal(t, BillKey{118, "HR", 3746}, b.Key())

	b.EnactedOn = time.Time{}
	assert.ErrorIs(t, b.Validate(), ErrValidationFailed)

	b.EnactedOn = time.Now()
	b.Type = "hr"
	assert.Error(t, b.Validate())
}

func TestVote_Validate(t *testing.T) {
	v := Vote{PoliticianID: 1, RollCallID: RollCallID(118, OfficeHouse, 412), Bill: BillKey{118, "HR", 1}, Position: PositionYea}
	assert.NoError(t, v.Validate())
	assert.Equal(t, "118-H-412", v.RollCallID)

	v.Position = "MAYBE"
	assert.Error(t, v.Validate())
}

func TestDonation_Threshold(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{amount: "2000", want: false},
		{amount: "2000.00", want: false},
		{amount: "2000.01", want: true},
		{amount: "1999.99", want: false},
		{amount: "-2500", want: false},
		{amount: "5000", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			assert.Equal(t, tt.want, AboveThreshold(amount))

			d := Donation{SourceTxID: "4061520231234", PoliticianID: 7, Amount: amount, Date: time.Now()}
			if tt.want {
				assert.NoError(t, d.Validate())
			} else {
				assert.ErrorIs(t, d.Validate(), ErrValidationFailed)
			}
		})
	}
}

func TestDonor_Validate(t *testing.T) {
	individual := Donor{Type: DonorIndividual, NameKey: "SMITH JOHN"}
	assert.NoError(t, individual.Validate())

	individual.CommitteeID = "C00000001"
	assert.Error(t, individual.Validate())

	pac := Donor{Type: DonorPAC, NameKey: "ACME PAC"}
	assert.Error(t, pac.Validate())
	pac.CommitteeID = "C00012345"
	assert.NoError(t, pac.Validate())
	assert.True(t, pac.Type.IsCommittee())
	assert.Equal(t, DonorKey{Type: DonorPAC, NameKey: "ACME PAC", CommitteeID: "C00012345"}, pac.Key())
}
