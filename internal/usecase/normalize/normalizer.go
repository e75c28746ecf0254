package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
)

// Each normalizer below returns either a normalized record or an
// *entity.Rejection. Normalizers are pure and safe for concurrent use.

// Legislator normalizes a roster entry. The bioguide ID is required; FEC and
// ICPSR identifiers listed alongside it become cross-references.
func Legislator(raw record.Legislator) (record.LegislatorRecord, error) {
	ref := entity.SourceRef{System: entity.SystemBioguide, LocalID: strings.TrimSpace(raw.BioguideID)}
	if ref.LocalID == "" {
		return record.LegislatorRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "bioguide id is required")
	}

	name, err := NameFromParts(raw.First, raw.Last, raw.OfficialName)
	if err != nil {
		return record.LegislatorRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "name: %v", err)
	}

	if len(raw.Terms) == 0 {
		return record.LegislatorRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "no terms")
	}

	terms := make([]entity.OfficeTerm, 0, len(raw.Terms))
	for i, t := range raw.Terms {
		office, err := entity.ParseOffice(t.Type)
		if err != nil {
			return record.LegislatorRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "terms[%d]: %v", i, err)
		}
		state, ok := entity.StateCode(t.State)
		if !ok && office != entity.OfficePresident {
			return record.LegislatorRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "terms[%d]: unknown state %q", i, t.State)
		}
		start, err := ParseISODate(t.Start)
		if err != nil {
			return record.LegislatorRecord{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "terms[%d] start: %v", i, err)
		}
		end, err := ParseISODate(t.End)
		if err != nil {
			return record.LegislatorRecord{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "terms[%d] end: %v", i, err)
		}
		if end.Before(start) {
			return record.LegislatorRecord{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "terms[%d] ends before it starts", i)
		}
		terms = append(terms, entity.OfficeTerm{
			Office:    office,
			State:     state,
			District:  t.District,
			Party:     PartyName(t.Party),
			StartYear: start.Year(),
			EndYear:   end.Year(),
		})
	}

	out := record.LegislatorRecord{
		Origin: raw.Origin,
		Ref:    ref,
		Name:   name,
		Party:  terms[len(terms)-1].Party,
		Terms:  terms,
	}

	if raw.Birthday != "" {
		bd, err := ParseISODate(raw.Birthday)
		if err != nil {
			return record.LegislatorRecord{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "birthday: %v", err)
		}
		out.BirthDate = &bd
	}

	for _, id := range raw.FECIDs {
		if id = strings.TrimSpace(id); id != "" {
			out.CrossRefs = append(out.CrossRefs, entity.SourceRef{System: entity.SystemFEC, LocalID: strings.ToUpper(id)})
		}
	}
	if id := strings.TrimSpace(raw.ICPSRID); id != "" {
		out.CrossRefs = append(out.CrossRefs, entity.SourceRef{System: entity.SystemICPSR, LocalID: id})
	}

	return out, nil
}

// Bill normalizes enacted-bill metadata.
func Bill(raw record.BillStatus) (entity.Bill, error) {
	ref := entity.SourceRef{LocalID: strings.TrimSpace(raw.Congress + "-" + raw.Type + "-" + raw.Number)}

	if strings.TrimSpace(raw.Congress) == "" || strings.TrimSpace(raw.Type) == "" || strings.TrimSpace(raw.Number) == "" {
		return entity.Bill{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "congress, type and number are required")
	}
	congress, err := strconv.Atoi(strings.TrimSpace(raw.Congress))
	if err != nil || congress <= 0 {
		return entity.Bill{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "invalid congress %q", raw.Congress)
	}
	billType, ok := entity.NormalizeBillType(raw.Type)
	if !ok {
		return entity.Bill{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "invalid bill type %q", raw.Type)
	}
	number, err := strconv.Atoi(strings.TrimSpace(raw.Number))
	if err != nil || number <= 0 {
		return entity.Bill{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "invalid bill number %q", raw.Number)
	}
	title := CollapseSpace(raw.Title)
	if title == "" {
		return entity.Bill{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "title is required")
	}
	if strings.TrimSpace(raw.EnactedOn) == "" {
		return entity.Bill{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "enactment date is required")
	}
	enacted, err := ParseISODate(raw.EnactedOn)
	if err != nil {
		return entity.Bill{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "enactment date: %v", err)
	}

	return entity.Bill{
		Congress:   congress,
		Type:       billType,
		Number:     number,
		Title:      title,
		EnactedOn:  enacted,
		PolicyArea: CollapseSpace(raw.PolicyArea),
	}, nil
}

// Member normalizes a Voteview member-congress row. A bioguide ID on the row
// becomes a cross-reference.
func Member(raw record.Member) (record.MemberRecord, error) {
	ref := entity.SourceRef{System: entity.SystemICPSR, LocalID: strings.TrimSpace(raw.ICPSR)}
	if ref.LocalID == "" || ref.LocalID == "0" {
		return record.MemberRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "icpsr id is required")
	}
	if raw.Congress <= 0 {
		return record.MemberRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "congress is required")
	}
	office, err := entity.ParseOffice(raw.Chamber)
	if err != nil {
		return record.MemberRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "%v", err)
	}
	state, ok := entity.StateCode(raw.State)
	if !ok && office != entity.OfficePresident {
		return record.MemberRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "unknown state %q", raw.State)
	}
	name, err := ParsePersonName(raw.BioName)
	if err != nil {
		return record.MemberRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "name %q: %v", raw.BioName, err)
	}

	out := record.MemberRecord{
		Origin:   raw.Origin,
		Ref:      ref,
		Name:     name,
		State:    state,
		Office:   office,
		Congress: raw.Congress,
		Period:   entity.CongressYears(raw.Congress),
	}
	if id := strings.TrimSpace(raw.BioguideID); id != "" {
		out.CrossRefs = []entity.SourceRef{{System: entity.SystemBioguide, LocalID: id}}
	}
	return out, nil
}

// Vote normalizes a Voteview vote. Roll calls whose bill number is not
// legislation (nominations, procedural motions) keep a nil Bill.
func Vote(raw record.Vote) (record.VoteRecord, error) {
	ref := entity.SourceRef{System: entity.SystemICPSR, LocalID: strings.TrimSpace(raw.ICPSR)}
	if ref.LocalID == "" || raw.Congress <= 0 || raw.RollNumber <= 0 {
		return record.VoteRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "icpsr, congress and roll number are required")
	}
	chamber, err := entity.ParseOffice(raw.Chamber)
	if err != nil || chamber == entity.OfficePresident {
		return record.VoteRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "invalid chamber %q", raw.Chamber)
	}
	position, err := CastCodePosition(raw.CastCode)
	if err != nil {
		return record.VoteRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "%v", err)
	}

	out := record.VoteRecord{
		Origin:     raw.Origin,
		ICPSR:      ref.LocalID,
		RollCallID: entity.RollCallID(raw.Congress, chamber, raw.RollNumber),
		Congress:   raw.Congress,
		Chamber:    chamber,
		Position:   position,
	}
	if raw.BillNumber != "" {
		if key, err := entity.ParseBillReference(raw.Congress, raw.BillNumber); err == nil {
			out.Bill = &key
		}
	}
	return out, nil
}

// candidatePeriod is the span during which an FEC candidacy for the given
// election can coincide with service: the campaign cycle through the start
// of the term it elects.
func candidatePeriod(office entity.Office, electionYear int) entity.YearRange {
	switch office {
	case entity.OfficeSenate:
		return entity.YearRange{Start: electionYear - 5, End: electionYear + 1}
	case entity.OfficePresident:
		return entity.YearRange{Start: electionYear - 3, End: electionYear + 1}
	default:
		return entity.YearRange{Start: electionYear - 1, End: electionYear + 1}
	}
}

// Candidate normalizes an FEC candidate master row.
func Candidate(raw record.Candidate) (record.CandidateRecord, error) {
	ref := entity.SourceRef{System: entity.SystemFEC, LocalID: strings.ToUpper(strings.TrimSpace(raw.CandidateID))}
	if ref.LocalID == "" {
		return record.CandidateRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "candidate id is required")
	}
	name, err := ParsePersonName(raw.Name)
	if err != nil {
		return record.CandidateRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "name %q: %v", raw.Name, err)
	}
	office, err := entity.ParseOffice(raw.Office)
	if err != nil {
		return record.CandidateRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "%v", err)
	}
	state, ok := entity.StateCode(raw.State)
	if !ok && office != entity.OfficePresident {
		return record.CandidateRecord{}, reject(entity.ReasonInvalidCode, ref, raw.Origin, "unknown state %q", raw.State)
	}
	year, err := ParseYear(raw.ElectionYear)
	if err != nil {
		return record.CandidateRecord{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "election year: %v", err)
	}

	return record.CandidateRecord{
		Origin:       raw.Origin,
		Ref:          ref,
		Name:         name,
		Party:        PartyName(raw.Party),
		State:        state,
		Office:       office,
		District:     strings.TrimSpace(raw.District),
		ElectionYear: year,
		Period:       candidatePeriod(office, year),
	}, nil
}

// Committee normalizes an FEC committee master row.
func Committee(raw record.Committee) (record.CommitteeRecord, error) {
	ref := entity.SourceRef{System: entity.SystemFEC, LocalID: strings.ToUpper(strings.TrimSpace(raw.CommitteeID))}
	if ref.LocalID == "" {
		return record.CommitteeRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "committee id is required")
	}
	name := CollapseSpace(raw.Name)
	if name == "" {
		return record.CommitteeRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "committee name is required")
	}
	return record.CommitteeRecord{
		CommitteeID: ref.LocalID,
		Name:        name,
		NameKey:     CommitteeNameKey(name),
		Type:        strings.ToUpper(strings.TrimSpace(raw.Type)),
		Designation: strings.ToUpper(strings.TrimSpace(raw.Designation)),
		CandidateID: strings.ToUpper(strings.TrimSpace(raw.CandidateID)),
	}, nil
}

// Linkage normalizes a candidate-committee linkage row.
func Linkage(raw record.Linkage) (record.LinkageRecord, error) {
	ref := entity.SourceRef{System: entity.SystemFEC, LocalID: strings.TrimSpace(raw.LinkageID)}
	candidate := strings.ToUpper(strings.TrimSpace(raw.CandidateID))
	committee := strings.ToUpper(strings.TrimSpace(raw.CommitteeID))
	if candidate == "" || committee == "" {
		return record.LinkageRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "candidate and committee ids are required")
	}
	out := record.LinkageRecord{
		CandidateID: candidate,
		CommitteeID: committee,
		Designation: strings.ToUpper(strings.TrimSpace(raw.Designation)),
	}
	if raw.ElectionYear != "" {
		year, err := ParseYear(raw.ElectionYear)
		if err != nil {
			return record.LinkageRecord{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "election year: %v", err)
		}
		out.ElectionYear = year
	}
	return out, nil
}

// Committee-to-candidate transaction types that put money in the candidate's
// campaign: direct contributions (24K) and in-kind contributions (24Z).
// Independent expenditures (24E, 24A) and communication costs (24F, 24N) are
// spent about a candidate, not given to one.
var directCandidateTypes = map[string]bool{"24K": true, "24Z": true}

// countsAsContribution reports whether a row is money given to the
// recipient. Individual rows must be receipts (15, 15C, 15E, ...); a receipt
// naming another committee counts only when it is earmarked (15E) or an
// in-kind receipt (15Z). Memo entries are never counted: they repeat or
// itemize a transaction reported elsewhere.
func countsAsContribution(raw record.Contribution, txType string) (string, bool) {
	if strings.EqualFold(strings.TrimSpace(raw.MemoCode), "X") {
		return fmt.Sprintf("memo entry (type %s)", txType), false
	}
	if raw.Kind == record.ContributionCommittee {
		if !directCandidateTypes[txType] {
			return fmt.Sprintf("transaction type %s is not a contribution to the candidate", txType), false
		}
		return "", true
	}
	if !strings.HasPrefix(txType, "15") {
		return fmt.Sprintf("transaction type %s is not an individual receipt", txType), false
	}
	if strings.TrimSpace(raw.OtherID) != "" && txType != "15E" && txType != "15Z" {
		return fmt.Sprintf("transaction type %s from committee %s is not earmarked", txType, strings.TrimSpace(raw.OtherID)), false
	}
	return "", true
}

// Contribution normalizes an FEC itcont or pas2 row. SUB_ID, FEC's unique
// row identifier, is the transaction ID. Amounts at or below the reportable
// threshold are rejected here.
func Contribution(raw record.Contribution) (record.ContributionRecord, error) {
	ref := entity.SourceRef{System: entity.SystemFEC, LocalID: strings.TrimSpace(raw.SubID)}
	if ref.LocalID == "" {
		return record.ContributionRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "sub id is required")
	}
	committee := strings.ToUpper(strings.TrimSpace(raw.CommitteeID))
	if committee == "" {
		return record.ContributionRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "committee id is required")
	}
	txType := strings.ToUpper(strings.TrimSpace(raw.TransactionType))
	if txType == "" {
		return record.ContributionRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "transaction type is required")
	}
	if detail, ok := countsAsContribution(raw, txType); !ok {
		return record.ContributionRecord{}, reject(entity.ReasonNotAContribution, ref, raw.Origin, "%s", detail)
	}
	if strings.TrimSpace(raw.Amount) == "" {
		return record.ContributionRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "amount is required")
	}
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return record.ContributionRecord{}, reject(entity.ReasonMalformedAmount, ref, raw.Origin, "%v", err)
	}
	if strings.TrimSpace(raw.Date) == "" {
		return record.ContributionRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "transaction date is required")
	}
	date, err := ParseFECDate(raw.Date)
	if err != nil {
		return record.ContributionRecord{}, reject(entity.ReasonMalformedDate, ref, raw.Origin, "%v", err)
	}
	if !entity.AboveThreshold(amount) {
		return record.ContributionRecord{}, reject(entity.ReasonBelowThreshold, ref, raw.Origin,
			"amount %s not above %s", amount.StringFixed(2), entity.ReportableThreshold.String())
	}

	out := record.ContributionRecord{
		Origin:          raw.Origin,
		Kind:            raw.Kind,
		TxID:            ref.LocalID,
		TransactionType: txType,
		CommitteeID:     committee,
		CandidateID:     strings.ToUpper(strings.TrimSpace(raw.CandidateID)),
		EntityType:      strings.ToUpper(strings.TrimSpace(raw.EntityType)),
		Amount:          amount,
		Date:            date,
	}

	if raw.Kind == record.ContributionIndividual {
		out.DonorName = CollapseSpace(raw.Name)
		out.DonorKey = DonorNameKey(raw.Name)
		if out.DonorKey == "" {
			return record.ContributionRecord{}, reject(entity.ReasonMissingRequiredField, ref, raw.Origin, "contributor name is required")
		}
		out.Employer = CollapseSpace(raw.Employer)
		out.Occupation = CollapseSpace(raw.Occupation)
		out.City = CollapseSpace(raw.City)
		if state, ok := entity.StateCode(raw.State); ok {
			out.State = state
		}
	}
	return out, nil
}
