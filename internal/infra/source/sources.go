package source

import (
	"paper-trail/internal/config"
	"paper-trail/internal/domain/record"
	"paper-trail/internal/usecase/pipeline"
)

// FromManifest builds the pipeline's sources from a manifest. Sources the
// manifest leaves empty are simply absent.
func FromManifest(m *config.Manifest) pipeline.Sources {
	var s pipeline.Sources

	if len(m.Roster) > 0 {
		s.Roster = []pipeline.Source[record.Legislator]{NewRosterReader(m.Roster...)}
	}
	if len(m.Bills) > 0 {
		s.Bills = []pipeline.Source[record.BillStatus]{NewBillStatusReader(m.Bills...)}
	}

	vv := &VoteviewReader{
		MemberPaths:   m.Voteview.Members,
		RollCallPaths: m.Voteview.RollCalls,
		VotePaths:     m.Voteview.Votes,
	}
	if len(vv.MemberPaths) > 0 {
		s.Members = []pipeline.Source[record.Member]{vv.Members()}
	}
	if len(vv.VotePaths) > 0 {
		s.Votes = []pipeline.Source[record.Vote]{vv.Votes()}
	}

	if len(m.FEC.Candidates) > 0 {
		s.Candidates = []pipeline.Source[record.Candidate]{NewCandidateFile(m.FEC.Candidates...)}
	}
	if len(m.FEC.Committees) > 0 {
		s.Committees = []pipeline.Source[record.Committee]{NewCommitteeFile(m.FEC.Committees...)}
	}
	if len(m.FEC.Linkages) > 0 {
		s.Linkages = []pipeline.Source[record.Linkage]{NewLinkageFile(m.FEC.Linkages...)}
	}
	if len(m.FEC.CommitteeContributions) > 0 {
		s.Contributions = append(s.Contributions, NewCommitteeContributionFile(m.FEC.CommitteeContributions...))
	}
	if len(m.FEC.Individual) > 0 {
		s.Contributions = append(s.Contributions, NewIndividualContributionFile(m.FEC.Individual...))
	}
	return s
}
