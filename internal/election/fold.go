package election

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/saxenaaman628/redis-election/internal/models"
)

// apply folds a validated event into state. Must hold the write lock.
func (e *Election) apply(ev models.Event) {
	switch ev.Type {
	case models.EventVoterRegistered:
		e.voters[*ev.VoterAddress] = models.Voter{IsRegistered: true}
	case models.EventProposalRegistered:
		e.proposals = append(e.proposals, models.Proposal{Description: ev.Description})
	case models.EventVoted:
		v := e.voters[*ev.Voter]
		v.HasVoted = true
		v.VotedProposalID = *ev.ProposalID
		e.voters[*ev.Voter] = v
		e.proposals[*ev.ProposalID].VoteCount++
	case models.EventWorkflowStatusChange:
		e.status = *ev.NewStatus
		if e.status == models.VotesTallied {
			e.winningProposalID = tally(e.proposals)
			e.tallied = true
		}
	}
}

// replay checks a journaled event against current state, including who was
// allowed to perform it, before applying it.
func (e *Election) replay(ev models.Event) error {
	if want := uint64(len(e.events)) + 1; ev.Seq != want {
		return errors.Errorf("out of order event; expected seq %d, got %d", want, ev.Seq)
	}
	if !common.IsHexAddress(ev.Actor) {
		return errors.Errorf("event %d has no valid actor", ev.Seq)
	}
	actor := common.HexToAddress(ev.Actor)

	switch ev.Type {
	case models.EventVoterRegistered:
		if err := e.onlyOwner(actor); err != nil {
			return errors.Wrapf(err, "voter registered by %s", ev.Actor)
		}
		if ev.VoterAddress == nil {
			return errors.New("voter registration without address")
		}
		if e.status != models.RegisteringVoters || e.voters[*ev.VoterAddress].IsRegistered {
			return errors.Errorf("voter %s cannot be registered now", ev.VoterAddress.Hex())
		}
	case models.EventProposalRegistered:
		if err := e.onlyVoters(actor); err != nil {
			return errors.Wrapf(err, "proposal registered by %s", ev.Actor)
		}
		if ev.ProposalID == nil || *ev.ProposalID != uint64(len(e.proposals)) {
			return errors.New("proposal id does not match proposal count")
		}
		if e.status != models.ProposalsRegistrationStarted || ev.Description == "" {
			return errors.New("proposal cannot be registered now")
		}
	case models.EventVoted:
		if ev.Voter == nil || ev.ProposalID == nil {
			return errors.New("vote without voter or proposal")
		}
		if *ev.Voter != actor {
			return errors.Errorf("vote of %s cast by %s", ev.Voter.Hex(), ev.Actor)
		}
		v := e.voters[*ev.Voter]
		if e.status != models.VotingSessionStarted || !v.IsRegistered || v.HasVoted {
			return errors.Errorf("voter %s cannot vote now", ev.Voter.Hex())
		}
		if *ev.ProposalID >= uint64(len(e.proposals)) {
			return errors.Errorf("unknown proposal %d", *ev.ProposalID)
		}
	case models.EventWorkflowStatusChange:
		if err := e.onlyOwner(actor); err != nil {
			return errors.Wrapf(err, "status changed by %s", ev.Actor)
		}
		if ev.PreviousStatus == nil || ev.NewStatus == nil {
			return errors.New("status change without statuses")
		}
		if *ev.PreviousStatus != e.status || *ev.NewStatus != e.status+1 || !ev.NewStatus.Valid() {
			return errors.Errorf("invalid transition %s -> %s", ev.PreviousStatus, ev.NewStatus)
		}
		if ev.ProposalID != nil && *ev.ProposalID != tally(e.proposals) {
			return errors.Errorf("recorded winner %d does not match tally", *ev.ProposalID)
		}
	default:
		return errors.Errorf("unknown event type %q", ev.Type)
	}

	e.apply(ev)
	e.events = append(e.events, ev)

	return nil
}

func tally(proposals []models.Proposal) uint64 {
	var winner, best uint64
	for i, p := range proposals {
		if p.VoteCount > best {
			best = p.VoteCount
			winner = uint64(i)
		}
	}

	return winner
}
