package election

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/saxenaaman628/redis-election/internal/logging"
	"github.com/saxenaaman628/redis-election/internal/models"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	second = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	third  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	outer  = common.HexToAddress("0x00000000000000000000000000000000000000d4")
)

type testElection struct {
	suite.Suite

	el *Election
}

func (t *testElection) SetupTest() {
	t.el = New(owner)
}

func (t *testElection) toProposals(descs ...string) {
	t.NoError(t.el.StartProposalsRegistering(owner))
	for _, d := range descs {
		_, err := t.el.AddProposal(owner, d)
		t.NoError(err)
	}
}

func (t *testElection) toVoting(descs ...string) {
	t.toProposals(descs...)
	t.NoError(t.el.EndProposalsRegistering(owner))
	t.NoError(t.el.StartVotingSession(owner))
}

func (t *testElection) TestInitialState() {
	t.Equal(models.RegisteringVoters, t.el.WorkflowStatus())
	t.Equal(owner, t.el.Admin())
	t.NotEmpty(t.el.ID())

	_, ok := t.el.WinningProposalID()
	t.False(ok)
	t.Empty(t.el.Events())
}

func (t *testElection) TestRegisterVoter() {
	t.NoError(t.el.RegisterVoter(owner, owner))

	v, err := t.el.GetVoter(owner, owner)
	t.NoError(err)
	t.True(v.IsRegistered)
	t.False(v.HasVoted)
	t.Equal(uint64(0), v.VotedProposalID)
}

func (t *testElection) TestRegisterVoterTwice() {
	t.NoError(t.el.RegisterVoter(owner, owner))

	err := t.el.RegisterVoter(owner, owner)
	t.True(errors.Is(err, ErrAlreadyRegistered))
	t.EqualError(err, "Already registered")

	v, err := t.el.GetVoter(owner, owner)
	t.NoError(err)
	t.True(v.IsRegistered)
	t.Len(t.el.Events(), 1)
}

func (t *testElection) TestRegisterVoterAfterRegistration() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.NoError(t.el.StartProposalsRegistering(owner))

	err := t.el.RegisterVoter(owner, second)
	t.EqualError(err, "Voters registration is not open yet")

	_, err = t.el.GetVoter(second, second)
	t.True(errors.Is(err, ErrNotVoter))
}

func (t *testElection) TestRegisterVoterNotOwner() {
	err := t.el.RegisterVoter(second, second)
	t.EqualError(err, "Ownable: caller is not the owner")

	var e *Error
	t.True(errors.As(err, &e))
	t.Equal(KindUnauthorized, e.Kind)
}

func (t *testElection) TestAddProposal() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toProposals()

	id, err := t.el.AddProposal(owner, "Jojo est le meilleur manga")
	t.NoError(err)
	t.Equal(uint64(0), id)

	p, err := t.el.GetOneProposal(owner, 0)
	t.NoError(err)
	t.Equal("Jojo est le meilleur manga", p.Description)
	t.Equal(uint64(0), p.VoteCount)
}

func (t *testElection) TestAddProposalIndicesFollowCallOrder() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.NoError(t.el.RegisterVoter(owner, second))
	t.toProposals()

	for i, c := range []common.Address{owner, second, owner} {
		id, err := t.el.AddProposal(c, "p")
		t.NoError(err)
		t.Equal(uint64(i), id)
	}
}

func (t *testElection) TestAddEmptyProposal() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toProposals("first")

	_, err := t.el.AddProposal(owner, "")
	t.EqualError(err, "Vous ne pouvez pas ne rien proposer")

	_, err = t.el.GetOneProposal(owner, 1)
	t.True(errors.Is(err, ErrProposalNotFound))
}

func (t *testElection) TestAddProposalBeforeRegistrationStarts() {
	t.NoError(t.el.RegisterVoter(owner, owner))

	_, err := t.el.AddProposal(owner, "Jojo est le meilleur manga")
	t.EqualError(err, "Proposals are not allowed yet")
}

func (t *testElection) TestAddProposalNotVoter() {
	t.toProposals()

	_, err := t.el.AddProposal(outer, "sneaky")
	t.EqualError(err, "You're not a voter")
}

func (t *testElection) TestReadsAreVoterGated() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toProposals("a")

	_, err := t.el.GetVoter(outer, owner)
	t.True(errors.Is(err, ErrNotVoter))
	_, err = t.el.GetOneProposal(outer, 0)
	t.True(errors.Is(err, ErrNotVoter))

	v, err := t.el.GetVoter(owner, outer)
	t.NoError(err)
	t.Equal(models.Voter{}, v)
}

func (t *testElection) TestVote() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a", "b")

	t.NoError(t.el.SetVote(owner, 1))

	v, err := t.el.GetVoter(owner, owner)
	t.NoError(err)
	t.True(v.HasVoted)
	t.Equal(uint64(1), v.VotedProposalID)

	p, err := t.el.GetOneProposal(owner, 1)
	t.NoError(err)
	t.Equal(uint64(1), p.VoteCount)

	p, err = t.el.GetOneProposal(owner, 0)
	t.NoError(err)
	t.Equal(uint64(0), p.VoteCount)
}

func (t *testElection) TestVoteForProposalZero() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a")

	before, err := t.el.GetVoter(owner, owner)
	t.NoError(err)
	t.Equal(uint64(0), before.VotedProposalID)
	t.False(before.HasVoted)

	t.NoError(t.el.SetVote(owner, 0))

	after, err := t.el.GetVoter(owner, owner)
	t.NoError(err)
	t.Equal(uint64(0), after.VotedProposalID)
	t.True(after.HasVoted)
}

func (t *testElection) TestVoteBeforeSession() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toProposals("a")
	t.NoError(t.el.EndProposalsRegistering(owner))

	err := t.el.SetVote(owner, 0)
	t.EqualError(err, "Voting session havent started yet")

	v, _ := t.el.GetVoter(owner, owner)
	t.False(v.HasVoted)
	p, _ := t.el.GetOneProposal(owner, 0)
	t.Equal(uint64(0), p.VoteCount)
}

func (t *testElection) TestVoteTwice() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a", "b")

	t.NoError(t.el.SetVote(owner, 0))
	err := t.el.SetVote(owner, 1)
	t.EqualError(err, "You have already voted")

	v, _ := t.el.GetVoter(owner, owner)
	t.Equal(uint64(0), v.VotedProposalID)
	p, _ := t.el.GetOneProposal(owner, 1)
	t.Equal(uint64(0), p.VoteCount)
}

func (t *testElection) TestVoteUnknownProposal() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a")

	err := t.el.SetVote(owner, 1)
	t.EqualError(err, "Proposal not found")

	v, _ := t.el.GetVoter(owner, owner)
	t.False(v.HasVoted)
}

func (t *testElection) TestVoteNotVoter() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a")

	t.True(errors.Is(t.el.SetVote(outer, 0), ErrNotVoter))
}

func (t *testElection) TestTallyScenario() {
	for _, a := range []common.Address{owner, second, third} {
		t.NoError(t.el.RegisterVoter(owner, a))
	}
	t.toVoting("Jojo est le meilleur manga", "Tokyo Ghoul est le meilleur manga")

	t.NoError(t.el.SetVote(owner, 0))
	t.NoError(t.el.SetVote(second, 1))
	t.NoError(t.el.SetVote(third, 0))
	t.NoError(t.el.EndVotingSession(owner))
	t.NoError(t.el.TallyVotes(owner))

	id, ok := t.el.WinningProposalID()
	t.True(ok)
	t.Equal(uint64(0), id)
	t.Equal(models.VotesTallied, t.el.WorkflowStatus())
}

func (t *testElection) TestTallyTieGoesToLowestIndex() {
	for _, a := range []common.Address{owner, second, third, outer} {
		t.NoError(t.el.RegisterVoter(owner, a))
	}
	t.toVoting("a", "b", "c")

	t.NoError(t.el.SetVote(owner, 2))
	t.NoError(t.el.SetVote(second, 1))
	t.NoError(t.el.SetVote(third, 1))
	t.NoError(t.el.SetVote(outer, 2))
	t.NoError(t.el.EndVotingSession(owner))
	t.NoError(t.el.TallyVotes(owner))

	id, ok := t.el.WinningProposalID()
	t.True(ok)
	t.Equal(uint64(1), id)
}

func (t *testElection) TestTallyWithoutVotes() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a", "b")
	t.NoError(t.el.EndVotingSession(owner))
	t.NoError(t.el.TallyVotes(owner))

	id, ok := t.el.WinningProposalID()
	t.True(ok)
	t.Equal(uint64(0), id)
}

func (t *testElection) TestTallyBeforeSessionEnds() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a")

	err := t.el.TallyVotes(owner)
	t.EqualError(err, "Current status is not voting session ended")

	_, ok := t.el.WinningProposalID()
	t.False(ok)
	t.Equal(models.VotingSessionStarted, t.el.WorkflowStatus())
}

func (t *testElection) TestWorkflowTransitions() {
	steps := []func(common.Address) error{
		t.el.StartProposalsRegistering,
		t.el.EndProposalsRegistering,
		t.el.StartVotingSession,
		t.el.EndVotingSession,
		t.el.TallyVotes,
	}

	for i, step := range steps {
		t.Equal(models.WorkflowStatus(i), t.el.WorkflowStatus())
		t.True(errors.Is(step(second), ErrNotOwner))
		t.NoError(step(owner))
		t.Equal(models.WorkflowStatus(i+1), t.el.WorkflowStatus())
	}
}

func (t *testElection) TestWorkflowWrongPhase() {
	t.EqualError(t.el.EndProposalsRegistering(owner), "Registering proposals havent started yet")
	t.EqualError(t.el.StartVotingSession(owner), "Registering proposals phase is not finished")
	t.EqualError(t.el.EndVotingSession(owner), "Voting session havent started yet")
	t.EqualError(t.el.TallyVotes(owner), "Current status is not voting session ended")

	t.NoError(t.el.StartProposalsRegistering(owner))
	t.NoError(t.el.EndProposalsRegistering(owner))
	t.EqualError(t.el.StartProposalsRegistering(owner), "Registering proposals cant be started now")
	t.Equal(models.ProposalsRegistrationEnded, t.el.WorkflowStatus())

	var e *Error
	t.True(errors.As(t.el.TallyVotes(owner), &e))
	t.Equal(KindWrongPhase, e.Kind)
}

func (t *testElection) TestEvents() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.NoError(t.el.StartProposalsRegistering(owner))
	_, err := t.el.AddProposal(owner, "Jojo est le meilleur manga")
	t.NoError(err)
	t.NoError(t.el.EndProposalsRegistering(owner))
	t.NoError(t.el.StartVotingSession(owner))
	t.NoError(t.el.SetVote(owner, 0))
	t.NoError(t.el.EndVotingSession(owner))
	t.NoError(t.el.TallyVotes(owner))

	evs := t.el.Events()
	t.Len(evs, 8)

	for i, ev := range evs {
		t.Equal(uint64(i+1), ev.Seq)
		t.NotEmpty(ev.ID)
		t.Equal(owner.Hex(), ev.Actor)
		t.False(ev.Timestamp.IsZero())
	}

	t.Equal(models.EventVoterRegistered, evs[0].Type)
	t.Equal(owner, *evs[0].VoterAddress)

	transitions := map[int]models.WorkflowStatus{1: 0, 3: 1, 4: 2, 6: 3, 7: 4}
	for idx, prev := range transitions {
		t.Equal(models.EventWorkflowStatusChange, evs[idx].Type)
		t.Equal(prev, *evs[idx].PreviousStatus)
		t.Equal(prev+1, *evs[idx].NewStatus)
	}

	t.Equal(models.EventProposalRegistered, evs[2].Type)
	t.Equal(uint64(0), *evs[2].ProposalID)

	t.Nil(evs[1].ProposalID)
	t.Equal(uint64(0), *evs[7].ProposalID)

	t.Equal(models.EventVoted, evs[5].Type)
	t.Equal(owner, *evs[5].Voter)
	t.Equal(uint64(0), *evs[5].ProposalID)
}

func (t *testElection) TestCommitLogLevels() {
	var buf bytes.Buffer
	t.el.SetLogging(logging.Setup(&buf, zerolog.DebugLevel, "json"))

	t.NoError(t.el.RegisterVoter(owner, owner))
	t.NoError(t.el.StartProposalsRegistering(owner))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	t.Require().Len(lines, 2)

	var registered, changed map[string]interface{}
	t.NoError(json.Unmarshal([]byte(lines[0]), &registered))
	t.NoError(json.Unmarshal([]byte(lines[1]), &changed))

	t.Equal("debug", registered["level"])
	t.Equal(string(models.EventVoterRegistered), registered["type"])
	t.NotContains(registered, "from")

	t.Equal("info", changed["level"])
	t.Equal(string(models.EventWorkflowStatusChange), changed["type"])
	t.Equal("RegisteringVoters", changed["from"])
	t.Equal("ProposalsRegistrationStarted", changed["to"])
}

func (t *testElection) TestFailedOperationsEmitNothing() {
	t.NoError(t.el.RegisterVoter(owner, owner))
	_ = t.el.RegisterVoter(owner, owner)
	_ = t.el.RegisterVoter(second, third)
	_, _ = t.el.AddProposal(owner, "too early")
	_ = t.el.TallyVotes(owner)

	t.Len(t.el.Events(), 1)
}

func (t *testElection) TestConcurrentVotes() {
	voters := make([]common.Address, 64)
	for i := range voters {
		voters[i] = common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		t.NoError(t.el.RegisterVoter(owner, voters[i]))
	}
	t.NoError(t.el.RegisterVoter(owner, owner))
	t.toVoting("a", "b")

	var wg sync.WaitGroup
	for i, v := range voters {
		wg.Add(2)
		go func(v common.Address, id uint64) {
			defer wg.Done()
			_ = t.el.SetVote(v, id)
		}(v, uint64(i%2))
		go func(v common.Address) {
			defer wg.Done()
			_ = t.el.SetVote(v, 1)
		}(v)
	}
	wg.Wait()

	a, err := t.el.GetOneProposal(owner, 0)
	t.NoError(err)
	b, err := t.el.GetOneProposal(owner, 1)
	t.NoError(err)
	t.Equal(uint64(len(voters)), a.VoteCount+b.VoteCount)
}

func TestElection(t *testing.T) {
	suite.Run(t, new(testElection))
}
