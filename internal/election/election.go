package election

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/saxenaaman628/redis-election/internal/logging"
	"github.com/saxenaaman628/redis-election/internal/models"
)

// Election is the single ballot state machine. The administrator is fixed at
// construction. State-changing operations are serialized by wmu: guards first,
// then the event is journaled, then applied. mu is held for writing only while
// an event is applied, so reads never wait on journal I/O.
type Election struct {
	*logging.Logging
	wmu sync.Mutex
	mu  sync.RWMutex

	id      string
	admin   common.Address
	journal Journal
	now     func() time.Time

	status            models.WorkflowStatus
	voters            map[common.Address]models.Voter
	proposals         []models.Proposal
	winningProposalID uint64
	tallied           bool
	events            []models.Event
}

// New returns an election kept entirely in memory.
func New(admin common.Address) *Election {
	return newElection(uuid.New().String(), admin, NewMemoryJournal())
}

// Open binds the journal to (id, admin) and replays whatever it already holds.
func Open(id string, admin common.Address, journal Journal) (*Election, error) {
	if journal == nil {
		journal = NewMemoryJournal()
	}
	if err := journal.Bind(id, admin); err != nil {
		return nil, err
	}

	e := newElection(id, admin, journal)

	evs, err := journal.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load journal")
	}
	for i := range evs {
		if err := e.replay(evs[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to replay event %d", evs[i].Seq)
		}
	}

	return e, nil
}

func newElection(id string, admin common.Address, journal Journal) *Election {
	return &Election{
		Logging: logging.NewLogging(func(c zerolog.Context) zerolog.Context {
			return c.Str("module", "election").Str("election", id)
		}),
		id:      id,
		admin:   admin,
		journal: journal,
		now:     time.Now,
		voters:  map[common.Address]models.Voter{},
	}
}

func (e *Election) ID() string {
	return e.id
}

func (e *Election) Admin() common.Address {
	return e.admin
}

func (e *Election) RegisterVoter(caller, voter common.Address) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	if e.status != models.RegisteringVoters {
		return ErrRegistrationClosed
	}
	if e.voters[voter].IsRegistered {
		return ErrAlreadyRegistered
	}

	return e.commit(caller, models.Event{
		Type:         models.EventVoterRegistered,
		VoterAddress: &voter,
	})
}

// AddProposal appends a proposal and returns its id.
func (e *Election) AddProposal(caller common.Address, description string) (uint64, error) {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	if err := e.onlyVoters(caller); err != nil {
		return 0, err
	}
	if e.status != models.ProposalsRegistrationStarted {
		return 0, ErrProposalsNotAllowed
	}
	if description == "" {
		return 0, ErrEmptyProposal
	}

	id := uint64(len(e.proposals))
	if err := e.commit(caller, models.Event{
		Type:        models.EventProposalRegistered,
		ProposalID:  &id,
		Description: description,
	}); err != nil {
		return 0, err
	}

	return id, nil
}

func (e *Election) SetVote(caller common.Address, proposalID uint64) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	if err := e.onlyVoters(caller); err != nil {
		return err
	}
	if e.status != models.VotingSessionStarted {
		return ErrVotingNotStarted
	}
	if e.voters[caller].HasVoted {
		return ErrAlreadyVoted
	}
	if proposalID >= uint64(len(e.proposals)) {
		return ErrProposalNotFound
	}

	return e.commit(caller, models.Event{
		Type:       models.EventVoted,
		Voter:      &caller,
		ProposalID: &proposalID,
	})
}

func (e *Election) StartProposalsRegistering(caller common.Address) error {
	return e.advance(caller, models.RegisteringVoters, ErrCannotStartProposals)
}

func (e *Election) EndProposalsRegistering(caller common.Address) error {
	return e.advance(caller, models.ProposalsRegistrationStarted, ErrProposalsNotStarted)
}

func (e *Election) StartVotingSession(caller common.Address) error {
	return e.advance(caller, models.ProposalsRegistrationEnded, ErrProposalsPhaseNotFinished)
}

func (e *Election) EndVotingSession(caller common.Address) error {
	return e.advance(caller, models.VotingSessionStarted, ErrVotingNotStarted)
}

// TallyVotes picks the proposal with the strictly greatest count; the lowest
// index wins ties.
func (e *Election) TallyVotes(caller common.Address) error {
	return e.advance(caller, models.VotingSessionEnded, ErrVotingNotEnded)
}

func (e *Election) advance(caller common.Address, from models.WorkflowStatus, wrongPhase *Error) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	if e.status != from {
		return wrongPhase
	}

	to := from + 1
	ev := models.Event{
		Type:           models.EventWorkflowStatusChange,
		PreviousStatus: &from,
		NewStatus:      &to,
	}
	if to == models.VotesTallied {
		winner := tally(e.proposals)
		ev.ProposalID = &winner
	}

	return e.commit(caller, ev)
}

// GetVoter returns the record for voter; unknown addresses yield the zero Voter.
func (e *Election) GetVoter(caller, voter common.Address) (models.Voter, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.onlyVoters(caller); err != nil {
		return models.Voter{}, err
	}

	return e.voters[voter], nil
}

func (e *Election) GetOneProposal(caller common.Address, id uint64) (models.Proposal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.onlyVoters(caller); err != nil {
		return models.Proposal{}, err
	}
	if id >= uint64(len(e.proposals)) {
		return models.Proposal{}, ErrProposalNotFound
	}

	return e.proposals[id], nil
}

func (e *Election) WorkflowStatus() models.WorkflowStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.status
}

// WinningProposalID returns false until the votes are tallied.
func (e *Election) WinningProposalID() (uint64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.winningProposalID, e.tallied
}

// Events returns a copy of the event log in commit order.
func (e *Election) Events() []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()

	evs := make([]models.Event, len(e.events))
	copy(evs, e.events)

	return evs
}

func (e *Election) onlyOwner(caller common.Address) error {
	if caller != e.admin {
		return ErrNotOwner
	}
	return nil
}

func (e *Election) onlyVoters(caller common.Address) error {
	if !e.voters[caller].IsRegistered {
		return ErrNotVoter
	}
	return nil
}

// commit stamps ev, journals it and applies it. Must hold wmu.
func (e *Election) commit(caller common.Address, ev models.Event) error {
	ev.ID = uuid.New().String()
	ev.Seq = uint64(len(e.events)) + 1
	ev.Actor = caller.Hex()
	ev.Timestamp = e.now().UTC()

	if err := e.journal.Append(ev); err != nil {
		e.Log().Error().Err(err).Str("type", string(ev.Type)).Uint64("seq", ev.Seq).Msg("failed to journal event")
		return errors.Wrap(err, "failed to journal event")
	}

	e.mu.Lock()
	e.apply(ev)
	e.events = append(e.events, ev)
	e.mu.Unlock()

	var l *zerolog.Event
	if ev.Type == models.EventWorkflowStatusChange {
		l = e.Log().Info().Stringer("from", ev.PreviousStatus).Stringer("to", ev.NewStatus)
	} else {
		l = e.Log().Debug()
	}
	l.Str("type", string(ev.Type)).Uint64("seq", ev.Seq).Str("actor", ev.Actor).Msg("event committed")

	return nil
}
