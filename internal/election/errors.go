package election

// Kind classifies why an operation was rejected.
type Kind uint8

const (
	KindUnauthorized Kind = iota + 1
	KindWrongPhase
	KindInvalid
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindWrongPhase:
		return "wrong phase"
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Error is a rejection of a single operation. Reason is part of the public
// contract and callers match on it literally.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

func newError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

var (
	ErrNotOwner = newError(KindUnauthorized, "Ownable: caller is not the owner")
	ErrNotVoter = newError(KindUnauthorized, "You're not a voter")

	ErrRegistrationClosed = newError(KindWrongPhase, "Voters registration is not open yet")
	ErrAlreadyRegistered  = newError(KindInvalid, "Already registered")

	ErrProposalsNotAllowed = newError(KindWrongPhase, "Proposals are not allowed yet")
	ErrEmptyProposal       = newError(KindInvalid, "Vous ne pouvez pas ne rien proposer")

	ErrVotingNotStarted = newError(KindWrongPhase, "Voting session havent started yet")
	ErrAlreadyVoted     = newError(KindInvalid, "You have already voted")
	ErrProposalNotFound = newError(KindNotFound, "Proposal not found")

	ErrCannotStartProposals      = newError(KindWrongPhase, "Registering proposals cant be started now")
	ErrProposalsNotStarted       = newError(KindWrongPhase, "Registering proposals havent started yet")
	ErrProposalsPhaseNotFinished = newError(KindWrongPhase, "Registering proposals phase is not finished")
	ErrVotingNotEnded            = newError(KindWrongPhase, "Current status is not voting session ended")
)
