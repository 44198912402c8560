/*
Package election implements the single-election ballot state machine.

# Workflow

An election moves through six phases, one step at a time and never backwards:

	RegisteringVoters → ProposalsRegistrationStarted → ProposalsRegistrationEnded
	→ VotingSessionStarted → VotingSessionEnded → VotesTallied

The administrator, fixed by New or Open, registers voters and drives every
transition. Registered voters add proposals and cast one vote each.

# Guards

Each operation checks, in order, the caller (administrator or registered
voter), the current phase, then its arguments. Nothing is mutated unless all
checks pass. Rejections are *Error values whose Reason is stable text:

	err := el.SetVote(caller, 3)
	if errors.Is(err, election.ErrAlreadyVoted) { ... }

# Events and journals

Every successful state change produces one models.Event. The event is handed
to the Journal first and applied only when the journal accepts it, so a
storage failure leaves the election unchanged. Open replays an existing
journal, re-checking every event against the state it rebuilds.
*/
package election
