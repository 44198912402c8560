package models

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WorkflowStatus is the election phase. Values are ordered and only move forward.
type WorkflowStatus uint8

const (
	RegisteringVoters WorkflowStatus = iota
	ProposalsRegistrationStarted
	ProposalsRegistrationEnded
	VotingSessionStarted
	VotingSessionEnded
	VotesTallied
)

var workflowStatusNames = [...]string{
	"RegisteringVoters",
	"ProposalsRegistrationStarted",
	"ProposalsRegistrationEnded",
	"VotingSessionStarted",
	"VotingSessionEnded",
	"VotesTallied",
}

func (s WorkflowStatus) String() string {
	if int(s) < len(workflowStatusNames) {
		return workflowStatusNames[s]
	}
	return fmt.Sprintf("WorkflowStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the six known phases.
func (s WorkflowStatus) Valid() bool {
	return s <= VotesTallied
}

// Voter is the per-address registration and ballot record.
// VotedProposalID is only meaningful when HasVoted is true.
type Voter struct {
	IsRegistered    bool   `json:"isRegistered" mapstructure:"is_registered"`
	HasVoted        bool   `json:"hasVoted" mapstructure:"has_voted"`
	VotedProposalID uint64 `json:"votedProposalId" mapstructure:"voted_proposal_id"`
}

type Proposal struct {
	Description string `json:"description" mapstructure:"description"`
	VoteCount   uint64 `json:"voteCount" mapstructure:"vote_count"`
}

// ElectionMeta is the persisted header of an election.
type ElectionMeta struct {
	ID                string `json:"id" mapstructure:"id"`
	Admin             string `json:"admin" mapstructure:"admin"`
	WorkflowStatus    uint8  `json:"workflowStatus" mapstructure:"workflow_status"`
	WinningProposalID uint64 `json:"winningProposalId" mapstructure:"winning_proposal_id"`
	Tallied           bool   `json:"tallied" mapstructure:"tallied"`
	CreatedAt         string `json:"createdAt,omitempty" mapstructure:"created_at"`
}

// EventType names the kind of state change an Event records.
type EventType string

const (
	EventVoterRegistered      EventType = "VoterRegistered"
	EventWorkflowStatusChange EventType = "WorkflowStatusChange"
	EventProposalRegistered   EventType = "ProposalRegistered"
	EventVoted                EventType = "Voted"
)

// Event is an immutable record of one successful state change.
// Only the fields relevant to Type are set. The transition into VotesTallied
// also carries the winning proposal in ProposalID.
type Event struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`

	VoterAddress   *common.Address `json:"voterAddress,omitempty"`
	Voter          *common.Address `json:"voter,omitempty"`
	ProposalID     *uint64         `json:"proposalId,omitempty"`
	Description    string          `json:"description,omitempty"`
	PreviousStatus *WorkflowStatus `json:"previousStatus,omitempty"`
	NewStatus      *WorkflowStatus `json:"newStatus,omitempty"`
}
