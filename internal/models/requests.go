package models

// Request and response bodies of the HTTP API.

type LoginRequest struct {
	Address string `json:"address" binding:"required"`
}

type RegisterVoterRequest struct {
	Address string `json:"address" binding:"required"`
}

type AddProposalRequest struct {
	Description string `json:"description"`
}

type VoteRequest struct {
	ProposalID *uint64 `json:"proposal_id" binding:"required"`
}

type StatusResponse struct {
	Status     WorkflowStatus `json:"status"`
	StatusName string         `json:"status_name"`
}

type WinnerResponse struct {
	WinningProposalID uint64 `json:"winning_proposal_id"`
}
