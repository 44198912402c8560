package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/redis-election/internal/middleware"
	"github.com/saxenaaman628/redis-election/internal/models"
)

func (ec *ElectionController) Vote(c *gin.Context) {
	var payload models.VoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vote payload"})
		return
	}

	caller := middleware.Caller(c)
	if err := ec.el.SetVote(caller, *payload.ProposalID); err != nil {
		ec.fail(c, err)
		return
	}

	ec.Log().Info().Str("voter", caller.Hex()).Uint64("proposal", *payload.ProposalID).Msg("vote recorded")

	c.JSON(http.StatusOK, gin.H{"message": "Vote recorded successfully", "voter": caller.Hex(), "proposalId": *payload.ProposalID})
}
