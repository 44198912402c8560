package controller

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/saxenaaman628/redis-election/internal/election"
	"github.com/saxenaaman628/redis-election/internal/logging"
	"github.com/saxenaaman628/redis-election/internal/middleware"
	"github.com/saxenaaman628/redis-election/internal/models"
)

// ElectionController exposes one Election over HTTP. Caller identity comes
// from middleware.JWTAuthMiddleware.
type ElectionController struct {
	*logging.Logging
	el *election.Election
}

func NewElectionController(el *election.Election) *ElectionController {
	return &ElectionController{
		Logging: logging.NewLogging(func(c zerolog.Context) zerolog.Context {
			return c.Str("module", "controller")
		}),
		el: el,
	}
}

var statusByKind = map[election.Kind]int{
	election.KindUnauthorized: http.StatusForbidden,
	election.KindWrongPhase:   http.StatusConflict,
	election.KindInvalid:      http.StatusBadRequest,
	election.KindNotFound:     http.StatusNotFound,
}

func (ec *ElectionController) fail(c *gin.Context, err error) {
	var e *election.Error
	if errors.As(err, &e) {
		c.JSON(statusByKind[e.Kind], gin.H{"error": e.Reason})
		return
	}

	ec.Log().Error().Err(err).Str("path", c.FullPath()).Msg("election operation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}

func (ec *ElectionController) RegisterVoter(c *gin.Context) {
	var req models.RegisterVoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return
	}

	voter := common.HexToAddress(req.Address)
	if err := ec.el.RegisterVoter(middleware.Caller(c), voter); err != nil {
		ec.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Voter registered", "voterAddress": voter.Hex()})
}

func (ec *ElectionController) GetVoter(c *gin.Context) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return
	}

	v, err := ec.el.GetVoter(middleware.Caller(c), common.HexToAddress(addr))
	if err != nil {
		ec.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": v})
}

func (ec *ElectionController) AddProposal(c *gin.Context) {
	var req models.AddProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := ec.el.AddProposal(middleware.Caller(c), req.Description)
	if err != nil {
		ec.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Proposal registered", "proposalId": id})
}

func (ec *ElectionController) GetProposal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal id"})
		return
	}

	p, err := ec.el.GetOneProposal(middleware.Caller(c), id)
	if err != nil {
		ec.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

// Transition returns a handler for one of the administrator's phase changes.
func (ec *ElectionController) Transition(step func(*election.Election, common.Address) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := step(ec.el, middleware.Caller(c)); err != nil {
			ec.fail(c, err)
			return
		}

		s := ec.el.WorkflowStatus()
		c.JSON(http.StatusOK, models.StatusResponse{Status: s, StatusName: s.String()})
	}
}

func (ec *ElectionController) Status(c *gin.Context) {
	s := ec.el.WorkflowStatus()
	c.JSON(http.StatusOK, models.StatusResponse{Status: s, StatusName: s.String()})
}

func (ec *ElectionController) Winner(c *gin.Context) {
	id, ok := ec.el.WinningProposalID()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Votes are not tallied yet"})
		return
	}

	c.JSON(http.StatusOK, models.WinnerResponse{WinningProposalID: id})
}

func (ec *ElectionController) Events(c *gin.Context) {
	evs := ec.el.Events()

	if t := c.Query("type"); t != "" {
		filtered := make([]models.Event, 0, len(evs))
		for _, ev := range evs {
			if string(ev.Type) == t {
				filtered = append(filtered, ev)
			}
		}
		evs = filtered
	}

	c.JSON(http.StatusOK, gin.H{"events": evs})
}
