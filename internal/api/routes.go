package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/saxenaaman628/redis-election/internal/controller"
	"github.com/saxenaaman628/redis-election/internal/election"
	"github.com/saxenaaman628/redis-election/internal/logging"
	"github.com/saxenaaman628/redis-election/internal/middleware"
)

// NewRouter builds the engine with request logs written through lg.
func NewRouter(lg *logging.Logging) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.LoggerWithWriter(logging.NewWriter(func() *zerolog.Event {
			return lg.Log().Info().Str("module", "http")
		})),
		gin.Recovery(),
	)
	return r
}

func RegisterRoutes(r *gin.Engine, ec *controller.ElectionController, auth *AuthHandler) {
	r.POST("/login", auth.LoginHandler)

	r.GET("/status", ec.Status)
	r.GET("/winner", ec.Winner)
	r.GET("/events", ec.Events)

	api := r.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(auth.secret))
	{
		api.POST("/voters", ec.RegisterVoter)
		api.GET("/voters/:address", ec.GetVoter)

		api.POST("/proposals", ec.AddProposal)
		api.GET("/proposals/:id", ec.GetProposal)

		api.POST("/votes", ec.Vote)

		api.POST("/workflow/proposals/start", ec.Transition((*election.Election).StartProposalsRegistering))
		api.POST("/workflow/proposals/end", ec.Transition((*election.Election).EndProposalsRegistering))
		api.POST("/workflow/voting/start", ec.Transition((*election.Election).StartVotingSession))
		api.POST("/workflow/voting/end", ec.Transition((*election.Election).EndVotingSession))
		api.POST("/tally", ec.Transition((*election.Election).TallyVotes))
	}
}
