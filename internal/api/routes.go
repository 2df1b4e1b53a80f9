package api

import (
	"github.com/go-chi/chi"

	"github.com/stakevault/nft-staking-service/internal/api/middlewares"
)

func (a *Server) SetupRoutes(r *chi.Mux) {
	handlers := a.handlers
	r.Get("/healthcheck", registerHandler(handlers.HealthCheck))

	r.Post("/v1/stake", registerHandler(handlers.StakeTokens))
	r.Post("/v1/unstake", registerHandler(handlers.UnstakeTokens))
	r.Post("/v1/claim-rewards", registerHandler(handlers.ClaimRewards))

	r.Get("/v1/staker/pending-reward", registerHandler(handlers.GetPendingReward))
	r.Get("/v1/staker/tokens", registerHandler(handlers.GetStakerTokens))
	r.Get("/v1/token/{tokenId}", registerHandler(handlers.GetTokenStakeInfo))
	r.Get("/v1/stats", registerHandler(handlers.GetStats))
	r.Get("/v1/events", registerHandler(handlers.GetEvents))
	r.Get("/v1/events/subscribe", handlers.SubscribeEvents)

	r.Route("/v1/admin", func(admin chi.Router) {
		admin.Use(middlewares.AdminAuthMiddleware(a.cfg))
		admin.Post("/reward-rate", registerHandler(handlers.SetRewardRate))
		admin.Post("/pause", registerHandler(handlers.PauseStaking))
		admin.Post("/unpause", registerHandler(handlers.UnpauseStaking))
		admin.Post("/withdraw-funds", registerHandler(handlers.WithdrawFunds))
	})
}
