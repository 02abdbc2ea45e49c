package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/reelapp/reel-backend/services"
	"github.com/reelapp/reel-backend/utils"
)

// StatsController provides ledger statistics for the admin dashboard.
type StatsController struct {
	content *services.ContentService
	karma   *services.KarmaService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(content *services.ContentService, karma *services.KarmaService) *StatsController {
	return &StatsController{content: content, karma: karma}
}

// GetStats returns user, ledger, unlock and daily claim counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st := s.content.Stats(ctx.Request.Context(), s.karma.Today())
	utils.Success(ctx, st)
}
