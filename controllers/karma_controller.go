package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/services"
	"github.com/reelapp/reel-backend/utils"
)

// KarmaController exposes the caller's karma ledger.
type KarmaController struct {
	karma *services.KarmaService
}

// NewKarmaController creates a new controller instance.
func NewKarmaController(karma *services.KarmaService) *KarmaController {
	return &KarmaController{karma: karma}
}

type pointsRequest struct {
	Points int64 `json:"points" binding:"required,gt=0"`
}

// GetKarma returns the balance and streak, or 404 before the first credit.
func (k *KarmaController) GetKarma(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ledger, err := k.karma.GetBalance(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err, 50040, "failed to load karma points")
		return
	}
	utils.Success(ctx, k.karma.Summary(ledger))
}

// AddPoints credits an ad-hoc reward, creating the ledger on first use.
func (k *KarmaController) AddPoints(ctx *gin.Context) {
	var req pointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "points must be a positive integer")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ledger, err := k.karma.Credit(ctx.Request.Context(), userID, req.Points, models.TxManualCredit)
	if err != nil {
		respondServiceError(ctx, err, 50041, "failed to add karma points")
		return
	}
	utils.Success(ctx, k.karma.Summary(ledger))
}

// DeductPoints subtracts points without a balance check. Kept for older clients;
// unlocking goes through EpisodeController which charges atomically.
func (k *KarmaController) DeductPoints(ctx *gin.Context) {
	var req pointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "points must be a positive integer")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ledger, err := k.karma.Debit(ctx.Request.Context(), userID, req.Points)
	if err != nil {
		respondServiceError(ctx, err, 50042, "failed to deduct karma points")
		return
	}
	utils.Success(ctx, k.karma.Summary(ledger))
}

// ClaimDaily runs the once-per-day check-in.
func (k *KarmaController) ClaimDaily(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	res, err := k.karma.ClaimDaily(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err, 50043, "failed to claim daily points")
		return
	}
	utils.Success(ctx, gin.H{
		"message":                 "daily points claimed",
		"points":                  res.Points,
		"currentStreakDay":        res.StreakDay,
		"reward":                  res.Reward,
		"dailyPointsClaimedToday": true,
	})
}

// DeleteKarma removes the caller's ledger.
func (k *KarmaController) DeleteKarma(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := k.karma.Delete(ctx.Request.Context(), userID); err != nil {
		respondServiceError(ctx, err, 50044, "failed to delete karma points")
		return
	}
	utils.Success(ctx, gin.H{"message": "karma points deleted"})
}

// History lists the caller's ledger transactions, newest first.
func (k *KarmaController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	items, total, err := k.karma.History(ctx.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err, 50045, "failed to list karma history")
		return
	}
	utils.Paginated(ctx, items, page, pageSize, total)
}

// WatchAd credits the reward of an ad the client played to the end.
func (k *KarmaController) WatchAd(ctx *gin.Context) {
	adID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid advertisement id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ledger, ad, err := k.karma.CreditAdReward(ctx.Request.Context(), userID, adID)
	if err != nil {
		respondServiceError(ctx, err, 50046, "failed to credit ad reward")
		return
	}
	summary := k.karma.Summary(ledger)
	utils.Success(ctx, gin.H{
		"reward": ad.Point,
		"karma":  summary,
	})
}
