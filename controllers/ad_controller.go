package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/services"
	"github.com/reelapp/reel-backend/utils"
)

// AdController serves rewarded ads.
type AdController struct {
	content *services.ContentService
}

func NewAdController(content *services.ContentService) *AdController {
	return &AdController{content: content}
}

// ListAds returns the ads a client may play.
func (a *AdController) ListAds(ctx *gin.Context) {
	a.listAds(ctx, true)
}

// ListAllAds includes retired ads (admin).
func (a *AdController) ListAllAds(ctx *gin.Context) {
	a.listAds(ctx, false)
}

func (a *AdController) listAds(ctx *gin.Context, activeOnly bool) {
	ads, err := a.content.ListAds(ctx.Request.Context(), activeOnly)
	if err != nil {
		respondServiceError(ctx, err, 50050, "failed to list advertisements")
		return
	}
	utils.Success(ctx, gin.H{"items": ads})
}

// NextAd picks a random active ad to play.
func (a *AdController) NextAd(ctx *gin.Context) {
	ad, err := a.content.NextAd(ctx.Request.Context())
	if err != nil {
		respondServiceError(ctx, err, 50051, "failed to pick advertisement")
		return
	}
	utils.Success(ctx, ad)
}

// CreateAd registers a rewarded ad (admin).
func (a *AdController) CreateAd(ctx *gin.Context) {
	var req struct {
		Title    string `json:"title" binding:"required"`
		VideoURL string `json:"video_url" binding:"required,url"`
		Point    int64  `json:"point" binding:"required,gt=0"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40026, "invalid request payload")
		return
	}
	title := utils.SanitizePlain(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "title cannot be empty")
		return
	}

	ad := models.Advertisement{
		Title:    title,
		VideoURL: strings.TrimSpace(req.VideoURL),
		Point:    req.Point,
		Active:   true,
	}
	if err := a.content.CreateAd(ctx.Request.Context(), &ad); err != nil {
		respondServiceError(ctx, err, 50052, "failed to create advertisement")
		return
	}
	utils.Success(ctx, ad)
}

// DeleteAd retires an ad (admin). Rewards already granted keep their reference.
func (a *AdController) DeleteAd(ctx *gin.Context) {
	adID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid advertisement id")
		return
	}
	if err := a.content.DeactivateAd(ctx.Request.Context(), adID); err != nil {
		respondServiceError(ctx, err, 50053, "failed to delete advertisement")
		return
	}
	utils.Success(ctx, gin.H{"message": "advertisement deleted"})
}
