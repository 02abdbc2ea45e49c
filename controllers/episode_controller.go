package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/services"
	"github.com/reelapp/reel-backend/utils"
)

// EpisodeController serves the episode catalogue and the unlock gate.
type EpisodeController struct {
	content *services.ContentService
	unlocks *services.UnlockService
}

// NewEpisodeController creates a new EpisodeController instance.
func NewEpisodeController(content *services.ContentService, unlocks *services.UnlockService) *EpisodeController {
	return &EpisodeController{content: content, unlocks: unlocks}
}

type episodeView struct {
	models.Episode
	Locked     bool  `json:"locked"`
	UnlockCost int64 `json:"unlock_cost"`
}

// ListEpisodes returns paginated episodes with the caller's lock state.
func (e *EpisodeController) ListEpisodes(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	series := strings.TrimSpace(ctx.Query("series"))

	items, total, err := e.content.ListEpisodes(ctx.Request.Context(), series, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err, 50020, "failed to list episodes")
		return
	}
	flags, err := e.unlocks.LockedFlags(ctx.Request.Context(), userID, items)
	if err != nil {
		respondServiceError(ctx, err, 50021, "failed to load unlocks")
		return
	}

	views := make([]episodeView, 0, len(items))
	for _, ep := range items {
		views = append(views, episodeView{Episode: ep, Locked: flags[ep.ID], UnlockCost: e.unlocks.Cost()})
	}
	utils.Paginated(ctx, views, page, pageSize, total)
}

// GetEpisode returns one episode with the caller's lock state.
func (e *EpisodeController) GetEpisode(ctx *gin.Context) {
	episodeID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid episode id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ep, err := e.content.GetEpisode(ctx.Request.Context(), episodeID)
	if err != nil {
		respondServiceError(ctx, err, 50022, "failed to load episode")
		return
	}
	playable, err := e.unlocks.IsPlayable(ctx.Request.Context(), userID, ep)
	if err != nil {
		respondServiceError(ctx, err, 50023, "failed to check unlock")
		return
	}
	utils.Success(ctx, episodeView{Episode: *ep, Locked: !playable, UnlockCost: e.unlocks.Cost()})
}

// UnlockEpisode charges the unlock cost and records the unlock in one step.
func (e *EpisodeController) UnlockEpisode(ctx *gin.Context) {
	e.unlock(ctx, e.unlocks.UnlockEpisode)
}

// UnlockEpisodeLegacy serves PATCH /episodes/:id/episodes/unlocked. A deduct made just before
// pays for the episode; without one it charges like UnlockEpisode.
func (e *EpisodeController) UnlockEpisodeLegacy(ctx *gin.Context) {
	e.unlock(ctx, e.unlocks.UnlockLegacy)
}

func (e *EpisodeController) unlock(ctx *gin.Context, do func(context.Context, uint, uint) (*services.UnlockResult, error)) {
	episodeID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid episode id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	res, err := do(ctx.Request.Context(), userID, episodeID)
	if err != nil {
		respondServiceError(ctx, err, 50024, "failed to unlock episode")
		return
	}
	utils.Success(ctx, res)
}

// PlayEpisode hands out the video URL only when the caller may watch the episode.
func (e *EpisodeController) PlayEpisode(ctx *gin.Context) {
	episodeID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid episode id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	ep, err := e.content.GetEpisode(ctx.Request.Context(), episodeID)
	if err != nil {
		respondServiceError(ctx, err, 50022, "failed to load episode")
		return
	}
	playable, err := e.unlocks.IsPlayable(ctx.Request.Context(), userID, ep)
	if err != nil {
		respondServiceError(ctx, err, 50023, "failed to check unlock")
		return
	}
	if !playable {
		utils.Respond(ctx, http.StatusForbidden, 40320, "episode is locked", gin.H{"unlock_cost": e.unlocks.Cost()})
		return
	}
	utils.Success(ctx, gin.H{
		"episode_id": ep.ID,
		"video_url":  ep.VideoURL,
	})
}

// ListUnlocked returns the ids of episodes the caller has paid for.
func (e *EpisodeController) ListUnlocked(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	ids, err := e.unlocks.UnlockedEpisodeIDs(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err, 50025, "failed to list unlocked episodes")
		return
	}
	utils.Success(ctx, gin.H{"episode_ids": ids})
}

type episodeRequest struct {
	SeriesTitle  string `json:"series_title"`
	Number       int    `json:"number" binding:"omitempty,min=1"`
	Title        string `json:"title" binding:"required,min=1"`
	Description  string `json:"description"`
	VideoURL     string `json:"video_url" binding:"required,url"`
	ThumbnailURL string `json:"thumbnail_url" binding:"omitempty,url"`
	IsFree       bool   `json:"is_free"`
}

// CreateEpisode adds an episode to the catalogue (admin).
func (e *EpisodeController) CreateEpisode(ctx *gin.Context) {
	var req episodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	title := utils.SanitizePlain(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "title cannot be empty")
		return
	}
	number := req.Number
	if number == 0 {
		number = 1
	}

	ep := models.Episode{
		SeriesTitle:  utils.SanitizePlain(req.SeriesTitle),
		Number:       number,
		Title:        title,
		Description:  utils.Sanitize(req.Description),
		VideoURL:     strings.TrimSpace(req.VideoURL),
		ThumbnailURL: strings.TrimSpace(req.ThumbnailURL),
		IsFree:       req.IsFree,
	}
	if err := e.content.CreateEpisode(ctx.Request.Context(), &ep); err != nil {
		respondServiceError(ctx, err, 50026, "failed to create episode")
		return
	}
	utils.Success(ctx, gin.H{"episode": ep, "video_url": ep.VideoURL})
}

// UpdateEpisode changes the provided fields of an episode (admin).
func (e *EpisodeController) UpdateEpisode(ctx *gin.Context) {
	episodeID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid episode id")
		return
	}
	var req struct {
		SeriesTitle  *string `json:"series_title"`
		Number       *int    `json:"number" binding:"omitempty,min=1"`
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		VideoURL     *string `json:"video_url" binding:"omitempty,url"`
		ThumbnailURL *string `json:"thumbnail_url" binding:"omitempty,url"`
		IsFree       *bool   `json:"is_free"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	patch := map[string]interface{}{}
	if req.SeriesTitle != nil {
		patch["series_title"] = utils.SanitizePlain(*req.SeriesTitle)
	}
	if req.Number != nil {
		patch["number"] = *req.Number
	}
	if req.Title != nil {
		title := utils.SanitizePlain(*req.Title)
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40025, "title cannot be empty")
			return
		}
		patch["title"] = title
	}
	if req.Description != nil {
		patch["description"] = utils.Sanitize(*req.Description)
	}
	if req.VideoURL != nil {
		patch["video_url"] = strings.TrimSpace(*req.VideoURL)
	}
	if req.ThumbnailURL != nil {
		patch["thumbnail_url"] = strings.TrimSpace(*req.ThumbnailURL)
	}
	if req.IsFree != nil {
		patch["is_free"] = *req.IsFree
	}

	ep, err := e.content.UpdateEpisode(ctx.Request.Context(), episodeID, patch)
	if err != nil {
		respondServiceError(ctx, err, 50027, "failed to update episode")
		return
	}
	utils.Success(ctx, gin.H{"episode": ep, "video_url": ep.VideoURL})
}

// DeleteEpisode removes an episode from the catalogue (admin).
func (e *EpisodeController) DeleteEpisode(ctx *gin.Context) {
	episodeID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid episode id")
		return
	}
	if err := e.content.DeleteEpisode(ctx.Request.Context(), episodeID); err != nil {
		respondServiceError(ctx, err, 50028, "failed to delete episode")
		return
	}
	utils.Success(ctx, gin.H{"message": "episode deleted"})
}
