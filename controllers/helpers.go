package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reelapp/reel-backend/middleware"
	"github.com/reelapp/reel-backend/services"
	"github.com/reelapp/reel-backend/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v > 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// respondServiceError maps domain errors onto the response envelope.
// Anything unrecognized is logged and answered with the given 5xx code.
func respondServiceError(ctx *gin.Context, err error, code int, msg string) {
	var (
		claimErr        *services.ClaimError
		insufficientErr *services.InsufficientPointsError
	)
	switch {
	case errors.As(err, &claimErr):
		utils.Respond(ctx, http.StatusBadRequest, 40030, claimErr.Error(), gin.H{
			"currentStreakDay": claimErr.StreakDay,
			"points":           claimErr.Points,
		})
	case errors.As(err, &insufficientErr):
		utils.Respond(ctx, http.StatusBadRequest, 40040, services.ErrInsufficientPoints.Error(), gin.H{
			"points":   insufficientErr.Balance,
			"required": insufficientErr.Required,
		})
	case errors.Is(err, services.ErrLedgerNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, err.Error())
	case errors.Is(err, services.ErrEpisodeNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, err.Error())
	case errors.Is(err, services.ErrAdNotFound):
		utils.Error(ctx, http.StatusNotFound, 40430, err.Error())
	case errors.Is(err, services.ErrInvalidAmount):
		utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
	case errors.Is(err, utils.ErrLockBusy):
		utils.Error(ctx, http.StatusConflict, 40910, "another karma operation is in progress, retry shortly")
	default:
		utils.Sugar.Errorw(msg, "error", err, "path", ctx.FullPath(), "user_id", ctx.GetUint(middleware.ContextUserIDKey))
		utils.Error(ctx, http.StatusInternalServerError, code, msg)
	}
}
