package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/reelapp/reel-backend/services"
	"github.com/reelapp/reel-backend/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		page, size         string
		wantPage, wantSize int
	}{
		{"", "", 1, 10},
		{"3", "25", 3, 25},
		{"-1", "500", 1, 10},
		{"x", "0", 1, 10},
	}
	for _, tc := range cases {
		p, s := parsePagination(tc.page, tc.size)
		if p != tc.wantPage || s != tc.wantSize {
			t.Errorf("parsePagination(%q, %q) = %d, %d", tc.page, tc.size, p, s)
		}
	}
}

func TestRespondServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   int
	}{
		{&services.ClaimError{StreakDay: 3, Points: 40}, http.StatusBadRequest, 40030},
		{&services.InsufficientPointsError{Balance: 50, Required: 100}, http.StatusBadRequest, 40040},
		{fmt.Errorf("wrapped: %w", services.ErrLedgerNotFound), http.StatusNotFound, 40410},
		{services.ErrEpisodeNotFound, http.StatusNotFound, 40420},
		{services.ErrAdNotFound, http.StatusNotFound, 40430},
		{services.ErrInvalidAmount, http.StatusBadRequest, 40021},
		{fmt.Errorf("%w: taken", utils.ErrLockBusy), http.StatusConflict, 40910},
		{errors.New("disk on fire"), http.StatusInternalServerError, 50099},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(rec)
		ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		respondServiceError(ctx, tc.err, 50099, "boom")

		var body utils.JSONResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Code != tc.wantStatus || body.Code != tc.wantCode {
			t.Errorf("%v: got %d/%d want %d/%d", tc.err, rec.Code, body.Code, tc.wantStatus, tc.wantCode)
		}
	}
}
