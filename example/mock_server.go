package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// mockState tracks the review status of the single mock work item.
type mockState struct {
	statusIdx    int
	nextChangeAt time.Time
}

// mockStatuses is the review progression; the empty string means no work
// item is under review yet.
var mockStatuses = []string{"", "reviewing", "rejected", "reviewing", "approved"}

// NewMockStatusHandler serves a fake homework status API. The work item
// advances one review status every 20-60 seconds and stays approved at the end.
func NewMockStatusHandler(logger *zap.Logger) http.Handler {
	var (
		state = &mockState{nextChangeAt: nextChange()}
		mu    sync.Mutex
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			http.Error(w, `{"code":"not_authenticated"}`, http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("from_date") == "" {
			http.Error(w, `{"code":"UnknownError","error":{"error":"from_date is required"}}`, http.StatusBadRequest)
			return
		}

		mu.Lock()
		if time.Now().After(state.nextChangeAt) && state.statusIdx < len(mockStatuses)-1 {
			state.statusIdx++
			state.nextChangeAt = nextChange()
			logger.Info("status change", zap.String("to", mockStatuses[state.statusIdx]))
		}
		status := mockStatuses[state.statusIdx]
		mu.Unlock()

		homeworks := []map[string]any{}
		if status != "" {
			homeworks = append(homeworks, map[string]any{
				"id":               1,
				"homework_name":    "mock_user__hw_statusbot.zip",
				"status":           status,
				"reviewer_comment": "",
				"lesson_name":      "Final project",
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"homeworks":    homeworks,
			"current_date": time.Now().Unix(),
		}); err != nil {
			logger.Error("failed to write response", zap.Error(err))
		}
	})
}

func nextChange() time.Time {
	return time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
}
