// Standalone mock homework status API for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/statusbot run -c example/config.yaml
package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jpalmerr/statusbot/internal/logging"
	"go.uber.org/zap"
)

func main() {
	l, err := logging.New(logging.Options{ConsoleLevel: "debug"})
	if err != nil {
		panic(err)
	}
	logger := l.Named("mock")

	logger.Info("mock status API starting on :9999")
	logger.Info("work item moves through: none → reviewing → rejected → reviewing → approved")

	var (
		mu           sync.Mutex
		idx          int
		nextChangeAt = time.Now().Add(20 * time.Second)
		statuses     = []string{"", "reviewing", "rejected", "reviewing", "approved"}
	)

	http.HandleFunc("/api/user_api/homework_statuses/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if time.Now().After(nextChangeAt) && idx < len(statuses)-1 {
			idx++
			nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			logger.Info("status change", zap.String("to", statuses[idx]))
		}
		status := statuses[idx]
		mu.Unlock()

		homeworks := []map[string]string{}
		if status != "" {
			homeworks = append(homeworks, map[string]string{
				"homework_name": "mock_user__hw_statusbot.zip",
				"status":        status,
			})
		}

		logger.Debug("request",
			zap.String("from_date", r.URL.Query().Get("from_date")),
			zap.Bool("authorized", r.Header.Get("Authorization") != ""),
		)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"homeworks":    homeworks,
			"current_date": time.Now().Unix(),
		})
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		logger.Error("server error", zap.Error(err))
		_ = l.Close()
		os.Exit(1)
	}
}
