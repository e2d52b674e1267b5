// Command test-resolve drives the full pipeline against a local
// synthetic feed server, printing each canned query's resolution.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/mkhalili/arbiter/internal/app"
	"github.com/mkhalili/arbiter/internal/config"
	"github.com/mkhalili/arbiter/internal/simfeed"
	"github.com/mkhalili/arbiter/pkg/logger"
	"github.com/mkhalili/arbiter/pkg/metrics"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()
	metrics.Init()
	ctx := context.Background()

	match := simfeed.Match{
		Home: "Lakers", Away: "Suns",
		HomeScore: 112, AwayScore: 108,
		Date: "2025-01-15",
	}
	feed := simfeed.NewServer(match, "total_cards", map[string]float64{
		"OFFICIAL":     4,
		"OPTA_STATS":   4,
		"STATSBOMB":    4,
		"API_FOOTBALL": 4,
		"SOFASCORE":    4,
		"FLASHSCORE":   3,
	})
	base, err := feed.Start()
	if err != nil {
		log.Error(ctx, "failed to start feed server", logger.Error(err))
		return
	}
	defer feed.Close()

	env := feed.Env(base)
	svc := app.New(
		app.WithConfig(config.New()),
		app.WithLogger(log),
		app.WithEnv(func(key string) string { return env[key] }),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	queries := []string{
		"Did Lakers beat Suns on 2025-01-15?",
		"Who won Lakers vs Suns on 2025-01-15?",
		"Total cards in Arsenal vs Chelsea 2024-11-05",
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, q := range queries {
		result, err := svc.Resolve(ctx, q)
		if err != nil {
			log.Error(ctx, "resolution failed", logger.String("query", q), logger.Error(err))
			continue
		}
		log.Info(ctx, "resolved",
			logger.String("query", q),
			logger.String("resolution", result.Resolution),
			logger.Float64("confidence", result.Confidence),
		)
		_ = enc.Encode(map[string]any{
			"query":      q,
			"resolution": result.Resolution,
			"confidence": result.Confidence,
			"sources":    result.Sources,
		})
	}
}
