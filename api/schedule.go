package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/DeafMist/bounty-radar/internal/alert"
)

// startSchedule runs the alert cycle on a standard 5-field cron expression.
func startSchedule(expr string, runner alertRunner, log *slog.Logger) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(expr, func() {
		res := runner.Run(context.Background(), alert.TriggerSchedule)
		log.Info("scheduled check finished", slog.String("status", res.Status))
	}); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}

	c.Start()
	log.Info("schedule started", slog.String("expr", expr))
	return c, nil
}
