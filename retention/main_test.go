package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/bounty-radar/internal/config"
)

type stubArchive struct {
	pingFailures int
	pings        int
	deleted      int64
	deleteErr    error
	maxAge       time.Duration
	batchSize    int
}

func (s *stubArchive) Ping(context.Context) error {
	s.pings++
	if s.pings <= s.pingFailures {
		return errors.New("connection refused")
	}
	return nil
}

func (s *stubArchive) DeleteOlderThan(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	s.maxAge = maxAge
	s.batchSize = batchSize
	return s.deleted, s.deleteErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWaitForArchiveRetries(t *testing.T) {
	archive := &stubArchive{pingFailures: 2}
	require.NoError(t, waitForArchive(context.Background(), discardLogger(), archive, time.Millisecond))
	require.Equal(t, 3, archive.pings)
}

func TestWaitForArchiveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	archive := &stubArchive{pingFailures: 100}
	err := waitForArchive(ctx, discardLogger(), archive, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunOnce(t *testing.T) {
	cfg := &config.Retention{MaxAge: 36 * time.Hour, BatchSize: 50}

	archive := &stubArchive{deleted: 7}
	require.Equal(t, int64(7), runOnce(context.Background(), discardLogger(), archive, cfg))
	require.Equal(t, 36*time.Hour, archive.maxAge)
	require.Equal(t, 50, archive.batchSize)

	failing := &stubArchive{deleteErr: errors.New("timeout")}
	require.Zero(t, runOnce(context.Background(), discardLogger(), failing, cfg))
}
