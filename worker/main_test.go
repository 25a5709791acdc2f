package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/bounty-radar/internal/dedupe"
	"github.com/DeafMist/bounty-radar/internal/models"
)

type stubIndexer struct {
	docs []models.ArchivedBounty
	err  error
}

func (s *stubIndexer) IndexBounty(_ context.Context, doc models.ArchivedBounty) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

type stubWriter struct {
	msgs []kafka.Message
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventMessage(t *testing.T, evt models.NotifiedEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessMessageArchivesBounty(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	idx := &stubIndexer{}

	msg := eventMessage(t, models.NotifiedEvent{
		EventID:    "evt-1",
		Trigger:    "manual",
		NotifiedAt: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
		Bounty:     models.Bounty{ID: "discord-bot", Title: " Build a Discord bot ", Value: 1200, Source: "price_detection"},
	})

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.docs, 1)

	doc := idx.docs[0]
	require.Equal(t, "Build a Discord bot", doc.Title)
	require.Equal(t, "evt-1", doc.EventID)
	require.Equal(t, "manual", doc.Trigger)

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))
	require.Len(t, idx.docs, 1)
}

func TestProcessMessageDerivesID(t *testing.T) {
	idx := &stubIndexer{}
	msg := eventMessage(t, models.NotifiedEvent{
		EventID: "evt-2",
		Bounty:  models.Bounty{Title: "Fix auth", Value: 300},
	})

	require.NoError(t, processMessage(context.Background(), discardLogger(), idx, dedupe.NewCache(10, time.Hour), msg))
	require.NotEmpty(t, idx.docs[0].ID)
	require.False(t, idx.docs[0].NotifiedAt.IsZero())
}

func TestProcessMessageRejectsBadPayloads(t *testing.T) {
	cache := dedupe.NewCache(10, time.Hour)
	idx := &stubIndexer{}

	require.Error(t, processMessage(context.Background(), discardLogger(), idx, cache, kafka.Message{Value: []byte("{")}))
	require.Error(t, processMessage(context.Background(), discardLogger(), idx, cache,
		eventMessage(t, models.NotifiedEvent{EventID: "evt-3"})))
	require.Error(t, processMessage(context.Background(), discardLogger(), idx, cache,
		eventMessage(t, models.NotifiedEvent{Bounty: models.Bounty{Title: "x"}})))
	require.Empty(t, idx.docs)
}

func TestProcessMessageIndexErrorNotMarked(t *testing.T) {
	cache := dedupe.NewCache(10, time.Hour)
	idx := &stubIndexer{err: errors.New("es down")}
	msg := eventMessage(t, models.NotifiedEvent{EventID: "evt-4", Bounty: models.Bounty{Title: "x"}})

	require.Error(t, processMessage(context.Background(), discardLogger(), idx, cache, msg))

	seen, err := cache.IsSeen(context.Background(), "evt-4")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestSendToDLQAddsHeaders(t *testing.T) {
	w := &stubWriter{}
	msg := kafka.Message{Partition: 2, Offset: 41, Value: []byte("{")}

	require.True(t, sendToDLQ(context.Background(), discardLogger(), w, msg, errors.New("bad json")))
	require.Len(t, w.msgs, 1)

	headers := map[string]string{}
	for _, h := range w.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "2", headers["original_partition"])
	require.Equal(t, "41", headers["original_offset"])
	require.Equal(t, "bad json", headers["error"])
}
