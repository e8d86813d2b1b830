//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_DatasetReady(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	opts := []nats.Option{}
	if token := os.Getenv("NATS_TOKEN"); token != "" {
		opts = append(opts, nats.Token(token))
	}
	consumer, err := nats.Connect(natsURL, opts...)
	if err != nil {
		t.Fatalf("consumer connect failed: %v", err)
	}
	defer consumer.Close()

	received := make(chan DatasetReady, 1)
	sub, err := consumer.Subscribe(SubjectDatasetReady, func(msg *nats.Msg) {
		var ev DatasetReady
		json.Unmarshal(msg.Data, &ev)
		received <- ev
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()
	if err := consumer.Flush(); err != nil {
		t.Fatalf("consumer flush failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	err = client.PublishDatasetReady(ctx, DatasetReady{RunID: "run-it", Records: 7})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case ev := <-received:
		if ev.RunID != "run-it" || ev.Records != 7 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
