package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatlog/internal/dataset"
	"github.com/MikeSquared-Agency/chatlog/internal/pipeline"
)

const sampleCSV = "Conversation,Date,Time,Sender,Message\n" +
	"Ann,01.01.25,10:00,Ann,Hi\n" +
	"Ann,01.01.25,10:05,Martin,Ok\n" +
	"Bo,03.01.25,08:00,Bo,Morning\n"

func writeOutput(t *testing.T) (string, *pipeline.Report) {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "all_chats.csv")
	if err := os.WriteFile(out, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rep := &pipeline.Report{RunID: uuid.New(), Output: out, Processed: 2, Records: 3}
	if err := rep.Save(out + ".report.json"); err != nil {
		t.Fatalf("save report: %v", err)
	}
	return out, rep
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(8760, "", "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	out, rep := writeOutput(t)
	srv := NewServer(8760, out, "")

	req := httptest.NewRequest("GET", "/api/v1/chatlog/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body pipeline.Report
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.RunID != rep.RunID {
		t.Errorf("expected run %s, got %s", rep.RunID, body.RunID)
	}
	if body.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", body.Processed)
	}
}

func TestStatusEndpoint_NoRunYet(t *testing.T) {
	srv := NewServer(8760, filepath.Join(t.TempDir(), "missing.csv"), "")

	req := httptest.NewRequest("GET", "/api/v1/chatlog/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDatasetEndpoint(t *testing.T) {
	out, _ := writeOutput(t)
	srv := NewServer(8760, out, "")

	req := httptest.NewRequest("GET", "/api/v1/chatlog/dataset", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if w.Body.String() != sampleCSV {
		t.Errorf("unexpected body:\n%s", w.Body.String())
	}
}

func TestConversationsEndpoint(t *testing.T) {
	out, _ := writeOutput(t)
	srv := NewServer(8760, out, "")

	req := httptest.NewRequest("GET", "/api/v1/chatlog/conversations?owner=Martin", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body []dataset.ConversationCount
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(body))
	}
	if body[0].Conversation != "Ann" || body[0].Messages != 2 || body[0].Owner != 1 {
		t.Errorf("unexpected first row: %+v", body[0])
	}
	if body[1].Conversation != "Bo" || body[1].Messages != 1 {
		t.Errorf("unexpected second row: %+v", body[1])
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := NewServer(8760, "", "")

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := NewServer(0, "", "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestRunPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv := NewServer(ln.Addr().(*net.TCPAddr).Port, "", "")

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error for a port already in use")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected Run to fail fast on a busy port")
	}
}
