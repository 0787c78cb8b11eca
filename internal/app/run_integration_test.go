package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

func newTestOutboxMessage(i int) domain.OutboxMessage {
	return domain.OutboxMessage{
		AggregateType: domain.AggregateItem,
		AggregateID:   fmt.Sprint(i),
		EventType:     domain.EventItemCreated,
		Payload:       []byte(fmt.Sprintf(`{"id":%d}`, i)),
	}
}

func TestRun_MemoryServesItemsAndShutsDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.StorageDriver = StorageDriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, cfg) }()

	base := "http://" + cfg.HTTPAddr
	waitForServer(t, base+"/")

	resp, err := http.Post(base+"/items/", "application/json", bytes.NewBufferString(`{"name":"Widget"}`))
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	var created domain.Item
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.ID == 0 || created.Name != "Widget" {
		t.Fatalf("unexpected create result: %d %+v", resp.StatusCode, created)
	}

	waitForServer(t, "http://"+cfg.MetricsAddr+"/livez")
	resp, err = http.Get("http://" + cfg.MetricsAddr + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy service, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_InvalidHTTPAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:-1"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "listen http") {
		t.Fatalf("expected listen error, got %v", err)
	}
}
