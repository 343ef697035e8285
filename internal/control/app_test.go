package control

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/swapmatch/internal/core/trade"
	"github.com/vietddude/swapmatch/internal/infra/remote"
)

// memoryConfig wires the app with in-memory storage and ephemeral ports.
func memoryConfig() Config {
	return Config{
		Port:     0,
		GRPCPort: 0,
		Remote: remote.Config{
			CatalogURL:      "http://localhost:1",
			NotificationURL: "http://localhost:1",
			ChatURL:         "http://localhost:1",
			CallTimeout:     100 * time.Millisecond,
			Retry:           remote.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiple: 2},
		},
	}
}

func TestAppStartStop(t *testing.T) {
	app, err := NewApp(memoryConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestAppProposeUnavailableCatalog(t *testing.T) {
	// With no catalog reachable, offer creation must fail closed rather than
	// let an unvalidated offer through.
	app, err := NewApp(memoryConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	_, err = app.Service().Propose(context.Background(), trade.ProposeRequest{
		ProposerID:       "alice",
		ReceiverID:       "bob",
		OfferedItemIDs:   []int64{1},
		RequestedItemIDs: []int64{2},
	})
	if err == nil {
		t.Fatal("expected propose to fail with catalog down")
	}
}
