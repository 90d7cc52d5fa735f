package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	notifyinmem "wildtrek/internal/adapter/notify/inmemory"
	"wildtrek/internal/app/history"
	"wildtrek/internal/app/progress"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/platform/config"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func testConfig() config.Server {
	return config.Server{
		TickInterval:       time.Second,
		MinTickSpacing:     time.Second,
		SweepInterval:      time.Second,
		BaseEventDelay:     5 * time.Minute,
		CompletedRetention: 10 * time.Minute,
		Seed:               42,
	}
}

func TestBuildApp_UsesMemoryArchiveWithoutDSN(t *testing.T) {
	a, err := buildApp(context.Background(), testConfig(), func() time.Time { return t0 })
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	if a.storage != "memory" || a.seed != 42 {
		t.Fatalf("storage=%s seed=%d", a.storage, a.seed)
	}
	if a.handler.KPI == nil {
		t.Fatalf("kpi provider not wired")
	}
}

func TestBuildApp_ExpeditionIsArchivedAndReplayable(t *testing.T) {
	ctx := context.Background()
	a, err := buildApp(ctx, testConfig(), func() time.Time { return t0 })
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	var completed atomic.Int32
	unsubscribe := a.bus.Subscribe(notifyinmem.Filter{Category: expedition.CategoryExpedition}, func(n expedition.Notification) {
		if n.Action == expedition.ActionCompleted {
			completed.Add(1)
		}
	})
	defer unsubscribe()

	p, err := a.engine.Start(ctx, progress.StartRequest{
		Trainer:    expedition.Trainer{ID: "ash", Level: 5},
		LocationID: "viridian_forest",
		Mode:       expedition.ModeBalanced,
		Duration:   time.Hour,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if n := a.engine.Tick(ctx, t0.Add(61*time.Minute)); n != 1 {
		t.Fatalf("completed %d expeditions, want 1", n)
	}
	if completed.Load() != 1 {
		t.Fatalf("completion notification not delivered")
	}

	rec, err := a.handler.History.Report(ctx, p.ExpeditionID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rec.Report.ExpeditionID != p.ExpeditionID || rec.Report.FinalProgress != 1 {
		t.Fatalf("unexpected report %+v", rec.Report)
	}
	list, err := a.handler.History.ListByTrainer(ctx, history.ListRequest{TrainerID: "ash"})
	if err != nil || len(list) != 1 {
		t.Fatalf("history = %v (%v)", list, err)
	}
	replay, err := a.handler.History.Replay(ctx, p.ExpeditionID, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replay) < 2 || replay[0].Action != expedition.ActionStarted || replay[len(replay)-1].Action != expedition.ActionCompleted {
		t.Fatalf("replay order unexpected: %d items", len(replay))
	}
}

func TestRunTicker_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		runTicker(ctx, time.Millisecond, func(time.Time) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ticker did not stop")
	}
	if calls.Load() < 3 {
		t.Fatalf("calls = %d", calls.Load())
	}
}
