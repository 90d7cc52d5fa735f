package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "wildtrek/internal/adapter/http"
	metricsinmem "wildtrek/internal/adapter/metrics/inmemory"
	notifyinmem "wildtrek/internal/adapter/notify/inmemory"
	gormrepo "wildtrek/internal/adapter/repo/gorm"
	"wildtrek/internal/adapter/repo/memory"
	"wildtrek/internal/app/completion"
	"wildtrek/internal/app/history"
	"wildtrek/internal/app/intervention"
	"wildtrek/internal/app/ports"
	"wildtrek/internal/app/progress"
	"wildtrek/internal/app/resolver"
	"wildtrek/internal/app/session"
	"wildtrek/internal/app/shared/cooldown"
	"wildtrek/internal/domain/encounter"
	"wildtrek/internal/domain/expedition"
	"wildtrek/internal/domain/reward"
	"wildtrek/internal/platform/config"
	"wildtrek/internal/platform/otel"
	"wildtrek/internal/platform/random"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, cfg.ServiceName)
	if err != nil {
		log.Fatalf("setup tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	a, err := buildApp(ctx, cfg, time.Now)
	if err != nil {
		log.Fatalf("build app: %v", err)
	}

	go runTicker(ctx, cfg.TickInterval, func(now time.Time) {
		a.engine.Tick(ctx, now)
	})
	go runTicker(ctx, cfg.SweepInterval, func(now time.Time) {
		a.interventions.Sweep(now)
		a.engine.Prune(now)
	})

	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	a.handler.RegisterRoutes(s)

	log.Printf("wildtrek server listening on %s (archive=%s seed=%d)", cfg.HTTPAddr, a.storage, a.seed)
	s.Spin()
	stop()
}

type application struct {
	handler       httpadapter.Handler
	engine        progress.Engine
	interventions intervention.Controller
	bus           *notifyinmem.Bus
	storage       string
	seed          int64
}

func buildApp(ctx context.Context, cfg config.Server, now func() time.Time) (*application, error) {
	archive, notifications, txManager, storage, err := buildRepos(ctx, cfg)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		if seed, err = random.NewSeed(); err != nil {
			return nil, err
		}
	}
	rng := random.New(seed)
	clock := func() time.Time { return now().UTC() }

	arena := session.NewArena()
	cooldowns := cooldown.NewTable()
	kpi := metricsinmem.NewRecorder()
	bus := notifyinmem.NewBus(notifications)
	bus.Subscribe(notifyinmem.Filter{Category: expedition.CategoryExpedition}, func(n expedition.Notification) {
		switch n.Action {
		case expedition.ActionStarted, expedition.ActionCompleted, expedition.ActionStopped:
			hlog.Infof("expedition %s %s", n.ExpeditionID, n.Action)
		}
	})

	rewards := reward.DefaultCatalog()
	events := resolver.Service{
		Arena:     arena,
		Catalog:   encounter.DefaultCatalog(),
		Cooldowns: cooldowns,
		Notifier:  bus,
		Metrics:   kpi,
		Random:    rng,
		Now:       clock,
	}
	engine := progress.Engine{
		Arena:     arena,
		Locations: rewards,
		Events:    events,
		Completer: completion.UseCase{
			Rewards:   rewards,
			Archive:   archive,
			TxManager: txManager,
			Notifier:  bus,
			Metrics:   kpi,
			Seed:      seed,
		},
		Notifier:           bus,
		Metrics:            kpi,
		Random:             rng,
		Now:                clock,
		MinTickSpacing:     cfg.MinTickSpacing,
		BaseEventDelay:     cfg.BaseEventDelay,
		CompletedRetention: cfg.CompletedRetention,
	}
	interventions := intervention.Controller{
		Arena:     arena,
		Catalog:   intervention.DefaultCatalog(),
		Cooldowns: cooldowns,
		Events:    events,
		Notifier:  bus,
		Metrics:   kpi,
		Random:    rng,
		Now:       clock,
	}

	return &application{
		handler: httpadapter.Handler{
			Engine:        engine,
			Resolver:      events,
			Interventions: interventions,
			History:       history.UseCase{Archive: archive, Notifications: notifications},
			KPI:           kpi,
			Now:           clock,
		},
		engine:        engine,
		interventions: interventions,
		bus:           bus,
		storage:       storage,
		seed:          seed,
	}, nil
}

func buildRepos(ctx context.Context, cfg config.Server) (ports.ExpeditionArchive, ports.NotificationLog, ports.TxManager, string, error) {
	if cfg.DBDSN == "" {
		store := memory.NewStore()
		return memory.NewArchiveRepo(store), memory.NewNotificationRepo(store), memory.NewTxManager(store), "memory", nil
	}
	db, err := gormrepo.OpenPostgres(cfg.DBDSN)
	if err != nil {
		return nil, nil, nil, "", err
	}
	if err := gormrepo.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return nil, nil, nil, "", fmt.Errorf("apply migrations from %s: %w", cfg.MigrationsDir, err)
	}
	return gormrepo.NewArchiveRepo(db), gormrepo.NewNotificationRepo(db), gormrepo.NewTxManager(db), "postgres", nil
}

// runTicker calls fn on every tick until ctx is done.
func runTicker(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			fn(now.UTC())
		}
	}
}
