package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/holoboard/placesync/config"
	"github.com/holoboard/placesync/internal/assets"
	"github.com/holoboard/placesync/internal/classify"
	"github.com/holoboard/placesync/internal/engine"
	"github.com/holoboard/placesync/internal/events"
	"github.com/holoboard/placesync/internal/placement/service"
	"github.com/holoboard/placesync/internal/remote"
	"github.com/holoboard/placesync/internal/selection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	client := remote.NewClient(cfg.Store.BaseURL,
		remote.WithTimeouts(cfg.Store.RequestTimeout, cfg.Store.UploadTimeout))

	bus := events.NewBus()
	cache := assets.NewCache(client, bus)
	registry := service.NewRegistry(client)
	reconciler := service.NewReconciler(client, cache, bus, service.ReconcileOptions{
		PositionThreshold: cfg.Sync.PositionThreshold,
		RotationThreshold: cfg.Sync.RotationThreshold,
		ScaleThreshold:    cfg.Sync.ScaleThreshold,
		SyncScale:         cfg.Sync.SyncScale,
		PushDebounce:      cfg.Sync.PushDebounce,
	})
	arbitrator := selection.NewArbitrator(bus)

	sizeMode := classify.OriginalSize
	if cfg.Geometry.UseFixedSize {
		sizeMode = classify.FixedSize
	}

	eng := engine.New(registry, reconciler, cache, arbitrator, client, bus, engine.Options{
		TickInterval: cfg.Sync.TickInterval,
		SizeMode:     sizeMode,
		FixedDims: classify.FixedDims{
			Width:  cfg.Geometry.FixedWidth,
			Height: cfg.Geometry.FixedHeight,
		},
		Limits: classify.Limits{
			Min: cfg.Geometry.MinAxisScale,
			Max: cfg.Geometry.MaxAxisScale,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(cfg.Sync.FullReconcileSpec, eng.RequestSync); err != nil {
		log.Fatalf("invalid reconcile schedule %q: %v", cfg.Sync.FullReconcileSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Sync agent connected to %s, tick=%s", cfg.Store.BaseURL, cfg.Sync.TickInterval)
		errCh <- eng.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Printf("Shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Fatalf("engine stopped: %v", err)
		}
	}
}
