// Package runner runs the bell service for one launcher invocation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"zsembells/internal/api"
	"zsembells/pkg/audio"
	"zsembells/pkg/bell"
	"zsembells/pkg/clock"
	"zsembells/pkg/config"
	"zsembells/pkg/db"
	"zsembells/pkg/db/maintenance"
	"zsembells/pkg/gpio"
	"zsembells/pkg/i18n"
	"zsembells/pkg/launcher"
	"zsembells/pkg/logging"
	"zsembells/pkg/model"
	"zsembells/pkg/probe"
	"zsembells/pkg/request"
	"zsembells/pkg/schedule"
	"zsembells/pkg/store"
	"zsembells/pkg/tracker"
	"zsembells/pkg/version"
)

// Runner is the in-process bell service.
type Runner struct {
	cfg       *config.Config
	fs        afero.Fs
	clockOpts []clock.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithFs sets the filesystem holding the GPIO sysfs tree.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithClockOptions passes options through to the virtual clock.
func WithClockOptions(opts ...clock.Option) Option {
	return func(r *Runner) { r.clockOpts = append(r.clockOpts, opts...) }
}

// New creates a Runner for cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, fs: afero.NewOsFs()}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ launcher.Runner = (*Runner)(nil)

// Run starts the bell service and blocks until ctx is done, the status API
// requests a shutdown, or a component fails.
func (r *Runner) Run(ctx context.Context, inv launcher.Invocation) error {
	loc, err := i18n.Resolve(inv.Language)
	if err != nil {
		return err
	}
	p := i18n.Printer(loc)
	cfg := r.cfg

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logging.Separator(p.Sprintf(i18n.MsgStartup))
	slog.Info("ZSEM bells started",
		"version", version.Version,
		"language", loc.Code(),
		"locale", loc.Binding,
		"dialog", inv.DialogPath)

	// Storage
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewSQLiteStore(dbConn)
	defer st.Close()

	if err := maintenance.Run(ctx, st, dbConn, &cfg.DB); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	tr := tracker.New()
	client := request.New(&cfg.Request, tr)

	// Startup Verification
	results := probe.Run(ctx, probe.Startup(cfg, client, r.fs))
	if err := probe.AnalyzeResults(results); err != nil {
		return err
	}

	prov := config.NewProvider(cfg, st)

	// Relays
	var relays bell.Relays
	if probe.Failed(results, probe.NameGPIO) {
		slog.Warn("GPIO interface missing, bells will ring without relays", "root", cfg.GPIO.SysfsRoot)
	} else {
		logging.Separator(p.Sprintf(i18n.MsgSettingUpGPIO))
		gp := gpio.NewRelays(&cfg.GPIO, r.fs)
		if gp.Setup() {
			relays = gp
			defer func() {
				logging.Separator(p.Sprintf(i18n.MsgCleaningUpGPIO))
				gp.Cleanup()
			}()
		}
	}

	player, err := audio.New(&cfg.Audio)
	if err != nil {
		return err
	}

	keeper := schedule.NewKeeper(&cfg.Schedule, client, st)
	clk := clock.New(&cfg.Clock, client, append([]clock.Option{clock.WithPrinter(p)}, r.clockOpts...)...)

	ringer := bell.NewRinger(prov, relays, player, st,
		bell.WithClock(clk.Now),
		bell.WithOnRung(func(ctx context.Context, ev *model.RingEvent) {
			if ev.Source == model.SourceSchedule && prov.SyncAfterRing(ctx) {
				clk.Sync(ctx)
			}
		}),
	)

	update := newUpdateJob(keeper, clk, p)
	update.Run(ctx)

	clk.SetBellCallbacks(
		func(context.Context) { ringer.Enqueue(model.BellWork, model.SourceSchedule) },
		func(context.Context) { ringer.Enqueue(model.BellBreak, model.SourceSchedule) },
		nil,
	)

	if ts := cfg.Clock.SyncTimestamps; len(ts) == 0 {
		slog.Warn("Sync timestamps are empty")
	} else {
		logging.Separator(p.Sprintf(i18n.MsgSyncTimestamps))
		row := make([]string, len(ts))
		for i, t := range ts {
			row[i] = t.String()
		}
		logging.LogTable(nil, [][]string{row})
		clk.AddTimestampCallback(ts, update.Run)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return clk.Start(gctx) })
	g.Go(func() error { return ringer.Run(gctx) })

	if cfg.Server.Enabled {
		srv := api.NewServer(cfg.Server.Address,
			api.NewStatusHandler(clk, keeper, ringer, time.Second),
			api.NewRingHandler(ringer, st),
			api.NewConfigHandler(st, prov),
			api.NewStatsHandler(tr),
			cancel,
		)
		g.Go(func() error { return serve(gctx, srv) })
	}

	return g.Wait()
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
