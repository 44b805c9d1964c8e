package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"lunacal/internal/cache"
	"lunacal/internal/config"
	"lunacal/internal/ics"
	appLog "lunacal/internal/log"
	"lunacal/internal/lunar"
	"lunacal/internal/model"
	"lunacal/internal/refresh"
	"lunacal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	pretty     bool
}

func main() {
	flags := parseFlags()
	if flags.pretty {
		appLog.SetPretty()
	}
	appLog.Info("lunacal starting", "version", "0.1.0")

	settings, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(settings.LogLevel)

	// CLI -listen overrides config file listen if provided.
	if flags.listen != "" {
		settings.Listen = flags.listen
	}

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone, falling back to local", err, "timezone", settings.Timezone)
		loc = time.Local
	}

	appLog.Info("effective config",
		"listen", settings.Listen,
		"timezone", settings.Timezone,
		"locale", settings.Locale,
		"week_start", settings.WeekStart,
		"refresh_cron", settings.RefreshCron,
		"feed_count", len(settings.Feeds),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	tag := settings.LanguageTag()

	var terms lunar.TermTable
	if settings.SolarTermsPath != "" {
		terms, err = lunar.LoadTermTable(settings.SolarTermsPath)
		if err != nil {
			appLog.Error("failed to load solar term table, using built-in derivation", err,
				"path", settings.SolarTermsPath)
			terms = nil
		}
	}
	converter := lunar.NewConverter(terms)

	store, err := cache.Open(settings.CachePath, loc, tag)
	if err != nil {
		appLog.Error("failed to open agenda cache", err, "path", settings.CachePath)
		os.Exit(1)
	}

	feeds := make([]ics.Feed, 0, len(settings.Feeds))
	for _, f := range settings.Feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			if f.Name != "" {
				id = f.Name
			} else {
				id = f.URL
			}
		}
		feeds = append(feeds, ics.Feed{
			ID:        id,
			URL:       f.URL,
			Name:      f.Name,
			Reminders: f.Reminders,
		})
	}
	source := ics.NewClient(feeds, settings.FeedCacheDir, tag, loc)

	orch := refresh.New(refresh.Options{
		Converter: converter,
		Source:    source,
		Cache:     store,
		Settings:  *settings,
		Location:  loc,
	})

	if flags.once {
		orch.RefreshNow(ctx, model.ReasonStartup)
		snap := orch.Snapshot()
		appLog.Info("single refresh complete",
			"generation", snap.Generation,
			"agenda_count", len(snap.DetailAgenda),
			"cell_count", len(snap.GridCells))
		return
	}

	orch.Start(ctx)

	// Periodic refresh via cron schedule.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(settings.RefreshCron, func() {
		orch.Trigger(ctx, model.ReasonTimerTick)
	}); err != nil {
		appLog.Error("invalid refresh cron expression", err, "cron", settings.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := web.NewServer(ctx, *settings, flags.configPath, orch, loc)
	httpServer := &http.Server{
		Addr:              settings.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+settings.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}
	orch.Wait()
	appLog.Info("lunacal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/lunacal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh and exit")
	flag.BoolVar(&cfg.pretty, "pretty", false, "Human-readable console log output")

	flag.Parse()

	return cfg
}
