// Package daemon implements the preview daemon: it watches the
// documentation sources, rebuilds through the build service on change
// and serves the generated site over HTTP.
package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docmake/internal/build"
	"git.home.luguber.info/inful/docmake/internal/config"
	"git.home.luguber.info/inful/docmake/internal/history"
	"git.home.luguber.info/inful/docmake/internal/logfields"
	"git.home.luguber.info/inful/docmake/internal/metrics"
	"git.home.luguber.info/inful/docmake/internal/retry"
)

// Daemon watches sources and serves the generated site.
type Daemon struct {
	cfg       *config.Config
	service   *build.Service
	store     *history.Store
	debouncer *Debouncer
	scheduler *Scheduler
	publisher *Publisher
	status    *status
	http      *httpServer
	policy    retry.Policy
	boundAddr string

	triggerMu      sync.Mutex
	pendingTrigger string
}

// New assembles a daemon from configuration.
func New(cfg *config.Config) (*Daemon, error) {
	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	service := build.NewService(cfg).WithRecorder(recorder)
	var store *history.Store
	if path := cfg.HistoryPath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			slog.Warn("Build history unavailable", logfields.Error(err))
		} else if store, err = history.Open(path); err != nil {
			slog.Warn("Build history unavailable", logfields.Error(err))
			store = nil
		} else {
			service.WithHistory(store)
		}
	}

	publisher, err := NewPublisher(cfg.Daemon.NATS)
	if err != nil {
		// Event publishing is optional; a missing broker must not stop previews.
		slog.Warn("NATS unavailable, build events disabled", logfields.Error(err))
	}

	policy, err := retryPolicyFrom(&cfg.Daemon)
	if err != nil {
		return nil, err
	}

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}

	st := &status{}
	return &Daemon{
		cfg:       cfg,
		service:   service,
		store:     store,
		debouncer: NewDebouncer(time.Duration(cfg.Daemon.DebounceMS)*time.Millisecond, 0),
		scheduler: scheduler,
		publisher: publisher,
		status:    st,
		http:      newHTTPServer(cfg.Daemon.Addr, cfg.HTMLDir(), st, registry),
		policy:    policy,
	}, nil
}

// retryPolicyFrom maps the daemon retry config block onto a policy,
// falling back to the default when the block is absent.
func retryPolicyFrom(cfg *config.DaemonConfig) (retry.Policy, error) {
	if cfg.Retry == nil {
		return retry.DefaultPolicy(), nil
	}
	policy := retry.NewPolicy(
		retry.BackoffMode(cfg.Retry.Mode),
		time.Duration(cfg.Retry.InitialMS)*time.Millisecond,
		time.Duration(cfg.Retry.MaxMS)*time.Millisecond,
		cfg.Retry.MaxRetries,
	)
	if err := policy.Validate(); err != nil {
		return retry.Policy{}, fmt.Errorf("invalid retry config: %w", err)
	}
	return policy, nil
}

// Addr returns the bound HTTP address once Start has run.
func (d *Daemon) Addr() string {
	return d.boundAddr
}

// Start runs the daemon until the context is canceled.
func (d *Daemon) Start(ctx context.Context) error {
	addr, err := d.http.start()
	if err != nil {
		return err
	}
	d.boundAddr = addr
	slog.Info("Preview server listening", slog.String("addr", addr))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchRecursive(watcher, d.cfg.SourceDir()); err != nil {
		return err
	}
	if d.cfg.Landing.Page != "" {
		_ = watcher.Add(filepath.Dir(d.cfg.LandingPage()))
	}

	if interval, err := time.ParseDuration(d.cfg.Daemon.Schedule); err == nil && interval > 0 {
		if _, err := d.scheduler.ScheduleRebuild(interval, func() { d.noteTrigger(TriggerSchedule) }); err != nil {
			return err
		}
		d.scheduler.Start()
		defer func() { _ = d.scheduler.Stop() }()
	}

	go d.debouncer.Run(ctx)

	// Initial build so the server has something to serve.
	d.rebuild(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			d.noteTrigger(TriggerWatch)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		case <-d.debouncer.C():
			d.rebuild(ctx, d.takeTrigger())
		}
	}
}

// Stop shuts down the HTTP server and releases resources.
func (d *Daemon) Stop(ctx context.Context) error {
	d.publisher.Close()
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
	return d.http.shutdown(ctx)
}

// noteTrigger records why the next rebuild was requested and pokes the
// debouncer. When triggers coalesce the first recorded reason wins.
func (d *Daemon) noteTrigger(reason string) {
	d.triggerMu.Lock()
	if d.pendingTrigger == "" {
		d.pendingTrigger = reason
	}
	d.triggerMu.Unlock()
	d.debouncer.Notify()
}

// takeTrigger consumes the pending trigger reason.
func (d *Daemon) takeTrigger() string {
	d.triggerMu.Lock()
	defer d.triggerMu.Unlock()
	reason := d.pendingTrigger
	d.pendingTrigger = ""
	if reason == "" {
		reason = TriggerWatch
	}
	return reason
}

// rebuild runs one build, retrying per policy on failure.
func (d *Daemon) rebuild(ctx context.Context, reason string) {
	d.publisher.Publish(BuildEvent{
		Type:   EventBuildStarted,
		Mode:   string(build.ModeHTML),
		Reason: reason,
	})
	for attempt := 0; ; attempt++ {
		result, err := d.service.Run(ctx, build.Request{Mode: build.ModeHTML})
		d.status.setResult(result.BuildID, string(result.Outcome), err)
		d.publisher.Publish(BuildEvent{
			Type:    EventBuildFinished,
			BuildID: result.BuildID,
			Mode:    string(result.Mode),
			Outcome: string(result.Outcome),
			Reason:  reason,
		})
		if err == nil || result.Outcome == build.OutcomeCanceled {
			return
		}
		if attempt >= d.policy.MaxRetries {
			slog.Error("Rebuild retries exhausted", logfields.Error(err))
			return
		}
		delay := d.policy.Delay(attempt + 1)
		slog.Warn("Rebuild failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			logfields.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// watchRecursive adds dir and all subdirectories to the watcher.
func watchRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}

// relevantEvent filters out editor noise and the build output itself.
func relevantEvent(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	return true
}
