package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/0xmonas/cobbee/internal/pkg/goroutine"
)

const geoLookupTimeout = 2 * time.Second

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type store interface {
	Insert(ctx context.Context, ev Event) error
}

type publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Geolocator resolves a client IP to coarse location data.
type Geolocator interface {
	Lookup(ctx context.Context, ip string) (map[string]any, error)
}

// Recorder writes events to the database and publishes them to the audit
// sink, asynchronously and best-effort.
type Recorder struct {
	store     store
	publisher publisher
	geo       Geolocator
	runner    *goroutine.Manager
	clock     clocker
	uid       generator
}

// Config holds Recorder dependencies.
type Config struct {
	Store     store
	Publisher publisher
	Geo       Geolocator
	Runner    *goroutine.Manager
	Clock     clocker
	UID       generator
}

// NewRecorder constructs a Recorder.
func NewRecorder(cfg Config) *Recorder {
	return &Recorder{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		geo:       cfg.Geo,
		runner:    cfg.Runner,
		clock:     cfg.Clock,
		uid:       cfg.UID,
	}
}

// Record stamps the event and persists it in the background. It never blocks
// on the sinks and never returns an error: failures are logged and dropped.
// The caller's cancellation is detached so an aborted request still leaves a
// trail.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if ev.ID == "" {
		ev.ID = r.uid.Generate()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.clock.Now()
	}

	bgCtx := context.WithoutCancel(ctx)
	r.runner.Go(bgCtx, func(ctx context.Context) error {
		r.enrich(ctx, &ev)

		if err := r.store.Insert(ctx, ev); err != nil {
			slog.WarnContext(ctx, "audit: failed to store event",
				"event_type", ev.Type.String(),
				"event_id", ev.ID,
				"error", err,
			)
		}

		if err := r.publisher.Publish(ctx, ev); err != nil {
			slog.WarnContext(ctx, "audit: failed to publish event",
				"event_type", ev.Type.String(),
				"event_id", ev.ID,
				"error", err,
			)
		}

		return nil
	})
}

// Wait blocks until all in-flight recordings finish. Called on shutdown.
func (r *Recorder) Wait() error {
	return r.runner.Wait()
}

func (r *Recorder) enrich(ctx context.Context, ev *Event) {
	if r.geo == nil || ev.IP == "" {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, geoLookupTimeout)
	defer cancel()

	geo, err := r.geo.Lookup(lookupCtx, ev.IP)
	if err != nil {
		slog.WarnContext(ctx, "audit: geo lookup failed", "ip", ev.IP, "error", err)
		return
	}
	if len(geo) == 0 {
		return
	}

	if ev.Metadata == nil {
		ev.Metadata = make(map[string]any, 1)
	}
	ev.Metadata["geo"] = geo
}
