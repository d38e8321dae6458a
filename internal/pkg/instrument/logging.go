package instrument

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// initLogging installs the process-wide slog default: a JSON handler on
// stdout, optionally fanned out to the OTLP log bridge, with sensitive
// attribute masking and correlation ID propagation applied in front.
func initLogging(serviceName string, lp *sdklog.LoggerProvider, maskFields []string) {
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				a.Key = "severity"
			}
			return a
		},
	})

	var handler slog.Handler = jsonHandler
	if lp != nil {
		handler = &fanoutHandler{handlers: []slog.Handler{
			jsonHandler,
			otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp)),
		}}
	}

	handler = &maskHandler{next: handler, keys: normalizeMaskKeys(maskFields)}

	slog.SetDefault(slog.New(&contextHandler{Handler: handler, serviceName: serviceName}))
}

// contextHandler stamps every record with the service name and, when
// present, the correlation ID from the context.
type contextHandler struct {
	slog.Handler
	serviceName string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cid := GetCorrelationID(ctx); cid != "" {
		r.AddAttrs(slog.String("cid", cid))
	}
	r.AddAttrs(slog.String("service", h.serviceName))

	return h.Handler.Handle(ctx, r)
}

type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h.WithAttrs(attrs))
	}
	return &fanoutHandler{handlers: handlers}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h.WithGroup(name))
	}
	return &fanoutHandler{handlers: handlers}
}

// maskHandler replaces the values of configured attribute keys with "***".
// Group attributes and map values are masked recursively.
type maskHandler struct {
	next slog.Handler
	keys map[string]struct{}
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, record slog.Record) error {
	if len(h.keys) == 0 {
		return h.next.Handle(ctx, record)
	}

	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(attr))
		return true
	})

	return h.next.Handle(ctx, masked)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &maskHandler{next: h.next.WithAttrs(attrs), keys: h.keys}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{next: h.next.WithGroup(name), keys: h.keys}
}

func (h *maskHandler) maskAttr(attr slog.Attr) slog.Attr {
	if _, found := h.keys[strings.ToLower(attr.Key)]; found {
		return slog.String(attr.Key, "***")
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		masked := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			masked = append(masked, h.maskAttr(ga))
		}
		attr.Value = slog.GroupValue(masked...)
	case slog.KindAny:
		switch v := attr.Value.Any().(type) {
		case map[string]any:
			attr.Value = slog.AnyValue(h.maskMap(v))
		case map[string]string:
			converted := make(map[string]any, len(v))
			for k, val := range v {
				converted[k] = val
			}
			attr.Value = slog.AnyValue(h.maskMap(converted))
		}
	}

	return attr
}

func (h *maskHandler) maskMap(m map[string]any) map[string]any {
	masked := make(map[string]any, len(m))
	for k, v := range m {
		if _, found := h.keys[strings.ToLower(k)]; found {
			masked[k] = "***"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			masked[k] = h.maskMap(nested)
			continue
		}
		masked[k] = v
	}
	return masked
}

func normalizeMaskKeys(fields []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(strings.ToLower(field))
		if field == "" {
			continue
		}
		keys[field] = struct{}{}
	}
	return keys
}
