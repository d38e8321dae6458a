package instrument

import "context"

type correlationKey struct{}

// SetCorrelationID stores the request correlation ID in the context.
func SetCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationKey{}, cid)
}

// GetCorrelationID returns the correlation ID stored in the context, or an
// empty string when none was set.
func GetCorrelationID(ctx context.Context) string {
	cid, ok := ctx.Value(correlationKey{}).(string)
	if !ok {
		return ""
	}

	return cid
}
