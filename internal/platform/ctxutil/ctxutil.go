package ctxutil

import "context"

type contextKey string

const requestDataKey contextKey = "request_data"

// RequestData carries per-request correlation identifiers through service and
// job code so failures can be tied back to a gateway transaction.
type RequestData struct {
	RequestID string
	TraceID   string
	AdminID   string
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey).(*RequestData)
	return rd
}
