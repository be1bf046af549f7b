package core

import "context"

type contextKey string

const ctxKeyBatchSource contextKey = "batch_source"

// BatchSource describes where a batch came from. It is attached to batch
// log lines and spans.
type BatchSource struct {
	Origin    string // "http" or "cli"
	Name      string // file name, when known
	IPAddress string
	UserAgent string
}

// ContextWithBatchSource attaches src to ctx.
func ContextWithBatchSource(ctx context.Context, src BatchSource) context.Context {
	return context.WithValue(ctx, ctxKeyBatchSource, src)
}

// BatchSourceFromContext returns the source attached to ctx, if any.
func BatchSourceFromContext(ctx context.Context) (BatchSource, bool) {
	src, ok := ctx.Value(ctxKeyBatchSource).(BatchSource)
	return src, ok
}

// logAttrs returns the non-empty fields as slog key/value pairs.
func (s BatchSource) logAttrs() []any {
	var attrs []any
	for _, kv := range [...]struct{ k, v string }{
		{"origin", s.Origin},
		{"file", s.Name},
		{"ip", s.IPAddress},
		{"user_agent", s.UserAgent},
	} {
		if kv.v != "" {
			attrs = append(attrs, kv.k, kv.v)
		}
	}
	return attrs
}
