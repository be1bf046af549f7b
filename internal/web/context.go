package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/orgsync/internal/core"
)

// withBatchSource tags ctx with the uploading client for batch logs.
// RemoteAddr has already been through TrustedRealIP.
func withBatchSource(ctx context.Context, r *http.Request, fileName string) context.Context {
	return core.ContextWithBatchSource(ctx, core.BatchSource{
		Origin:    "http",
		Name:      fileName,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
