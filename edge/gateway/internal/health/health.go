package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carwash-app/carwash/internal/transport"
)

// Checker is satisfied by *httpclient.Client.
type Checker interface {
	Ping(ctx context.Context, path string) error
}

// ReadyHandler probes every upstream's /health concurrently. It answers 503
// with the per-upstream status when any of them fails.
func ReadyHandler(upstreams map[string]Checker, timeout time.Duration) http.HandlerFunc {
	names := make([]string, 0, len(upstreams))
	for name := range upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			mu     sync.Mutex
			status = make(map[string]string, len(names))
		)
		var g errgroup.Group
		for _, name := range names {
			g.Go(func() error {
				s := "healthy"
				if err := upstreams[name].Ping(ctx, "/health"); err != nil {
					s = "unhealthy"
				}
				mu.Lock()
				status[name] = s
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		code := http.StatusOK
		for _, s := range status {
			if s != "healthy" {
				code = http.StatusServiceUnavailable
			}
		}
		transport.WriteJSON(w, code, status)
	}
}
