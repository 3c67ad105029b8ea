package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/api/responses"
	"github.com/angelmondragon/floorops-backend/internal/realtime"
	"github.com/angelmondragon/floorops-backend/internal/tenant"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
)

const defaultKeepAlive = 15 * time.Second

// Subscriber hands out per-tenant event subscriptions.
type Subscriber interface {
	Subscribe(tenantID uuid.UUID) (*realtime.Subscription, error)
}

// Stream serves order events for the caller's restaurant as server-sent events.
// Only the tenant from the verified token is ever subscribed.
func Stream(hub Subscriber, keepAlive time.Duration, logg *logger.Logger) http.HandlerFunc {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if hub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime unavailable"))
			return
		}
		tc, err := tenant.Require(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		subscription, err := hub.Subscribe(tc.TenantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "subscribe"))
			return
		}
		defer subscription.Close()

		headers := w.Header()
		headers.Set("Content-Type", "text/event-stream")
		headers.Set("Cache-Control", "no-cache")
		headers.Set("Connection", "keep-alive")
		headers.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if _, err := io.WriteString(w, "retry: 2000\n\n"); err != nil {
			return
		}
		flusher.Flush()

		if logg != nil {
			logg.Debug(ctx, "realtime.stream.open")
			defer logg.Debug(ctx, "realtime.stream.closed")
		}

		heartbeat := time.NewTicker(keepAlive)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-subscription.Events():
				// Hub streams are already tenant-scoped; this guards against a misrouted event.
				if event.TenantID != tc.TenantID {
					continue
				}
				if err := writeEvent(w, event); err != nil {
					return
				}
				flusher.Flush()
			case <-heartbeat.C:
				if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w io.Writer, event realtime.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s:%d\nevent: %s\ndata: %s\n\n", event.OrderID, event.Version, event.Type, data)
	return err
}
