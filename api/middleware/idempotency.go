package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/floorops-backend/api/responses"
	"github.com/angelmondragon/floorops-backend/api/validators"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/floorops-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	idempotentReplayHeader = "Idempotent-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	idempotencyInflightTTL = 2 * time.Minute
)

// storedResponse is what a key resolves to. A record without Status is a
// reservation held by a request that has not finished yet.
type storedResponse struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) inflight() bool { return s.Status == 0 }

// Idempotency makes order writes safe to retry. The first request carrying an
// Idempotency-Key reserves it; repeats with the same body replay the stored
// response, a different body is rejected, and a repeat that races the first
// is told to retry. Keys are scoped per tenant and actor.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	reserveTTL := min(idempotencyInflightTTL, ttl)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" || store == nil || !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
			if err != nil {
				msg := "read request"
				var sizeErr *http.MaxBytesError
				if errors.As(err, &sizeErr) {
					msg = fmt.Sprintf("request body exceeds %d bytes", sizeErr.Limit)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := fingerprint(r, body)
			key := store.IdempotencyKey(idempotencyScope(r), clientKey)

			reservation, _ := json.Marshal(storedResponse{RequestHash: hash})
			reserved, err := store.SetNX(ctx, key, string(reservation), reserveTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayOrReject(ctx, logg, store, key, hash, w, r, next)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				// Release so the caller can retry with the same key.
				if err := store.Del(context.WithoutCancel(ctx), key); err != nil && logg != nil {
					logg.Error(ctx, "idempotency.release.failed", err)
				}
				return
			}

			final, err := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err == nil {
				err = store.Set(context.WithoutCancel(ctx), key, string(final), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency.store.failed", err)
			}
		})
	}
}

func replayOrReject(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key, hash string, w http.ResponseWriter, r *http.Request, next http.Handler) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// Reservation expired between SetNX and Get; serve without a record.
		next.ServeHTTP(w, r)
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
	case stored.inflight():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(idempotentReplayHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func idempotencyScope(r *http.Request) string {
	ctx := r.Context()
	return TenantIDFromContext(ctx) + "|" + ActorIDFromContext(ctx)
}

// fingerprint binds the key to one operation: the same key sent to another
// order or route counts as a different request.
func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSuffix(r.URL.Path, "/")))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
