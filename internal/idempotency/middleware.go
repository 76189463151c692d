package idempotency

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Lokato-Mobility/service-booking/internal/platform/middleware"
	"github.com/Lokato-Mobility/service-booking/internal/platform/response"
)

// HeaderKey is the request header carrying the client's idempotency key.
const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

// Keeper is the storage behind Middleware.
type Keeper interface {
	Reserve(ctx context.Context, key string) (*Record, bool, error)
	Complete(ctx context.Context, key string, rec Record) error
	Release(ctx context.Context, key string) error
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware replays the stored response for a repeated Idempotency-Key.
// Keys are scoped per user. Server errors are not stored, so the client can
// retry them. When the store is unreachable the request runs normally.
func Middleware(keeper Keeper, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderKey))
		if raw == "" {
			c.Next()
			return
		}
		if len(raw) > 128 {
			response.BadRequest(c, "Idempotency-Key must be at most 128 characters")
			c.Abort()
			return
		}

		key := raw
		if userID, ok := middleware.GetUserID(c); ok {
			key = userID.String() + ":" + raw
		}
		ctx := c.Request.Context()

		rec, owned, err := keeper.Reserve(ctx, key)
		switch {
		case errors.Is(err, ErrInProgress):
			c.AbortWithStatusJSON(http.StatusConflict, response.Envelope{
				Success: false,
				Error:   &response.ErrorBody{Code: "IDEMPOTENCY_IN_PROGRESS", Message: err.Error()},
			})
			return
		case err != nil:
			logger.Warn("idempotency store unavailable, processing request without it",
				zap.String("idempotency_key", raw),
				zap.Error(err),
			)
			c.Next()
			return
		case !owned:
			c.Header(HeaderReplayed, "true")
			c.Data(rec.StatusCode, rec.ContentType, rec.Body)
			c.Abort()
			return
		}

		// The request context may already be cancelled when the handler
		// returns, and a panicking handler must not leave the key pending.
		storeCtx := context.WithoutCancel(ctx)
		stored := false
		defer func() {
			if stored {
				return
			}
			if err := keeper.Release(storeCtx, key); err != nil {
				logger.Warn("failed to release idempotency key", zap.String("idempotency_key", raw), zap.Error(err))
			}
		}()

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() >= http.StatusInternalServerError {
			return
		}
		if err := keeper.Complete(storeCtx, key, Record{
			StatusCode:  w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}); err != nil {
			logger.Warn("failed to store idempotency record", zap.String("idempotency_key", raw), zap.Error(err))
			return
		}
		stored = true
	}
}
