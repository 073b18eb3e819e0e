package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-reservation/internal/config"
)

// cachedResponse is the Redis payload for one cached response.  Only the
// status, content type and body are stored; anything per-request (auth
// headers, rate-limit counters) is deliberately left out.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyRecorder tees the response body into a buffer while writing it to the
// client, so a successful response can be cached after the handler ran.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if br.limit <= 0 || br.buf.Len()+len(b) <= br.limit {
		br.buf.Write(b)
	} else {
		br.buf.Reset() // over limit, drop the capture entirely
		br.limit = -1
	}
	return br.ResponseWriter.Write(b)
}

// browseCacheKey hashes method, route and query into a short namespaced key.
// Route templates (not raw paths) keep the keyspace bounded.
func browseCacheKey(prefix string, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + " " + c.Path() + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// NewBrowseCache caches successful GET responses of public catalog routes
// (room listings, availability probes) in Redis for a short TTL.  Writes to
// bookings invalidate nothing here: availability answers are advisory and
// the booking insert path re-checks overlap inside its own transaction, so
// a briefly stale listing is acceptable.
func NewBrowseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := browseCacheKey(cfg.Prefix, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cr cachedResponse
				if json.Unmarshal(raw, &cr) == nil && cr.Status != 0 {
					h := c.Response().Header()
					if cr.ContentType != "" {
						h.Set(echo.HeaderContentType, cr.ContentType)
					}
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(cr.Status)
					_, werr := c.Response().Write(cr.Body)
					return werr
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if rec.status == http.StatusOK && rec.buf.Len() > 0 {
				cr := cachedResponse{
					Status:      rec.status,
					ContentType: strings.TrimSpace(c.Response().Header().Get(echo.HeaderContentType)),
					Body:        append([]byte(nil), rec.buf.Bytes()...),
				}
				if payload, err := json.Marshal(cr); err == nil {
					_ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
				}
			}
			return nil
		}
	}
}
