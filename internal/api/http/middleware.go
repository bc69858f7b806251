package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/metrics"
	"github.com/immxrtalbeast/studyroom/internal/service"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	userKey         = "user"
)

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.Set(requestIDKey, id)
		ctx.Header(requestIDHeader, id)
		ctx.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		status := ctx.Writer.Status()
		attrs := []any{
			slog.String("method", ctx.Request.Method),
			slog.String("path", ctx.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", ctx.ClientIP()),
			slog.String("request_id", ctx.GetString(requestIDKey)),
		}
		if status >= http.StatusInternalServerError {
			log.Error("request", attrs...)
			return
		}
		log.Info("request", attrs...)
	}
}

func Metrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(ctx.Request.Method, route, ctx.Writer.Status(), time.Since(start))
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a token bucket per client IP.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
		lastGC   = time.Now()
	)

	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastGC) > time.Minute {
			for key, v := range visitors {
				if now.Sub(v.lastSeen) > 3*time.Minute {
					delete(visitors, key)
				}
			}
			lastGC = now
		}
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			visitors[ip] = v
		}
		v.lastSeen = now
		allowed := v.limiter.Allow()
		mu.Unlock()

		if !allowed {
			metrics.RateLimited.Inc()
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Error: "too many requests",
				Code:  "rate_limited",
			})
			return
		}
		ctx.Next()
	}
}

type AuthMiddleware struct {
	users service.UserInteractor
	log   *slog.Logger
}

func NewAuthMiddleware(users service.UserInteractor, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{users: users, log: log}
}

// Require resolves the bearer token to a local user and stores it on the context.
func (m *AuthMiddleware) Require() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			respondError(ctx, m.log, service.ErrUnauthenticated)
			return
		}

		user, err := m.users.Resolve(ctx.Request.Context(), token)
		if err != nil {
			respondError(ctx, m.log, err)
			return
		}

		ctx.Set(userKey, user)
		ctx.Next()
	}
}

// bearerToken reads "Authorization: Bearer <token>". Websocket handshakes
// cannot set headers from browsers, so access_token is accepted there too.
func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if strings.EqualFold(ctx.GetHeader("Upgrade"), "websocket") {
		return ctx.Query("access_token")
	}
	return ""
}

func currentUser(ctx *gin.Context) *domain.User {
	v, ok := ctx.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
