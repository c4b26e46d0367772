package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/identity"
)

const (
	callerKey       = "caller_id"
	requestIDHeader = "X-Request-ID"
)

// Authenticator resolves a bearer token to the caller's user id.
type Authenticator interface {
	UserID(token string) (uint64, error)
}

// NewRouter builds the gin engine. /health is public; everything the
// registrars mount requires a bearer token.
func NewRouter(log *slog.Logger, auth Authenticator, registrars ...RouteRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			log.Error("panic in handler", "path", c.Request.URL.Path, "panic", recovered)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}),
		RequestLogger(log),
		gzip.Gzip(gzip.DefaultCompression),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/", Authenticate(auth))
	for _, reg := range registrars {
		reg.RegisterRoutes(api)
	}
	return r
}

// NewHTTPHandler puts the socket.io endpoint (if any) beside the REST
// router and wraps both in CORS.
func NewHTTPHandler(router http.Handler, socket http.Handler, origins []string) http.Handler {
	mux := http.NewServeMux()
	if socket != nil {
		mux.Handle("/socket.io/", socket)
	}
	mux.Handle("/", router)

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		AllowCredentials: true,
	}).Handler(mux)
}

// RequestLogger tags each request with an id and logs it once done.
// Errors attached with c.Error are logged with it.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		c.Next()

		attrs := []any{
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if id, ok := c.Get(callerKey); ok {
			attrs = append(attrs, "user_id", id)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request failed", append(attrs, "err", c.Errors.String())...)
		case len(c.Errors) > 0:
			log.Debug("request rejected", append(attrs, "err", c.Errors.String())...)
		default:
			log.Debug("request", attrs...)
		}
	}
}

// Authenticate requires "Authorization: Bearer <token>" and stores the
// caller's id for CallerID.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := identity.BearerToken(c.GetHeader("Authorization"))
		userID, err := auth.UserID(token)
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(callerKey, userID)
		c.Next()
	}
}

// CallerID is the authenticated user of the request.
func CallerID(c *gin.Context) uint64 {
	return c.GetUint64(callerKey)
}

// Fail aborts the request with the HTTP form of err.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	code, msg := svcErr.HTTPStatus(err)
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

// PathID parses a positive numeric path parameter.
func PathID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(name + " must be a positive integer")
	}
	return id, nil
}
