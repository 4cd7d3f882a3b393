// Package http assembles the gin engine serving the GraphQL API, stored
// files and health checks.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	appidentity "github.com/mediavault/backend/internal/application/identity"
	"github.com/mediavault/backend/internal/infrastructure/config"
	"github.com/mediavault/backend/internal/infrastructure/logger"
	"github.com/mediavault/backend/internal/infrastructure/persistence"
	gqlapi "github.com/mediavault/backend/internal/interfaces/graphql"
	"github.com/mediavault/backend/internal/interfaces/http/middleware"
)

// RouterConfig bundles the dependencies the HTTP layer wires together.
type RouterConfig struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *persistence.Database
	AuthService *appidentity.AuthService
	Schema      graphql.Schema
}

// NewRouter builds the gin engine with the full middleware stack:
// request ID, panic recovery, request logging, CORS, body limit and
// principal extraction, then mounts /graphql, /storage and /healthz.
func NewRouter(rc RouterConfig) *gin.Engine {
	cfg := rc.Config

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			rc.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(rc.Logger))
	engine.Use(logger.GinMiddleware(rc.Logger))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Principal(rc.AuthService, rc.Logger))

	engine.POST("/graphql", gqlapi.Handler(rc.Schema))

	// Stored originals, thumbnails and avatars are served directly.
	engine.Static("/storage", cfg.Storage.Root)

	engine.GET("/healthz", healthHandler(rc.DB))

	if !cfg.IsProduction() {
		engine.GET("/playground", playgroundHandler())
	}

	return engine
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := db.Ping(); err != nil {
				logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":   "unhealthy",
					"time":     time.Now().Format(time.RFC3339),
					"database": "error",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}

// playgroundHandler serves a minimal GraphiQL page pointed at /graphql.
func playgroundHandler() gin.HandlerFunc {
	const page = `<!DOCTYPE html>
<html>
<head>
  <title>MediaVault GraphiQL</title>
  <link rel="stylesheet" href="https://unpkg.com/graphiql/graphiql.min.css" />
</head>
<body style="margin:0">
  <div id="graphiql" style="height:100vh"></div>
  <script crossorigin src="https://unpkg.com/react/umd/react.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/react-dom/umd/react-dom.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/graphiql/graphiql.min.js"></script>
  <script>
    ReactDOM.render(
      React.createElement(GraphiQL, { fetcher: GraphiQL.createFetcher({ url: '/graphql' }) }),
      document.getElementById('graphiql'),
    );
  </script>
</body>
</html>`
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	}
}
