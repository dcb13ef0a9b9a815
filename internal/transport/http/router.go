// Package httptransport builds the gin engine shared by all HTTP
// services.
package httptransport

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/leechanwoo-kor/chatterbox/internal/platform/config"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

// Options configures the HTTP router builder.
type Options struct {
	Config     *config.Config
	Logger     *utils.Logger
	StaticRoot string
}

// Router bundles the gin engine and the root route group.
type Router struct {
	Engine *gin.Engine
	Root   *gin.RouterGroup
}

// Build constructs a gin engine pre-configured with logging, recovery
// and CORS middleware, plus the static demo page.
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}

	if opts.Config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(logger))

	engine.SetTrustedProxies([]string{"0.0.0.0"})

	origins := opts.Config.CORS.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Disposition",
		},
		AllowCredentials: opts.Config.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		// credentialed wildcard origins are rejected by gin-contrib/cors
		corsCfg.AllowCredentials = false
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowOrigins = nil
	}
	engine.Use(cors.New(corsCfg))

	staticRoot := opts.StaticRoot
	if staticRoot == "" {
		staticRoot = "./web"
	}
	engine.Use(static.Serve("/demo", static.LocalFile(staticRoot, true)))

	return &Router{
		Engine: engine,
		Root:   engine.Group(""),
	}, nil
}

func loggingMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		if logger != nil {
			logger.Info(
				"[HTTP] %s %s -> %d (%s)",
				c.Request.Method,
				c.Request.URL.Path,
				status,
				duration,
			)
		}
	}
}
