package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.loggingMiddleware(), corsMiddleware(s.config.AllowedOrigins))
	router.MaxMultipartMemory = 32 << 20

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	api.GET("/health/metrics", s.handleMetrics)

	tracklists := api.Group("/tracklists")
	tracklists.POST("", s.handleAnalyze)
	tracklists.POST("/replay", s.handleReplay)

	library := api.Group("/library")
	library.GET("/songs", s.handleListSongs)
	library.POST("/songs", s.handleAddSongFile)
	library.POST("/songs/youtube", s.handleAddSongYouTube)
	library.GET("/songs/:id", s.handleGetSong)
	library.DELETE("/songs/:id", s.handleDeleteSong)
	library.POST("/match", s.handleMatchFile)
	library.POST("/match/hashes", s.handleMatchHashes)

	return router
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := allowAll
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			for _, o := range allowedOrigins {
				if o == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
					allowed = true
					break
				}
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// loggingMiddleware logs every request once it has been served.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Infof("%s %s from %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Bind,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("🚀 SetlistDNA server starting on %s", s.config.Bind)
	s.log.Infof("   Database: %s", s.config.DBPath)
	s.log.Infof("   Recognizer: %s", s.config.Provider)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Infof("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
