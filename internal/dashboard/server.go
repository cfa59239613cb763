package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gemini-bot/internal/logger"
	"gemini-bot/internal/utils"
)

const maxTopLimit = 50

type Server struct {
	agg     *Aggregator
	log     *logger.Logger
	allowed []netip.Prefix
	engine  *gin.Engine
}

// NewServer builds the HTTP surface. An empty allow-list leaves the
// dashboard open.
func NewServer(agg *Aggregator, log *logger.Logger, allowedCIDRs []string) (*Server, error) {
	allowed, err := utils.ParseCIDRs(allowedCIDRs)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{agg: agg, log: log, allowed: allowed}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	stats := r.Group("/")
	if len(s.allowed) > 0 {
		stats.Use(s.allowList())
	}
	stats.GET("/", s.handleStats)
	stats.GET("/api/stats", s.handleStats)
	return r
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) allowList() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.IsAllowedIP(c.ClientIP(), s.allowed) {
			s.log.Warn("dashboard access denied", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleStats(c *gin.Context) {
	limit := DefaultTopLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxTopLimit)
	}

	stats, err := s.agg.Snapshot(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("dashboard snapshot failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
