// Package server は1つの Controller を HTTP API と websocket の進捗配信で公開します。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/models"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

const shutdownTimeout = 10 * time.Second

// Server は HTTP API のハンドラと依存関係を保持します。
type Server struct {
	controller *workflow.Controller
	catalog    *models.Catalog
	registry   *workflow.Registry
	normalize  func(domain.StoryRequest) domain.StoryRequest
	engine     *gin.Engine
}

// New は AppContext から Server を組み立てるのだ。
func New(appCtx *builder.AppContext) *Server {
	return NewServer(appCtx.Controller, appCtx.Catalog, appCtx.Registry, appCtx.NormalizeRequest)
}

// NewServer は依存関係を個別に受け取って Server を作ります。normalize は nil でもよいのだ。
func NewServer(controller *workflow.Controller, catalog *models.Catalog, registry *workflow.Registry, normalize func(domain.StoryRequest) domain.StoryRequest) *Server {
	if normalize == nil {
		normalize = func(req domain.StoryRequest) domain.StoryRequest { return req }
	}
	s := &Server{
		controller: controller,
		catalog:    catalog,
		registry:   registry,
		normalize:  normalize,
	}
	s.engine = s.setupRouter()
	return s
}

// Handler は http.Handler として使えるルーターを返すのだ。
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/runs", s.submitRun)
		api.GET("/runs/current", s.currentRun)
		api.DELETE("/runs/current", s.abandonRun)
		api.GET("/models", s.listModels)
		api.GET("/backends", s.listBackends)
	}
	router.GET("/ws", s.streamEvents)
	return router
}

// ListenAndServe は ctx が終了するまで addr で待ち受け、終了時に穏やかに停止するのだ。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTPサーバーを起動します", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗しました: %w", err)
	case <-ctx.Done():
	}

	slog.Info("HTTPサーバーを停止します")
	s.controller.Abandon()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTPリクエスト",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
