package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

type errorResponse struct {
	Error string              `json:"error"`
	Class provider.ErrorClass `json:"class,omitempty"`
}

func (s *Server) submitRun(c *gin.Context) {
	var req domain.StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "リクエストのJSONが不正なのだ: " + err.Error(), Class: provider.ClassPrecondition})
		return
	}

	runID, err := s.controller.Submit(c.Request.Context(), s.normalize(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

func (s *Server) currentRun(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Snapshot())
}

func (s *Server) abandonRun(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"abandoned": s.controller.Abandon()})
}

func (s *Server) listModels(c *gin.Context) {
	req := s.normalize(domain.StoryRequest{})
	kind := provider.ModelKind(c.DefaultQuery("kind", string(provider.KindText)))

	var backend string
	switch kind {
	case provider.KindText:
		backend = c.DefaultQuery("backend", req.TextBackend)
	case provider.KindImage:
		backend = c.DefaultQuery("backend", req.ImageBackend)
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "kind は text か image を指定してほしいのだ", Class: provider.ClassPrecondition})
		return
	}

	list, err := s.catalog.List(c.Request.Context(), backend, kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backend": backend, "kind": kind, "models": list})
}

func (s *Server) listBackends(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"text":  s.registry.TextBackends(),
		"image": s.registry.ImageBackends(),
	})
}

// writeError はエラーの分類に応じたステータスコードで応答するのだ。
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	class := provider.ClassOf(err)
	var runErr *workflow.RunError
	if errors.As(err, &runErr) {
		class = runErr.Class
	}

	switch {
	case errors.Is(err, workflow.ErrRunInProgress):
		status = http.StatusConflict
	case class == provider.ClassPrecondition:
		status = http.StatusBadRequest
	case class == provider.ClassAuth:
		status = http.StatusUnauthorized
	case class == provider.ClassTransient:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, errorResponse{Error: provider.UserMessage(err), Class: class})
}
