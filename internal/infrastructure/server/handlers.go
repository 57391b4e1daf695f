package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/shared/id"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// callRequest is the wire form of one inbound extension API call
type callRequest struct {
	Method string      `json:"method" binding:"required"`
	Args   jsonv.Array `json:"args"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "extbridge",
		"status":  "running",
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"extensions": len(s.extensions.All()),
	})
}

func (s *Server) listNamespaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"namespaces": s.bridge.List()})
}

func (s *Server) loadExtension(c *gin.Context) {
	manifest, err := io.ReadAll(c.Request.Body)
	if err != nil || len(manifest) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing manifest body"})
		return
	}

	ext, err := s.extensions.Load(manifest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"guid":        ext.GUID,
		"name":        ext.Name,
		"version":     ext.Version,
		"permissions": ext.Permissions,
	})
}

func (s *Server) listExtensions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"extensions": s.extensions.All()})
}

func (s *Server) unloadExtension(c *gin.Context) {
	guid := c.Param("guid")
	if err := s.extensions.Unload(guid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unloaded": guid})
}

// call dispatches one extension API call and waits for its task. The
// dispatch context is the extension's lifetime context, so an unload
// mid-call resolves the task with a cancelled error rather than hanging.
func (s *Server) call(c *gin.Context) {
	guid := c.Param("guid")
	ext, ok := s.extensions.Get(guid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "extension not loaded"})
		return
	}

	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqID := id.NewRequestID()
	s.logger.Debug("dispatching call",
		zap.String("request_id", reqID.String()),
		zap.String("extension", guid),
		zap.String("method", req.Method),
	)

	task := s.bridge.Dispatch(s.extensions.Context(guid), &types.Sender{Extension: ext}, req.Method, req.Args)
	result, err := task.Result(c.Request.Context())
	if err != nil {
		// The HTTP client went away before the task resolved.
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		return
	}

	if result.Error != nil {
		c.JSON(statusFor(result.Error.Kind), gin.H{
			"id":    reqID,
			"error": result.Error,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":   reqID,
		"data": result.Data,
	})
}

func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.ErrInvalidArgument:
		return http.StatusBadRequest
	case types.ErrPermissionDenied:
		return http.StatusForbidden
	case types.ErrNotImplemented:
		return http.StatusNotImplemented
	case types.ErrCancelled:
		return http.StatusGone
	default:
		return http.StatusBadGateway
	}
}

// pressAccelerator simulates a global keystroke on the accelerator host
func (s *Server) pressAccelerator(c *gin.Context) {
	var req struct {
		Accelerator string `json:"accelerator" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activated": s.accelHost.Press(req.Accelerator)})
}

// clickNotification simulates a user activation on a live notification.
// The id is the surface identifier, guid::localId.
func (s *Server) clickNotification(c *gin.Context) {
	var req struct {
		ID          string `json:"id" binding:"required"`
		ButtonIndex *int   `json:"buttonIndex"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	index := -1
	if req.ButtonIndex != nil {
		index = *req.ButtonIndex
	}
	c.JSON(http.StatusOK, gin.H{"delivered": s.surface.Click(req.ID, index)})
}
