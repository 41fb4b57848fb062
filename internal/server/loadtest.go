package server

import (
	_ "embed"
	"errors"
	"net/http"
	"strconv"

	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/gin-gonic/gin"
)

//go:embed ui/loadtest.html
var loadTestHTML []byte

// ControlResponse is the body of the start and stop endpoints
type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *Server) startLoadTest(ctx *gin.Context) {
	rps, err := strconv.Atoi(ctx.Query("rps"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ControlResponse{Message: "rps must be an integer"})
		return
	}

	if err := s.controller.Start(rps); err != nil {
		switch {
		case errors.Is(err, loadtest.ErrInvalidRate):
			ctx.JSON(http.StatusBadRequest, ControlResponse{Message: err.Error()})
		case errors.Is(err, loadtest.ErrAlreadyRunning):
			ctx.JSON(http.StatusOK, ControlResponse{Message: err.Error()})
		case errors.Is(err, loadtest.ErrClosed):
			ctx.JSON(http.StatusServiceUnavailable, ControlResponse{Message: err.Error()})
		default:
			ctx.Error(err)
			ctx.JSON(http.StatusInternalServerError, ControlResponse{Message: err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, ControlResponse{Success: true})
}

func (s *Server) stopLoadTest(ctx *gin.Context) {
	if err := s.controller.Stop(); err != nil {
		if errors.Is(err, loadtest.ErrNotRunning) {
			ctx.JSON(http.StatusOK, ControlResponse{Message: err.Error()})
			return
		}
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, ControlResponse{Message: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, ControlResponse{Success: true})
}

func (s *Server) loadTestStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.controller.Snapshot())
}

func (s *Server) loadTestPage(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", loadTestHTML)
}
