package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/session"
	"github.com/vk/calcgrid/internal/snapshot"
)

type openRequest struct {
	Calculator string            `json:"calculator" binding:"required"`
	Values     map[string]string `json:"values"`
}

type editRequest struct {
	// Value is parsed in the variable's active display unit.
	Value string `json:"value"`
}

type unitRequest struct {
	Unit string `json:"unit" binding:"required"`
}

type selectRequest struct {
	Output string `json:"output" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(s.sessions.List())})
}

func (s *Server) listCalculators(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Search(c.Query("search")))
}

func (s *Server) listSessions(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, sess := range s.sessions.List() {
		out = append(out, gin.H{"id": sess.ID().String(), "calculator": sess.Calculator(), "created": sess.Created()})
	}
	c.JSON(http.StatusOK, out)
}

// snapshotSessions returns every open session as a TOML snapshot document.
func (s *Server) snapshotSessions(c *gin.Context) {
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, time.Now(), s.sessions.Snapshots()...); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/toml", buf.Bytes())
}

func (s *Server) openSession(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if _, ok := s.registry.Get(req.Calculator); !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown calculator %q", req.Calculator)})
		return
	}
	sess, err := s.sessions.Open(s.ctx, req.Calculator, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	for name, val := range req.Values {
		if err := sess.Edit(s.ctx, name, val); err != nil {
			_ = s.sessions.Close(s.ctx, sess.ID().String())
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, sess.State())
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

func (s *Server) closeSession(c *gin.Context) {
	if err := s.sessions.Close(s.ctx, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	s.limiter.forget(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) editVariable(c *gin.Context) {
	sess, ok := s.editable(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := sess.Edit(s.ctx, c.Param("name"), req.Value); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

func (s *Server) setUnit(c *gin.Context) {
	sess, ok := s.editable(c)
	if !ok {
		return
	}
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := sess.SetUnit(c.Param("name"), req.Unit); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

func (s *Server) selectOutput(c *gin.Context) {
	sess, ok := s.editable(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := sess.SelectOutput(s.ctx, c.Param("group"), req.Output); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

// editable is session plus the edit rate limit.
func (s *Server) editable(c *gin.Context) (*session.Session, bool) {
	sess, err := s.lookupForEdit(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return sess, true
}

// fail maps engine errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, calc.ErrUnknownVariable),
		errors.Is(err, calc.ErrUnknownGroup):
		status = http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, calc.ErrInvalidMutation):
		status = http.StatusConflict
	case errors.Is(err, calc.ErrNonConvergence),
		errors.Is(err, calc.ErrDirectionConflict):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		ctxlog.FromContext(s.ctx).Error("Request failed.", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
