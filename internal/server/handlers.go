package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reeveops/reeve/internal/history"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := s.opts.Auth.Login(req.Username, req.Password)
	if err != nil {
		s.log.WithFields(map[string]any{"user": req.Username}).Warn("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(s.opts.Auth.Lifetime().Seconds()),
	})
}

type submitJobRequest struct {
	DryRun bool `json:"dry_run"`
}

func (s *Server) handleSubmitJob(c *gin.Context) {
	var req submitJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	jid, err := s.opts.Runner.Launch(c.Request.Context(), req.DryRun)
	if err != nil {
		s.log.Error(err, "job launch failed")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	s.log.WithFields(map[string]any{"jid": jid, "dry_run": req.DryRun, "user": c.GetString("user")}).Info("job launched")
	c.JSON(http.StatusAccepted, gin.H{"jid": jid, "plan": s.planName(), "dry_run": req.DryRun})
}

func (s *Server) handleListJobs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	records, err := s.opts.History.List(limit)
	if err != nil {
		s.log.Error(err, "history list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}

	jobs := make([]gin.H, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, gin.H{
			"jid":          rec.JID,
			"plan":         rec.Plan,
			"dry_run":      rec.DryRun,
			"started_at":   rec.StartedAt,
			"satisfied":    rec.Satisfied,
			"changed":      rec.Changed,
			"would_change": rec.WouldChange,
			"failed":       rec.Failed,
			"skipped":      rec.Skipped,
		})
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetJob(c *gin.Context) {
	jid := c.Param("jid")

	rec, err := s.opts.History.Get(jid)
	if err != nil {
		var notFound history.ErrRecordNotFound
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such job"})
			return
		}
		var corrupt history.ErrRecordCorrupt
		if errors.As(err, &corrupt) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": corrupt.Error()})
			return
		}
		s.log.Error(err, "history read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "plan": s.planName()})
}
