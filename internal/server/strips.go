package server

import (
	"errors"
	"net/http"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/alkime/jackmixer/pkg/collections"
	"github.com/gin-gonic/gin"
)

type gainRequest struct {
	Percent *int `json:"percent" binding:"required"`
}

type channelsRequest struct {
	Count *int `json:"count" binding:"required"`
}

type stripResponse struct {
	mixer.StripInfo
	GainPercent int `json:"gainPercent"`
}

func (s *Server) handleListStrips(c *gin.Context) {
	resp, err := s.mixer.Submit(c.Request.Context(), mixer.GetState{})
	if err != nil {
		s.abort(c, err)
		return
	}

	infos, err := mixer.ParseState(resp.State)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"strips": collections.Apply(infos, func(info mixer.StripInfo) stripResponse {
		return stripResponse{StripInfo: info, GainPercent: info.GainPercent()}
	})})
}

func (s *Server) handleAddStrip(c *gin.Context) {
	s.submit(c, http.StatusCreated, mixer.AddStrip{Name: c.Param("name")})
}

func (s *Server) handleRemoveStrip(c *gin.Context) {
	s.submit(c, http.StatusNoContent, mixer.RemoveStrip{Name: c.Param("name")})
}

func (s *Server) handleSetGain(c *gin.Context) {
	var req gainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	factor, err := mixer.GainFromPercent(*req.Percent)
	if err != nil {
		s.abort(c, err)
		return
	}

	s.submit(c, http.StatusNoContent, mixer.SetGainFactor{Name: c.Param("name"), Factor: factor})
}

func (s *Server) handleSetChannels(c *gin.Context) {
	var req channelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.submit(c, http.StatusNoContent, mixer.SetChannels{Name: c.Param("name"), Count: *req.Count})
}

func (s *Server) submit(c *gin.Context, status int, cmd mixer.Command) {
	if _, err := s.mixer.Submit(c.Request.Context(), cmd); err != nil {
		s.abort(c, err)
		return
	}

	c.Status(status)
}

func (s *Server) abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		unknown *mixer.UnknownStripError
		exists  *mixer.AlreadyExistsError
	)

	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.As(err, &exists):
		return http.StatusConflict
	case errors.Is(err, mixer.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
