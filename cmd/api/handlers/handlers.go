package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"video-insight/cmd/api/dto"
	"video-insight/cmd/api/services"
	"video-insight/config"
)

// SubmitAnalysisHandler
// POST /api/v1/analyses
// 완료된 분석이 있고 force 가 아니면 200 과 레코드, 그 외에는 이벤트 발행 후 202.
func SubmitAnalysisHandler(svc *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.SubmitAnalysisRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "url is required"})
			return
		}
		res, err := svc.Submit(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		if res.Completed != nil {
			c.JSON(http.StatusOK, res.Completed)
			return
		}
		c.JSON(http.StatusAccepted, res.Accepted)
	}
}

// GetAnalysisHandler
// GET /api/v1/analyses/:id
func GetAnalysisHandler(svc *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// FindAnalysisHandler
// GET /api/v1/analyses?url=
func FindAnalysisHandler(svc *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("url")
		if raw == "" {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "url query parameter is required"})
			return
		}
		a, err := svc.GetByURL(c.Request.Context(), raw)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// RequestAudioHandler
// POST /api/v1/analyses/:id/audio
func RequestAudioHandler(svc *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.RequestAudioRequest
		// 바디는 선택 사항이다.
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid body"})
				return
			}
		}
		res, err := svc.RequestAudio(c.Request.Context(), c.Param("id"), in.Force)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, res)
	}
}

// GetAudioHandler
// GET /api/v1/analyses/:id/audio
func GetAudioHandler(svc *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.AudioURL(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "not found"})
	case errors.Is(err, services.ErrNotReady), errors.Is(err, services.ErrAudioNotReady):
		c.JSON(http.StatusConflict, dto.ErrorResponseDTO{Error: err.Error()})
	case errors.Is(err, services.ErrAudioDisabled):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponseDTO{Error: err.Error()})
	default:
		config.ErrorWithFields("request failed", config.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "internal error"})
	}
}
