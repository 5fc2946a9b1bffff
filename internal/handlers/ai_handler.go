package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/services"
)

// Multipart framing allowance on top of the resume size limit.
const uploadOverhead = 64 << 10

type AIHandler struct {
	AIService     *services.AIService
	ResumeService *services.ResumeService
}

func NewAIHandler(ai *services.AIService, resumes *services.ResumeService) *AIHandler {
	return &AIHandler{AIService: ai, ResumeService: resumes}
}

func (h *AIHandler) Match(c *gin.Context) {
	var req dtos.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.AIService.Match(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) Coach(c *gin.Context) {
	var req dtos.CoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reply, err := h.AIService.Coach(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.CoachResponse{Reply: reply})
}

// UploadResume accepts a multipart "file" field or a raw text body.
func (h *AIHandler) UploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxResumeBytes+uploadOverhead)

	data, err := readUpload(c)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "resume is too large"})
			return
		}
		badRequest(c, err)
		return
	}
	resp, err := h.ResumeService.Upload(c.Request.Context(), currentUser(c), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func readUpload(c *gin.Context) ([]byte, error) {
	limit := int64(services.MaxResumeBytes + 1)
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return io.ReadAll(io.LimitReader(c.Request.Body, limit))
	}
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errors.New("no resume uploaded")
		}
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}
