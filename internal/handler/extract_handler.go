package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freightx/internal/domain"
	"freightx/internal/genconfig"
	"freightx/internal/service"
)

// ExtractResponse is the success body of an extraction.
type ExtractResponse struct {
	Result     string            `json:"result"`
	Provider   domain.ProviderID `json:"provider"`
	Model      string            `json:"model"`
	DurationMS int64             `json:"duration_ms"`
}

// ExtractHandler handles document extraction endpoints.
type ExtractHandler struct {
	extractionService service.ExtractionService
	maxFileSize       int64
	logger            *zap.Logger
}

// NewExtractHandler creates a new ExtractHandler. maxFileSize is in bytes.
func NewExtractHandler(extractionService service.ExtractionService, maxFileSize int64, logger *zap.Logger) *ExtractHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractHandler{extractionService: extractionService, maxFileSize: maxFileSize, logger: logger}
}

// Extract handles POST /api/extract and POST /api/v1/extract.
// Multipart fields: file (required), systemPrompt, userPrompt, config (JSON object), provider.
func (h *ExtractHandler) Extract(c *gin.Context) {
	if h.maxFileSize > 0 {
		// leave room for the text fields and multipart framing
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+1<<20)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleError(c, h.logger, fmt.Errorf("%w: limit is %d bytes", domain.ErrDocumentTooLarge, h.maxFileSize))
			return
		}
		HandleError(c, h.logger, fmt.Errorf("%w: file field is required", domain.ErrMissingDocument))
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		HandleError(c, h.logger, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrDocumentTooLarge, header.Filename, header.Size, h.maxFileSize))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		HandleError(c, h.logger, fmt.Errorf("%w: reading upload: %v", domain.ErrMissingDocument, err))
		return
	}

	cfg, err := genconfig.Parse([]byte(c.PostForm("config")))
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	input := service.ExtractionInput{
		Document: domain.Document{
			Filename: header.Filename,
			Content:  content,
		},
		SystemInstruction: c.PostForm("systemPrompt"),
		UserInstruction:   c.PostForm("userPrompt"),
		Provider:          domain.ProviderID(c.PostForm("provider")),
		Config:            cfg,
	}

	result, err := h.extractionService.Extract(c.Request.Context(), input)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{
		Result:     result.Text,
		Provider:   result.Provider,
		Model:      result.Model,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// Providers handles GET /api/v1/providers.
func (h *ExtractHandler) Providers(c *gin.Context) {
	RespondOK(c, h.extractionService.Providers(c.Request.Context()))
}
