package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/handler"
	"freightx/internal/metrics"
	"freightx/internal/router"
	"freightx/internal/service"
	"freightx/mocks"
)

func setup(t *testing.T) (*gin.Engine, *mocks.MockExtractionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{}
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}

	mockSvc := new(mocks.MockExtractionService)
	logger := zap.NewNop()
	r := router.Setup(ctx, cfg, metrics.New(), logger,
		handler.NewExtractHandler(mockSvc, 1<<20, logger),
		handler.NewHealthHandler(mockSvc))
	return r, mockSvc
}

func TestRouter_Routes(t *testing.T) {
	r, mockSvc := setup(t)
	mockSvc.On("Ready", mock.Anything).Return(true)
	mockSvc.On("Providers", mock.Anything).Return([]service.ProviderStatus{
		{Name: domain.ProviderGoogle, IngestionMode: domain.IngestionFileReference, DefaultModel: "gemini-2.0-flash"},
	})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/providers", http.StatusOK},
		// no multipart body: the handler is reached and rejects the request
		{http.MethodPost, "/api/extract", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/extract", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, tt.path, http.NoBody)
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
	mockSvc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRouter_CORSPreflight(t *testing.T) {
	r, _ := setup(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/api/extract", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
