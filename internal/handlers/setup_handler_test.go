package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/saaskit/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSetupHandler_Status(t *testing.T) {
	for _, complete := range []bool{true, false} {
		backend := new(MockSetupBackend)
		backend.On("IsSetupComplete").Return(complete)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.Status(w, httptest.NewRequest(http.MethodGet, "/api/setup/status", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"isComplete":%t}`, complete), w.Body.String())
	}
}

func TestSetupHandler_TestDB(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		backend := new(MockSetupBackend)
		backend.On("TestDatabase", mock.Anything, "postgres://localhost/app").Return(nil)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.TestDB(w, httptest.NewRequest(http.MethodPost, "/api/setup/test-db",
			strings.NewReader(`{"databaseUrl":"postgres://localhost/app"}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"message":"Database connection successful"}`, w.Body.String())
		backend.AssertExpectations(t)
	})

	t.Run("missing url", func(t *testing.T) {
		backend := new(MockSetupBackend)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.TestDB(w, httptest.NewRequest(http.MethodPost, "/api/setup/test-db", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "DatabaseURL")
		backend.AssertNotCalled(t, "TestDatabase", mock.Anything, mock.Anything)
	})

	t.Run("connection failure", func(t *testing.T) {
		backend := new(MockSetupBackend)
		backend.On("TestDatabase", mock.Anything, "postgres://nowhere/app").
			Return(fmt.Errorf("%w: failed to connect to database: connection refused", models.ErrExternalService))
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.TestDB(w, httptest.NewRequest(http.MethodPost, "/api/setup/test-db",
			strings.NewReader(`{"databaseUrl":"postgres://nowhere/app"}`)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "external_service_error", resp.Code)
		assert.Contains(t, resp.Error, "connection refused")
	})
}

func TestSetupHandler_Configure(t *testing.T) {
	body := `{"databaseUrl":"postgres://localhost/app","authSecret":"s3cret","appName":"Acme","primaryColor":"#ea580c","logoUrl":""}`
	cfg := models.SetupConfiguration{
		DatabaseURL:  "postgres://localhost/app",
		AuthSecret:   "s3cret",
		AppName:      "Acme",
		PrimaryColor: "#ea580c",
	}

	t.Run("saved", func(t *testing.T) {
		backend := new(MockSetupBackend)
		backend.On("Configure", mock.Anything, cfg).Return(nil)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.Configure(w, httptest.NewRequest(http.MethodPost, "/api/setup/configure", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		backend.AssertExpectations(t)
	})

	t.Run("already complete", func(t *testing.T) {
		backend := new(MockSetupBackend)
		backend.On("Configure", mock.Anything, cfg).Return(models.ErrSetupAlreadyComplete)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.Configure(w, httptest.NewRequest(http.MethodPost, "/api/setup/configure", strings.NewReader(body)))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "setup_already_complete", decodeError(t, w).Code)
	})

	t.Run("missing app name", func(t *testing.T) {
		backend := new(MockSetupBackend)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.Configure(w, httptest.NewRequest(http.MethodPost, "/api/setup/configure",
			strings.NewReader(`{"databaseUrl":"postgres://localhost/app","authSecret":"s3cret"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "AppName")
		backend.AssertNotCalled(t, "Configure", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		handler := NewSetupHandler(new(MockSetupBackend))

		w := httptest.NewRecorder()
		handler.Configure(w, httptest.NewRequest(http.MethodPost, "/api/setup/configure", strings.NewReader(`{"databaseUrl":`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, w).Error)
	})
}

func TestSetupHandler_InitDB(t *testing.T) {
	t.Run("initialized", func(t *testing.T) {
		backend := new(MockSetupBackend)
		backend.On("InitDatabase", mock.Anything).Return(nil)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.InitDB(w, httptest.NewRequest(http.MethodPost, "/api/setup/init-db", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"message":"Database initialized successfully"}`, w.Body.String())
	})

	t.Run("already complete", func(t *testing.T) {
		backend := new(MockSetupBackend)
		backend.On("InitDatabase", mock.Anything).Return(models.ErrSetupAlreadyComplete)
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.InitDB(w, httptest.NewRequest(http.MethodPost, "/api/setup/init-db", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("marker write failure", func(t *testing.T) {
		backend := new(MockSetupBackend)
		backend.On("InitDatabase", mock.Anything).Return(fmt.Errorf("%w: write setup marker: read-only file system", models.ErrStorage))
		handler := NewSetupHandler(backend)

		w := httptest.NewRecorder()
		handler.InitDB(w, httptest.NewRequest(http.MethodPost, "/api/setup/init-db", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
