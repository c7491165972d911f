package wizard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSetupServer(t *testing.T, configure http.HandlerFunc) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Route("/api/setup", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]bool{"isComplete": false})
		})
		r.Post("/test-db", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				DatabaseURL string `json:"databaseUrl"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.DatabaseURL != "postgres://localhost/app" {
				services.WriteError(w, models.ErrExternalService)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		})
		r.Post("/configure", configure)
		r.Post("/init-db", func(w http.ResponseWriter, r *http.Request) {
			services.WriteError(w, models.ErrSetupAlreadyComplete)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPBackend(t *testing.T) {
	var received models.SetupConfiguration
	srv := newSetupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		if received.AppName == "" {
			services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest,
				services.NewValidationHelper().ValidateStruct(&received))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	backend := NewHTTPBackend(srv.URL+"/api/", time.Second)

	t.Run("status", func(t *testing.T) {
		complete, err := backend.Status(t.Context())
		require.NoError(t, err)
		assert.False(t, complete)
	})

	t.Run("test database", func(t *testing.T) {
		assert.NoError(t, backend.TestDatabase(t.Context(), "postgres://localhost/app"))

		err := backend.TestDatabase(t.Context(), "postgres://nowhere/app")
		assert.ErrorIs(t, err, models.ErrExternalService)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("configure sends the whole configuration", func(t *testing.T) {
		cfg := models.SetupConfiguration{
			DatabaseURL:  "postgres://localhost/app",
			AuthSecret:   "s3cret",
			AppName:      "Acme",
			PrimaryColor: "#ea580c",
		}
		require.NoError(t, backend.Configure(t.Context(), cfg))
		assert.Equal(t, cfg, received)
	})

	t.Run("validation details are surfaced", func(t *testing.T) {
		err := backend.Configure(t.Context(), models.SetupConfiguration{})
		assert.ErrorIs(t, err, models.ErrExternalService)
		assert.Contains(t, err.Error(), "Validation failed")
		assert.Contains(t, err.Error(), "AppName")
	})

	t.Run("conflict maps to already complete", func(t *testing.T) {
		err := backend.InitDatabase(t.Context())
		assert.ErrorIs(t, err, models.ErrSetupAlreadyComplete)
	})

	t.Run("unreachable server", func(t *testing.T) {
		down := NewHTTPBackend("http://127.0.0.1:1/api", 100*time.Millisecond)
		_, err := down.Status(t.Context())
		assert.ErrorIs(t, err, models.ErrExternalService)
	})
}

func TestWizard_WithHTTPBackend(t *testing.T) {
	srv := newSetupServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	w := New(NewHTTPBackend(srv.URL+"/api", time.Second))

	require.NoError(t, w.Start(t.Context()))
	require.NoError(t, w.Next(t.Context()))

	w.SetDatabaseURL("postgres://localhost/app")
	require.NoError(t, w.Next(t.Context()))
	_, err := w.GenerateSecret()
	require.NoError(t, err)
	require.NoError(t, w.Next(t.Context()))

	// the server reports setup as already done when init-db runs
	err = w.Next(t.Context())
	assert.ErrorIs(t, err, models.ErrSetupAlreadyComplete)
	assert.Equal(t, StepBranding, w.Step())
}
