package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saaskit/backend/internal/audit"
	"github.com/saaskit/backend/internal/config"
	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/observability"
	log "github.com/sirupsen/logrus"
)

// ConnectivityTester checks that a connection string reaches a live database.
type ConnectivityTester interface {
	TestConnection(ctx context.Context, databaseURL string) error
}

// SchemaPusher creates the application tables in the database at databaseURL.
type SchemaPusher interface {
	Push(ctx context.Context, databaseURL string) error
}

// SetupService backs the first-run wizard endpoints.
type SetupService struct {
	state   *config.SetupState
	tester  ConnectivityTester
	schema  SchemaPusher
	audit   *audit.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewSetupService(state *config.SetupState, tester ConnectivityTester, schema SchemaPusher, auditLogger *audit.Logger, metrics *observability.Metrics) *SetupService {
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil)
	}
	return &SetupService{
		state:   state,
		tester:  tester,
		schema:  schema,
		audit:   auditLogger,
		metrics: metrics,
		now:     time.Now,
	}
}

// IsSetupComplete is true only when the marker exists and both the database URL and the
// auth secret are configured.
func (s *SetupService) IsSetupComplete() bool {
	if s.state == nil {
		return false
	}
	if !s.state.HasMarker() {
		return false
	}
	return s.state.DatabaseURL() != "" && s.state.AuthSecret() != ""
}

// TestDatabase verifies that databaseURL can be connected to and queried.
func (s *SetupService) TestDatabase(ctx context.Context, databaseURL string) error {
	if err := s.tester.TestConnection(ctx, databaseURL); err != nil {
		log.Printf("[SETUP] Database connection test failed: %v", err)
		s.metrics.RecordSetup("test_db", "error")
		s.audit.LogSetup("test_db", "FAILED", err.Error())
		return fmt.Errorf("%w: failed to connect to database: %w", models.ErrExternalService, err)
	}

	s.metrics.RecordSetup("test_db", "ok")
	s.audit.LogSetup("test_db", "SUCCESS", "")
	return nil
}

// Configure persists the wizard values and reloads the setup state.
func (s *SetupService) Configure(ctx context.Context, cfg models.SetupConfiguration) error {
	if s.IsSetupComplete() {
		s.metrics.RecordSetup("configure", "conflict")
		return models.ErrSetupAlreadyComplete
	}

	if err := s.state.Persist(cfg); err != nil {
		log.Printf("[SETUP] Failed to persist configuration: %v", err)
		s.metrics.RecordSetup("configure", "error")
		s.audit.LogSetup("configure", "FAILED", err.Error())
		if errors.Is(err, models.ErrInvalidConfiguration) {
			return err
		}
		return fmt.Errorf("%w: persist configuration: %w", models.ErrStorage, err)
	}

	log.Printf("[SETUP] Configuration saved for %q", cfg.AppName)
	s.metrics.RecordSetup("configure", "ok")
	s.audit.LogSetup("configure", "SUCCESS", cfg.AppName)
	return nil
}

// InitDatabase pushes the schema and writes the completion marker. A failed schema push
// is logged and does not stop the marker from being written.
func (s *SetupService) InitDatabase(ctx context.Context) error {
	if s.IsSetupComplete() {
		s.metrics.RecordSetup("init_db", "conflict")
		return models.ErrSetupAlreadyComplete
	}

	if databaseURL := s.state.DatabaseURL(); databaseURL == "" {
		log.Warnf("[SETUP] No database URL configured, skipping schema push")
	} else if err := s.schema.Push(ctx, databaseURL); err != nil {
		log.Warnf("[SETUP] Schema push failed, continuing: %v", err)
		s.audit.LogSetup("schema_push", "FAILED", err.Error())
	}

	if err := s.state.MarkComplete(s.now()); err != nil {
		log.Printf("[SETUP] Failed to write setup marker: %v", err)
		s.metrics.RecordSetup("init_db", "error")
		s.audit.LogSetup("init_db", "FAILED", err.Error())
		return fmt.Errorf("%w: %w", models.ErrStorage, err)
	}

	log.Printf("[SETUP] Setup marked complete at %s", s.state.MarkerPath())
	s.metrics.RecordSetup("init_db", "ok")
	s.audit.LogSetup("init_db", "SUCCESS", s.state.MarkerPath())
	return nil
}
