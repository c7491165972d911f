// Package wizard drives the first-run setup flow independently of how it is rendered.
//
// The flow is a fixed sequence of steps. Each step has an exit guard, and the branding
// step persists the configuration and initializes the database on its way out:
//
//	welcome -> database -> auth -> branding -> complete
package wizard

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/saaskit/backend/internal/models"
)

// Step is a position in the setup flow.
type Step int

const (
	StepWelcome Step = iota
	StepDatabase
	StepAuth
	StepBranding
	StepComplete
)

const (
	DefaultAppName      = "My SaaS"
	DefaultPrimaryColor = "#ea580c"

	// DestinationSignup is where the operator goes after finishing setup.
	DestinationSignup = "/auth/signup"
	// DestinationHome is where the operator goes when setup had already been done.
	DestinationHome = "/"

	secretBytes = 32
)

var (
	ErrAtFirstStep = errors.New("already at the first step")
	ErrFinished    = errors.New("setup wizard has finished")
	ErrNotStarted  = errors.New("setup wizard has not been started")
)

var stepInfo = map[Step]struct{ id, title, description string }{
	StepWelcome:  {"welcome", "Welcome", "Welcome to your SaaS setup"},
	StepDatabase: {"database", "Database", "Configure your database connection"},
	StepAuth:     {"auth", "Authentication", "Setup authentication secrets"},
	StepBranding: {"branding", "Branding", "Customize your SaaS appearance"},
	StepComplete: {"complete", "Complete", "Finalize your setup"},
}

// Steps lists every step in order.
func Steps() []Step {
	return []Step{StepWelcome, StepDatabase, StepAuth, StepBranding, StepComplete}
}

func (s Step) String() string {
	if info, ok := stepInfo[s]; ok {
		return info.id
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Title() string       { return stepInfo[s].title }
func (s Step) Description() string { return stepInfo[s].description }

// StepError is a guard failure. The wizard stays on Step.
type StepError struct {
	Step    Step
	Field   string
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

// Backend performs the remote side effects of the flow.
type Backend interface {
	Status(ctx context.Context) (bool, error)
	TestDatabase(ctx context.Context, databaseURL string) error
	Configure(ctx context.Context, cfg models.SetupConfiguration) error
	InitDatabase(ctx context.Context) error
}

// Wizard holds the operator's answers and the current step. It is not safe for
// concurrent use.
type Wizard struct {
	backend Backend
	step    Step
	config  models.SetupConfiguration

	started         bool
	alreadyComplete bool
}

func New(backend Backend) *Wizard {
	return &Wizard{
		backend: backend,
		step:    StepWelcome,
		config: models.SetupConfiguration{
			AppName:      DefaultAppName,
			PrimaryColor: DefaultPrimaryColor,
		},
	}
}

// Start asks the backend whether setup already happened. When it has, the wizard is
// closed and every later transition returns models.ErrSetupAlreadyComplete.
func (w *Wizard) Start(ctx context.Context) error {
	complete, err := w.backend.Status(ctx)
	if err != nil {
		return fmt.Errorf("%w: check setup status: %w", models.ErrExternalService, err)
	}
	w.started = true
	if complete {
		w.alreadyComplete = true
		return models.ErrSetupAlreadyComplete
	}
	return nil
}

func (w *Wizard) Step() Step { return w.step }

// Config returns a copy of the values collected so far.
func (w *Wizard) Config() models.SetupConfiguration { return w.config }

func (w *Wizard) SetDatabaseURL(url string)   { w.config.DatabaseURL = strings.TrimSpace(url) }
func (w *Wizard) SetAuthSecret(secret string) { w.config.AuthSecret = strings.TrimSpace(secret) }
func (w *Wizard) SetAppName(name string)      { w.config.AppName = strings.TrimSpace(name) }
func (w *Wizard) SetPrimaryColor(c string)    { w.config.PrimaryColor = strings.TrimSpace(c) }
func (w *Wizard) SetLogoURL(url string)       { w.config.LogoURL = strings.TrimSpace(url) }

// GenerateSecret fills the auth secret with 32 random bytes, base64 encoded. The operator
// may still overwrite it.
func (w *Wizard) GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	secret := base64.StdEncoding.EncodeToString(buf)
	w.config.AuthSecret = secret
	return secret, nil
}

// Next checks the current step's guard, runs its side effects and advances. On any
// error the step is unchanged and the operator may retry.
func (w *Wizard) Next(ctx context.Context) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	switch w.step {
	case StepWelcome:
	case StepDatabase:
		if w.config.DatabaseURL == "" {
			return &StepError{Step: w.step, Field: "databaseUrl", Message: "Please enter a database URL"}
		}
		if err := w.backend.TestDatabase(ctx, w.config.DatabaseURL); err != nil {
			return remoteErr("database connection failed", err)
		}
	case StepAuth:
		if w.config.AuthSecret == "" {
			return &StepError{Step: w.step, Field: "authSecret", Message: "Please generate an authentication secret"}
		}
	case StepBranding:
		if w.config.AppName == "" {
			return &StepError{Step: w.step, Field: "appName", Message: "Please enter an app name"}
		}
		if err := w.backend.Configure(ctx, w.config); err != nil {
			return remoteErr("failed to save configuration", err)
		}
		if err := w.backend.InitDatabase(ctx); err != nil {
			return remoteErr("failed to initialize database", err)
		}
	}

	w.step++
	return nil
}

// Back returns to the previous step. It is not allowed on the first step or once the
// flow has completed.
func (w *Wizard) Back() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if w.step == StepWelcome {
		return ErrAtFirstStep
	}
	w.step--
	return nil
}

// Done reports whether the flow reached the complete step or setup had already been done.
func (w *Wizard) Done() bool {
	return w.alreadyComplete || w.step == StepComplete
}

// Destination is where to send the operator once the wizard is done, or "" while it is
// still running.
func (w *Wizard) Destination() string {
	switch {
	case w.alreadyComplete:
		return DestinationHome
	case w.step == StepComplete:
		return DestinationSignup
	default:
		return ""
	}
}

func (w *Wizard) checkOpen() error {
	switch {
	case !w.started:
		return ErrNotStarted
	case w.alreadyComplete:
		return models.ErrSetupAlreadyComplete
	case w.step == StepComplete:
		return ErrFinished
	}
	return nil
}

func remoteErr(msg string, err error) error {
	if errors.Is(err, models.ErrExternalService) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrExternalService, msg, err)
}
