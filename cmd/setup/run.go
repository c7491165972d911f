package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/wizard"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive setup wizard",
	RunE:  runWizard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether setup has been completed",
	RunE: func(cmd *cobra.Command, args []string) error {
		complete, err := newBackend(cmd).Status(cmd.Context())
		if err != nil {
			return err
		}
		if complete {
			fmt.Fprintln(cmd.OutOrStdout(), "Setup is complete.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Setup has not been completed.")
		}
		return nil
	},
}

func newBackend(cmd *cobra.Command) *wizard.HTTPBackend {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return wizard.NewHTTPBackend(server, timeout)
}

func runWizard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: out}

	w := wizard.New(newBackend(cmd))
	if err := w.Start(ctx); err != nil {
		if errors.Is(err, models.ErrSetupAlreadyComplete) {
			fmt.Fprintf(out, "Setup is already complete. Continue at %s\n", w.Destination())
			return nil
		}
		return err
	}

	for !w.Done() {
		step := w.Step()
		fmt.Fprintf(out, "\n[%d/%d] %s - %s\n", int(step)+1, len(wizard.Steps()), step.Title(), step.Description())

		err := collect(p, w)
		if err == nil {
			if step == wizard.StepBranding {
				fmt.Fprintln(out, "Saving configuration and initializing the database...")
			}
			err = w.Next(ctx)
		}

		var stepErr *wizard.StepError
		switch {
		case err == nil:
		case errors.Is(err, errGoBack):
			goBack(out, w)
		case errors.As(err, &stepErr):
			fmt.Fprintln(out, "  !", stepErr.Message)
		case errors.Is(err, models.ErrSetupAlreadyComplete):
			fmt.Fprintln(out, "Setup was completed elsewhere.")
			return nil
		case errors.Is(err, errInput):
			return err
		default:
			log.Debugf("[SETUP] step %s failed: %v", step, err)
			fmt.Fprintln(out, "  !", err)
			retry, confirmErr := p.confirm("Retry?")
			if errors.Is(confirmErr, errGoBack) {
				goBack(out, w)
				continue
			}
			if !retry {
				return err
			}
		}
	}

	fmt.Fprintf(out, "\nSetup complete. Restart the server, then create your account at %s\n", w.Destination())
	return nil
}

func goBack(out io.Writer, w *wizard.Wizard) {
	if err := w.Back(); errors.Is(err, wizard.ErrAtFirstStep) {
		fmt.Fprintln(out, "  ! Already at the first step")
	}
}

var (
	// errGoBack is returned by a prompt answered with "back".
	errGoBack = errors.New("back to previous step")
	errInput  = errors.New("read input")
)

// collect asks for the inputs of the current step. Empty answers keep the current value
// and "back" returns to the previous step.
func collect(p *prompter, w *wizard.Wizard) error {
	cfg := w.Config()

	switch w.Step() {
	case wizard.StepWelcome:
		fmt.Fprintln(p.out, "This wizard configures the database, authentication and branding.")
		fmt.Fprintln(p.out, "Answer \"back\" at any prompt to return to the previous step.")
		return p.pause()
	case wizard.StepDatabase:
		url, err := p.ask("PostgreSQL connection URL", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		w.SetDatabaseURL(url)
	case wizard.StepAuth:
		own, err := p.confirm("Use your own authentication secret?")
		if err != nil {
			return err
		}
		if own {
			secret, err := p.askSecret("Authentication secret")
			if err != nil {
				return err
			}
			w.SetAuthSecret(secret)
			return nil
		}
		if _, err := w.GenerateSecret(); err != nil {
			return err
		}
		fmt.Fprintln(p.out, "  Generated a random 32-byte secret.")
	case wizard.StepBranding:
		name, err := p.ask("App name", cfg.AppName)
		if err != nil {
			return err
		}
		w.SetAppName(name)

		color, err := p.ask("Primary color", cfg.PrimaryColor)
		if err != nil {
			return err
		}
		w.SetPrimaryColor(color)

		logo, err := p.ask("Logo URL (optional)", cfg.LogoURL)
		if err != nil {
			return err
		}
		w.SetLogoURL(logo)
	}
	return nil
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(p.out, "  %s [%s]: ", label, current)
	} else {
		fmt.Fprintf(p.out, "  %s: ", label)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: %s: %w", errInput, strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "back") {
		return "", errGoBack
	}
	if line == "" {
		return current, nil
	}
	return line, nil
}

// askSecret reads without echo when stdin is a terminal.
func (p *prompter) askSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return p.ask(label, "")
	}

	fmt.Fprintf(p.out, "  %s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("%w: secret: %w", errInput, err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question+" (y/N)", "")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func (p *prompter) pause() error {
	fmt.Fprint(p.out, "  Press Enter to continue...")
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %w", errInput, err)
	}
	if strings.EqualFold(strings.TrimSpace(line), "back") {
		return errGoBack
	}
	return nil
}
