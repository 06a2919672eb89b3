// Package cli implements rentalctl, a terminal front end that drives a
// booking session against the API.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/client"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/session"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	APIURL   string
	Token    string
	Currency string
	Format   string // "json" | "text"
	Verbose  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Connector builds the authority for one invocation and reports who the token
// belongs to.
type Connector func(apiURL, token string) (session.Authority, domain.Actor, error)

func connectHTTP(apiURL, token string) (session.Authority, domain.Actor, error) {
	c, err := client.New(apiURL, token)
	if err != nil {
		return nil, domain.Actor{}, err
	}
	return c, c.Actor(), nil
}

// NewRootCommand creates the rentalctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(connectHTTP)
}

func newRootCommand(connect Connector) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rentalctl",
		Short: "Follow and act on car rental bookings",
		Long: `rentalctl shows a booking as your role sees it, counts down the owner
response and payment deadlines, and performs the actions you are allowed to.

The API URL and token default to RENTAL_API_URL and RENTAL_TOKEN.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", envOr("RENTAL_API_URL", "http://localhost:8080"), "booking API base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("RENTAL_TOKEN"), "bearer token")
	cmd.PersistentFlags().StringVar(&opts.Currency, "currency", envOr("RENTAL_CURRENCY", string(currency.Canonical)), "display currency for clients (MAD|USD|EUR)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	env := &env{opts: opts, connect: connect}
	cmd.AddCommand(newShowCommand(env))
	cmd.AddCommand(newWatchCommand(env))
	cmd.AddCommand(newTransitionCommand(env, "accept", "Accept a pending request (owner)", (*session.Session).Accept))
	cmd.AddCommand(newTransitionCommand(env, "reject", "Reject a pending request (owner)", (*session.Session).Reject))
	cmd.AddCommand(newTransitionCommand(env, "cancel", "Cancel a booking before payment (client)", (*session.Session).Cancel))
	cmd.AddCommand(newCodeCommand(env))
	cmd.AddCommand(newValidateCommand(env))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

// env carries what every booking command needs.
type env struct {
	opts    *RootOptions
	connect Connector
}

func (e *env) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    e.opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   e.opts.Verbose,
	}
}

// open connects and builds a session for bookingID. The caller closes it.
func (e *env) open(cmd *cobra.Command, bookingID string, extra ...session.Option) (*session.Session, error) {
	if e.opts.Token == "" {
		return nil, NewExitError(ExitCommandError, "no token: pass --token or set RENTAL_TOKEN")
	}
	code, err := currency.ParseCode(e.opts.Currency)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --currency", err)
	}
	authority, actor, err := e.connect(e.opts.APIURL, e.opts.Token)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot use token", err)
	}

	logOut := io.Discard
	if e.opts.Verbose {
		logOut = cmd.ErrOrStderr()
	}
	opts := append([]session.Option{
		session.WithCurrency(code),
		session.WithLogger(slog.New(slog.NewTextHandler(logOut, nil))),
	}, extra...)
	return session.New(authority, bookingID, actor.Role, opts...), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
