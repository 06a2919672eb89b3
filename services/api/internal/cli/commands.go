package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/auth"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/session"
)

func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:           "show <booking-id>",
		Short:         "Show a booking, its deadline and your available actions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.Open(cmd.Context())
			if err != nil {
				return classify(err)
			}
			return e.formatter(cmd).Snapshot(snap)
		},
	}
}

type mutateFunc func(*session.Session, context.Context) (session.Snapshot, error)

func newTransitionCommand(e *env, name, short string, fn mutateFunc) *cobra.Command {
	return &cobra.Command{
		Use:           name + " <booking-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Open(cmd.Context()); err != nil {
				return classify(err)
			}
			snap, err := fn(s, cmd.Context())
			if err != nil {
				// The session has re-read the booking; show where it stands.
				_ = e.formatter(cmd).Snapshot(s.Snapshot())
				return classify(err)
			}
			return e.formatter(cmd).Snapshot(snap)
		},
	}
}

func newCodeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:           "code <booking-id>",
		Short:         "Print the delivery code to hand to the owner (client)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Open(cmd.Context()); err != nil {
				return classify(err)
			}
			code, err := s.DeliveryCode(cmd.Context())
			if err != nil {
				return classify(err)
			}
			return e.formatter(cmd).Success(map[string]string{"code": code})
		},
	}
}

func newValidateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:           "validate <booking-id> <code>",
		Short:         "Validate the client's delivery code and start the rental (owner)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Open(cmd.Context()); err != nil {
				return classify(err)
			}
			snap, err := s.ValidateDeliveryCode(cmd.Context(), args[1])
			if err != nil {
				return classify(err)
			}
			return e.formatter(cmd).Snapshot(snap)
		},
	}
}

func newWatchCommand(e *env) *cobra.Command {
	var limit time.Duration

	cmd := &cobra.Command{
		Use:           "watch <booking-id>",
		Short:         "Follow a booking and its countdown until it settles",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if limit > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, limit)
				defer cancel()
			}

			updates := make(chan session.Snapshot, 1)
			s, err := e.open(cmd, args[0], session.OnChange(func(snap session.Snapshot) {
				// Latest wins; the printer only needs the current picture.
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- snap:
				default:
				}
			}))
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.Open(ctx)
			if err != nil {
				return classify(err)
			}
			return watch(ctx, e.formatter(cmd), snap, updates)
		},
	}
	cmd.Flags().DurationVar(&limit, "for", 0, "stop watching after this long (0 = until the booking settles)")
	return cmd
}

// watch prints the booking once, then a line whenever the status changes or
// the countdown crosses a minute, until the status is terminal or ctx ends.
func watch(ctx context.Context, f *OutputFormatter, first session.Snapshot, updates <-chan session.Snapshot) error {
	if err := f.Snapshot(first); err != nil {
		return err
	}
	last := first
	for !last.View.Booking.Status.Terminal() {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-updates:
			if snap.View.Booking.Status != last.View.Booking.Status {
				if err := f.Snapshot(snap); err != nil {
					return err
				}
			} else if snap.HasDeadline && snap.Remaining.Truncate(time.Minute) != last.Remaining.Truncate(time.Minute) {
				f.Countdown(snap)
			}
			last = snap
		}
	}
	return nil
}

func newTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		secret string
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Mint a signed API token (development)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --role", err)
			}
			if secret == "" || userID == "" {
				return NewExitError(ExitCommandError, "--secret and --user are required")
			}
			tok, err := auth.Issue([]byte(secret), domain.Actor{UserID: userID, Role: r}, time.Now(), ttl)
			if err != nil {
				return WrapExitError(ExitCommandError, "issue token", err)
			}
			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return f.Success(map[string]string{"token": tok})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", ""), "signing secret")
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleClient), "client|owner|admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
