package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nazarhussain/portfolio-contact/internal/contactform"
)

type options struct {
	url     string
	name    string
	email   string
	message string
	website string
	timeout time.Duration
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message through the portfolio contact relay",
		Long: `Fill in the contact form from the command line and submit it to a
running relay. The form is checked locally before anything is sent.

Examples:
  contact --name Ada --email ada@example.com --message "Hello from the terminal"
  contact --url https://nazarhussain.dev --name Ada --email ada@example.com --message "..."`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "http://localhost:3000", "Base URL of the contact relay")
	flags.StringVar(&opts.name, "name", "", "Your name")
	flags.StringVar(&opts.email, "email", "", "Your email address")
	flags.StringVar(&opts.message, "message", "", "Message to send")
	flags.StringVar(&opts.website, "website", "", "Leave empty")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "How long to wait for the relay")
	_ = flags.MarkHidden("website")

	return cmd
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	submitter := contactform.NewHTTPSubmitter(opts.url, &http.Client{Timeout: opts.timeout})
	form := contactform.New(submitter)
	form.OnChange(func(s contactform.State) {
		fmt.Fprintf(stderr, "-> %s\n", s)
	})

	if err := form.SetFields(contactform.Fields{
		Name:    opts.name,
		Email:   opts.email,
		Message: opts.message,
		Website: opts.website,
	}); err != nil {
		return err
	}

	err := form.Submit(ctx)
	switch {
	case err == nil:
		fmt.Fprintln(stdout, "Message sent! Thanks for reaching out.")
		return nil
	case errors.Is(err, contactform.ErrInvalid):
		fe := form.FieldErrors()
		for _, line := range []struct{ field, msg string }{
			{"name", fe.Name},
			{"email", fe.Email},
			{"message", fe.Message},
		} {
			if line.msg != "" {
				fmt.Fprintf(stderr, "  %s: %s\n", line.field, line.msg)
			}
		}
		return err
	case errors.Is(err, contactform.ErrRejected):
		return errors.New(form.ServerError())
	default:
		return err
	}
}

func main() {
	ctx := context.Background()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
