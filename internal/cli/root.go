// Package cli implements the diaryctl commands.
//
// The signed-in session lives in a YAML file (see client.Session) so it
// survives between invocations. Likes and comments go through an
// interaction.Manager, which checks permissions locally and rolls a like
// back if the server refuses it.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/client"
	"github.com/Thcamm/personal-diary/internal/interaction"
)

const defaultServer = "http://localhost:8080"

var _ interaction.Persister = (*client.Client)(nil)

// app is the state shared by every command of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	server      string
	sessionPath string
	timeout     time.Duration
	format      string

	session *client.Session
	api     *client.Client
}

// NewRootCmd builds the diaryctl command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "diaryctl [command] [flags]",
		Short:         "diaryctl: read and write diaries from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", "", "server URL (default: the signed-in server, $DIARY_SERVER or "+defaultServer+")")
	flags.StringVar(&a.sessionPath, "session", "", "session file (default: <user config dir>/diaryctl/session.yaml)")
	flags.DurationVar(&a.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	flags.StringVar(&a.format, "format", "text", "output format: text or json")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.feedCmd(),
		a.mineCmd(),
		a.showCmd(),
		a.writeCmd(),
		a.editCmd(),
		a.rmCmd(),
		a.likeCmd(),
		a.commentCmd(),
		a.uncommentCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.format != "text" && a.format != "json" {
		return apperror.ValidationFailed("format", "--format must be text or json")
	}

	if a.sessionPath == "" {
		path, err := client.DefaultSessionPath()
		if err != nil {
			return err
		}
		a.sessionPath = path
	}
	session, err := client.LoadSession(a.sessionPath)
	if err != nil {
		return err
	}
	a.session = session

	if a.server == "" {
		a.server = session.Server
	}
	if a.server == "" {
		a.server = os.Getenv("DIARY_SERVER")
	}
	if a.server == "" {
		a.server = defaultServer
	}

	opts := []client.Option{client.WithTimeout(a.timeout)}
	// A session is only sent to the server that issued it.
	if session.Authenticated() && session.Server == a.server {
		opts = append(opts, client.WithToken(session.Token))
	} else {
		a.session = &client.Session{}
	}
	a.api = client.New(a.server, opts...)
	return nil
}

// Execute runs diaryctl with args and returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := NewRootCmd(out, errOut)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, Describe(err))
		return 1
	}
	return 0
}

// Describe turns an error into the message shown to the user.
func Describe(err error) string {
	var appErr *apperror.AppError
	msg := err.Error()
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	switch {
	case errors.Is(err, apperror.ErrUnauthorized):
		return "Not signed in: " + msg + " (run `diaryctl login`)"
	case errors.Is(err, apperror.ErrForbidden):
		return "Permission denied: " + msg
	case errors.Is(err, apperror.ErrNotFound):
		return "Not found: " + msg
	case errors.Is(err, apperror.ErrValidation):
		return "Invalid input: " + msg
	case errors.Is(err, apperror.ErrConflict):
		return "Conflict: " + msg
	case errors.Is(err, apperror.ErrNetwork):
		return "Could not reach the server: " + msg + " (try again)"
	case client.IsRateLimited(err):
		return "Too many attempts, wait a minute and try again"
	}
	return "Error: " + msg
}
