package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	FaceLogin(ctx context.Context) error
	Register(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	ConfirmEmail(ctx context.Context, args []string) error
	ConfirmReset(ctx context.Context, args []string) error
	Dashboard(ctx context.Context) error
	Biometrics(ctx context.Context, args []string) error
	Session(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the facegate CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - login              - sign in with email and password
//	  - face               - sign in with the camera (and a PIN when required)
//	  - register           - create an account
//	  - reset              - request a password reset email
//	  - confirm-email <t>  - confirm an email address
//	  - confirm-reset <t>  - set a new password with a reset token
//
//	Logged in:
//	  - dashboard          - show the account
//	  - bio <subcommand>   - manage the face embedding and PIN
//	  - logout             - sign out
//
//	Always:
//	  - session            - show the session and decoded token claims
//	  - help, exit | quit
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("facegate %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: dashboard, bio, session, logout, exit")
			} else {
				printlnFn("Available commands: login, face, register, reset, confirm-email, confirm-reset, session, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "face", "face-login":
			_ = a.FaceLogin(ctx)

		case "register":
			_ = a.Register(ctx)

		case "reset":
			_ = a.ResetPassword(ctx)

		case "confirm-email":
			_ = a.ConfirmEmail(ctx, args)

		case "confirm-reset":
			_ = a.ConfirmReset(ctx, args)

		case "dashboard", "d":
			_ = a.Dashboard(ctx)

		case "bio":
			_ = a.Biometrics(ctx, args)

		case "session":
			_ = a.Session(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
