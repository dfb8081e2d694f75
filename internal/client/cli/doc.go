// Package cli provides the interactive facegate command-line client.
//
// Screens of the client are routes (see routepath). Every command asks the
// route guard whether its screen may be shown for the current session, so a
// signed-in user is sent to the dashboard from the sign-in screens and a
// signed-out user is sent to the login screen from the dashboard.
//
// Key features:
//   - Login / Logout with transparent session refresh
//   - Face sign-in with a PIN second factor
//   - Registration with optional face enrolment
//   - Password reset and email confirmation
//   - Face embedding and PIN management
//
// The REPL is started via App.Run(ctx), which restores a stored session and
// blocks until the user exits.
package cli
