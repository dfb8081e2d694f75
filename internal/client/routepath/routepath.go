// Package routepath names the client's screens.
package routepath

// Route identifies one screen of the client.
type Route string

const (
	Root          Route = "/"
	Login         Route = "/login"
	Register      Route = "/register"
	ResetPassword Route = "/reset-password"
	ConfirmReset  Route = "/reset-password/confirm"
	ConfirmEmail  Route = "/confirm-email"
	FaceLogin     Route = "/login-face"
	EnterPin      Route = "/enter-pin"
	Dashboard     Route = "/dashboard"
)

const (
	// EntryPoint is where unauthenticated users are sent.
	EntryPoint = Login
	// Landing is where authenticated users are sent.
	Landing = Dashboard
)

func (r Route) String() string { return string(r) }
