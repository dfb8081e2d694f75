package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/facegate/internal/client/camera"
	"github.com/dmitrijs2005/facegate/internal/client/client"
	"github.com/dmitrijs2005/facegate/internal/client/config"
	"github.com/dmitrijs2005/facegate/internal/client/face"
	"github.com/dmitrijs2005/facegate/internal/client/guard"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/client/services"
	"github.com/dmitrijs2005/facegate/internal/client/session"
	"github.com/dmitrijs2005/facegate/internal/client/tokenstore"
	"github.com/dmitrijs2005/facegate/internal/logging"
)

// App is the interactive client. It is the Navigator of its session
// manager: the current route is whatever the manager or a command last
// navigated to.
type App struct {
	client  client.Client
	store   tokenstore.Store
	session *session.Manager
	bio     services.Biometrics
	camera  face.Camera
	gates   *guard.Table
	log     logging.Logger

	reader *bufio.Reader
	out    io.Writer

	closers []io.Closer

	mu    sync.Mutex
	route routepath.Route
}

// NewApp wires the token store, boundary client, session manager and
// camera described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store, storeCloser, err := tokenstore.Open(ctx, tokenstore.Options{
		Backend:      cfg.StoreBackend,
		DatabasePath: cfg.DatabasePath,
		RedisURL:     cfg.RedisURL,
		Secret:       cfg.StoreSecret,
	})
	if err != nil {
		log.Error(ctx, "error opening token store", "backend", cfg.StoreBackend, "error", err)
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(cfg.ServerURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(log),
	)
	if err != nil {
		_ = storeCloser.Close()
		return nil, err
	}

	a := newApp(apiClient, store, camera.NewFileCamera(cfg.CameraSource), os.Stdin, os.Stdout, log)
	apiClient.Transport().SetInvalidationHandler(a.session.HandleInvalidation)
	a.closers = append(a.closers, apiClient, storeCloser)
	return a, nil
}

func newApp(c client.Client, store tokenstore.Store, cam face.Camera, in io.Reader, out io.Writer, log logging.Logger) *App {
	if log == nil {
		log = logging.Nop()
	}
	a := &App{
		client: c,
		store:  store,
		camera: cam,
		gates:  guard.DefaultTable(),
		log:    log,
		reader: bufio.NewReader(in),
		out:    out,
		route:  routepath.Root,
	}
	a.session = session.NewManager(c, store, a, log)
	a.bio = services.NewBiometrics(c, cam, log)
	return a
}

// Run restores a stored session, then serves the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, stop := a.subscribe()
	defer stop()
	go a.watchSession(ctx, changes)

	a.session.CheckSession(ctx)
	a.Root(ctx)
}

// Close releases the boundary client and the token store.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

// Navigate implements session.Navigator.
func (a *App) Navigate(ctx context.Context, to routepath.Route) {
	a.mu.Lock()
	from := a.route
	a.route = to
	a.mu.Unlock()

	if from != to {
		a.log.Debug(ctx, "navigate", "from", from, "to", to)
	}
}

func (a *App) currentRoute() routepath.Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

func (a *App) isLoggedIn() bool {
	return a.session.State().Authenticated()
}

// enter asks the guard whether route may be shown now and navigates
// accordingly. It returns true only when the route may render.
func (a *App) enter(ctx context.Context, route routepath.Route) bool {
	d := a.gates.Resolve(route, a.session.State())
	switch d.Verdict {
	case guard.Render:
		a.Navigate(ctx, route)
		return true
	case guard.Redirect:
		a.say("%s is not available, going to %s", route, d.Target)
		a.Navigate(ctx, d.Target)
	default:
		a.say("Checking session, try again in a moment")
	}
	return false
}

// subscribe forwards state changes into a buffered channel so slow output
// never blocks the session manager. Older changes are dropped when full.
func (a *App) subscribe() (<-chan session.AuthState, func()) {
	changes := make(chan session.AuthState, 8)
	unsubscribe := a.session.Subscribe(func(s session.AuthState) {
		select {
		case changes <- s:
		default:
		}
	})
	return changes, unsubscribe
}

// watchSession reports sign-in and sign-out transitions, including a
// session ended by the boundary in the middle of a command.
func (a *App) watchSession(ctx context.Context, changes <-chan session.AuthState) {
	signedIn := false
	for {
		select {
		case s := <-changes:
			if s.Loading || s.Authenticated() == signedIn {
				continue
			}
			signedIn = s.Authenticated()
			if signedIn {
				a.log.Info(ctx, "session active", "user_id", s.User.ID)
			} else {
				a.log.Info(ctx, "session ended")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) say(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}
