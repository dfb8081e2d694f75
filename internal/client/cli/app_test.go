package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dmitrijs2005/facegate/internal/client/boundarytest"
	"github.com/dmitrijs2005/facegate/internal/client/camera"
	"github.com/dmitrijs2005/facegate/internal/client/client"
	"github.com/dmitrijs2005/facegate/internal/client/config"
	"github.com/dmitrijs2005/facegate/internal/client/face"
	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/client/tokenstore"
	"github.com/dmitrijs2005/facegate/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var selfie = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

type fixture struct {
	app   *App
	srv   *boundarytest.Server
	store *tokenstore.MemoryStore
	out   *bytes.Buffer
}

// newFixture builds an App talking to a fake boundary. input is everything
// the user will type during the test; secrets are read from it as well.
func newFixture(t *testing.T, input string) *fixture {
	t.Helper()
	stubTerminal(t, false, nil)

	photo := filepath.Join(t.TempDir(), "me.jpg")
	require.NoError(t, os.WriteFile(photo, selfie, 0o600))

	f := &fixture{
		srv:   boundarytest.New(t),
		store: tokenstore.NewMemoryStore(),
		out:   &bytes.Buffer{},
	}
	c, err := client.NewHTTPClient(f.srv.URL(), f.store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	f.app = newApp(c, f.store, camera.NewFileCamera(photo), strings.NewReader(input), f.out, nil)
	c.Transport().SetInvalidationHandler(f.app.session.HandleInvalidation)
	f.app.session.CheckSession(context.Background())
	return f
}

func (f *fixture) addAnn(faceImg []byte, pin string) int64 {
	return f.srv.AddAccount(boundarytest.Account{
		User:     models.User{Email: "ann@example.com", Login: "ann", FirstName: "Ann", LastName: "Lee"},
		Password: "secret",
		Face:     faceImg,
		PIN:      pin,
	})
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.app.session.Login(context.Background(), "ann@example.com", "secret"))
	f.app.Navigate(context.Background(), routepath.Landing)
}

func TestNewApp_RejectsBadConfiguration(t *testing.T) {
	ctx := context.Background()

	_, err := NewApp(ctx, &config.Config{StoreBackend: "etcd"}, logging.Nop())
	require.ErrorIs(t, err, tokenstore.ErrNotConfigured)

	_, err = NewApp(ctx, &config.Config{StoreBackend: "memory", ServerURL: "not a url"}, logging.Nop())
	require.Error(t, err)
}

func TestNewApp_Memory(t *testing.T) {
	a, err := NewApp(context.Background(), &config.Config{StoreBackend: "memory", ServerURL: "http://127.0.0.1:1/api"}, logging.Nop())
	require.NoError(t, err)
	a.Close()
	a.Close()
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, "ann@example.com\nsecret\n")
	f.addAnn(nil, "")

	require.NoError(t, f.app.Login(context.Background()))

	assert.True(t, f.app.isLoggedIn())
	assert.Equal(t, routepath.Dashboard, f.app.currentRoute())
	assert.Contains(t, f.out.String(), "Signed in as Ann Lee")
	assert.NotContains(t, f.out.String(), "secret")
}

func TestLogin_WrongPasswordStaysOnLogin(t *testing.T) {
	f := newFixture(t, "ann@example.com\nnope\n")
	f.addAnn(nil, "")

	require.Error(t, f.app.Login(context.Background()))

	assert.False(t, f.app.isLoggedIn())
	assert.Equal(t, routepath.Login, f.app.currentRoute())
	assert.Contains(t, f.out.String(), "Login failed: Incorrect email or password")
	assert.Zero(t, f.srv.Count("POST /auth/refresh"))
}

func TestGuard_RedirectsByAuthState(t *testing.T) {
	f := newFixture(t, "")
	f.addAnn(nil, "")
	ctx := context.Background()

	require.NoError(t, f.app.Dashboard(ctx))
	assert.Equal(t, routepath.EntryPoint, f.app.currentRoute())
	assert.Contains(t, f.out.String(), "/dashboard is not available")

	f.signIn(t)
	f.out.Reset()

	require.NoError(t, f.app.Login(ctx), "no prompt may be read when login is not admitted")
	assert.Equal(t, routepath.Landing, f.app.currentRoute())
	require.NoError(t, f.app.FaceLogin(ctx))
	assert.Equal(t, routepath.Landing, f.app.currentRoute())
}

func TestGuard_PlaceholderWhileLoading(t *testing.T) {
	f := newFixture(t, "")
	a := newApp(f.app.client, f.store, f.app.camera, strings.NewReader(""), f.out, nil)

	assert.False(t, a.enter(context.Background(), routepath.Dashboard))
	assert.Equal(t, routepath.Root, a.currentRoute())
	assert.Contains(t, f.out.String(), "Checking session")
}

func TestFaceLogin_WithoutPin(t *testing.T) {
	f := newFixture(t, "\nann@example.com\n")
	f.addAnn(selfie, "")

	require.NoError(t, f.app.FaceLogin(context.Background()))

	assert.Contains(t, f.out.String(), "Enter your email before capturing")
	assert.True(t, f.app.isLoggedIn())
	assert.Equal(t, routepath.Dashboard, f.app.currentRoute())
}

func TestFaceLogin_WithPin(t *testing.T) {
	f := newFixture(t, "ann@example.com\n12\n9999\n1234\n")
	f.addAnn(selfie, "1234")

	require.NoError(t, f.app.FaceLogin(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "A PIN is required")
	assert.Contains(t, out, "PIN must be exactly 4 digits")
	assert.Contains(t, out, "Wrong PIN")
	assert.Contains(t, out, "Signed in as Ann Lee")
	assert.Equal(t, 2, f.srv.Count("POST /face/verify-pin"), "malformed PINs never reach the boundary")
	assert.Equal(t, routepath.Dashboard, f.app.currentRoute())
}

func TestFaceLogin_CancelPin(t *testing.T) {
	f := newFixture(t, "ann@example.com\n\n")
	f.addAnn(selfie, "1234")

	require.NoError(t, f.app.FaceLogin(context.Background()))

	assert.False(t, f.app.isLoggedIn())
	assert.Equal(t, routepath.FaceLogin, f.app.currentRoute())
	assert.Zero(t, f.srv.Count("POST /face/verify-pin"))
}

func TestFaceLogin_NotRecognised(t *testing.T) {
	f := newFixture(t, "ann@example.com\n")
	f.addAnn([]byte("someone else"), "")

	require.Error(t, f.app.FaceLogin(context.Background()))

	assert.Contains(t, f.out.String(), "Face sign-in failed: Face not recognized")
	assert.False(t, f.app.isLoggedIn())
}

func TestFaceLogin_NoCamera(t *testing.T) {
	f := newFixture(t, "ann@example.com\n")
	f.app.camera = camera.NewFileCamera("")

	require.Error(t, f.app.FaceLogin(context.Background()))
	assert.Contains(t, f.out.String(), "Camera is unavailable")
	assert.Zero(t, f.srv.Count("POST /face/verify"))
}

func TestEnterPin_RequiresTicket(t *testing.T) {
	f := newFixture(t, "")

	require.Error(t, f.app.enterPin(context.Background(), face.Ticket{}))
	assert.Equal(t, routepath.FaceLogin, f.app.currentRoute())
}

func TestRegister_WithFaceEnrolment(t *testing.T) {
	f := newFixture(t, "bob\nBob\nRay\nbob@example.com\npw\ny\n")

	require.NoError(t, f.app.Register(context.Background()))

	assert.False(t, f.app.isLoggedIn(), "registration never signs in")
	assert.Equal(t, routepath.EntryPoint, f.app.currentRoute())
	assert.Contains(t, f.out.String(), "Face enrolled")

	acc, ok := f.srv.Account(1)
	require.True(t, ok)
	assert.Equal(t, "bob@example.com", acc.User.Email)
	assert.Equal(t, selfie, acc.Face)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t, "ann\nAnn\nLee\nann@example.com\npw\n")
	f.addAnn(nil, "")

	require.Error(t, f.app.Register(context.Background()))
	assert.Contains(t, f.out.String(), "Registration failed: User already exists")
	assert.Zero(t, f.srv.Count("POST /face/create"))
}

func TestResetAndConfirm(t *testing.T) {
	f := newFixture(t, "ann@example.com\nnewpass\nann@example.com\nnewpass\n")
	f.addAnn(nil, "")
	ctx := context.Background()

	require.NoError(t, f.app.ResetPassword(ctx))
	token := f.srv.ResetToken("ann@example.com")
	require.NotEmpty(t, token)

	require.NoError(t, f.app.ConfirmReset(ctx, []string{token}))
	assert.Contains(t, f.out.String(), "Password changed")

	require.NoError(t, f.app.Login(ctx))
	assert.True(t, f.app.isLoggedIn())
}

func TestConfirmEmail(t *testing.T) {
	f := newFixture(t, "expired\n")
	ctx := context.Background()

	require.NoError(t, f.app.ConfirmEmail(ctx, []string{"good-token"}))
	assert.Contains(t, f.out.String(), "Email confirmed")

	require.Error(t, f.app.ConfirmEmail(ctx, nil))
	assert.Contains(t, f.out.String(), "Email confirmation failed: Token expired")
}

func TestBiometrics_PinLifecycle(t *testing.T) {
	f := newFixture(t, "1234\n")
	id := f.addAnn(nil, "")
	f.signIn(t)
	ctx := context.Background()

	require.Error(t, f.app.Biometrics(ctx, []string{"pin", "create"}))
	assert.Contains(t, f.out.String(), "Enroll your face before setting a PIN")

	require.NoError(t, f.app.Biometrics(ctx, []string{"enroll"}))

	f.app.reader = rdr("1234\n")
	require.NoError(t, f.app.Biometrics(ctx, []string{"pin", "create"}))
	acc, _ := f.srv.Account(id)
	assert.Equal(t, "1234", acc.PIN)

	f.out.Reset()
	require.NoError(t, f.app.Biometrics(ctx, []string{"status"}))
	assert.Contains(t, f.out.String(), "face:    enrolled")
	assert.Contains(t, f.out.String(), "pin:     enrolled")

	require.NoError(t, f.app.Biometrics(ctx, []string{"pin", "delete"}))
	f.app.reader = rdr("y\n")
	require.NoError(t, f.app.Biometrics(ctx, []string{"delete"}))
	acc, _ = f.srv.Account(id)
	assert.Nil(t, acc.Face)

	f.out.Reset()
	require.NoError(t, f.app.Biometrics(ctx, []string{"bogus"}))
	assert.Contains(t, f.out.String(), "Usage: bio")
}

func TestSession_ShowsClaims(t *testing.T) {
	f := newFixture(t, "")
	id := f.addAnn(nil, "")
	ctx := context.Background()

	require.NoError(t, f.app.Session(ctx))
	assert.Contains(t, f.out.String(), "session: signed out")
	assert.Contains(t, f.out.String(), "access token: none")

	f.signIn(t)
	f.out.Reset()
	require.NoError(t, f.app.Session(ctx))
	out := f.out.String()
	assert.Contains(t, out, "signed in as Ann Lee")
	assert.Contains(t, out, "subject "+strconv.FormatInt(id, 10))
	assert.Contains(t, out, "type efficore_token")
	assert.Contains(t, out, "refresh token: present")
}

func TestLogout(t *testing.T) {
	f := newFixture(t, "")
	f.addAnn(nil, "")
	f.signIn(t)
	f.srv.FailLogout(true)

	require.NoError(t, f.app.Logout(context.Background()))

	assert.False(t, f.app.isLoggedIn())
	assert.Equal(t, routepath.EntryPoint, f.app.currentRoute())
	assert.False(t, f.store.HasAccess(context.Background()))
}

func TestInvalidatedSessionReturnsToEntryPoint(t *testing.T) {
	f := newFixture(t, "")
	f.addAnn(selfie, "")
	f.signIn(t)
	ctx := context.Background()

	tokens, err := f.store.Get(ctx)
	require.NoError(t, err)
	f.srv.Expire(tokens.Access)
	f.srv.RejectRefresh(true)

	require.NoError(t, f.app.Dashboard(ctx))

	assert.False(t, f.app.isLoggedIn())
	assert.Equal(t, routepath.EntryPoint, f.app.currentRoute())
	assert.False(t, f.store.HasAccess(ctx))
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t, "")
	f.addAnn(nil, "")

	assert.Equal(t, "(/)", f.app.getStatus())

	f.signIn(t)
	assert.Equal(t, "(/dashboard Ann Lee)", f.app.getStatus())
}

func TestRoot_RestoredSessionLandsOnDashboard(t *testing.T) {
	capturePrintln(t)
	f := newFixture(t, "exit\n")
	f.addAnn(nil, "")
	f.signIn(t)
	f.app.Navigate(context.Background(), routepath.Root)

	f.app.Root(context.Background())

	assert.Equal(t, routepath.Dashboard, f.app.currentRoute())
	assert.Contains(t, f.out.String(), "Signed in as Ann Lee")
}

func TestRun_RestoresStoredSession(t *testing.T) {
	capturePrintln(t)
	f := newFixture(t, "")
	id := f.addAnn(nil, "")
	tokens, err := f.srv.IssueTokens(id)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(context.Background(), tokens))

	a := newApp(f.app.client, f.store, f.app.camera, strings.NewReader("session\nexit\n"), f.out, nil)
	a.Run(context.Background())

	assert.True(t, a.isLoggedIn())
	assert.Equal(t, routepath.Dashboard, a.currentRoute())
	assert.Contains(t, f.out.String(), "session: signed in as Ann Lee")
}
