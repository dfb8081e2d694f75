package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/tokenstore"
	"github.com/dmitrijs2005/facegate/internal/client/transport"
	"github.com/dmitrijs2005/facegate/internal/common"
	"github.com/dmitrijs2005/facegate/internal/logging"
)

const (
	DefaultTimeout = 12 * time.Second

	captureFilename = "capture.jpg"
)

type HTTPClient struct {
	baseURL   *url.URL
	http      *http.Client
	raw       *http.Client
	transport *transport.Transport
	log       logging.Logger
}

type options struct {
	timeout       time.Duration
	log           logging.Logger
	base          http.RoundTripper
	onInvalidated transport.InvalidationHandler
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithBaseTransport replaces http.DefaultTransport underneath the session transport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithInvalidationHandler(h transport.InvalidationHandler) Option {
	return func(o *options) { o.onInvalidated = h }
}

// NewHTTPClient builds a client for the boundary at baseURL. Tokens are read
// from store on every request; refreshed pairs are written back to it.
func NewHTTPClient(baseURL string, store tokenstore.Store, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) url", baseURL)
	}

	o := options{timeout: DefaultTimeout, log: logging.Nop(), base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	c := &HTTPClient{
		baseURL: u,
		raw:     &http.Client{Transport: o.base, Timeout: o.timeout},
		log:     o.log,
	}
	c.transport = transport.New(store, c.Refresh,
		transport.WithBase(o.base),
		transport.WithLogger(o.log),
		transport.WithInvalidationHandler(o.onInvalidated),
	)
	c.http = &http.Client{Transport: c.transport, Timeout: o.timeout}
	return c, nil
}

// Transport exposes the session transport so the invalidation handler can be
// attached once the session controller exists.
func (c *HTTPClient) Transport() *transport.Transport { return c.transport }

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	c.raw.CloseIdleConnections()
	return nil
}

type tokenInfo struct {
	Access  string `json:"efficore_token"`
	Refresh string `json:"refresh_token,omitempty"`
}

func (t tokenInfo) tokens() models.Tokens {
	return models.Tokens{Access: t.Access, Refresh: t.Refresh}
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (models.Tokens, error) {
	var out tokenInfo
	body := map[string]string{"email": email, "password": password}
	if _, err := c.doJSON(ctx, c.http, http.MethodPost, "/auth/login", body, &out); err != nil {
		return models.Tokens{}, err
	}
	return out.tokens(), nil
}

// Refresh bypasses the session transport: it must never trigger itself.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (models.Tokens, error) {
	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return models.Tokens{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/refresh", bytes.NewReader(payload), "application/json")
	if err != nil {
		return models.Tokens{}, err
	}
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+refreshToken)

	var out tokenInfo
	if _, err := c.send(c.raw, req, &out); err != nil {
		return models.Tokens{}, err
	}
	return out.tokens(), nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	_, err := c.doJSON(ctx, c.http, http.MethodPost, "/auth/logout", nil, nil)
	return err
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if _, err := c.doJSON(ctx, c.http, http.MethodGet, "/auth/user/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) (*models.RegisterResult, error) {
	var out models.RegisterResult
	if _, err := c.doJSON(ctx, c.http, http.MethodPost, "/auth/register", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, email string) error {
	_, err := c.doJSON(ctx, c.http, http.MethodPost, "/auth/reset", map[string]string{"email": email}, nil)
	return err
}

func (c *HTTPClient) ConfirmEmail(ctx context.Context, token string) error {
	_, err := c.doJSON(ctx, c.http, http.MethodGet, "/auth/confirm/email/"+url.PathEscape(token), nil, nil)
	return err
}

func (c *HTTPClient) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	path := "/auth/reset/email_confirmed/" + url.PathEscape(token)
	_, err := c.doJSON(ctx, c.http, http.MethodPatch, path, map[string]string{"password": password}, nil)
	return err
}

type verifyResponse struct {
	tokenInfo
	RequiresPin bool   `json:"requires_pin"`
	UserID      int64  `json:"user_id"`
	EmbeddingID int64  `json:"emb_id"`
	Message     string `json:"message"`
}

func (c *HTTPClient) VerifyFace(ctx context.Context, email string, img models.Image) (*models.FaceVerification, error) {
	var out verifyResponse
	fields := map[string]string{"email": email}
	if _, err := c.doMultipart(ctx, http.MethodPost, "/face/verify", fields, &img, &out); err != nil {
		return nil, err
	}
	return &models.FaceVerification{
		Tokens:      out.tokens(),
		RequiresPin: out.RequiresPin,
		UserID:      out.UserID,
		EmbeddingID: out.EmbeddingID,
		Message:     out.Message,
	}, nil
}

func (c *HTTPClient) VerifyPin(ctx context.Context, userID int64, pin string) (models.Tokens, error) {
	var out tokenInfo
	fields := map[string]string{"user_id": strconv.FormatInt(userID, 10), "pin": pin}
	if _, err := c.doMultipart(ctx, http.MethodPost, "/face/verify-pin", fields, nil, &out); err != nil {
		return models.Tokens{}, err
	}
	return out.tokens(), nil
}

func (c *HTTPClient) EnrollFace(ctx context.Context, userID int64, img models.Image) (*models.Enrollment, error) {
	var out models.Enrollment
	fields := map[string]string{"user_id": strconv.FormatInt(userID, 10)}
	if _, err := c.doMultipart(ctx, http.MethodPost, "/face/create", fields, &img, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) EmbeddingStatus(ctx context.Context) (*models.EmbeddingStatus, error) {
	var out models.EmbeddingStatus
	if _, err := c.doJSON(ctx, c.http, http.MethodGet, "/face/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PutEmbedding(ctx context.Context, img models.Image) (*models.Enrollment, error) {
	var out models.Enrollment
	if _, err := c.doMultipart(ctx, http.MethodPut, "/face/put", nil, &img, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteEmbedding(ctx context.Context) error {
	_, err := c.doJSON(ctx, c.http, http.MethodDelete, "/face/delete", nil, nil)
	return err
}

func (c *HTTPClient) PinStatus(ctx context.Context) (*models.PinStatus, error) {
	var out models.PinStatus
	if _, err := c.doJSON(ctx, c.http, http.MethodGet, "/face/pin", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreatePin(ctx context.Context, pin string) error {
	_, err := c.doMultipart(ctx, http.MethodPost, "/face/pin/create", map[string]string{"pin": pin}, nil, nil)
	return err
}

func (c *HTTPClient) DeletePin(ctx context.Context) error {
	_, err := c.doJSON(ctx, c.http, http.MethodDelete, "/face/pin", nil, nil)
	return err
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, hc *http.Client, method, path string, in, out any) (int, error) {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return 0, err
	}
	return c.send(hc, req, out)
}

// doMultipart posts form fields and an optional image as the "file" part.
func (c *HTTPClient) doMultipart(ctx context.Context, method, path string, fields map[string]string, img *models.Image, out any) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return 0, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if img != nil {
		if err := writeImage(mw, img); err != nil {
			return 0, err
		}
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, bytes.NewReader(buf.Bytes()), mw.FormDataContentType())
	if err != nil {
		return 0, err
	}
	return c.send(c.http, req, out)
}

func writeImage(mw *multipart.Writer, img *models.Image) error {
	filename := img.Filename
	if filename == "" {
		filename = captureFilename
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	return nil
}

func (c *HTTPClient) send(hc *http.Client, req *http.Request, out any) (int, error) {
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		be := decodeBoundaryError(resp)
		c.log.Debug(req.Context(), "boundary rejected request",
			"method", req.Method, "path", req.URL.Path, "status", be.Status, "detail", be.Detail)
		return resp.StatusCode, be
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
