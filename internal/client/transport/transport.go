// Package transport is the session-aware HTTP layer of the client.
//
// Transport decorates every outbound request with the stored bearer token
// and turns a 401 on an authenticated call into one refresh followed by one
// resubmission. Refreshes are single-flight: concurrent requests that fail on
// the same stale session share a single refresh call. When the session
// cannot be recovered the credential store is cleared and an Invalidation is
// handed to the configured handler; navigation is the handler's business.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/tokenstore"
	"github.com/dmitrijs2005/facegate/internal/common"
	"github.com/dmitrijs2005/facegate/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoRefreshToken means a 401 arrived and there was nothing to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRejectedAfterRefresh means the resubmitted request was refused again.
	ErrRejectedAfterRefresh = errors.New("request rejected after refresh")
	// ErrEmptyRefreshResponse means the boundary answered a refresh without an access token.
	ErrEmptyRefreshResponse = errors.New("refresh returned no access token")
)

// DefaultExemptPaths are credential exchanges: a 401 from them means the
// credentials were wrong, not that the session expired.
var DefaultExemptPaths = []string{"/auth/login", "/auth/refresh", "/face/verify", "/face/verify-pin"}

// DefaultRefreshTimeout bounds a shared refresh independently of the
// requests waiting on it.
const DefaultRefreshTimeout = 15 * time.Second

// RefreshFunc exchanges a refresh token for a new pair. It must not go
// through the Transport that calls it.
type RefreshFunc func(ctx context.Context, refreshToken string) (models.Tokens, error)

// Invalidation is emitted once the session is gone for good.
type Invalidation struct {
	Reason    error
	RequestID string
}

// InvalidationHandler reacts to an Invalidation, typically by resetting the
// in-memory session and sending the user to the entry point.
type InvalidationHandler func(ctx context.Context, inv Invalidation)

// Transport is an http.RoundTripper that carries the stored session.
type Transport struct {
	base           http.RoundTripper
	store          tokenstore.Store
	refresh        RefreshFunc
	exemptPaths    []string
	onInvalidate   InvalidationHandler
	log            logging.Logger
	refreshTimeout time.Duration

	group singleflight.Group
}

type Option func(*Transport)

// WithBase sets the underlying RoundTripper (http.DefaultTransport otherwise).
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// WithExemptPaths replaces DefaultExemptPaths. Paths match by suffix.
func WithExemptPaths(paths ...string) Option {
	return func(t *Transport) { t.exemptPaths = paths }
}

// WithInvalidationHandler sets the handler notified when the session is lost.
func WithInvalidationHandler(h InvalidationHandler) Option {
	return func(t *Transport) { t.onInvalidate = h }
}

// WithLogger sets the logger (logging.Nop otherwise).
func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// WithRefreshTimeout replaces DefaultRefreshTimeout.
func WithRefreshTimeout(d time.Duration) Option {
	return func(t *Transport) { t.refreshTimeout = d }
}

func New(store tokenstore.Store, refresh RefreshFunc, opts ...Option) *Transport {
	t := &Transport{
		base:           http.DefaultTransport,
		store:          store,
		refresh:        refresh,
		exemptPaths:    DefaultExemptPaths,
		log:            logging.Nop(),
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetInvalidationHandler replaces the handler after construction; the
// session controller usually exists only after the transport does.
func (t *Transport) SetInvalidationHandler(h InvalidationHandler) {
	t.onInvalidate = h
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	sent, err := t.store.Get(ctx)
	if err != nil {
		t.log.Warn(ctx, "token store read failed, sending request without credentials", "error", err)
		sent = models.Tokens{}
	}

	requestID := req.Header.Get(common.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := t.log.With("request_id", requestID, "method", req.Method, "path", req.URL.Path)

	log.Debug(ctx, "request")
	resp, err := t.base.RoundTrip(decorate(req, sent.Access, requestID))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if t.isExempt(req) {
		return resp, nil
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Warn(ctx, "unauthorized request has a body that cannot be replayed")
		return resp, nil
	}

	fresh, err := t.renew(ctx, sent)
	if err != nil {
		if ctx.Err() != nil {
			// The caller gave up; the session itself may still be fine.
			drainAndClose(resp)
			return nil, ctx.Err()
		}
		t.invalidate(ctx, log, err, requestID)
		return resp, nil
	}

	retry, err := rewind(req, fresh.Access, requestID)
	if err != nil {
		log.Warn(ctx, "cannot rewind request body", "error", err)
		return resp, nil
	}
	drainAndClose(resp)

	log.Debug(ctx, "resubmitting after refresh")
	resp, err = t.base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.invalidate(ctx, log, ErrRejectedAfterRefresh, requestID)
	}
	return resp, nil
}

// renew returns a usable pair for a request that was refused with sent.
// If another request already rotated the session, the current pair is
// returned without refreshing again.
func (t *Transport) renew(ctx context.Context, sent models.Tokens) (models.Tokens, error) {
	current, err := t.store.Get(ctx)
	if err != nil {
		return models.Tokens{}, fmt.Errorf("read token store: %w", err)
	}
	if current.Access != "" && current.Access != sent.Access {
		return current, nil
	}
	if current.Refresh == "" {
		return models.Tokens{}, ErrNoRefreshToken
	}

	ch := t.group.DoChan(current.Refresh, func() (any, error) {
		// The flight outlives any single waiter.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.refreshTimeout)
		defer cancel()

		// A flight that finished between our read and this call has already rotated the pair.
		if latest, err := t.store.Get(fctx); err == nil && latest.Access != "" && latest.Access != sent.Access {
			return latest, nil
		}
		t.log.Info(fctx, "refreshing session")
		pair, err := t.refresh(fctx, current.Refresh)
		if err != nil {
			return models.Tokens{}, fmt.Errorf("refresh: %w", err)
		}
		if pair.Access == "" {
			return models.Tokens{}, ErrEmptyRefreshResponse
		}
		if pair.Refresh == "" {
			pair.Refresh = current.Refresh
		}
		if err := t.store.Set(fctx, pair); err != nil {
			return models.Tokens{}, fmt.Errorf("store refreshed pair: %w", err)
		}
		return pair, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return models.Tokens{}, res.Err
		}
		return res.Val.(models.Tokens), nil
	case <-ctx.Done():
		return models.Tokens{}, ctx.Err()
	}
}

func (t *Transport) invalidate(ctx context.Context, log logging.Logger, reason error, requestID string) {
	log.Info(ctx, "session invalidated", "reason", reason)
	if err := t.store.Clear(ctx); err != nil {
		log.Error(ctx, "token store clear failed", "error", err)
	}
	if t.onInvalidate != nil {
		t.onInvalidate(ctx, Invalidation{Reason: reason, RequestID: requestID})
	}
}

func (t *Transport) isExempt(req *http.Request) bool {
	for _, p := range t.exemptPaths {
		if strings.HasSuffix(req.URL.Path, p) {
			return true
		}
	}
	return false
}

func decorate(req *http.Request, access, requestID string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set(common.RequestIDHeader, requestID)
	if access != "" {
		out.Header.Set(common.AuthorizationHeader, common.BearerPrefix+access)
	} else {
		out.Header.Del(common.AuthorizationHeader)
	}
	return out
}

func rewind(req *http.Request, access, requestID string) (*http.Request, error) {
	out := decorate(req, access, requestID)
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
