// Package boundarytest runs an in-process identity boundary for tests.
//
// It speaks the same wire format as the real service: JSON auth endpoints,
// multipart face endpoints, HS256 bearer tokens with a token_type claim. A
// face "matches" when the uploaded bytes equal the enrolled bytes.
package boundarytest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/tokeninfo"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Account is one user known to the fake boundary.
type Account struct {
	User     models.User
	Password string
	// Face is the enrolled image; nil means no embedding.
	Face        []byte
	EmbeddingID int64
	// PIN is the second factor; empty means none.
	PIN string
}

type Server struct {
	srv       *httptest.Server
	secret    []byte
	accessTTL time.Duration

	mu          sync.Mutex
	accounts    map[int64]*Account
	nextID      int64
	revoked     map[string]bool
	resetTokens map[string]string
	calls       map[string]int

	failLogout    bool
	rejectRefresh bool
}

type Option func(*Server)

func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// New starts a server and stops it when t finishes.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		secret:      []byte(uuid.NewString()),
		accessTTL:   time.Hour,
		accounts:    make(map[int64]*Account),
		revoked:     make(map[string]bool),
		resetTokens: make(map[string]string),
		calls:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) URL() string { return s.srv.URL }

// AddAccount registers a confirmed, active account and returns its id.
func (s *Server) AddAccount(a Account) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.User.ID = s.nextID
	a.User.IsActive = true
	if a.User.CreatedAt.IsZero() {
		a.User.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if a.Face != nil && a.EmbeddingID == 0 {
		a.EmbeddingID = 100 + a.User.ID
	}
	s.accounts[a.User.ID] = &a
	return a.User.ID
}

// Account returns a copy of the stored account.
func (s *Server) Account(id int64) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Expire makes token unusable from now on, as if it had expired.
func (s *Server) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// IssueTokens mints a pair for id without going through login.
func (s *Server) IssueTokens(id int64) (models.Tokens, error) {
	return s.issue(id)
}

// ResetToken returns the token a reset request for email produced.
func (s *Server) ResetToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetTokens[email]
}

// FailLogout makes POST /auth/logout answer 500.
func (s *Server) FailLogout(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogout = fail
}

// RejectRefresh makes POST /auth/refresh answer 401.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectRefresh = reject
}

// Count returns how many times "METHOD /path" was requested.
func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/refresh", s.refresh)
		r.Post("/logout", s.logout)
		r.Post("/register", s.register)
		r.Post("/reset", s.reset)
		r.Get("/confirm/email/{token}", s.confirmEmail)
		r.Patch("/reset/email_confirmed/{token}", s.confirmReset)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccess)
			r.Get("/user/me", s.me)
		})
	})

	r.Route("/face", func(r chi.Router) {
		r.Post("/verify", s.verifyFace)
		r.Post("/verify-pin", s.verifyPin)
		r.Post("/create", s.createFace)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccess)
			r.Get("/status", s.faceStatus)
			r.Put("/put", s.putFace)
			r.Delete("/delete", s.deleteFace)
			r.Get("/pin", s.pinStatus)
			r.Post("/pin/create", s.createPin)
			r.Delete("/pin", s.deletePin)
		})
	})
	return r
}

// ---- middleware ----

type ctxKey struct{}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, detail := s.authenticate(r, tokeninfo.TypeAccess)
		if detail != "" {
			writeDetail(w, http.StatusUnauthorized, detail)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// authenticate returns the subject of a valid bearer token of tokenType, or
// the rejection detail.
func (s *Server) authenticate(r *http.Request, tokenType string) (int64, string) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return 0, "Not authenticated"
	}

	s.mu.Lock()
	revoked := s.revoked[raw]
	s.mu.Unlock()
	if revoked {
		return 0, "Token expired"
	}

	claims := &tokeninfo.Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "Token expired"
		}
		return 0, "Invalid token"
	}
	if claims.TokenType != tokenType {
		return 0, "Incorrect token type"
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "Invalid token"
	}
	s.mu.Lock()
	_, exists := s.accounts[id]
	s.mu.Unlock()
	if !exists {
		return 0, "User does not exist"
	}
	return id, ""
}

func currentID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

// ---- tokens ----

func (s *Server) sign(id int64, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokeninfo.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) issue(id int64) (models.Tokens, error) {
	access, err := s.sign(id, tokeninfo.TypeAccess, s.accessTTL)
	if err != nil {
		return models.Tokens{}, err
	}
	refresh, err := s.sign(id, tokeninfo.TypeRefresh, 24*time.Hour)
	if err != nil {
		return models.Tokens{}, err
	}
	return models.Tokens{Access: access, Refresh: refresh}, nil
}

func (s *Server) writeTokens(w http.ResponseWriter, id int64) {
	pair, err := s.issue(id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"efficore_token": pair.Access,
		"refresh_token":  pair.Refresh,
		"token_type":     "Bearer",
	})
}

// ---- auth handlers ----

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid body")
		return
	}

	a := s.byEmail(body.Email)
	if a == nil || a.Password != body.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	s.writeTokens(w, a.User.ID)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.rejectRefresh
	s.mu.Unlock()
	if reject {
		writeDetail(w, http.StatusUnauthorized, "Token expired")
		return
	}
	id, detail := s.authenticate(r, tokeninfo.TypeRefresh)
	if detail != "" {
		writeDetail(w, http.StatusUnauthorized, detail)
		return
	}
	access, err := s.sign(id, tokeninfo.TypeAccess, s.accessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"efficore_token": access, "token_type": "Bearer"})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.failLogout
	s.mu.Unlock()
	if fail {
		writeDetail(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Email == "" || reg.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "field required"}},
		})
		return
	}
	if s.byEmail(reg.Email) != nil {
		writeDetail(w, http.StatusConflict, "User already exists")
		return
	}
	id := s.AddAccount(Account{
		User:     models.User{Login: reg.Login, Email: reg.Email, FirstName: reg.FirstName, LastName: reg.LastName},
		Password: reg.Password,
	})
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if s.byEmail(body.Email) == nil {
		writeDetail(w, http.StatusNotFound, "User does not exist")
		return
	}
	s.mu.Lock()
	s.resetTokens[body.Email] = uuid.NewString()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (s *Server) confirmEmail(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "token") == "" || chi.URLParam(r, "token") == "expired" {
		writeDetail(w, http.StatusBadRequest, "Token expired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (s *Server) confirmReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var body struct {
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	for email, t := range s.resetTokens {
		if t != token {
			continue
		}
		for _, a := range s.accounts {
			if a.User.Email == email {
				a.Password = body.Password
			}
		}
		delete(s.resetTokens, email)
		writeJSON(w, http.StatusOK, map[string]bool{"status": true})
		return
	}
	writeDetail(w, http.StatusBadRequest, "Invalid token")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	a, _ := s.Account(currentID(r))
	writeJSON(w, http.StatusOK, a.User)
}

// ---- face handlers ----

func (s *Server) verifyFace(w http.ResponseWriter, r *http.Request) {
	img, ok := readImage(w, r)
	if !ok {
		return
	}
	a := s.byEmail(r.FormValue("email"))
	if a == nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if a.Face == nil {
		writeDetail(w, http.StatusNotFound, "Embedding not found")
		return
	}
	if !bytes.Equal(a.Face, img) {
		writeDetail(w, http.StatusForbidden, "Face not recognized")
		return
	}
	if a.PIN != "" {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"requires_pin":   true,
			"pin_verify_url": "/face/verify-pin",
			"user_id":        a.User.ID,
			"emb_id":         a.EmbeddingID,
			"message":        "PIN required",
		})
		return
	}
	s.writeTokens(w, a.User.ID)
}

func (s *Server) verifyPin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form")
		return
	}
	id, _ := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
	a, ok := s.Account(id)
	if !ok || a.Face == nil {
		writeDetail(w, http.StatusNotFound, "Embedding not found")
		return
	}
	if a.PIN == "" {
		writeDetail(w, http.StatusNotFound, "PIN not found")
		return
	}
	if a.PIN != r.FormValue("pin") {
		writeDetail(w, http.StatusUnauthorized, "Wrong PIN")
		return
	}
	s.writeTokens(w, id)
}

func (s *Server) createFace(w http.ResponseWriter, r *http.Request) {
	img, ok := readImage(w, r)
	if !ok {
		return
	}
	id, _ := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
	emb, ok := s.enroll(id, img)
	if !ok {
		writeDetail(w, http.StatusNotFound, "User does not exist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "embedding_id": emb})
}

func (s *Server) faceStatus(w http.ResponseWriter, r *http.Request) {
	a, _ := s.Account(currentID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"emb": a.Face != nil})
}

func (s *Server) putFace(w http.ResponseWriter, r *http.Request) {
	img, ok := readImage(w, r)
	if !ok {
		return
	}
	emb, _ := s.enroll(currentID(r), img)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "embedding_id": emb})
}

func (s *Server) deleteFace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a := s.accounts[currentID(r)]
	a.Face, a.EmbeddingID, a.PIN = nil, 0, ""
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) pinStatus(w http.ResponseWriter, r *http.Request) {
	a, _ := s.Account(currentID(r))
	if a.PIN == "" {
		writeJSON(w, http.StatusOK, map[string]any{"has_pin": false, "pin_id": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"has_pin": true, "pin_id": a.EmbeddingID, "is_active": true})
}

func (s *Server) createPin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[currentID(r)]
	if a.Face == nil {
		writeDetail(w, http.StatusNotFound, "Embedding not found")
		return
	}
	a.PIN = r.FormValue("pin")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pin_id": a.EmbeddingID, "created": true})
}

func (s *Server) deletePin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.accounts[currentID(r)].PIN = ""
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "deleted": true})
}

// ---- helpers ----

func (s *Server) byEmail(email string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.User.Email, email) {
			return a
		}
	}
	return nil
}

func (s *Server) enroll(id int64, img []byte) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return 0, false
	}
	a.Face = img
	if a.EmbeddingID == 0 {
		a.EmbeddingID = 100 + id
	}
	return a.EmbeddingID, true
}

func readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form")
		return nil, false
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return nil, false
	}
	defer f.Close()
	if !strings.HasPrefix(hdr.Header.Get("Content-Type"), "image/") {
		writeDetail(w, http.StatusBadRequest, "Invalid image")
		return nil, false
	}
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		writeDetail(w, http.StatusBadRequest, "Empty file")
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) String() string { return fmt.Sprintf("boundarytest.Server(%s)", s.srv.URL) }
