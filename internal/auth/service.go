package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-supplier/internal/common"
)

var (
	errInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
	errSessionExpired     = common.NewAppError("SESSION_EXPIRED", "refresh session expired", http.StatusUnauthorized, nil)
	errEmailTaken         = common.NewAppError("EMAIL_TAKEN", "email already registered", http.StatusConflict, nil)
)

// TokenPair carries a signed access token and the raw refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Service issues access tokens and manages refresh sessions.
type Service struct {
	Store      Store
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func NewService(store Store, secret []byte, issuer string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		Store:      store,
		Secret:     secret,
		Issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        time.Now,
	}
}

// Register creates a supplier account and opens a first session.
func (s *Service) Register(ctx context.Context, name, email, password, userAgent, ip string) (Supplier, TokenPair, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return Supplier{}, TokenPair{}, err
	}
	sup, err := s.Store.CreateSupplier(ctx, name, email, hash)
	if errors.Is(err, ErrDuplicateEmail) {
		return Supplier{}, TokenPair{}, errEmailTaken
	}
	if err != nil {
		return Supplier{}, TokenPair{}, err
	}
	pair, err := s.openSession(ctx, sup.ID, userAgent, ip)
	return sup, pair, err
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ip string) (Supplier, TokenPair, error) {
	sup, err := s.Store.GetSupplierByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Supplier{}, TokenPair{}, errInvalidCredentials
	}
	if err != nil {
		return Supplier{}, TokenPair{}, err
	}
	ok, err := argon2id.ComparePasswordAndHash(password, sup.PasswordHash)
	if err != nil {
		return Supplier{}, TokenPair{}, err
	}
	if !ok {
		return Supplier{}, TokenPair{}, errInvalidCredentials
	}
	pair, err := s.openSession(ctx, sup.ID, userAgent, ip)
	return sup, pair, err
}

// Refresh rotates the refresh token and issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	sess, err := s.Store.GetSessionByTokenHash(ctx, hashRefreshToken(refreshToken))
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, errSessionExpired
	}
	if err != nil {
		return TokenPair{}, err
	}
	now := s.Now()
	if now.After(sess.ExpiresAt) {
		_ = s.Store.DeleteSessionByTokenHash(ctx, sess.TokenHash)
		return TokenPair{}, errSessionExpired
	}
	next, err := generateToken(32)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Store.RotateSessionToken(ctx, sess.ID, hashRefreshToken(next), now.Add(s.RefreshTTL)); err != nil {
		return TokenPair{}, err
	}
	access, err := s.signAccessToken(sess.SupplierID, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: next, ExpiresIn: int64(s.AccessTTL.Seconds())}, nil
}

// Logout invalidates the refresh session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Store.DeleteSessionByTokenHash(ctx, hashRefreshToken(refreshToken))
}

// Me loads the supplier profile for an authenticated request.
func (s *Service) Me(ctx context.Context, supplierID string) (Supplier, error) {
	sup, err := s.Store.GetSupplierByID(ctx, supplierID)
	if errors.Is(err, ErrNotFound) {
		return Supplier{}, common.NewAppError("NOT_FOUND", "supplier not found", http.StatusNotFound, nil)
	}
	return sup, err
}

func (s *Service) openSession(ctx context.Context, supplierID, userAgent, ip string) (TokenPair, error) {
	now := s.Now()
	refresh, err := generateToken(32)
	if err != nil {
		return TokenPair{}, err
	}
	sess := Session{
		SupplierID: supplierID,
		TokenHash:  hashRefreshToken(refresh),
		UserAgent:  userAgent,
		IP:         ip,
		ExpiresAt:  now.Add(s.RefreshTTL),
	}
	if err := s.Store.InsertSession(ctx, sess); err != nil {
		return TokenPair{}, err
	}
	access, err := s.signAccessToken(supplierID, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.AccessTTL.Seconds())}, nil
}

func (s *Service) signAccessToken(supplierID string, now time.Time) (string, error) {
	tok, err := jwt.NewBuilder().
		Issuer(s.Issuer).
		Subject(supplierID).
		IssuedAt(now).
		Expiration(now.Add(s.AccessTTL)).
		Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func generateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
