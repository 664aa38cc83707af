package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubStore struct {
	suppliers map[string]Supplier // keyed by email
	sessions  map[string]Session  // keyed by token hash
	nextID    int
}

func newStubStore() *stubStore {
	return &stubStore{
		suppliers: map[string]Supplier{},
		sessions:  map[string]Session{},
	}
}

func (s *stubStore) CreateSupplier(_ context.Context, name, email, hash string) (Supplier, error) {
	if _, ok := s.suppliers[email]; ok {
		return Supplier{}, ErrDuplicateEmail
	}
	s.nextID++
	sup := Supplier{ID: "sup-" + string(rune('0'+s.nextID)), Name: name, Email: email, PasswordHash: hash}
	s.suppliers[email] = sup
	return sup, nil
}

func (s *stubStore) GetSupplierByEmail(_ context.Context, email string) (Supplier, error) {
	sup, ok := s.suppliers[email]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return sup, nil
}

func (s *stubStore) GetSupplierByID(_ context.Context, id string) (Supplier, error) {
	for _, sup := range s.suppliers {
		if sup.ID == id {
			return sup, nil
		}
	}
	return Supplier{}, ErrNotFound
}

func (s *stubStore) InsertSession(_ context.Context, sess Session) error {
	sess.ID = "sess-" + sess.TokenHash[:8]
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *stubStore) GetSessionByTokenHash(_ context.Context, hash string) (Session, error) {
	sess, ok := s.sessions[hash]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *stubStore) RotateSessionToken(_ context.Context, sessionID, newHash string, expiresAt time.Time) error {
	for h, sess := range s.sessions {
		if sess.ID == sessionID {
			delete(s.sessions, h)
			sess.TokenHash = newHash
			sess.ExpiresAt = expiresAt
			s.sessions[newHash] = sess
			return nil
		}
	}
	return ErrNotFound
}

func (s *stubStore) DeleteSessionByTokenHash(_ context.Context, hash string) error {
	delete(s.sessions, hash)
	return nil
}

func (s *stubStore) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for h, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, h)
			n++
		}
	}
	return n, nil
}

func newTestService(store Store) *Service {
	svc := NewService(store, []byte("test-secret-32-bytes-minimum-ok!"), "backend-supplier", 15*time.Minute, 7*24*time.Hour)
	svc.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	ctx := context.Background()

	sup, pair, err := svc.Register(ctx, "Acme Foods", "acme@example.com", "sw0rdfish-long", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.NotEmpty(t, sup.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Len(t, store.sessions, 1)

	_, _, err = svc.Register(ctx, "Acme Again", "acme@example.com", "sw0rdfish-long", "ua", "1.2.3.4")
	require.ErrorIs(t, err, errEmailTaken)

	_, _, err = svc.Login(ctx, "acme@example.com", "wrong-password", "ua", "1.2.3.4")
	require.ErrorIs(t, err, errInvalidCredentials)

	got, loginPair, err := svc.Login(ctx, "acme@example.com", "sw0rdfish-long", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, sup.ID, got.ID)
	require.NotEqual(t, pair.RefreshToken, loginPair.RefreshToken)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	svc.Now = time.Now

	_, pair, err := svc.Register(context.Background(), "Acme", "a@example.com", "sw0rdfish-long", "", "")
	require.NoError(t, err)

	v := TokenValidator{Secret: svc.Secret, Issuer: svc.Issuer}
	supplierID, err := v.Validate(pair.AccessToken)
	require.NoError(t, err)
	require.NotEmpty(t, supplierID)

	_, err = v.Validate(pair.AccessToken + "x")
	require.Error(t, err)

	wrongIssuer := TokenValidator{Secret: svc.Secret, Issuer: "someone-else"}
	_, err = wrongIssuer.Validate(pair.AccessToken)
	require.Error(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Acme", "a@example.com", "sw0rdfish-long", "", "")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// the old token must be unusable after rotation
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, errSessionExpired)

	_, err = svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshExpiredSession(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Acme", "a@example.com", "sw0rdfish-long", "", "")
	require.NoError(t, err)

	svc.Now = func() time.Time { return time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC) }
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, errSessionExpired)
	require.Empty(t, store.sessions)
}

func TestLogoutUnknownTokenIsNoop(t *testing.T) {
	svc := newTestService(newStubStore())
	require.NoError(t, svc.Logout(context.Background(), "never-issued"))
	require.NoError(t, svc.Logout(context.Background(), ""))
}

func TestLogoutRemovesSession(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Acme", "a@example.com", "sw0rdfish-long", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.True(t, errors.Is(err, errSessionExpired))
}
