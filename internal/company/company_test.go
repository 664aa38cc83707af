package company

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-supplier/internal/common"
)

type memStore struct {
	profiles map[string]Profile
}

func (m *memStore) Get(_ context.Context, supplierID string) (Profile, error) {
	if p, ok := m.profiles[supplierID]; ok {
		return p, nil
	}
	return Profile{SupplierID: supplierID, Categories: []string{}, PromoKeys: []string{}}, nil
}

func (m *memStore) Upsert(_ context.Context, p Profile) (Profile, error) {
	p.UpdatedAt = time.Now()
	m.profiles[p.SupplierID] = p
	return p, nil
}

func TestSaveDedupesCategories(t *testing.T) {
	svc := NewService(&memStore{profiles: map[string]Profile{}})

	p, err := svc.Save(context.Background(), "sup-1", Input{
		Name:       "Acme Foods",
		Categories: []string{"coffee", " coffee ", "tea", "", "coffee"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"coffee", "tea"}, p.Categories)
}

func TestSaveValidation(t *testing.T) {
	svc := NewService(&memStore{profiles: map[string]Profile{}})

	_, err := svc.Save(context.Background(), "sup-1", Input{Name: "x"})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))

	_, err = svc.Save(context.Background(), "sup-1", Input{Name: "Acme", Website: "not a url"})
	require.Error(t, err)
}

func TestGetMissingProfileIsEmpty(t *testing.T) {
	svc := NewService(&memStore{profiles: map[string]Profile{}})

	p, err := svc.Get(context.Background(), "sup-1")
	require.NoError(t, err)
	require.Empty(t, p.Name)
	require.NotNil(t, p.Categories)
}
