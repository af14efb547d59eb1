package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/WatchParty/internal/core"
	"github.com/dkeye/WatchParty/internal/domain"
)

type fakeUsers struct {
	users map[domain.UserID]*domain.User
}

func (f *fakeUsers) GetUser(_ context.Context, id domain.UserID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("no such user")
	}
	return u, nil
}

var (
	testNow  = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	testUser = &domain.User{ID: "u1", Username: "alice"}
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.Issue(testUser, testNow)
	require.NoError(t, err)

	uid, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, uid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Issue(testUser, testNow)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	token, err := m.Issue(testUser, testNow.Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewTokenManager("secret", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestResolverHappyPath(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	r := NewResolver(m, &fakeUsers{users: map[domain.UserID]*domain.User{testUser.ID: testUser}})

	token, err := m.Issue(testUser, testNow)
	require.NoError(t, err)

	user, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, testUser, user)
}

func TestResolverRejectsEmptyCredential(t *testing.T) {
	r := NewResolver(NewTokenManager("secret", time.Hour), &fakeUsers{})
	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestResolverRejectsDeletedAccount(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	r := NewResolver(m, &fakeUsers{users: map[domain.UserID]*domain.User{}})

	token, err := m.Issue(testUser, testNow)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated,
		"a valid signature over a deleted account must still fail")
}
