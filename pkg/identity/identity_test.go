package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	user := &User{ID: "u1", Name: "Wang", Active: true, Roles: []string{"operator"}}

	ctx := WithUser(context.Background(), user)
	assert.Equal(t, user, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))

	resolved, err := ContextProvider{}.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", resolved.ID)

	resolved, err = ContextProvider{}.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestMemoryDirectory(t *testing.T) {
	dir := NewMemoryDirectory(&User{ID: "u1", Name: "Wang", Active: true, Roles: []string{"operator"}})

	user, err := dir.Lookup(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Wang", user.Name)

	// Lookups return copies; mutating one must not leak back.
	user.Roles[0] = "administrator"
	again, err := dir.Lookup(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"operator"}, again.Roles)

	_, err = dir.Lookup(context.Background(), "ghost")
	assert.Error(t, err)

	dir.Add(&User{ID: "u2", Active: true})
	_, err = dir.Lookup(context.Background(), "u2")
	assert.NoError(t, err)
}

func TestMiddleware(t *testing.T) {
	dir := NewMemoryDirectory(&User{ID: "u1", Name: "Wang", Active: true})
	mw := NewMiddleware(dir)

	var seen *User
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	// Known user id resolves to a full record.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(UserIDHeader, "u1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "Wang", seen.Name)

	// Missing header passes through unauthenticated.
	seen = nil
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Nil(t, seen)

	// Unknown id is treated the same as no identity.
	seen = nil
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(UserIDHeader, "ghost")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)
}

func TestStaticProvider(t *testing.T) {
	user := &User{ID: "u1"}
	resolved, err := StaticProvider{User: user}.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, user, resolved)

	_, err = StaticProvider{Err: assert.AnError}.CurrentUser(context.Background())
	assert.Error(t, err)
}
