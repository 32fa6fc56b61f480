package sessions

import (
	"context"
	"testing"
	"time"

	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	ctx     context.Context
	cookies map[string]string
	written []*router.Cookie
}

func newFakeRequest() *fakeRequest {
	return &fakeRequest{
		ctx:     context.Background(),
		cookies: map[string]string{},
	}
}

func (f *fakeRequest) Cookies(key string, defaultValue ...string) string {
	if v, ok := f.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeRequest) Cookie(cookie *router.Cookie) {
	f.written = append(f.written, cookie)
}

func (f *fakeRequest) Context() context.Context {
	return f.ctx
}

func (f *fakeRequest) SetContext(ctx context.Context) {
	f.ctx = ctx
}

func TestStoreGetSetHas(t *testing.T) {
	manager := NewManager("oasis_session", time.Hour)

	ctx, err := manager.Load(context.Background(), "")
	require.NoError(t, err)

	store := NewStore(ctx, manager)
	assert.False(t, store.Has(oasis.SessionKeyMemberID))
	assert.Nil(t, store.Get(oasis.SessionKeyMemberID))

	store.Set(oasis.SessionKeyMemberID, "123")
	store.Set(oasis.SessionKeyOrchardRoles, []string{"Governing Council"})

	assert.True(t, store.Has(oasis.SessionKeyMemberID))
	assert.Equal(t, "123", store.Get(oasis.SessionKeyMemberID))
	assert.Equal(t, []string{"Governing Council"}, store.Get(oasis.SessionKeyOrchardRoles))

	store.Remove(oasis.SessionKeyMemberID)
	assert.False(t, store.Has(oasis.SessionKeyMemberID))
}

func TestLoadBindsSessionToContext(t *testing.T) {
	manager := NewManager("oasis_session", time.Hour)
	req := newFakeRequest()

	_, err := Load(req, manager)
	require.NoError(t, err)

	session, ok := oasis.SessionFromContext(req.Context())
	require.True(t, ok)
	require.NotNil(t, session)
}

func TestCommitWritesCookieAndRoundTrips(t *testing.T) {
	manager := NewManager("oasis_session", time.Hour)
	req := newFakeRequest()

	ctx, err := Load(req, manager)
	require.NoError(t, err)

	session, _ := oasis.SessionFromContext(req.Context())
	session.Set(oasis.SessionKeyMemberID, "123")
	session.Set(oasis.SessionKeyAPIToken, "tok-123")

	require.NoError(t, Commit(req, manager, ctx))
	require.Len(t, req.written, 1)

	cookie := req.written[0]
	assert.Equal(t, "oasis_session", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HTTPOnly)
	assert.Equal(t, "Lax", cookie.SameSite)

	next := newFakeRequest()
	next.cookies["oasis_session"] = cookie.Value

	_, err = Load(next, manager)
	require.NoError(t, err)

	reloaded, ok := oasis.SessionFromContext(next.Context())
	require.True(t, ok)
	assert.True(t, oasis.HasMarker(reloaded))

	marker, ok := oasis.ReadMarker(reloaded)
	require.True(t, ok)
	assert.Equal(t, "123", marker.MemberID)
	assert.Equal(t, "tok-123", marker.APIToken)
}

func TestCommitUnmodifiedWritesNothing(t *testing.T) {
	manager := NewManager("oasis_session", time.Hour)
	req := newFakeRequest()

	ctx, err := Load(req, manager)
	require.NoError(t, err)

	require.NoError(t, Commit(req, manager, ctx))
	assert.Empty(t, req.written)
}

func TestCommitDestroyedExpiresCookie(t *testing.T) {
	manager := NewManager("oasis_session", time.Hour)
	req := newFakeRequest()

	ctx, err := Load(req, manager)
	require.NoError(t, err)

	store := NewStore(ctx, manager)
	store.Set("uid", "acc-1")
	require.NoError(t, store.Destroy())

	require.NoError(t, Commit(req, manager, ctx))
	require.Len(t, req.written, 1)
	assert.Empty(t, req.written[0].Value)
	assert.True(t, req.written[0].Expires.Before(time.Now()))
}
