package oasis_test

import (
	"context"
	"testing"

	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFinalizerWritesMarker(t *testing.T) {
	session := newMemSession()
	ctx := oasis.WithSession(context.Background(), session)
	finalizer := oasis.NewSessionFinalizer(oasis.WithFinalizerLogger(&captureLogger{}))

	account := &oasis.Account{ID: uuid.New()}
	ok := finalizer.Finalize(ctx, account, memberRecord())
	require.True(t, ok)

	marker, found := oasis.ReadMarker(session)
	require.True(t, found)
	assert.Equal(t, "123", marker.MemberID)
	assert.Equal(t, "tok-1", marker.APIToken)
	assert.Equal(t, "Regular Members", marker.RegCategory)
	assert.Equal(t, []string{"Governing Council"}, marker.OrchardRoles)
	assert.False(t, session.Has(oasis.SessionKeyUID), "finalizing does not log the account in")
}

func TestSessionFinalizerSkipsEmptyOrchardRoles(t *testing.T) {
	session := newMemSession()
	ctx := oasis.WithSession(context.Background(), session)
	finalizer := oasis.NewSessionFinalizer(oasis.WithFinalizerLogger(&captureLogger{}))

	record := memberRecord()
	record.OrchardRoles = nil

	require.True(t, finalizer.Finalize(ctx, &oasis.Account{ID: uuid.New()}, record))
	assert.False(t, session.Has(oasis.SessionKeyOrchardRoles))
	assert.True(t, oasis.HasMarker(session))
}

func TestSessionFinalizerRefusesAdministratorSession(t *testing.T) {
	session := newMemSession()
	admin := &oasis.Account{ID: uuid.New(), Roles: []oasis.Role{oasis.RoleAdministrator}}
	ctx := oasis.WithAccount(oasis.WithSession(context.Background(), session), admin)

	logger := &captureLogger{}
	finalizer := oasis.NewSessionFinalizer(oasis.WithFinalizerLogger(logger))

	ok := finalizer.Finalize(ctx, &oasis.Account{ID: uuid.New()}, memberRecord())
	assert.False(t, ok)
	assert.Empty(t, session.values)
	assert.True(t, logger.has("WARN", "refusing to overwrite administrator session"))
}

func TestSessionFinalizerWithoutSession(t *testing.T) {
	logger := &captureLogger{}
	finalizer := oasis.NewSessionFinalizer(oasis.WithFinalizerLogger(logger))

	ok := finalizer.Finalize(context.Background(), &oasis.Account{ID: uuid.New()}, memberRecord())
	assert.False(t, ok)
	assert.True(t, logger.has("ERROR", "no request session"))
}

func TestSessionFinalizerWithoutRecord(t *testing.T) {
	session := newMemSession()
	ctx := oasis.WithSession(context.Background(), session)
	finalizer := oasis.NewSessionFinalizer(oasis.WithFinalizerLogger(&captureLogger{}))

	assert.False(t, finalizer.Finalize(ctx, &oasis.Account{ID: uuid.New()}, nil))
	assert.Empty(t, session.values)
}
