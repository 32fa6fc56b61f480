package oasis_test

import (
	"context"
	"testing"

	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func guardContext(session oasis.SessionStore, messenger oasis.Messenger) context.Context {
	ctx := oasis.WithAccount(context.Background(), &oasis.Account{ID: uuid.New()})
	if session != nil {
		ctx = oasis.WithSession(ctx, session)
	}
	if messenger != nil {
		ctx = oasis.WithMessenger(ctx, messenger)
	}
	return ctx
}

func TestSessionGuardMemberWithToken(t *testing.T) {
	session := newMemSession()
	session.Set(oasis.SessionKeyMemberID, "123")
	session.Set(oasis.SessionKeyAPIToken, "tok-1")

	messenger := &captureMessenger{}
	sink := &captureSink{}
	guard := oasis.NewSessionGuard(oasis.WithGuardLogger(&captureLogger{}), oasis.WithGuardActivitySink(sink))

	res := guard.Check(guardContext(session, messenger))
	assert.Equal(t, oasis.GuardResult{Member: true}, res)
	assert.Empty(t, messenger.warnings)
	assert.Empty(t, sink.types())
}

func TestSessionGuardBlankTokenWarns(t *testing.T) {
	session := newMemSession()
	session.Set(oasis.SessionKeyMemberID, "123")
	session.Set(oasis.SessionKeyAPIToken, "  ")

	messenger := &captureMessenger{}
	sink := &captureSink{}
	logger := &captureLogger{}
	guard := oasis.NewSessionGuard(oasis.WithGuardLogger(logger), oasis.WithGuardActivitySink(sink))

	res := guard.Check(guardContext(session, messenger))
	assert.Equal(t, oasis.GuardResult{Member: true, Advisory: true}, res)
	assert.Equal(t, []string{oasis.MessageSessionAdvisory}, messenger.warnings)
	assert.Equal(t, []oasis.ActivityEventType{oasis.ActivityEventSessionAdvisory}, sink.types())
	assert.True(t, logger.has("WARN", "member session has no registry token"))
	assert.True(t, session.Has(oasis.SessionKeyMemberID), "guard never logs the member out")
}

func TestSessionGuardFallbackMessenger(t *testing.T) {
	session := newMemSession()
	session.Set(oasis.SessionKeyMemberID, "123")
	session.Set(oasis.SessionKeyAPIToken, "")

	messenger := &captureMessenger{}
	guard := oasis.NewSessionGuard(oasis.WithGuardLogger(&captureLogger{}), oasis.WithGuardMessenger(messenger))

	res := guard.Check(guardContext(session, nil))
	assert.True(t, res.Advisory)
	assert.Equal(t, []string{oasis.MessageSessionAdvisory}, messenger.warnings)
}

func TestSessionGuardSkipsNonMembers(t *testing.T) {
	guard := oasis.NewSessionGuard(oasis.WithGuardLogger(&captureLogger{}))

	t.Run("anonymous", func(t *testing.T) {
		session := newMemSession()
		session.Set(oasis.SessionKeyMemberID, "123")
		ctx := oasis.WithSession(context.Background(), session)
		assert.Equal(t, oasis.GuardResult{}, guard.Check(ctx))
	})

	t.Run("no session", func(t *testing.T) {
		assert.Equal(t, oasis.GuardResult{}, guard.Check(guardContext(nil, nil)))
	})

	t.Run("local account session", func(t *testing.T) {
		messenger := &captureMessenger{}
		res := guard.Check(guardContext(newMemSession(), messenger))
		assert.Equal(t, oasis.GuardResult{}, res)
		assert.Empty(t, messenger.warnings)
	})

	t.Run("member id without token key", func(t *testing.T) {
		session := newMemSession()
		session.Set(oasis.SessionKeyMemberID, "123")
		assert.Equal(t, oasis.GuardResult{}, guard.Check(guardContext(session, nil)))
	})
}

func TestSessionGuardMiddlewareNeverBlocks(t *testing.T) {
	session := newMemSession()
	session.Set(oasis.SessionKeyMemberID, "123")
	session.Set(oasis.SessionKeyAPIToken, "")

	messenger := &captureMessenger{}
	guard := oasis.NewSessionGuard(oasis.WithGuardLogger(&captureLogger{}))

	ctx := new(MockContext)
	ctx.On("Context").Return(guardContext(session, messenger))

	called := false
	handler := guard.Middleware()(func(c router.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, handler(ctx))
	assert.True(t, called)
	assert.Equal(t, []string{oasis.MessageSessionAdvisory}, messenger.warnings)
	ctx.AssertExpectations(t)
}
