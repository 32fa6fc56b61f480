package oasis

import "context"

var accountCtxKey = &contextKey{"account"}
var sessionCtxKey = &contextKey{"session"}
var messengerCtxKey = &contextKey{"messenger"}

type contextKey struct {
	name string
}

// WithAccount sets the account of the current, authenticated caller.
func WithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountCtxKey, account)
}

// AccountFromContext returns the authenticated caller, if any.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok && raw != nil
}

// WithSession binds the request session to ctx.
func WithSession(ctx context.Context, session SessionStore) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext returns the request session, if any.
func SessionFromContext(ctx context.Context) (SessionStore, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(sessionCtxKey).(SessionStore)
	return raw, ok && raw != nil
}

// WithMessenger binds a request scoped messenger to ctx.
func WithMessenger(ctx context.Context, messenger Messenger) context.Context {
	return context.WithValue(ctx, messengerCtxKey, messenger)
}

// MessengerFromContext returns the request messenger, if any.
func MessengerFromContext(ctx context.Context) (Messenger, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(messengerCtxKey).(Messenger)
	return raw, ok && raw != nil
}
