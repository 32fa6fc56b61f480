package oasis_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	oasis.PasswordHashCost = bcrypt.MinCost
}

// memAccounts is an in memory oasis.AccountStore.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*oasis.Account
	saves    int
	saveErr  error
	findErr  error
	emailErr error
}

func newMemAccounts(seed ...*oasis.Account) *memAccounts {
	m := &memAccounts{accounts: map[uuid.UUID]*oasis.Account{}}
	for _, a := range seed {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounts) find(match func(*oasis.Account) bool) *oasis.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			cp := *a
			cp.Roles = append([]oasis.Role(nil), a.Roles...)
			return &cp
		}
	}
	return nil
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*oasis.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.find(func(a *oasis.Account) bool { return a.ID.String() == id }), nil
}

func (m *memAccounts) FindByMemberID(_ context.Context, memberID string) (*oasis.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.find(func(a *oasis.Account) bool { return a.MemberID != "" && a.MemberID == memberID }), nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*oasis.Account, error) {
	if m.emailErr != nil {
		return nil, m.emailErr
	}
	return m.find(func(a *oasis.Account) bool { return a.Email != "" && strings.EqualFold(a.Email, email) }), nil
}

func (m *memAccounts) FindByUsername(_ context.Context, username string) (*oasis.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.find(func(a *oasis.Account) bool { return a.Username == username }), nil
}

func (m *memAccounts) Create(fields oasis.AccountFields) *oasis.Account {
	a := &oasis.Account{
		ID:        fields.ID,
		Username:  fields.Username,
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		Email:     fields.Email,
		MemberID:  fields.MemberID,
		Status:    fields.Status,
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	for _, r := range fields.Roles {
		a.AddRole(r)
	}
	return a
}

func (m *memAccounts) Save(_ context.Context, account *oasis.Account) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	cp := *account
	cp.Roles = append([]oasis.Role(nil), account.Roles...)
	m.accounts[account.ID] = &cp
	return nil
}

func (m *memAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

// memSession is an in memory oasis.SessionStore with the optional
// renew, remove and destroy capabilities.
type memSession struct {
	values    map[string]any
	renewed   int
	destroyed bool
}

func newMemSession() *memSession {
	return &memSession{values: map[string]any{}}
}

func (s *memSession) Get(key string) any      { return s.values[key] }
func (s *memSession) Set(key string, val any) { s.values[key] = val }
func (s *memSession) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}
func (s *memSession) Remove(key string) { delete(s.values, key) }
func (s *memSession) RenewToken() error {
	s.renewed++
	return nil
}
func (s *memSession) Destroy() error {
	s.destroyed = true
	s.values = map[string]any{}
	return nil
}

// captureMessenger records user facing messages.
type captureMessenger struct {
	successes []string
	warnings  []string
	errors    []string
}

func (c *captureMessenger) Success(msg string) { c.successes = append(c.successes, msg) }
func (c *captureMessenger) Warning(msg string) { c.warnings = append(c.warnings, msg) }
func (c *captureMessenger) Error(msg string)   { c.errors = append(c.errors, msg) }

// captureLogger records log lines as "LEVEL msg".
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, args))
}

func (l *captureLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }

func (l *captureLogger) has(level, fragment string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}

// captureSink records activity events.
type captureSink struct {
	mu     sync.Mutex
	events []oasis.ActivityEvent
	err    error
}

func (s *captureSink) Record(_ context.Context, event oasis.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *captureSink) types() []oasis.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]oasis.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// stubRegistry implements oasis.MemberAuthenticator.
type stubRegistry struct {
	record *oasis.RegistryRecord
	err    error
	panics bool
	calls  int
	lastID string
}

func (s *stubRegistry) Authenticate(_ context.Context, identifier, _ string) (*oasis.RegistryRecord, error) {
	s.calls++
	s.lastID = identifier
	if s.panics {
		panic("registry exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

var errBoom = errors.New("boom")

// routerContext lets MockContext embed router.Context without a field
// named Context shadowing the Context method.
type routerContext = router.Context

// MockContext mocks the router.Context methods the package calls. The
// embedded interface is nil, any other method panics.
type MockContext struct {
	routerContext
	mock.Mock
}

func (m *MockContext) Next() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}
