package oasis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// maxRegistryBody caps how much of a registry response we read.
const maxRegistryBody = 1 << 20

// RegistryClient authenticates members against the OASIS registry.
// It keeps no state between calls and never retries.
type RegistryClient struct {
	cfg        Config
	httpClient *http.Client
	logger     Logger
	provider   LoggerProvider
}

// RegistryClientOption customizes the client.
type RegistryClientOption func(*RegistryClient)

// WithHTTPClient replaces the default timeout bound HTTP client.
func WithHTTPClient(client *http.Client) RegistryClientOption {
	return func(c *RegistryClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRegistryLogger sets the client logger.
func WithRegistryLogger(logger Logger) RegistryClientOption {
	return func(c *RegistryClient) {
		c.provider, c.logger = ResolveLogger("oasis.registry", c.provider, logger)
	}
}

// WithRegistryLoggerProvider sets the provider used to scope the client logger.
func WithRegistryLoggerProvider(provider LoggerProvider) RegistryClientOption {
	return func(c *RegistryClient) {
		c.provider, c.logger = ResolveLogger("oasis.registry", provider, nil)
	}
}

// NewRegistryClient builds a client for cfg. cfg may be incomplete, the
// missing values surface as ErrMisconfigured on Authenticate.
func NewRegistryClient(cfg Config, opts ...RegistryClientOption) *RegistryClient {
	provider, logger := ResolveLogger("oasis.registry", nil, nil)
	c := &RegistryClient{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.httpClient == nil {
		c.httpClient = newRegistryHTTPClient(cfg)
	}

	return c
}

func newRegistryHTTPClient(cfg Config) *http.Client {
	requestTimeout, connectTimeout := DefaultRequestTimeout, DefaultConnectTimeout
	if cfg != nil {
		requestTimeout, connectTimeout = cfg.GetRequestTimeout(), cfg.GetConnectTimeout()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{
		Timeout:   requestTimeout,
		Transport: transport,
	}
}

// Credentials is a login identifier and secret pair. Never persisted.
type Credentials struct {
	Identifier string
	Secret     string
}

// Validate checks both values are present and the identifier is an email.
// The secret must also be storable as the local password hash.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Identifier, validation.Required, is.Email),
		validation.Field(&c.Secret, validation.Required, validation.By(hashableSecret)),
	)
}

func hashableSecret(value interface{}) error {
	secret, _ := value.(string)
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("cannot be blank")
	}
	if len(secret) > MaxPasswordBytes {
		return fmt.Errorf("must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// registryResponse is the wire format of the registry member record.
type registryResponse struct {
	MemberID      flexString `json:"MemberID"`
	FirstName     string     `json:"FirstName"`
	LastName      string     `json:"LastName"`
	LoginID       string     `json:"LoginID"`
	RegStatus     string     `json:"RegStatus"`
	RegCategory   string     `json:"RegCategory"`
	OrchardRoles  string     `json:"OrchardRoles"`
	OasisAPIToken string     `json:"OasisAPIToken"`
}

// Authenticate validates the credentials against the registry and returns
// the sanitized member record.
func (c *RegistryClient) Authenticate(ctx context.Context, identifier, secret string) (record *RegistryRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("registry authenticate panic", "panic", r)
			record, err = nil, newKindError(KindUnknown, fmt.Errorf("panic: %v", r), nil)
		}
	}()

	creds := Credentials{Identifier: strings.TrimSpace(identifier), Secret: secret}
	if err := creds.Validate(); err != nil {
		return nil, newKindError(KindInvalidInput, err, map[string]any{
			"fields": FormatValidationErrorToMap(err),
		})
	}

	endpoint, authHeader, err := c.serviceCredentials()
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/%s/%s", endpoint, url.PathEscape(creds.Identifier), url.PathEscape(creds.Secret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, newKindError(KindMisconfigured, err, map[string]any{"endpoint": endpoint})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", authHeader)

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("registry request failed", "endpoint", endpoint, "error", redactURLError(err))
		return nil, newKindError(KindServiceUnavailable, redactURLError(err), map[string]any{
			"endpoint": endpoint,
		})
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxRegistryBody))
	if err != nil {
		return nil, newKindError(KindServiceUnavailable, err, map[string]any{
			"endpoint": endpoint,
			"status":   res.StatusCode,
		})
	}

	if kind, failed := classifyStatus(res.StatusCode); failed {
		c.logger.Info("registry rejected request", "status", res.StatusCode, "kind", kind)
		return nil, newKindError(kind, fmt.Errorf("registry responded %d", res.StatusCode), map[string]any{
			"status": res.StatusCode,
		})
	}

	var payload registryResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&payload); err != nil {
		return nil, newKindError(KindInvalidResponse, err, map[string]any{
			"status": res.StatusCode,
		})
	}

	if strings.TrimSpace(string(payload.MemberID)) == "" {
		return nil, newKindError(KindInvalidCredentials, errors.New("registry response has no member id"), nil)
	}

	return sanitizeRecord(payload), nil
}

func (c *RegistryClient) serviceCredentials() (string, string, error) {
	if c.cfg == nil {
		return "", "", newKindError(KindMisconfigured, errors.New("registry config is nil"), nil)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(c.cfg.GetRegistryEndpoint()), "/")
	user := c.cfg.GetAdminUser()
	password := c.cfg.GetAdminPassword()

	missing := []string{}
	if endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if user == "" || password == "" {
		missing = append(missing, "admin_credentials")
	}
	if len(missing) > 0 {
		return "", "", newKindError(KindMisconfigured, errors.New("registry config incomplete"), map[string]any{
			"missing": missing,
		})
	}

	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return endpoint, "Basic " + token, nil
}

func classifyStatus(status int) (ErrorKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return KindNone, false
	case status >= 500:
		return KindServiceUnavailable, true
	case status >= 400:
		return KindInvalidCredentials, true
	default:
		return KindUnknown, true
	}
}

func sanitizeRecord(payload registryResponse) *RegistryRecord {
	return &RegistryRecord{
		MemberID:     escapeField(string(payload.MemberID)),
		FirstName:    escapeField(payload.FirstName),
		LastName:     escapeField(payload.LastName),
		LoginEmail:   strings.TrimSpace(payload.LoginID),
		RegStatus:    escapeField(payload.RegStatus),
		RegCategory:  escapeField(payload.RegCategory),
		OrchardRoles: SplitOrchardRoles(escapeField(payload.OrchardRoles)),
		APIToken:     strings.TrimSpace(payload.OasisAPIToken),
	}
}

func escapeField(value string) string {
	return html.EscapeString(strings.TrimSpace(value))
}

// redactURLError drops the request URL, it carries the member secret.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return fmt.Errorf("%s registry: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
