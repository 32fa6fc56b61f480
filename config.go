package oasis

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultRequestTimeout bounds the whole registry call
	DefaultRequestTimeout = 30 * time.Second
	// DefaultConnectTimeout bounds dialing the registry host
	DefaultConnectTimeout = 10 * time.Second
)

// RegistryConfig is the environment backed Config implementation.
type RegistryConfig struct {
	Endpoint         string        `env:"OASIS_REGISTRY_ENDPOINT"`
	AdminUser        string        `env:"OASIS_ADMIN_USER"`
	AdminPassword    string        `env:"OASIS_ADMIN_PASSWORD"`
	RequestTimeout   time.Duration `env:"OASIS_REQUEST_TIMEOUT" envDefault:"30s"`
	ConnectTimeout   time.Duration `env:"OASIS_CONNECT_TIMEOUT" envDefault:"10s"`
	MemberLogoutURL  string        `env:"OASIS_MEMBER_LOGOUT_URL"`
	DefaultLogoutURL string        `env:"OASIS_DEFAULT_LOGOUT_URL" envDefault:"/"`
}

var _ Config = RegistryConfig{}

// LoadConfigFromEnv reads and validates the registry configuration.
// A missing endpoint or admin credential is a fatal misconfiguration.
func LoadConfigFromEnv() (RegistryConfig, error) {
	var cfg RegistryConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, goerrors.Wrap(err, goerrors.CategoryInternal, "parse registry config env").
			WithTextCode(string(KindMisconfigured))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the mandatory registry settings.
func (c RegistryConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Endpoint, validation.Required, is.URL),
		validation.Field(&c.AdminUser, validation.Required),
		validation.Field(&c.AdminPassword, validation.Required),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ConnectTimeout, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return newKindError(KindMisconfigured, err, map[string]any{
			"fields": FormatValidationErrorToMap(err),
		})
	}
	return nil
}

func (c RegistryConfig) GetRegistryEndpoint() string {
	return strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
}

func (c RegistryConfig) GetAdminUser() string {
	return strings.TrimSpace(c.AdminUser)
}

func (c RegistryConfig) GetAdminPassword() string {
	return c.AdminPassword
}

func (c RegistryConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}

func (c RegistryConfig) GetConnectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

func (c RegistryConfig) GetMemberLogoutURL() string {
	return c.MemberLogoutURL
}

func (c RegistryConfig) GetDefaultLogoutURL() string {
	if c.DefaultLogoutURL == "" {
		return "/"
	}
	return c.DefaultLogoutURL
}

// FormatValidationErrorToMap flattens ozzo validation errors.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
		return out
	}

	out["error"] = fmt.Sprint(err)
	return out
}
