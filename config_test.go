package oasis_test

import (
	"testing"
	"time"

	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OASIS_REGISTRY_ENDPOINT", "https://registry.example.org/api/auth/")
	t.Setenv("OASIS_ADMIN_USER", " svc ")
	t.Setenv("OASIS_ADMIN_PASSWORD", "pw")
	t.Setenv("OASIS_REQUEST_TIMEOUT", "5s")
	t.Setenv("OASIS_MEMBER_LOGOUT_URL", "https://members.example.org/logout")

	cfg, err := oasis.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://registry.example.org/api/auth", cfg.GetRegistryEndpoint())
	assert.Equal(t, "svc", cfg.GetAdminUser())
	assert.Equal(t, "pw", cfg.GetAdminPassword())
	assert.Equal(t, 5*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, oasis.DefaultConnectTimeout, cfg.GetConnectTimeout())
	assert.Equal(t, "https://members.example.org/logout", cfg.GetMemberLogoutURL())
	assert.Equal(t, "/", cfg.GetDefaultLogoutURL())
}

func TestLoadConfigFromEnvMissingValues(t *testing.T) {
	t.Setenv("OASIS_REGISTRY_ENDPOINT", "")
	t.Setenv("OASIS_ADMIN_USER", "")
	t.Setenv("OASIS_ADMIN_PASSWORD", "")

	_, err := oasis.LoadConfigFromEnv()
	require.Error(t, err)
	assert.Equal(t, oasis.KindMisconfigured, oasis.KindOf(err))
}

func TestRegistryConfigDefaults(t *testing.T) {
	var cfg oasis.RegistryConfig
	assert.Equal(t, oasis.DefaultRequestTimeout, cfg.GetRequestTimeout())
	assert.Equal(t, oasis.DefaultConnectTimeout, cfg.GetConnectTimeout())
	assert.Equal(t, "/", cfg.GetDefaultLogoutURL())
	assert.Empty(t, cfg.GetMemberLogoutURL())
}

func TestFormatValidationErrorToMap(t *testing.T) {
	assert.Empty(t, oasis.FormatValidationErrorToMap(nil))
	assert.Equal(t, map[string]string{"error": "boom"}, oasis.FormatValidationErrorToMap(errBoom))
}
