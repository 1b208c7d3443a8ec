package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault struct {
	values map[string]string
	calls  int
}

func (f *fakeVault) GetSecret(_ context.Context, name, _ string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	value, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, errors.New("SecretNotFound")
	}
	var resp azsecrets.GetSecretResponse
	resp.Value = &value
	return resp, nil
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestNewProvider_VaultRequiresName(t *testing.T) {
	_, err := NewProvider(&ProviderConfig{Source: SourceVault, Environment: "production"}, zap.NewNop())
	require.Error(t, err)
}

func TestProvider_EnvironmentSource(t *testing.T) {
	t.Setenv("RENOVATION_TEST_SECRET", "s3cret")

	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SourceEnvironment, p.Source())

	value, err := p.GetSecret(context.Background(), "RENOVATION_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	_, err = p.GetSecret(context.Background(), "RENOVATION_TEST_MISSING")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestProvider_EnvOverridesVault(t *testing.T) {
	vault := &fakeVault{values: map[string]string{"db-password": "from-vault"}}
	client := newVaultClient(vault, &VaultConfig{}, zap.NewNop())
	p := NewProviderWithBackend(SourceVault, client, zap.NewNop())

	value, err := p.GetSecretOrEnv(context.Background(), "db-password", "RENOVATION_TEST_DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)

	t.Setenv("RENOVATION_TEST_DB_PASSWORD", "from-env")
	value, err = p.GetSecretOrEnv(context.Background(), "db-password", "RENOVATION_TEST_DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

func TestVaultClient_Cache(t *testing.T) {
	vault := &fakeVault{values: map[string]string{"storage-connection-string": "conn"}}
	client := newVaultClient(vault, &VaultConfig{CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		value, err := client.GetSecret(context.Background(), "storage-connection-string")
		require.NoError(t, err)
		assert.Equal(t, "conn", value)
	}
	assert.Equal(t, 1, vault.calls)

	now = now.Add(2 * time.Minute)
	_, err := client.GetSecret(context.Background(), "storage-connection-string")
	require.NoError(t, err)
	assert.Equal(t, 2, vault.calls)
}

func TestVaultClient_NoCache(t *testing.T) {
	vault := &fakeVault{values: map[string]string{"a": "1"}}
	client := newVaultClient(vault, &VaultConfig{}, zap.NewNop())

	_, _ = client.GetSecret(context.Background(), "a")
	_, _ = client.GetSecret(context.Background(), "a")
	assert.Equal(t, 2, vault.calls)

	_, err := client.GetSecret(context.Background(), "missing")
	require.Error(t, err)
}
