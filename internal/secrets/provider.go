package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto uses the environment in development and the vault elsewhere
	SourceAuto SecretSource = "auto"
)

// ErrSecretNotFound is returned when a secret has no value in the configured source
var ErrSecretNotFound = errors.New("secret not found")

// Backend fetches a single secret by name
type Backend interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Provider resolves database and storage credentials from the configured source
type Provider struct {
	source  SecretSource
	backend Backend
	logger  *zap.Logger
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ResolveSource turns SourceAuto into a concrete source for the given environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider creates a provider. A vault source connects to Azure Key Vault.
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	switch source {
	case SourceEnvironment:
		return NewProviderWithBackend(source, envBackend{}, logger), nil
	case SourceVault:
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		client, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		return NewProviderWithBackend(source, client, logger), nil
	default:
		return nil, fmt.Errorf("unknown secret source: %s", source)
	}
}

// NewProviderWithBackend builds a provider around an existing backend
func NewProviderWithBackend(source SecretSource, backend Backend, logger *zap.Logger) *Provider {
	logger.Info("Secrets provider initialized", zap.String("source", string(source)))
	return &Provider{source: source, backend: backend, logger: logger}
}

// GetSecret retrieves a secret from the configured source
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	return p.backend.GetSecret(ctx, secretName)
}

// GetSecretOrEnv returns envName when it is set and otherwise asks the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := os.Getenv(envName); envValue != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return envValue, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Source returns the resolved secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

type envBackend struct{}

func (envBackend) GetSecret(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("environment variable '%s': %w", name, ErrSecretNotFound)
	}
	return value, nil
}
