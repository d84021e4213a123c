// Package credentials resolves the secrets and storage targets a provider call needs before
// any upload or network work starts.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/port"
)

const authNone = "none"

// serviceAccountFile is the subset of a Google service account key file that is used.
type serviceAccountFile struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
}

// Resolver reads credentials from configuration. It holds no per-request state.
type Resolver struct {
	providers config.ProvidersConfig
	storage   config.StorageConfig
	handle    port.StorageHandle
	logger    *zap.Logger
}

// NewResolver creates a Resolver. handle is the result of initializing object storage at
// start-up; its error is reported on first use by a file-reference provider.
func NewResolver(providers config.ProvidersConfig, storage config.StorageConfig, handle port.StorageHandle, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		providers: providers,
		storage:   storage,
		handle:    handle,
		logger:    logger,
	}
}

// Resolve returns the credentials for the provider or a taxonomy error:
// domain.ErrMissingCredential, domain.ErrStorageUnavailable or domain.ErrUnknownProvider.
func (r *Resolver) Resolve(ctx context.Context, id domain.ProviderID) (*port.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch id {
	case domain.ProviderDeepSeek:
		return r.bearer(id, r.providers.DeepSeek)
	case domain.ProviderOpenAI:
		return r.bearer(id, r.providers.OpenAI)
	case domain.ProviderAnthropic:
		return r.bearer(id, r.providers.Anthropic)
	case domain.ProviderGoogle:
		return r.google()
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, string(id))
	}
}

func (r *Resolver) bearer(id domain.ProviderID, cfg config.ProviderConfig) (*port.Credentials, error) {
	if strings.EqualFold(cfg.Auth, authNone) {
		return &port.Credentials{API: domain.APICredential{Kind: domain.CredentialNone}}, nil
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: no API key configured for %s (set FREIGHTX_PROVIDERS_%s_API_KEY)",
			domain.ErrMissingCredential, id, strings.ToUpper(string(id)))
	}
	return &port.Credentials{API: domain.APICredential{Kind: domain.CredentialBearer, Token: key}}, nil
}

func (r *Resolver) google() (*port.Credentials, error) {
	cfg := r.providers.Google

	sa := serviceAccountFile{
		ProjectID:    cfg.ProjectID,
		PrivateKeyID: cfg.PrivateKeyID,
		PrivateKey:   cfg.PrivateKey,
		ClientEmail:  cfg.ClientEmail,
	}
	if cfg.CredentialsFile != "" {
		fromFile, err := r.loadServiceAccount(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		// Explicit fields win over the key file.
		if sa.ProjectID == "" {
			sa.ProjectID = fromFile.ProjectID
		}
		if sa.PrivateKeyID == "" {
			sa.PrivateKeyID = fromFile.PrivateKeyID
		}
		if sa.PrivateKey == "" {
			sa.PrivateKey = fromFile.PrivateKey
		}
		if sa.ClientEmail == "" {
			sa.ClientEmail = fromFile.ClientEmail
		}
	}

	var missing []string
	if sa.ClientEmail == "" {
		missing = append(missing, "client_email")
	}
	if sa.PrivateKey == "" {
		missing = append(missing, "private_key")
	}
	if sa.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: google service account is missing %s",
			domain.ErrMissingCredential, strings.Join(missing, ", "))
	}

	// Keys pasted into env vars usually carry literal \n sequences.
	pemKey := strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("%w: google private key is unusable: %v", domain.ErrMissingCredential, err)
	}

	if r.storage.Bucket == "" {
		return nil, fmt.Errorf("%w: google requires a storage bucket (set FREIGHTX_STORAGE_BUCKET)", domain.ErrMissingCredential)
	}
	client, err := r.handle.Ready()
	if err != nil {
		r.logger.Warn("credentials.Resolver.google: storage client not ready", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}

	return &port.Credentials{
		API: domain.APICredential{
			Kind:         domain.CredentialServiceAccount,
			ClientEmail:  sa.ClientEmail,
			PrivateKeyID: sa.PrivateKeyID,
			PrivateKey:   key,
			ProjectID:    sa.ProjectID,
			Location:     location,
		},
		Storage: &port.StorageTarget{
			Bucket: r.storage.Bucket,
			Prefix: r.storage.Prefix,
			Client: client,
		},
	}, nil
}

func (r *Resolver) loadServiceAccount(path string) (*serviceAccountFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading google credentials file: %v", domain.ErrMissingCredential, err)
	}
	var sa serviceAccountFile
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: decoding google credentials file: %v", domain.ErrMissingCredential, err)
	}
	if sa.Type != "" && sa.Type != "service_account" {
		return nil, fmt.Errorf("%w: google credentials file has type %q, want service_account", domain.ErrMissingCredential, sa.Type)
	}
	return &sa, nil
}

// Configured reports whether Resolve would succeed for id, without returning secrets.
func (r *Resolver) Configured(ctx context.Context, id domain.ProviderID) bool {
	_, err := r.Resolve(ctx, id)
	return err == nil
}
