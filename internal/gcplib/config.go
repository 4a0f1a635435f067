// Package gcplib adapts Google Cloud SDK client construction to the
// importer's needs.
package gcplib

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Config holds the GCP configuration needed to build Google API clients.
type Config struct {
	// ClientOptions are options to pass to the GCP client.
	ClientOptions []option.ClientOption
}

// GetConfig creates a GCP configuration that uses Application Default Credentials.
// Additional client options can be provided via optFns.
func GetConfig(ctx context.Context, optFns ...option.ClientOption) (*Config, error) {
	// GCP will automatically use Application Default Credentials (ADC)
	// which can be set via:
	// - GOOGLE_APPLICATION_CREDENTIALS environment variable
	// - gcloud auth application-default login
	// - Compute Engine/GKE service account

	return &Config{
		ClientOptions: optFns,
	}, nil
}

// RefreshTokenConfig holds the OAuth2 client credentials for a long-lived
// Drive refresh token, the alternative to ADC for environments without a
// GCP service account attached.
type RefreshTokenConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// GetConfigFromRefreshToken builds a Config whose client options carry an
// http.Client authenticated through a standing OAuth2 refresh token, rather
// than Application Default Credentials.
func GetConfigFromRefreshToken(ctx context.Context, rt RefreshTokenConfig) (*Config, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     rt.ClientID,
		ClientSecret: rt.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveReadonlyScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: rt.RefreshToken})

	return &Config{
		ClientOptions: []option.ClientOption{option.WithTokenSource(tokenSource)},
	}, nil
}

// NewDriveService creates a new Google Drive API client using the configuration.
func (c *Config) NewDriveService(ctx context.Context) (*drive.Service, error) {
	svc, err := drive.NewService(ctx, c.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}
	return svc, nil
}
