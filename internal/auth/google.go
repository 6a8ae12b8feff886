package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleClient resolves delegated Google access tokens to the account they
// belong to via the OAuth2 userinfo endpoint.
type GoogleClient struct{}

// NewGoogleClient creates a new GoogleClient
func NewGoogleClient() *GoogleClient {
	return &GoogleClient{}
}

// Verify looks up the userinfo for the given access token and returns the
// account's email and display name.
func (c *GoogleClient) Verify(ctx context.Context, accessToken string) (string, string, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})

	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return "", "", fmt.Errorf("google: failed to create oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("google: failed to fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return "", "", fmt.Errorf("google: userinfo has no email")
	}

	return info.Email, info.Name, nil
}
