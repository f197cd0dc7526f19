package configuration

import (
	"fmt"
	"os"
	"strings"

	"social-publisher/domain/model"
)

var envPrefix = map[model.Platform]string{
	model.PlatformVideo: "VIDEO_PLATFORM",
	model.PlatformPage:  "PAGE_PLATFORM",
	model.PlatformPhoto: "PHOTO_PLATFORM",
}

var defaultScopes = map[model.Platform][]string{
	model.PlatformVideo: {
		"https://www.googleapis.com/auth/youtube.upload",
		"https://www.googleapis.com/auth/youtube.readonly",
		"https://www.googleapis.com/auth/yt-analytics.readonly",
	},
	model.PlatformPage: {
		"pages_show_list",
		"pages_manage_posts",
		"pages_read_engagement",
		"read_insights",
	},
	model.PlatformPhoto: {
		"instagram_basic",
		"instagram_content_publish",
		"instagram_manage_insights",
		"pages_show_list",
	},
}

// OAuthClientFor returns the OAuth client of a platform with environment overrides applied.
// Environment variables take precedence, e.g. VIDEO_PLATFORM_CLIENT_ID.
func OAuthClientFor(p model.Platform) (OAuthClient, error) {
	var cfg OAuthClient
	switch p {
	case model.PlatformVideo:
		cfg = C.OAuth.Video
	case model.PlatformPage:
		cfg = C.OAuth.Page
	case model.PlatformPhoto:
		cfg = C.OAuth.Photo
	default:
		return cfg, fmt.Errorf("%w: unknown platform %q", model.ErrValidation, p)
	}
	prefix := envPrefix[p]
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10001
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/%s/callback", scheme, port, p)

	cfg.ClientID = getConfigValue(cfg.ClientID, prefix+"_CLIENT_ID", "")
	cfg.ClientSecret = getConfigValue(cfg.ClientSecret, prefix+"_CLIENT_SECRET", "")
	cfg.RedirectURI = getConfigValue(cfg.RedirectURI, prefix+"_REDIRECT_URI", defaultRedirect)
	cfg.AuthURL = getConfigValue(cfg.AuthURL, prefix+"_AUTH_URL", "")
	cfg.TokenURL = getConfigValue(cfg.TokenURL, prefix+"_TOKEN_URL", "")
	if C.App.TLSEnabled && strings.HasPrefix(cfg.RedirectURI, "http://") {
		cfg.RedirectURI = "https://" + strings.TrimPrefix(cfg.RedirectURI, "http://")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaultScopes[p]
	}
	return cfg, cfg.Validate(p)
}

// Validate reports the first missing field as a ConfigurationError.
func (c OAuthClient) Validate(p model.Platform) error {
	switch {
	case c.ClientID == "":
		return &model.ConfigurationError{Platform: p, Field: "client id"}
	case c.ClientSecret == "":
		return &model.ConfigurationError{Platform: p, Field: "client secret"}
	case c.RedirectURI == "":
		return &model.ConfigurationError{Platform: p, Field: "redirect uri"}
	}
	return nil
}

// getConfigValue prefers the environment, then a non-placeholder config value, then the default.
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
