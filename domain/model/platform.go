package model

import (
	"fmt"
	"strings"
)

// Platform identifies an external publishing destination.
type Platform string

const (
	PlatformVideo Platform = "video-platform-a"
	PlatformPage  Platform = "page-platform-b"
	PlatformPhoto Platform = "photo-platform-c"
)

// RenewalStrategy describes how a platform keeps an access token usable.
type RenewalStrategy int

const (
	// RenewByRefresh trades a long-lived refresh token for a new short-lived access token.
	RenewByRefresh RenewalStrategy = iota + 1
	// RenewByExtension swaps a valid token for a long-lived one. Once expired, the user must reconnect.
	RenewByExtension
)

// AllPlatforms lists the supported platforms in display order.
func AllPlatforms() []Platform {
	return []Platform{PlatformVideo, PlatformPage, PlatformPhoto}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformVideo, PlatformPage, PlatformPhoto:
		return true
	}
	return false
}

func (p Platform) Renewal() RenewalStrategy {
	if p == PlatformVideo {
		return RenewByRefresh
	}
	return RenewByExtension
}

func (p Platform) String() string { return string(p) }

// ParsePlatform validates a raw platform identifier.
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown platform %q", ErrValidation, raw)
	}
	return p, nil
}

// ParsePlatforms validates a list of identifiers and removes duplicates while keeping order.
func ParsePlatforms(raw []string) ([]Platform, error) {
	seen := make(map[Platform]struct{}, len(raw))
	out := make([]Platform, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePlatform(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one platform is required", ErrValidation)
	}
	return out, nil
}
