// Package providers configures strategy.Strategy for the supported social
// identity providers. Each adapter only contributes endpoints, scopes and the
// normalization of the provider's user-info response.
package providers

import (
	"errors"
	"fmt"
	"strings"
)

type Provider string

const (
	Google    Provider = "google"
	Discord   Provider = "discord"
	GitHub    Provider = "github"
	Facebook  Provider = "facebook"
	Microsoft Provider = "microsoft"
	TikTok    Provider = "tiktok"
)

var ErrUnknownProvider = errors.New("providers: unknown provider")

func All() []Provider {
	return []Provider{Google, Discord, GitHub, Facebook, Microsoft, TikTok}
}

func (p Provider) String() string { return string(p) }

// Parse resolves a provider name case-insensitively.
func Parse(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range All() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// uniqueFields concatenates the field lists keeping the first occurrence of
// every field.
func uniqueFields(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, f := range list {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

func scopesOrDefault[S ~string](scopes []S, defaults []S) []string {
	if len(scopes) == 0 {
		scopes = defaults
	}
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}
