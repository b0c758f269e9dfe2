package config

import (
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/user/ai-spend-tracker/internal/provider"
)

// Resolver merges file credentials with per-provider environment variables.
// OPENAI_API_KEY beats the api_key from the file, and an environment variable
// alone is enough to configure a provider.
type Resolver struct {
	cfg   *Config
	known []string
}

func NewResolver(cfg *Config, known []string) *Resolver {
	return &Resolver{cfg: cfg, known: known}
}

// Providers returns the sorted IDs of every provider with a usable credential.
func (r *Resolver) Providers() []string {
	candidates := lo.Uniq(append(lo.Keys(r.cfg.Providers), r.known...))
	ids := lo.Filter(candidates, func(id string, _ int) bool {
		_, ok := r.Resolve(id)
		return ok
	})
	sort.Strings(ids)
	return ids
}

func (r *Resolver) Resolve(id string) (provider.Credential, bool) {
	pc := r.cfg.Providers[id]

	key := os.Getenv(envName(id, "API_KEY"))
	if key == "" {
		key = pc.APIKey
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return provider.Credential{}, false
	}

	org := os.Getenv(envName(id, "ORG_ID"))
	if org == "" {
		org = pc.OrgID
	}

	return provider.Credential{Key: key, OrgID: strings.TrimSpace(org)}, true
}

func envName(id, field string) string {
	return strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_" + field
}
