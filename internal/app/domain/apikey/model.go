package apikey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sarkhq/console/pkg/isotime"
)

// SecretPrefix starts every generated secret.
const SecretPrefix = "sark_live_"

// SecretLength is the number of random characters following SecretPrefix.
const SecretLength = 30

// Status is a key's state. Revocation is soft.
type Status string

const (
	StatusActive  Status = "Active"
	StatusRevoked Status = "Revoked"
)

// Scope is a capability granted to a key.
type Scope string

const (
	ScopeRead    Scope = "read"
	ScopeWrite   Scope = "write"
	ScopeDeploy  Scope = "deploy"
	ScopeBilling Scope = "billing"
	ScopeAdmin   Scope = "admin"
)

var knownScopes = map[Scope]struct{}{
	ScopeRead: {}, ScopeWrite: {}, ScopeDeploy: {}, ScopeBilling: {}, ScopeAdmin: {},
}

// APIKey is the stored form of a key. The secret itself is never stored,
// only its bcrypt hash and a short display prefix.
type APIKey struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Prefix    string        `json:"prefix"`
	Hash      string        `json:"hash"`
	Status    Status        `json:"status"`
	Scopes    []Scope       `json:"scopes"`
	CreatedAt isotime.Time  `json:"createdAt"`
	LastUsed  *isotime.Time `json:"lastUsed"`
}

// Created is returned exactly once, when a key is generated.
type Created struct {
	Key    APIKey `json:"key"`
	Secret string `json:"secret"`
}

// NormalizeScopes de-duplicates and sorts scopes. Unknown scopes are
// rejected and at least one scope is required.
func NormalizeScopes(scopes []Scope) ([]Scope, error) {
	seen := make(map[Scope]struct{}, len(scopes))
	out := make([]Scope, 0, len(scopes))
	for _, s := range scopes {
		s = Scope(strings.ToLower(strings.TrimSpace(string(s))))
		if _, ok := knownScopes[s]; !ok {
			return nil, fmt.Errorf("unknown scope %q", s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one scope is required")
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
