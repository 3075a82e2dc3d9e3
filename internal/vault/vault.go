// internal/vault/vault.go
//
// Vault reference resolution for configuration values.
//
// Context
// -------
//   - Config values of the form `vault:<mount>/<path>#<key>` name one key of
//     a KV-v2 secret.  The loader builds a Resolver per load, resolves every
//     reference, and drops it; nothing here outlives config loading, so
//     there is no token renewal.
//   - A Resolver reads each secret path at most once.  `auth.password` and
//     `storage.dataapi.api_key` usually live in the same secret, which then
//     costs one round trip.
//   - Header block, section underlines, Oxford commas, two spaces after
//     periods.
//
// Public workflow
// ---------------
//  1. r, err := vault.New(zap.S().Debugf)              // VAULT_ADDR, VAULT_TOKEN.
//  2. pw, err := r.Resolve(ctx, "vault:kv/app#pw")
//
// Build tags: none.
package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// RefPrefix marks a config value that lives in Vault.
const RefPrefix = "vault:"

//
// SECTION 1.  References
//

// IsRef reports whether s is a `vault:` reference.
func IsRef(s string) bool {
	return strings.HasPrefix(s, RefPrefix)
}

// ParseRef splits `vault:<path>#<key>` into its path and key.
func ParseRef(ref string) (secretPath, key string, err error) {
	if !IsRef(ref) {
		return "", "", fmt.Errorf("not a vault reference: %q", ref)
	}
	body := strings.TrimPrefix(ref, RefPrefix)
	i := strings.LastIndexByte(body, '#')
	if i <= 0 || i == len(body)-1 {
		return "", "", fmt.Errorf("vault reference %q must look like vault:<path>#<key>", ref)
	}
	return body[:i], body[i+1:], nil
}

//
// SECTION 2.  Resolver
//

// secretReader fetches the data map of one KV-v2 secret.
type secretReader interface {
	Read(ctx context.Context, mount, rel string) (map[string]any, error)
}

type kvv2 struct{ api *vault.Client }

func (k kvv2) Read(ctx context.Context, mount, rel string) (map[string]any, error) {
	sec, err := k.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// Resolver is safe for concurrent use.  Zero value is invalid.
type Resolver struct {
	src   secretReader
	logFn func(string, ...any)

	mu   sync.Mutex
	read map[string]map[string]any // secret path → data
}

// New builds a Resolver from the standard Vault environment.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   scheme and host of the Vault server.
// • VAULT_TOKEN  token used for every read.
func New(logFn func(string, ...any)) (*Resolver, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}
	return newResolver(kvv2{api: apiCli}, logFn), nil
}

func newResolver(src secretReader, logFn func(string, ...any)) *Resolver {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	return &Resolver{src: src, logFn: logFn, read: make(map[string]map[string]any)}
}

// Resolve returns the string stored under the key a `vault:` reference
// names.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	secretPath, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	data, err := r.secret(ctx, secretPath)
	if err != nil {
		return "", err
	}
	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}
	return s, nil
}

func (r *Resolver) secret(ctx context.Context, secretPath string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if data, ok := r.read[secretPath]; ok {
		return data, nil
	}
	mount, rel := splitMount(secretPath)
	if rel == "" {
		return nil, fmt.Errorf("vault path %q needs <mount>/<path>", secretPath)
	}
	data, err := r.src.Read(ctx, mount, rel)
	if err != nil {
		return nil, fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	r.read[secretPath] = data
	r.logFn("vault: read %s (%d keys)", secretPath, len(data))
	return data, nil
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
