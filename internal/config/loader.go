// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from five layers (highest
precedence last):

  1. Built-in defaults from `Defaults()` via the structs provider.
  2. Optional `<root>/conf/.env`, merged into the process environment.
  3. Optional `conf/global.yaml`.
  4. Legacy deployment variables (`PASSWORD`, `DATABASE_DSN`,
     `MONGODB_URI`, `MONGODB_DATA_API_URL`, …) so existing hosts keep
     working unchanged.
  5. Environment variables prefixed `SITES_`, where `__` maps to "."
     (e.g., `SITES_STORAGE__BACKEND → storage.backend`).

After merging, `vault:` references are resolved, the tree is unmarshalled
into strongly-typed structs, the storage backend is inferred when left
blank, and the result is validated and cached in an `atomic.Pointer` for
lock-free reads.  `Reload()` simply calls `Load()` again and swaps the
pointer.

Instrumentation
---------------
  • DEBUG spans, root discovery, YAML read, env overlay.
  • ERROR spans, YAML parse, vault lookup, unmarshal, validation failures.
  • INFO  span, final "config loaded" with key highlights (never secrets).
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/`; this lets
    `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/vault"
)

var current atomic.Pointer[Config]

// EnvPrefix marks service overrides in the environment.
const EnvPrefix = "SITES_"

// legacyEnv maps the variable names of earlier deployments onto config
// keys.  Each inner map is loaded as its own layer because one legacy name
// may feed several keys.
var legacyEnv = []map[string]string{
	{
		"PASSWORD":                "auth.password",
		"DATABASE_DSN":            "storage.sql.dsn",
		"MONGODB_URI":             "storage.mongo.uri",
		"MONGODB_DATA_API_URL":    "storage.dataapi.url",
		"MONGODB_API_KEY":         "storage.dataapi.api_key",
		"MONGODB_CLUSTER_NAME":    "storage.dataapi.cluster",
		"MONGODB_DB_NAME":         "storage.dataapi.database",
		"MONGODB_COLLECTION_NAME": "storage.dataapi.collection",
	},
	{
		"MONGODB_DB_NAME":         "storage.mongo.database",
		"MONGODB_COLLECTION_NAME": "storage.mongo.collection",
	},
}

// secretSource is the subset of *vault.Resolver the loader needs.
type secretSource interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// newSecretSource is swapped out in tests.
var newSecretSource = func(context.Context) (secretSource, error) {
	return vault.New(zap.S().Debugf)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves SITES_ROOT or climbs directories until a conf/ directory
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if fi, err := os.Stat(filepath.Join(dir, "conf")); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

// YAMLPath returns the location of the static config file.
func YAMLPath(root string) string {
	return filepath.Join(root, "conf", "global.yaml")
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads every layer, validates, and caches Config.
func Load() (*Config, error) {
	return LoadFrom(rootDir())
}

// LoadFrom is Load with an explicit root directory.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, err
	}

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	yamlPath := YAMLPath(root)
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	for _, names := range legacyEnv {
		if err := k.Load(env.Provider("", ".", func(s string) string {
			return names[s] // "" drops the variable
		}), nil); err != nil {
			zap.S().Errorw("config legacy env overlay failed", "err", err)
			return nil, err
		}
	}

	// Env overrides: SITES_STORAGE__BACKEND → storage.backend
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(k); err != nil {
		zap.S().Errorw("config vault lookup failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	inferBackend(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"backend", cfg.Storage.Backend,
		"auth_configured", cfg.Auth.Password != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// inferBackend picks a backend from the connection settings when none is
// named, in the order the legacy deployments were tried.  With nothing
// configured it falls back to an embedded SQLite file under the root.
func inferBackend(c *Config) {
	s := &c.Storage
	if s.Backend == "" {
		switch {
		case s.SQL.DSN != "":
			s.Backend = BackendSQL
		case s.DataAPI.URL != "":
			s.Backend = BackendDataAPI
		case s.Mongo.URI != "":
			s.Backend = BackendMongo
		default:
			s.Backend = BackendSQL
		}
	}
	if s.Backend == BackendSQL && s.SQL.DSN == "" {
		s.SQL.DSN = filepath.Join(c.Paths.Root, "data", "customer_sites.db")
	}
	if s.Backend == BackendMongo && s.Mongo.URI == "" {
		s.Mongo.URI = "mongodb://localhost:27017"
	}
}

// resolveSecrets replaces every `vault:path#key` string in k.  The Vault
// client is only built when at least one reference exists.
func resolveSecrets(k *koanf.Koanf) error {
	var refs []string
	for key, val := range k.All() {
		if s, ok := val.(string); ok && vault.IsRef(s) {
			refs = append(refs, key)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src, err := newSecretSource(ctx)
	if err != nil {
		return err
	}
	for _, key := range refs {
		val, err := src.Resolve(ctx, k.String(key))
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return err
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
