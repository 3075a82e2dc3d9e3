// internal/config/model.go
//
// Typed configuration model for the customer-site service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from five overlay layers:
//
//   • built-in defaults (`Defaults()`)          – lowest precedence,
//   • optional `conf/.env`                      – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • legacy deployment variables (`PASSWORD`, `MONGODB_URI`, …),
//   • `SITES_`-prefixed environment overrides   – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

// Storage backend identifiers accepted by `storage.backend`.
const (
	BackendSQL     = "sql"
	BackendDataAPI = "dataapi"
	BackendMongo   = "mongo"
	BackendBadger  = "badger"
	BackendMemory  = "memory"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
}

//
// Auth section
//

// Auth holds the shared operator secret.  `Password` is usually a
// `vault:` reference in production.  An empty password is legal here; the
// authenticator then rejects every request.
type Auth struct {
	Password         string        `koanf:"password"`
	RequireTimestamp bool          `koanf:"require_timestamp"`
	MaxAge           time.Duration `koanf:"max_age" validate:"gt=0"`
}

//
// Storage section
//

type SQL struct {
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table"`
}

type DataAPI struct {
	URL        string        `koanf:"url"     validate:"omitempty,url"`
	APIKey     string        `koanf:"api_key"`
	Cluster    string        `koanf:"cluster"`
	Database   string        `koanf:"database"`
	Collection string        `koanf:"collection"`
	Timeout    time.Duration `koanf:"timeout"`
}

type Mongo struct {
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

type Badger struct {
	Path string `koanf:"path"`
}

// Storage selects exactly one backend.  When Backend is empty the loader
// infers it from whichever connection setting is present.
type Storage struct {
	Backend string  `koanf:"backend" validate:"omitempty,oneof=sql dataapi mongo badger memory"`
	SQL     SQL     `koanf:"sql"`
	DataAPI DataAPI `koanf:"dataapi"`
	Mongo   Mongo   `koanf:"mongo"`
	Badger  Badger  `koanf:"badger"`
}

//
// Log and GeoIP sections
//

type Log struct {
	Dir     string `koanf:"dir"`
	Level   string `koanf:"level"   validate:"omitempty,oneof=debug info warn error"`
	Console bool   `koanf:"console"`
}

type GeoIP struct {
	Path string `koanf:"path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // SITES_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP    HTTP    `koanf:"http"`
	Auth    Auth    `koanf:"auth"`
	Storage Storage `koanf:"storage"`
	Log     Log     `koanf:"log"`
	GeoIP   GeoIP   `koanf:"geoip"`
	Paths   Paths   `koanf:"-"` // not loaded from config files
}

// Defaults returns the built-in lowest layer.
func Defaults() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:   ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Auth: Auth{MaxAge: 10 * time.Minute},
		Storage: Storage{
			SQL:     SQL{Table: "customer_sites"},
			DataAPI: DataAPI{Timeout: 10 * time.Second},
		},
		Log: Log{Dir: "logs", Level: "info", Console: true},
	}
}
