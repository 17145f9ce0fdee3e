// internal/config/model.go
//
// Typed configuration model for the lab site.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                       – dotenv values,
//   • `conf/site.yaml`                      – primary static file,
//   • `LAB_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with `vault:` is resolved through the
// Vault client *before* unmarshalling, so the model never stores Vault
// URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	StaticDir  string `koanf:"static_dir"`
}

//
// Database section
//

// Database selects the SQL driver and its DSN.  SQLite is the default
// deployment; MySQL is supported for hosts that already run one.
type Database struct {
	Driver string `koanf:"driver" validate:"required,oneof=sqlite mysql"`
	DSN    string `koanf:"dsn"    validate:"required"`
}

//
// Session section
//

// Session configures the signed admin cookie.  Secret is typically a
// `vault:` reference in production.
type Session struct {
	Secret string        `koanf:"secret" validate:"required,min=32"`
	TTL    time.Duration `koanf:"ttl"`
	Secure bool          `koanf:"secure"`
}

//
// Cache section
//

// Cache sizes the list cache shared by the team and paper views.
type Cache struct {
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity" validate:"omitempty,gte=1"`
}

// Uploads points at the on-disk image store and the URL it is served under.
type Uploads struct {
	Dir      string `koanf:"dir"       validate:"required"`
	BaseURL  string `koanf:"base_url"  validate:"required,startswith=/"`
	MaxBytes int64  `koanf:"max_bytes" validate:"omitempty,gte=1024"`
}

// Notify configures page-changed signals.  An empty RedisAddr selects the
// log-only notifier.
type Notify struct {
	RedisAddr string `koanf:"redis_addr" validate:"omitempty,hostname_port"`
	Channel   string `koanf:"channel"`
}

// Admin seeds the first administrator when the users table is empty.
type Admin struct {
	Username    string `koanf:"username"     validate:"required"`
	Password    string `koanf:"password"     validate:"required,min=8"`
	DisplayName string `koanf:"display_name"`
}

// Log holds the logger level.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// GeoIP is optional; an empty path disables geo lookups.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // LAB_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Session  Session  `koanf:"session"`
	Cache    Cache    `koanf:"cache"`
	Uploads  Uploads  `koanf:"uploads"`
	Notify   Notify   `koanf:"notify"`
	Admin    Admin    `koanf:"admin"`
	Log      Log      `koanf:"log"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"-"`
}

// applyDefaults fills zero values that YAML and env left unset.
func (c *Config) applyDefaults() {
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 256
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = 16 << 20
	}
	if c.Notify.Channel == "" {
		c.Notify.Channel = "lab:page-changed"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Admin.DisplayName == "" {
		c.Admin.DisplayName = c.Admin.Username
	}
}
