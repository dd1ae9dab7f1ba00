// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   - optional `.env`                        – dotenv values,
//   - `conf/global.yaml`                     – primary static file,
//   - `TCMS_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with `vault:` is resolved through the
// secret source before unmarshalling, so the model never stores Vault
// references, only plain strings.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   - Durations are written as Go duration strings ("12h", "750ms").
//   - `Paths` is filled at runtime; YAML must not try to set it.
package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	ForceHTTPS      bool          `koanf:"force_https"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

//
// Store section
//

// Store selects and configures the content record store.
//
// `http` talks to the hosted base, `mysql` reads the synced SQL mirror,
// and `fixture` serves a YAML file (local development, demos).
type Store struct {
	Backend     string        `koanf:"backend"      validate:"required,oneof=http mysql fixture"`
	BaseURL     string        `koanf:"base_url"     validate:"omitempty,url"`
	BaseID      string        `koanf:"base_id"`
	APIKey      string        `koanf:"api_key"`
	RatePerSec  float64       `koanf:"rate_per_sec" validate:"gte=0"`
	Burst       int           `koanf:"burst"        validate:"gte=0"`
	Retries     int           `koanf:"retries"      validate:"gte=0,lte=10"`
	TierTimeout time.Duration `koanf:"tier_timeout" validate:"gte=0"`
	MySQLDSN    string        `koanf:"mysql_dsn"`
	FixturePath string        `koanf:"fixture_path"`
}

//
// Cache section
//

// Cache configures the in-process TTL cache and the optional Redis
// snapshot mirror.  An empty RedisAddr disables the mirror.
type Cache struct {
	TTL           time.Duration `koanf:"ttl"            validate:"gt=0"`
	MaxEntries    int           `koanf:"max_entries"    validate:"gt=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	RedisAddr     string        `koanf:"redis_addr"     validate:"omitempty,hostname_port"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"       validate:"gte=0"`
	RedisKey      string        `koanf:"redis_key"`
}

//
// Tenant section
//

// Tenant configures host resolution.  PortAliases maps a development port
// to the host it stands for ("3001" → "localhost:3001") and only applies
// when DevMode is on.  Default names the tenant id served to unknown
// hosts; empty means the lowest-ordinal active tenant.
type Tenant struct {
	DevMode     bool              `koanf:"dev_mode"`
	PortAliases map[string]string `koanf:"port_aliases"`
	Default     string            `koanf:"default"`
}

//
// Log and tracing sections
//

// Log configures the file logger.  Dir is relative to Paths.Root unless
// absolute.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

// Tracing configures the OTLP exporter.
type Tracing struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"gte=0,lte=1"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // TCMS_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP    HTTP    `koanf:"http"`
	Store   Store   `koanf:"store"`
	Cache   Cache   `koanf:"cache"`
	Tenant  Tenant  `koanf:"tenant"`
	Log     Log     `koanf:"log"`
	Tracing Tracing `koanf:"tracing"`
	Paths   Paths   `koanf:"-"`
}

// Defaults returns the values used for keys the layers leave unset.
func Defaults() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:      ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: Store{
			Backend:     "http",
			RatePerSec:  5,
			Burst:       1,
			Retries:     3,
			TierTimeout: 8 * time.Second,
		},
		Cache: Cache{
			TTL:           12 * time.Hour,
			MaxEntries:    1024,
			SweepInterval: 5 * time.Minute,
			RedisKey:      "tenantcms:snapshot",
		},
		Log:     Log{Level: "info", Dir: "logs"},
		Tracing: Tracing{ServiceName: "tenantcms", SamplingRate: 1},
	}
}
