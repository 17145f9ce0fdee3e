// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env` file.
  2. `conf/site.yaml`.
  3. Environment variables prefixed `LAB_`, where `__` maps to “.”
     (e.g., `LAB_HTTP__LISTEN_ADDR → http.listen_addr`).

Before unmarshal every string value beginning with `vault:` is replaced by
the secret it names (`vault:<mount>/<path>#<key>`).  The tree is then
unmarshalled, defaulted, validated, and cached in an `atomic.Pointer` for
lock-free reads.

Instrumentation
---------------
  • DEBUG spans for root discovery, YAML read, and env overlay.
  • ERROR spans for parse, overlay, vault, unmarshal, and validation failures.
  • INFO span for the final “config loaded” with key highlights.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/site.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
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
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/vault"
)

const (
	envPrefix   = "LAB_"
	vaultPrefix = "vault:"
	fileName    = "site.yaml"
)

var current atomic.Pointer[Config]

// SecretSource resolves `vault:` references.  *vault.Client satisfies it;
// tests substitute a map.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves LAB_ROOT or climbs directories until conf/site.yaml is
// found.  Falls back to the executable heuristic for the production layout.
func rootDir() string {
	if r := os.Getenv("LAB_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", fileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
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

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, and env overrides from the discovered root,
// resolving vault references with a lazily constructed Vault client.
func Load() (*Config, error) {
	return LoadFrom(rootDir(), nil)
}

// LoadFrom is Load with an explicit root and secret source.  A nil source
// constructs a Vault client on first use.
func LoadFrom(root string, secrets SecretSource) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", fileName)
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// LAB_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(k, secrets); err != nil {
		zap.S().Errorw("config vault resolve failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	cfg.applyDefaults()
	if !filepath.IsAbs(cfg.Uploads.Dir) {
		cfg.Uploads.Dir = filepath.Join(root, cfg.Uploads.Dir)
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"db_driver", cfg.Database.Driver,
		"notify_redis", cfg.Notify.RedisAddr != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault values ────────────────────────────────*/

// resolveSecrets swaps every `vault:` string in k for its secret value.
func resolveSecrets(k *koanf.Koanf, src SecretSource) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}
		path, field, found := vault.ParseRef(strings.TrimPrefix(s, vaultPrefix))
		if !found {
			return fmt.Errorf("config %s: vault reference %q lacks #key", key, s)
		}
		if src == nil {
			cli, err := vault.New(context.Background(), zap.S().Infof)
			if err != nil {
				return err
			}
			src = cli
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		secret, err := src.GetKV(ctx, path, field, 0)
		cancel()
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return err
		}
		zap.S().Debugw("config value resolved from vault", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }
