// Package config provides layered configuration loading for the SafeSend
// service: struct defaults overlaid by SAFESEND_* environment variables,
// decoded with mapstructure hooks and validated before use.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces all environment variables consumed by the service.
const envPrefix = "SAFESEND_"

// Config holds the merged runtime configuration for the SafeSend service.
// Precedence (lowest to highest): defaults, environment.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required,ip_port"`
	// DataDir holds the SQLite database and the blobs/ subdirectory.
	DataDir string `koanf:"data_dir" validate:"required,datadir"`
	// MaxBytes caps the ciphertext size per upload. Accepts plain bytes or
	// IEC suffixes in the environment ("50MiB").
	MaxBytes int64 `koanf:"max_bytes" validate:"required,gt=0"`
	// TTL is the fixed lifetime of every upload.
	TTL time.Duration `koanf:"ttl" validate:"required,gt=0"`
	// SweepInterval is the period of the background reclamation job.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required,gt=0"`
	// MetricsToken, when set, bearer-guards the /metrics endpoint.
	MetricsToken string `koanf:"metrics_token"`
}

// DefaultAppConfig is the baseline configuration before any overrides.
var DefaultAppConfig = Config{
	Addr:          ":8080",
	DataDir:       "./data",
	MaxBytes:      50 << 20, // 50 MiB
	TTL:           10 * time.Minute,
	SweepInterval: time.Minute,
}

// Loader funcs are variables so tests can inject failures.
var (
	defaultLoader = func(k *koanf.Koanf) error {
		return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
	}
	envLoader = func(k *koanf.Koanf) error {
		return k.Load(env.Provider(".", env.Opt{
			Prefix: envPrefix,
			TransformFunc: func(key, value string) (string, any) {
				return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
			},
		}), nil)
	}
	registerValidators = func(v *validator.Validate) error {
		if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
			return err
		}
		return v.RegisterValidation("datadir", validDataDir)
	}
)

// Load merges defaults and environment, decodes, and validates. On success
// the returned Config is ready to use.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	dc := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			StringToByteSize(),
		),
		Result:           &cfg,
		WeaklyTypedInput: true,
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: dc}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	v := validator.New()
	if err := registerValidators(v); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, describeValidationError(err)
	}
	return &cfg, nil
}

// describeValidationError flattens validator output into a single readable error.
func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	ok := false
	if e, isV := err.(validator.ValidationErrors); isV {
		verrs, ok = e, true
	}
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// validIPPort accepts ":port" or "ip:port" with a numeric port in 1..65535.
// Hostnames are rejected; the listener binds addresses, not names.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// validDataDir rejects empty, root, bare-dot, and traversal-bearing paths.
func validDataDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || p == "." || p == "/" || p == "//" {
		return false
	}
	for _, seg := range strings.Split(strings.TrimRight(p, "/"), "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// SQLiteDSN returns the database/sql DSN for the metadata database inside
// DataDir, with WAL and the pragmas the service relies on.
func (c *Config) SQLiteDSN() string {
	dir := c.DataDir
	path := dir + "/safesend.db"
	if strings.HasSuffix(dir, "/") {
		path = dir + "safesend.db"
	}
	return "file:" + path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=FULL"
}

// BlobDir returns the directory for blob pairs inside DataDir.
func (c *Config) BlobDir() string {
	if strings.HasSuffix(c.DataDir, "/") {
		return c.DataDir + "blobs"
	}
	return c.DataDir + "/blobs"
}
