package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/pseudomuto/scmdb/pkg/credentials"
	"github.com/pseudomuto/scmdb/pkg/logging"
	"github.com/pseudomuto/scmdb/pkg/scriptlog"
	"gopkg.in/yaml.v3"
)

const (
	// YAML is the format of .yaml and .yml files.
	YAML Format = "yaml"

	// TOML is the format of .toml files.
	TOML Format = "toml"
)

// ErrOwnerRequired is returned by OwnerCredentials when no owner is configured.
var ErrOwnerRequired = errors.New("owner connection string is required")

type (
	// Format is a configuration file syntax.
	Format string

	// Log configures the script log backend.
	Log struct {
		// Driver is one of sqlite, postgres, mysql or clickhouse
		Driver string `yaml:"driver,omitempty" toml:"driver"`

		// DSN is the driver specific data source name. Relative sqlite paths
		// are resolved against the directory of the configuration file.
		DSN string `yaml:"dsn,omitempty" toml:"dsn"`

		// Table holds the script records
		Table string `yaml:"table,omitempty" toml:"table"`
	}

	// Engine configures the SQL command line client.
	Engine struct {
		// Binary is the client executable, looked up in PATH when not absolute
		Binary string `yaml:"binary,omitempty" toml:"binary"`

		// ContinueOnError keeps executing staged scripts after a failure
		ContinueOnError bool `yaml:"continue_on_error,omitempty" toml:"continue_on_error"`
	}

	// Logging configures the slog handler.
	Logging struct {
		Level  string `yaml:"level,omitempty" toml:"level"`
		Format string `yaml:"format,omitempty" toml:"format"`
	}

	// Config represents the project configuration.
	Config struct {
		// ScriptsDir is the directory holding the change scripts
		ScriptsDir string `yaml:"scripts_dir" toml:"scripts_dir"`

		// Owner is the owner schema connection string
		// (<username>/<password>@<host>:<port>:<SID>)
		Owner string `yaml:"owner,omitempty" toml:"owner"`

		// UserSchema optionally names the schema used for *_user.sql scripts
		// as <username>/<password>. The owner's "_user" companion schema is
		// used when empty.
		UserSchema string `yaml:"user_schema,omitempty" toml:"user_schema"`

		Log     Log     `yaml:"log" toml:"log"`
		Engine  Engine  `yaml:"engine" toml:"engine"`
		Logging Logging `yaml:"logging" toml:"logging"`
	}
)

// FormatOf returns the format implied by the extension of path, YAML unless
// the extension is .toml.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML
	}

	return YAML
}

// LoadConfig parses a configuration from r and applies defaults.
//
// TOML input is strict: unknown keys are an error.
//
// Example:
//
//	yamlData := `
//	scripts_dir: db/scripts
//	owner: APP/secret@db1:1521:ORCL
//	log:
//	  driver: postgres
//	  dsn: postgres://scmdb@localhost:5432/scmdb
//	`
//
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData), config.YAML)
//	if err != nil {
//		panic(err)
//	}
func LoadConfig(r io.Reader, format Format) (*Config, error) {
	var cfg Config

	switch format {
	case TOML:
		md, err := toml.NewDecoder(r).Decode(&cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal config")
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	case YAML, "":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal config")
		}
	default:
		return nil, errors.Errorf("unsupported config format '%s'. Must be one of: yaml, toml", format)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigFile loads the configuration at path. Relative paths inside the
// file are resolved against the directory containing it.
//
// Example:
//
//	cfg, err := config.LoadConfigFile("scmdb.yaml")
//	if err != nil {
//		log.Fatal("Failed to load config:", err)
//	}
//
//	fmt.Printf("Scripts: %s, log: %s\n", cfg.ScriptsDir, cfg.Log.Driver)
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	cfg, err := LoadConfig(f, FormatOf(path))
	if err != nil {
		return nil, err
	}

	cfg.Resolve(filepath.Dir(path))
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

// Resolve makes the scripts directory and a relative sqlite DSN relative to dir.
func (c *Config) Resolve(dir string) {
	if !filepath.IsAbs(c.ScriptsDir) {
		c.ScriptsDir = filepath.Join(dir, c.ScriptsDir)
	}

	if strings.EqualFold(c.Log.Driver, consts.DefaultLogDriver) &&
		!strings.HasPrefix(c.Log.DSN, "file:") &&
		c.Log.DSN != ":memory:" &&
		!filepath.IsAbs(c.Log.DSN) {
		c.Log.DSN = filepath.Join(dir, c.Log.DSN)
	}
}

// Validate checks the connection strings and logging settings.
func (c *Config) Validate() error {
	if c.Owner != "" && !credentials.IsValidConnectionString(c.Owner) {
		return errors.Wrap(credentials.ErrMalformedCredentials, "invalid owner")
	}

	if c.UserSchema != "" && !credentials.IsValidSchemaCredentials(c.UserSchema) {
		return errors.Errorf("invalid user_schema '%s'. Expected <username>/<password>", c.UserSchema)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", logging.FormatJSON:
	default:
		return errors.Errorf("invalid logging format '%s'. Must be one of: text, json", c.Logging.Format)
	}

	return nil
}

// OwnerCredentials parses the owner connection string.
func (c *Config) OwnerCredentials() (*credentials.Credentials, error) {
	if c.Owner == "" {
		return nil, ErrOwnerRequired
	}

	return credentials.Parse(c.Owner)
}

// UserConnectionString returns the connection for user schema scripts, or an
// empty string when the owner's companion schema should be used.
func (c *Config) UserConnectionString() string {
	if c.UserSchema == "" || c.Owner == "" {
		return ""
	}

	return credentials.DeriveForNamedSchema(c.Owner, c.UserSchema)
}

// ScriptLog returns the options for opening the script log.
func (c *Config) ScriptLog() scriptlog.Options {
	return scriptlog.Options{
		Driver: c.Log.Driver,
		DSN:    c.Log.DSN,
		Table:  c.Log.Table,
	}
}

func (c *Config) applyDefaults() {
	if c.ScriptsDir == "" {
		c.ScriptsDir = "."
	}
	if c.Log.Driver == "" {
		c.Log.Driver = consts.DefaultLogDriver
	}
	if c.Log.DSN == "" && strings.EqualFold(c.Log.Driver, consts.DefaultLogDriver) {
		c.Log.DSN = consts.DefaultLogDSN
	}
	if c.Log.Table == "" {
		c.Log.Table = consts.DefaultLogTable
	}
	if c.Engine.Binary == "" {
		c.Engine.Binary = consts.DefaultEngineBinary
	}
	if c.Logging.Level == "" {
		c.Logging.Level = consts.DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = consts.DefaultLogFormat
	}
}
