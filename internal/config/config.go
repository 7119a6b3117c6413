// Package config loads pipeline settings from a YAML file and the
// environment, and validates them before anything touches a store.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/pkg/utils"
)

// EnvPrefix prefixes every environment override, e.g. ETL_OUTPUT_PREFIX
const EnvPrefix = "ETL"

// Config is the full process configuration
type Config struct {
	Run      RunConfig      `mapstructure:"run"`
	Source   SourceConfig   `mapstructure:"source"`
	Output   OutputConfig   `mapstructure:"output"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Clean    CleanConfig    `mapstructure:"clean"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RunConfig controls a single batch
type RunConfig struct {
	ReferenceDate string        `mapstructure:"reference_date" validate:"required"`
	DateFormat    string        `mapstructure:"date_format" validate:"required"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// SourceConfig locates the ingest container
type SourceConfig struct {
	Backend   string `mapstructure:"backend" validate:"oneof=azure s3 local"`
	Account   string `mapstructure:"account"`
	Container string `mapstructure:"container" validate:"required"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Root      string `mapstructure:"root"`
	Delimiter string `mapstructure:"delimiter"`
	Workers   int    `mapstructure:"workers" validate:"min=1,max=64"`
}

// OutputConfig locates the hierarchical output store
type OutputConfig struct {
	Backend     string `mapstructure:"backend" validate:"oneof=adls local"`
	Account     string `mapstructure:"account"`
	FileSystem  string `mapstructure:"filesystem"`
	Directory   string `mapstructure:"directory"`
	Root        string `mapstructure:"root"`
	Prefix      string `mapstructure:"prefix" validate:"required"`
	Format      string `mapstructure:"format" validate:"oneof=parquet csv"`
	Partitioned bool   `mapstructure:"partitioned"`
}

// ArchiveConfig names where processed sources go
type ArchiveConfig struct {
	Container    string        `mapstructure:"container" validate:"required"`
	Tier         string        `mapstructure:"tier" validate:"oneof=hot cool cold archive"`
	Workers      int           `mapstructure:"workers" validate:"min=1,max=64"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gte=0"`
}

// CleanConfig overrides the cleaning defaults. Empty lists keep them.
type CleanConfig struct {
	Columns     []string `mapstructure:"columns"`
	DateLayouts []string `mapstructure:"date_layouts"`
	GroupBy     []string `mapstructure:"group_by"`
}

// ServerConfig configures the HTTP trigger
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// DatabaseConfig points at the run tracking database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig configures slog
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// aliases maps config keys to the environment names used by the legacy
// function app deployment
var aliases = map[string][]string{
	"source.account":    {"ABS_RESOURCE_NAME"},
	"source.container":  {"ABS_CONTAINER_NAME_INGEST"},
	"archive.container": {"ABS_CONTAINER_NAME_ARCHIVE"},
	"output.account":    {"ADLS_RESOURCE_NAME"},
	"output.filesystem": {"ADLS_CONTAINER_NAME"},
	"output.directory":  {"ADLS_DIRECTORY_NAME"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.reference_date", "2014-07-01")
	v.SetDefault("run.date_format", "%Y-%m-%d")
	v.SetDefault("run.timeout", "10m")

	v.SetDefault("source.backend", "azure")
	v.SetDefault("source.account", "")
	v.SetDefault("source.container", "")
	v.SetDefault("source.prefix", "")
	v.SetDefault("source.region", "")
	v.SetDefault("source.endpoint", "")
	v.SetDefault("source.root", "")
	v.SetDefault("source.delimiter", ",")
	v.SetDefault("source.workers", 1)

	v.SetDefault("output.backend", "adls")
	v.SetDefault("output.account", "")
	v.SetDefault("output.filesystem", "")
	v.SetDefault("output.directory", "")
	v.SetDefault("output.root", "")
	v.SetDefault("output.prefix", "financial_demo")
	v.SetDefault("output.format", "parquet")
	v.SetDefault("output.partitioned", false)

	v.SetDefault("archive.container", "")
	v.SetDefault("archive.tier", "cool")
	v.SetDefault("archive.workers", 1)
	v.SetDefault("archive.poll_interval", "2s")

	v.SetDefault("clean.columns", []string{})
	v.SetDefault("clean.date_layouts", []string{})
	v.SetDefault("clean.group_by", []string{})

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.path", "pipeline.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads path (or ./config.yaml when path is empty and the file
// exists), applies ETL_* and legacy environment overrides, and validates
// the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range aliases {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "bind %s", key)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "read config file").With("path", path)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, etlerr.Wrap(err, etlerr.KindConfig, "read config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, etlerr.Wrap(err, etlerr.KindConfig, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags and the rules that span fields
func (c *Config) Validate() error {
	var problems []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return etlerr.Wrap(err, etlerr.KindConfig, "validate config")
		}
		for _, fe := range verrs {
			problems = append(problems, fieldProblem(fe))
		}
	}
	problems = append(problems, c.crossFieldProblems()...)
	if len(problems) == 0 {
		return nil
	}
	return etlerr.New(etlerr.KindConfig, "invalid configuration: %s", strings.Join(problems, "; "))
}

func fieldProblem(fe validator.FieldError) string {
	field := strings.SplitN(fe.Namespace(), ".", 2)
	name := fe.Namespace()
	if len(field) == 2 {
		name = field[1]
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
}

func (c *Config) crossFieldProblems() []string {
	var problems []string

	if c.Run.ReferenceDate != "" && c.Run.DateFormat != "" {
		if _, err := time.Parse(utils.GoLayout(c.Run.DateFormat), c.Run.ReferenceDate); err != nil {
			problems = append(problems, fmt.Sprintf("run.reference_date %q does not match run.date_format %q",
				c.Run.ReferenceDate, c.Run.DateFormat))
		}
	}
	if utf8.RuneCountInString(c.Source.Delimiter) != 1 {
		problems = append(problems, "source.delimiter must be a single character")
	}

	switch c.Source.Backend {
	case "azure":
		if c.Source.Account == "" {
			problems = append(problems, "source.account is required for the azure backend")
		}
	case "local":
		if c.Source.Root == "" {
			problems = append(problems, "source.root is required for the local backend")
		}
	}
	if c.Source.Container != "" && c.Source.Container == c.Archive.Container {
		problems = append(problems, "archive.container must differ from source.container")
	}

	switch c.Output.Backend {
	case "adls":
		if c.Output.Account == "" || c.Output.FileSystem == "" {
			problems = append(problems, "output.account and output.filesystem are required for the adls backend")
		}
	case "local":
		if c.Output.Root == "" {
			problems = append(problems, "output.root is required for the local backend")
		}
	}
	return problems
}

// Delimiter returns the source delimiter as a rune
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Source.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}
