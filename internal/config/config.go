// Package config binds swissknife's runtime settings to the CI environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings is the runtime configuration of one swissknife invocation.
// Field tags use mapstructure for viper unmarshalling.
type Settings struct {
	Workspace      string            `mapstructure:"workspace"`
	ConfigFile     string            `mapstructure:"config_file"`
	ToolRoot       string            `mapstructure:"tool_root" validate:"required"`
	Owner          string            `mapstructure:"owner"`
	Repo           string            `mapstructure:"repo"`
	Commit         string            `mapstructure:"commit"`
	OutputDir      string            `mapstructure:"output_dir"`
	Report         string            `mapstructure:"report_enabled"`
	EnvFile        string            `mapstructure:"env_file"`
	StateDir       string            `mapstructure:"state_dir" validate:"required"`
	LanguageSource string            `mapstructure:"language_source" validate:"oneof=github local"`
	RAM            string            `mapstructure:"ram"`
	GitHub         GitHubSettings    `mapstructure:"github"`
	Log            LogSettings       `mapstructure:"log"`
	Telemetry      TelemetrySettings `mapstructure:"telemetry"`
}

// GitHubSettings holds hosting platform access.
type GitHubSettings struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url" validate:"omitempty,url"`
	URL    string `mapstructure:"url" validate:"required,url"`
}

// LogSettings holds logger settings.
type LogSettings struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetrySettings holds optional telemetry export targets.
type TelemetrySettings struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsFile  string `mapstructure:"metrics_file"`
}

// Sentinel errors for settings validation.
var (
	// ErrMissingSetting indicates a variable required by the running command is unset.
	ErrMissingSetting = errors.New("environment variable must be set")
	// ErrInvalidSetting indicates a value failed validation.
	ErrInvalidSetting = errors.New("invalid setting")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks Settings invariants and returns the first error found.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]

		return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidSetting, first.Namespace(), first.Tag(), first.Value())
	}

	return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
}

// Require checks that the settings bound to the given keys are non-empty.
// The error names the environment variable a CI job must provide.
func (s *Settings) Require(keys ...string) error {
	values := s.requirable()

	for _, key := range keys {
		if strings.TrimSpace(values[key]) == "" {
			return fmt.Errorf("%s: %w", envName(key), ErrMissingSetting)
		}
	}

	return nil
}

// ReportEnabled reports whether report rewriting was switched on. Only the
// exact value "true" enables it.
func (s *Settings) ReportEnabled() bool {
	return s.Report == "true"
}

// LogLevel maps the configured level name to a slog level.
func (s *Settings) LogLevel() slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(s.Log.Level))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

func (s *Settings) requirable() map[string]string {
	return map[string]string{
		KeyWorkspace:  s.Workspace,
		KeyToolRoot:   s.ToolRoot,
		KeyOwner:      s.Owner,
		KeyRepo:       s.Repo,
		KeyCommit:     s.Commit,
		KeyOutputDir:  s.OutputDir,
		KeyEnvFile:    s.EnvFile,
		KeyStateDir:   s.StateDir,
		KeyConfigFile: s.ConfigFile,
	}
}
