package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyWorkspace      = "workspace"
	KeyConfigFile     = "config_file"
	KeyToolRoot       = "tool_root"
	KeyOwner          = "owner"
	KeyRepo           = "repo"
	KeyCommit         = "commit"
	KeyOutputDir      = "output_dir"
	KeyReportEnabled  = "report_enabled"
	KeyEnvFile        = "env_file"
	KeyStateDir       = "state_dir"
	KeyLanguageSource = "language_source"
	KeyRAM            = "ram"
	KeyGitHubToken    = "github.token"
	KeyGitHubAPIURL   = "github.api_url"
	KeyGitHubURL      = "github.url"
	KeyLogLevel       = "log.level"
	KeyLogJSON        = "log.json"
	KeyOTLPEndpoint   = "telemetry.otlp_endpoint"
	KeyMetricsFile    = "telemetry.metrics_file"
)

// EnvSettingsFile names an optional YAML file with the same keys as Settings.
// Environment variables take precedence over it.
const EnvSettingsFile = "SK_SETTINGS_FILE"

// configType is the settings file format.
const configType = "yaml"

// Default setting values.
const (
	DefaultToolRoot       = "/var/swissknife/"
	DefaultStateDir       = "/tmp/swissknife"
	DefaultLanguageSource = "github"
	DefaultRAM            = "6500"
	DefaultGitHubURL      = "https://github.com"
	DefaultLogLevel       = "info"
)

// envBindings maps each setting key to the environment variable it is read from.
var envBindings = []struct {
	key string
	env string
}{
	{KeyWorkspace, "CIRCLE_WORKING_DIRECTORY"},
	{KeyConfigFile, "SK_CODEQL_CONFIG"},
	{KeyToolRoot, "SK_CODEQL_LOCATION"},
	{KeyOwner, "CIRCLE_PROJECT_USERNAME"},
	{KeyRepo, "CIRCLE_PROJECT_REPONAME"},
	{KeyCommit, "CIRCLE_SHA1"},
	{KeyOutputDir, "SK_OUTPUT"},
	{KeyReportEnabled, "SK_REPORT_TO_SWISSKNIFE"},
	{KeyEnvFile, "BASH_ENV"},
	{KeyStateDir, "SK_STATE_DIR"},
	{KeyLanguageSource, "SK_LANGUAGE_SOURCE"},
	{KeyRAM, "CODEQL_RAM"},
	{KeyGitHubToken, "GITHUB_TOKEN"},
	{KeyGitHubAPIURL, "SK_GITHUB_API_URL"},
	{KeyGitHubURL, "SK_GITHUB_URL"},
	{KeyLogLevel, "SK_LOG_LEVEL"},
	{KeyLogJSON, "SK_LOG_JSON"},
	{KeyOTLPEndpoint, "SK_OTLP_ENDPOINT"},
	{KeyMetricsFile, "SK_METRICS_TEXTFILE"},
}

// Lookup reads one variable; envstore.Store satisfies it.
type Lookup interface {
	Lookup(key string) (string, bool)
}

// LoadSettings builds Settings from defaults, the optional settings file and
// the environment, in increasing order of precedence.
func LoadSettings(env Lookup) (*Settings, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	if path, ok := env.Lookup(EnvSettingsFile); ok && path != "" {
		viperCfg.SetConfigType(configType)
		viperCfg.SetConfigFile(path)

		readErr := viperCfg.ReadInConfig()
		if readErr != nil {
			return nil, fmt.Errorf("read settings file: %w", readErr)
		}
	}

	for _, binding := range envBindings {
		value, ok := env.Lookup(binding.env)
		if ok && value != "" {
			viperCfg.Set(binding.key, value)
		}
	}

	var settings Settings

	unmarshalErr := viperCfg.Unmarshal(&settings)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", unmarshalErr)
	}

	validateErr := settings.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate settings: %w", validateErr)
	}

	return &settings, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault(KeyWorkspace, "")
	viperCfg.SetDefault(KeyConfigFile, "")
	viperCfg.SetDefault(KeyToolRoot, DefaultToolRoot)
	viperCfg.SetDefault(KeyOwner, "")
	viperCfg.SetDefault(KeyRepo, "")
	viperCfg.SetDefault(KeyCommit, "")
	viperCfg.SetDefault(KeyOutputDir, "")
	viperCfg.SetDefault(KeyReportEnabled, "")
	viperCfg.SetDefault(KeyEnvFile, "")
	viperCfg.SetDefault(KeyStateDir, DefaultStateDir)
	viperCfg.SetDefault(KeyLanguageSource, DefaultLanguageSource)
	viperCfg.SetDefault(KeyRAM, DefaultRAM)

	viperCfg.SetDefault(KeyGitHubToken, "")
	viperCfg.SetDefault(KeyGitHubAPIURL, "")
	viperCfg.SetDefault(KeyGitHubURL, DefaultGitHubURL)

	viperCfg.SetDefault(KeyLogLevel, DefaultLogLevel)
	viperCfg.SetDefault(KeyLogJSON, false)

	viperCfg.SetDefault(KeyOTLPEndpoint, "")
	viperCfg.SetDefault(KeyMetricsFile, "")
}

func envName(key string) string {
	for _, binding := range envBindings {
		if binding.key == key {
			return binding.env
		}
	}

	return key
}
