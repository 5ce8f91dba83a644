// Package config provides the YAML analysis configuration: query suites,
// extra query packs and path filters. A parsed configuration is persisted as
// JSON so later CLI invocations in the same job reuse it unchanged.
package config

// YAML property names.
const (
	propName                  = "name"
	propDisableDefaultQueries = "disable-default-queries"
	propQueries               = "queries"
	propUses                  = "uses"
	propPathsIgnore           = "paths-ignore"
	propPaths                 = "paths"
)

// Suite is a built-in query suite shipped with the analysis tool bundle.
type Suite string

// Built-in suites.
const (
	SuiteSecurityExtended   Suite = "security-extended"
	SuiteSecurityAndQuality Suite = "security-and-quality"
)

var builtinSuites = []Suite{SuiteSecurityExtended, SuiteSecurityAndQuality}

func suiteNames() []string {
	names := make([]string, 0, len(builtinSuites))
	for _, s := range builtinSuites {
		names = append(names, string(s))
	}

	return names
}

// ExternalQuery references a query pack in another repository.
type ExternalQuery struct {
	Repository string `json:"repository"`
	Ref        string `json:"ref"`
	Path       string `json:"path"`
}

// Config is the analysis configuration.
// AdditionalQueries holds canonical absolute paths inside the workspace.
type Config struct {
	Name                  string          `json:"name"`
	DisableDefaultQueries bool            `json:"disableDefaultQueries"`
	AdditionalQueries     []string        `json:"additionalQueries"`
	ExternalQueries       []ExternalQuery `json:"externalQueries"`
	AdditionalSuites      []Suite         `json:"additionalSuites"`
	PathsIgnore           []string        `json:"pathsIgnore"`
	Paths                 []string        `json:"paths"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		AdditionalQueries: []string{},
		ExternalQueries:   []ExternalQuery{},
		AdditionalSuites:  []Suite{},
		PathsIgnore:       []string{},
		Paths:             []string{},
	}
}

// HasPathFilters reports whether paths or paths-ignore are set.
func (c *Config) HasPathFilters() bool {
	return len(c.Paths) > 0 || len(c.PathsIgnore) > 0
}
