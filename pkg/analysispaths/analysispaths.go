// Package analysispaths hands the configured path filters to the analysis tool.
package analysispaths

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/swissknife/pkg/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
)

// Filter variables read by the analysis tool's extractors.
const (
	EnvInclude = "LGTM_INDEX_INCLUDE"
	EnvExclude = "LGTM_INDEX_EXCLUDE"
)

// Warning is shown when some languages will ignore the filters.
const Warning = "The \"paths\"/\"paths-ignore\" fields of the config only have effect for Javascript and Python"

// Apply exports the include and exclude filters of cfg. It reports true when
// filters are set and at least one of langs does not honor them.
func Apply(env envstore.Store, cfg *config.Config, langs []languages.Language) (bool, error) {
	if len(cfg.Paths) > 0 {
		err := env.Export(EnvInclude, strings.Join(cfg.Paths, "\n"))
		if err != nil {
			return false, fmt.Errorf("export include filter: %w", err)
		}
	}

	if len(cfg.PathsIgnore) > 0 {
		err := env.Export(EnvExclude, strings.Join(cfg.PathsIgnore, "\n"))
		if err != nil {
			return false, fmt.Errorf("export exclude filter: %w", err)
		}
	}

	if !cfg.HasPathFilters() {
		return false, nil
	}

	for _, lang := range langs {
		if !languages.IsInterpreted(lang) {
			return true, nil
		}
	}

	return false, nil
}
