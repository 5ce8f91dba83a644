package languages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/safeconv"
)

// EnvLanguages holds the comma-separated language list shared between steps.
const EnvLanguages = "CODEQL_ACTION_LANGUAGES"

// ErrNoLanguagesDetected is returned when neither the override nor the
// source yields a supported language.
var ErrNoLanguagesDetected = errors.New(
	"did not detect any languages to analyze; set " + EnvLanguages + " to choose them explicitly")

// Resolver determines the languages to analyze.
type Resolver struct {
	Env    envstore.Store
	Source Source
	Logger *slog.Logger
}

// Resolve returns the override list when EnvLanguages is set, otherwise the
// supported languages reported by Source, most popular first. Detected
// lists are exported so later steps reuse them. An empty result is not an
// error here; callers decide with ErrNoLanguagesDetected.
func (r *Resolver) Resolve(ctx context.Context) ([]Language, error) {
	logger := r.logger()

	if override, ok := r.Env.Lookup(EnvLanguages); ok && override != "" {
		langs := ParseOverride(override)
		logger.InfoContext(ctx, "using language override", "languages", Join(langs))

		return langs, nil
	}

	stats, err := r.Source.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect languages: %w", err)
	}

	set := NewOrderedSet()

	for _, stat := range stats {
		lang, ok := Canonical(stat.Name)
		if !ok {
			logger.DebugContext(ctx, "ignoring unsupported language", "name", stat.Name)

			continue
		}

		if set.Add(lang) {
			logger.InfoContext(ctx, "detected language",
				"language", lang, "size", humanize.Bytes(safeconv.Int64ToUint64(stat.Bytes)))
		}
	}

	langs := set.Values()
	if len(langs) == 0 {
		return langs, nil
	}

	exportErr := r.Env.Export(EnvLanguages, Join(langs))
	if exportErr != nil {
		return nil, fmt.Errorf("export languages: %w", exportErr)
	}

	return langs, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.New(slog.DiscardHandler)
}
