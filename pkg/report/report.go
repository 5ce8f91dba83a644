// Package report rewrites file locations in SARIF results into permalinks at
// the analyzed commit.
package report

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/xeipuuv/gojsonschema"
)

// File name conventions.
const (
	Extension    = ".sarif"
	OutputSuffix = ".swissknife"
)

const outputPerm = 0o644

//go:embed sarif-schema.json
var schemaBytes []byte

var schema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	loaded, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
	if err != nil {
		panic(fmt.Sprintf("report schema: %v", err))
	}

	return loaded
}

// Rewriter rewrites every report in Dir.
type Rewriter struct {
	Dir    string
	Links  Permalinker
	Logger *slog.Logger
}

// Summary lists the rewritten files and the files that were skipped.
type Summary struct {
	Written []string
	Failed  []*ProcessingError
}

// Run rewrites each *.sarif file in Dir into a sibling *.sarif.swissknife
// file. A file that cannot be rewritten is logged and skipped.
func (r *Rewriter) Run(ctx context.Context) (*Summary, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, fmt.Errorf("read report directory: %w", err)
	}

	summary := &Summary{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}

		path := filepath.Join(r.Dir, entry.Name())

		err = ctx.Err()
		if err != nil {
			return summary, err
		}

		out, fileErr := r.rewriteFile(path)
		if fileErr != nil {
			procErr := &ProcessingError{File: path, Err: fileErr}
			summary.Failed = append(summary.Failed, procErr)
			r.logger().WarnContext(ctx, "skipping report", "file", path, "error", fileErr)

			continue
		}

		summary.Written = append(summary.Written, out)
		r.logger().InfoContext(ctx, "rewrote report", "file", out)
	}

	return summary, nil
}

func (r *Rewriter) rewriteFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}

	rewritten, err := Rewrite(data, r.Links)
	if err != nil {
		return "", fmt.Errorf("rewrite report: %w", err)
	}

	out := path + OutputSuffix

	err = os.WriteFile(out, rewritten, outputPerm)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return out, nil
}

// Rewrite returns doc with every primary location given a permalink in
// artifactLocation.properties.href and every related location's uri
// replaced by its permalink.
func Rewrite(doc []byte, links Permalinker) ([]byte, error) {
	err := check(doc)
	if err != nil {
		return nil, err
	}

	out := doc

	for runIdx := range gjson.GetBytes(out, "runs.#").Int() {
		results := fmt.Sprintf("runs.%d.results", runIdx)

		for resultIdx := range gjson.GetBytes(out, results+".#").Int() {
			result := fmt.Sprintf("%s.%d", results, resultIdx)

			out, err = rewriteLocation(out, result+".locations.0.physicalLocation", "properties.href", links)
			if err != nil {
				return nil, err
			}

			for relIdx := range gjson.GetBytes(out, result+".relatedLocations.#").Int() {
				loc := fmt.Sprintf("%s.relatedLocations.%d.physicalLocation", result, relIdx)

				out, err = rewriteLocation(out, loc, "uri", links)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	return out, nil
}

// rewriteLocation stores the permalink of the physical location at path
// under artifactLocation.<target>.
func rewriteLocation(doc []byte, path, target string, links Permalinker) ([]byte, error) {
	uri := gjson.GetBytes(doc, path+".artifactLocation.uri")
	if uri.Type != gjson.String || uri.String() == "" || !isRelative(uri.String()) {
		return doc, nil
	}

	line := gjson.GetBytes(doc, path+".region.startLine").Int()

	out, err := sjson.SetBytes(doc, path+".artifactLocation."+target, links.Link(uri.String(), line))
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", path, err)
	}

	return out, nil
}

func check(doc []byte) error {
	if !gjson.ValidBytes(doc) {
		return errors.New("invalid JSON")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("not a SARIF document: %s", strings.Join(problems, "; "))
}

func (r *Rewriter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.New(slog.DiscardHandler)
}
