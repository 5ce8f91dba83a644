package codeql

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// VersionInfo is the subset of `version --format=json` the helper uses.
type VersionInfo struct {
	ProductName string
	Version     string
	SHA         string
}

// CLI invokes the analysis tool binary.
type CLI struct {
	Path   string
	Runner Runner
	// Env is passed to every invocation; nil inherits the process environment.
	Env []string
}

// Version reports the installed tool version.
func (c *CLI) Version(ctx context.Context) (VersionInfo, error) {
	var out bytes.Buffer

	err := c.run(ctx, &out, "version", "--format=json")
	if err != nil {
		return VersionInfo{}, err
	}

	if !gjson.ValidBytes(out.Bytes()) {
		return VersionInfo{}, fmt.Errorf("parse tool version: invalid JSON %q", out.String())
	}

	parsed := gjson.ParseBytes(out.Bytes())

	return VersionInfo{
		ProductName: parsed.Get("productName").String(),
		Version:     parsed.Get("version").String(),
		SHA:         parsed.Get("sha").String(),
	}, nil
}

// DatabaseInit creates an empty database for lang.
func (c *CLI) DatabaseInit(ctx context.Context, db, lang, sourceRoot string) error {
	return c.run(ctx, nil, "database", "init", db, "--language="+lang, "--source-root="+sourceRoot)
}

// TraceCommand runs helper under the build tracer of db. compilerSpec is optional.
func (c *CLI) TraceCommand(ctx context.Context, db, compilerSpec string, helper ...string) error {
	args := []string{"database", "trace-command", db}
	if compilerSpec != "" {
		args = append(args, "--compiler-spec="+compilerSpec)
	}

	return c.run(ctx, nil, append(args, helper...)...)
}

// ResolveExtractor returns the root directory of lang's extractor.
func (c *CLI) ResolveExtractor(ctx context.Context, lang string) (string, error) {
	var out bytes.Buffer

	err := c.run(ctx, &out, "resolve", "extractor", "--format=json", "--language="+lang)
	if err != nil {
		return "", err
	}

	root := gjson.ParseBytes(bytes.TrimSpace(out.Bytes()))
	if root.Type != gjson.String || root.String() == "" {
		return "", fmt.Errorf("parse %s extractor location: unexpected output %q", lang, out.String())
	}

	return root.String(), nil
}

// TraceScript runs script under the tracer of db, extracting what it sees.
func (c *CLI) TraceScript(ctx context.Context, db, script string) error {
	return c.run(ctx, nil, "database", "trace-command", db, "--", script)
}

// DatabaseFinalize finishes extraction into db.
func (c *CLI) DatabaseFinalize(ctx context.Context, db string) error {
	return c.run(ctx, nil, "database", "finalize", db)
}

// DatabaseAnalyze runs queries against db and writes SARIF to output.
func (c *CLI) DatabaseAnalyze(ctx context.Context, db, output string, queries []string) error {
	args := []string{"database", "analyze", db}
	args = append(args, queries...)
	args = append(args, "--format=sarif-latest", "--output="+output)

	return c.run(ctx, nil, args...)
}

func (c *CLI) run(ctx context.Context, stdout *bytes.Buffer, args ...string) error {
	cmd := Command{Path: c.Path, Args: args, Env: c.Env}
	if stdout != nil {
		cmd.Stdout = stdout
	}

	err := c.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s %s: %w", args[0], firstArg(args[1:]), err)
	}

	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
