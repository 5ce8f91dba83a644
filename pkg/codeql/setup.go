// Package codeql locates the analysis tool installation and wraps its CLI.
package codeql

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Platform is the tool's directory name for a host operating system.
type Platform string

// Supported platforms.
const (
	Linux64 Platform = "linux64"
	OSX64   Platform = "osx64"
	Win64   Platform = "win64"
)

// Sentinel errors.
var (
	// ErrUnsupportedPlatform is returned for operating systems without a tool bundle.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrToolNotFound is returned when the tool binary is missing from the installation.
	ErrToolNotFound = errors.New("analysis tool not found")
)

// PlatformFor maps a GOOS value to a Platform.
func PlatformFor(goos string) (Platform, error) {
	switch goos {
	case "linux":
		return Linux64, nil
	case "darwin":
		return OSX64, nil
	case "windows":
		return Win64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// Setup describes one tool installation.
type Setup struct {
	// Dist is the installation directory.
	Dist string
	// Tools holds the platform tool bundles, including the tracer libraries.
	Tools string
	// Cmd is the tool binary.
	Cmd      string
	Platform Platform
}

// NewSetup derives installation paths under root without touching the disk.
func NewSetup(root, goos string) (*Setup, error) {
	platform, err := PlatformFor(goos)
	if err != nil {
		return nil, err
	}

	dist := filepath.Join(root, "codeql")

	binary := "codeql"
	if platform == Win64 {
		binary = "codeql.cmd"
	}

	return &Setup{
		Dist:     dist,
		Tools:    filepath.Join(dist, "tools"),
		Cmd:      filepath.Join(dist, binary),
		Platform: platform,
	}, nil
}

// Locate returns the installation under root and checks its binary exists.
func Locate(root, goos string) (*Setup, error) {
	setup, err := NewSetup(root, goos)
	if err != nil {
		return nil, err
	}

	info, statErr := os.Stat(setup.Cmd)
	if statErr != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrToolNotFound, setup.Cmd, statErr)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrToolNotFound, setup.Cmd)
	}

	return setup, nil
}

// ToolPath returns a file inside the platform bundle of Tools.
func (s *Setup) ToolPath(name string) string {
	return filepath.Join(s.Tools, string(s.Platform), name)
}
