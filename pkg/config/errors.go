package config

import (
	"errors"
	"strings"
)

// Error kinds. Use errors.Is against these to classify a *Error.
var (
	ErrOutsideWorkspace           = errors.New("configuration file is outside of the workspace")
	ErrNotFound                   = errors.New("configuration file does not exist")
	ErrInvalidProperty            = errors.New("invalid configuration property")
	ErrInvalidQueryReference      = errors.New("invalid query reference")
	ErrLocalPathNotFound          = errors.New("local query path does not exist")
	ErrLocalPathEscapesRepository = errors.New("local query path is outside of the repository")
)

// Error is a user-facing configuration error scoped to a file and,
// where applicable, one property.
type Error struct {
	Kind     error
	File     string
	Property string
	Detail   string
}

func (e *Error) Error() string {
	if e.Property == "" {
		return `The configuration file "` + e.File + `" ` + e.Detail
	}

	return `The configuration file "` + e.File + `" is invalid: property "` + e.Property + `" ` + e.Detail
}

// Is reports whether target is the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func fileError(kind error, file, detail string) *Error {
	return &Error{Kind: kind, File: file, Detail: detail}
}

func propertyError(kind error, file, property, detail string) *Error {
	return &Error{Kind: kind, File: file, Property: property, Detail: detail}
}

func nameInvalid(file string) *Error {
	return propertyError(ErrInvalidProperty, file, propName, "must be a non-empty string")
}

func disableDefaultQueriesInvalid(file string) *Error {
	return propertyError(ErrInvalidProperty, file, propDisableDefaultQueries, "must be a boolean")
}

func queriesInvalid(file string) *Error {
	return propertyError(ErrInvalidProperty, file, propQueries, "must be an array")
}

func queryUsesInvalid(file, uses string) *Error {
	detail := "must be a built-in suite (" + strings.Join(suiteNames(), " or ") +
		`), a relative path, or be of the form "owner/repo[/path]@ref"`
	if uses != "" {
		detail += "\n Found: " + uses
	}

	return propertyError(ErrInvalidQueryReference, file, propQueries+"."+propUses, detail)
}

func pathsIgnoreInvalid(file string) *Error {
	return propertyError(ErrInvalidProperty, file, propPathsIgnore, "must be an array of non-empty strings")
}

func pathsInvalid(file string) *Error {
	return propertyError(ErrInvalidProperty, file, propPaths, "must be an array of non-empty strings")
}

func localPathOutsideRepository(file, localPath string) *Error {
	return propertyError(ErrLocalPathEscapesRepository, file, propQueries+"."+propUses,
		`is invalid as the local path "`+localPath+`" is outside of the repository`)
}

func localPathDoesNotExist(file, localPath string) *Error {
	return propertyError(ErrLocalPathNotFound, file, propQueries+"."+propUses,
		`is invalid as the local path "`+localPath+`" does not exist in the repository`)
}
