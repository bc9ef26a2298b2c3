// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package frameworks

import (
	"fmt"
)

// ManifestErrorKind distinguishes a manifest that could not be found from one
// that could not be parsed.
type ManifestErrorKind int

const (
	// ManifestMissing indicates the manifest file is absent.
	ManifestMissing ManifestErrorKind = iota
	// ManifestMalformed indicates the manifest exists but failed to parse or
	// did not have the required shape.
	ManifestMalformed
)

// ManifestError is returned when a framework build manifest cannot be loaded.
// A missing manifest is fatal unless the caller treats that manifest as
// optional for the framework version in use.
type ManifestError struct {
	Path string
	Kind ManifestErrorKind
	Err  error
}

func (e *ManifestError) Error() string {
	switch e.Kind {
	case ManifestMissing:
		return fmt.Sprintf("build manifest %s not found: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("build manifest %s is malformed: %v", e.Path, e.Err)
	}
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// UnsupportedConfigurationError is returned when the framework project is
// configured in a way the hosting target cannot express. The message carries
// the action the operator should take.
type UnsupportedConfigurationError struct {
	Setting string
	Value   string
	Advice  string
}

func (e *UnsupportedConfigurationError) Error() string {
	return fmt.Sprintf("unsupported configuration %s=%q: %s", e.Setting, e.Value, e.Advice)
}

// ExternalProcessError wraps a failure of the framework's own build command or
// another required external tool invocation.
type ExternalProcessError struct {
	Cmd string
	Err error
}

func (e *ExternalProcessError) Error() string {
	return fmt.Sprintf("running %s: %v", e.Cmd, e.Err)
}

func (e *ExternalProcessError) Unwrap() error {
	return e.Err
}
