// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package environment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// DeployDomainEnvVarName is the name of they key used to carry the deployment domain
// into the framework build and the packaged backend.
const DeployDomainEnvVarName = "X_DEPLOY_DOMAIN"

// Environment is the effective environment for a single build invocation.
//
// Values are layered: a per-project dotenv file provides defaults, the ambient
// process environment overrides them, and per-call extras override both. The
// layering is resolved into an explicit value passed to subprocesses; the
// process-wide environment is never mutated.
type Environment struct {
	// fileValues holds the values read from the project's dotenv file.
	fileValues map[string]string
	// ambient holds the process environment, in "KEY=VALUE" form.
	ambient []string
}

// New creates an environment over the given ambient process environment
// (typically os.Environ()) with no dotenv file backing.
func New(ambient []string) *Environment {
	return &Environment{
		fileValues: map[string]string{},
		ambient:    ambient,
	}
}

// FromFile loads a dotenv file and layers it under the given ambient
// environment. A missing file is not an error; the file layer is simply empty.
func FromFile(file string, ambient []string) (*Environment, error) {
	env := New(ambient)

	values, err := godotenv.Read(file)
	if err != nil {
		return env, nil
	}

	env.fileValues = values
	return env, nil
}

// Getenv returns the effective value for key, honoring layer precedence
// (ambient over file), and the empty string when unset.
func (e *Environment) Getenv(key string) string {
	prefix := key + "="
	for i := len(e.ambient) - 1; i >= 0; i-- {
		if strings.HasPrefix(e.ambient[i], prefix) {
			return e.ambient[i][len(prefix):]
		}
	}

	return e.fileValues[key]
}

// Overlay resolves the layered environment plus the given extra values into a
// single "KEY=VALUE" slice suitable for exec.RunArgs. Precedence, lowest
// first: dotenv file, ambient process environment, extra.
func (e *Environment) Overlay(extra map[string]string) []string {
	merged := map[string]string{}

	for key, value := range e.fileValues {
		merged[key] = value
	}

	for _, kv := range e.ambient {
		key, value, found := strings.Cut(kv, "=")
		if found {
			merged[key] = value
		}
	}

	for key, value := range extra {
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(merged))
	for _, key := range keys {
		environ = append(environ, fmt.Sprintf("%s=%s", key, merged[key]))
	}

	return environ
}

// FileValues returns a copy of the dotenv file layer, for callers that need
// to persist the file-sourced values alongside a packaged backend.
func (e *Environment) FileValues() map[string]string {
	values := make(map[string]string, len(e.fileValues))
	for key, value := range e.fileValues {
		values[key] = value
	}

	return values
}
