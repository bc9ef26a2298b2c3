// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromFileMissing(t *testing.T) {
	env, err := FromFile(filepath.Join(t.TempDir(), "no-such.env"), []string{"HOME=/home/user"})
	require.NoError(t, err)
	require.Equal(t, "/home/user", env.Getenv("HOME"))
	require.Empty(t, env.FileValues())
}

func TestOverlayPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	err := os.WriteFile(envFile, []byte("API_URL=https://from-file\nFILE_ONLY=yes\n"), 0600)
	require.NoError(t, err)

	env, err := FromFile(envFile, []string{"API_URL=https://from-process"})
	require.NoError(t, err)

	// Process environment wins over file values.
	require.Equal(t, "https://from-process", env.Getenv("API_URL"))
	require.Equal(t, "yes", env.Getenv("FILE_ONLY"))

	overlay := env.Overlay(map[string]string{DeployDomainEnvVarName: "example.com"})
	require.Contains(t, overlay, "API_URL=https://from-process")
	require.Contains(t, overlay, "FILE_ONLY=yes")
	require.Contains(t, overlay, "X_DEPLOY_DOMAIN=example.com")
}

func TestOverlayExtraWinsOverAmbient(t *testing.T) {
	env := New([]string{"API_URL=https://from-process"})

	overlay := env.Overlay(map[string]string{"API_URL": "https://from-extra"})
	require.Contains(t, overlay, "API_URL=https://from-extra")
	require.NotContains(t, overlay, "API_URL=https://from-process")
}

func TestGetenvUnset(t *testing.T) {
	env := New(nil)
	require.Equal(t, "", env.Getenv("MISSING"))
}
