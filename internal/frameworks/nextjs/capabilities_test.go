// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/require"
)

func TestResolveCapabilities(t *testing.T) {
	distDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(distDir, "server"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(distDir, appPathRoutesManifestName), []byte(`{}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(distDir, "server", serverReferenceManifestName), []byte(`{}`), 0600))

	caps := ResolveCapabilities(semver.MustParse("14.2.0"), distDir)
	require.True(t, caps.AppDir)
	require.True(t, caps.ServerActions)
	require.True(t, caps.PPR)
	require.True(t, caps.ESMConfig)
}

func TestResolveCapabilitiesOldVersion(t *testing.T) {
	distDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(distDir, appPathRoutesManifestName), []byte(`{}`), 0600))

	// The manifest being present is not enough; the installed version must
	// be able to produce it.
	caps := ResolveCapabilities(semver.MustParse("12.0.0"), distDir)
	require.False(t, caps.AppDir)
	require.False(t, caps.ServerActions)
	require.False(t, caps.PPR)
	require.False(t, caps.ESMConfig)
}

func TestResolveCapabilitiesManifestAbsent(t *testing.T) {
	// New enough version, but the build produced no app-router output.
	caps := ResolveCapabilities(semver.MustParse("13.5.0"), t.TempDir())
	require.False(t, caps.AppDir)
	require.False(t, caps.ServerActions)
	require.True(t, caps.ESMConfig)
}
