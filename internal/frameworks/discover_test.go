// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package frameworks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectNextJsByConfigFile(t *testing.T) {
	root := t.TempDir()
	writeDetectFixture(t, root, "package.json", `{"dependencies": {"next": "^13.4.0"}}`)
	writeDetectFixture(t, root, "next.config.js", "module.exports = {}\n")

	detected, err := Detect(root)
	require.NoError(t, err)
	require.Equal(t, KindNextJs, detected.Kind)
	require.Equal(t, root, detected.Dir)
	require.Equal(t, uint64(13), detected.Version.Major)
}

func TestDetectNextJsByDependency(t *testing.T) {
	root := t.TempDir()
	writeDetectFixture(t, root, "package.json", `{"devDependencies": {"next": "~12.1.6"}}`)

	detected, err := Detect(root)
	require.NoError(t, err)
	require.Equal(t, KindNextJs, detected.Kind)
	require.Equal(t, uint64(12), detected.Version.Major)
}

func TestDetectPrefersInstalledVersion(t *testing.T) {
	root := t.TempDir()
	writeDetectFixture(t, root, "package.json", `{"dependencies": {"next": "^13.0.0"}}`)
	writeDetectFixture(t, root, "next.config.js", "module.exports = {}\n")
	// node_modules is skipped during the walk but consulted for the installed
	// version of a detected project.
	writeDetectFixture(t, root, "node_modules/next/package.json", `{"version": "13.5.6"}`)

	detected, err := Detect(root)
	require.NoError(t, err)
	require.Equal(t, "13.5.6", detected.Version.String())
}

func TestDetectAngular(t *testing.T) {
	root := t.TempDir()
	writeDetectFixture(t, root, "angular.json", `{"projects": {"app": {}}}`)
	writeDetectFixture(t, root, "package.json", `{"dependencies": {"@angular/core": "^17.0.0"}}`)

	detected, err := Detect(root)
	require.NoError(t, err)
	require.Equal(t, KindAngular, detected.Kind)
}

func TestDetectNestedProject(t *testing.T) {
	root := t.TempDir()
	writeDetectFixture(t, root, "web/package.json", `{"dependencies": {"next": "14.0.0"}}`)
	writeDetectFixture(t, root, "web/next.config.mjs", "export default {}\n")

	detected, err := Detect(root)
	require.NoError(t, err)
	require.Equal(t, KindNextJs, detected.Kind)
	require.Equal(t, filepath.Join(root, "web"), detected.Dir)
}

func TestDetectSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeDetectFixture(t, root, "node_modules/buried/package.json", `{"dependencies": {"next": "14.0.0"}}`)
	writeDetectFixture(t, root, "node_modules/buried/next.config.js", "module.exports = {}\n")

	_, err := Detect(root)
	require.Error(t, err)
}

func TestDetectNothing(t *testing.T) {
	root := t.TempDir()
	writeDetectFixture(t, root, "package.json", `{"dependencies": {"express": "^4.0.0"}}`)

	_, err := Detect(root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no supported framework")
}

func writeDetectFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}
