// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tharvik/firebase-tools/internal/frameworks"
)

func TestRevalidateUnmarshal(t *testing.T) {
	var r Revalidate
	require.NoError(t, json.Unmarshal([]byte(`false`), &r))
	require.False(t, r.Enabled)

	require.NoError(t, json.Unmarshal([]byte(`60`), &r))
	require.True(t, r.Enabled)
	require.Equal(t, 60, r.Seconds)

	require.Error(t, json.Unmarshal([]byte(`"soon"`), &r))
}

func TestFallbackUnmarshal(t *testing.T) {
	var f Fallback
	require.NoError(t, json.Unmarshal([]byte(`false`), &f))
	require.False(t, f.RequiresBackend())

	require.NoError(t, json.Unmarshal([]byte(`true`), &f))
	require.True(t, f.RequiresBackend())
	require.False(t, f.Blocking)
	require.Empty(t, f.Page)

	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	require.True(t, f.RequiresBackend())
	require.True(t, f.Blocking)

	require.NoError(t, json.Unmarshal([]byte(`"/blog/[slug].html"`), &f))
	require.True(t, f.RequiresBackend())
	require.False(t, f.Blocking)
	require.Equal(t, "/blog/[slug].html", f.Page)
}

func TestRewritesFieldUnmarshal(t *testing.T) {
	var plain RewritesField
	require.NoError(t, json.Unmarshal([]byte(`[{"source":"/a","destination":"/b"}]`), &plain))
	require.Len(t, plain.Rules(), 1)
	require.Equal(t, "/a", plain.Rules()[0].Source)

	var phased RewritesField
	require.NoError(t, json.Unmarshal([]byte(`{
		"beforeFiles": [{"source":"/1","destination":"/x"}],
		"afterFiles": [{"source":"/2","destination":"/y"}],
		"fallback": [{"source":"/3","destination":"/z"}]
	}`), &phased))

	rules := phased.Rules()
	require.Len(t, rules, 2)
	require.Equal(t, "/1", rules[0].Source)
	require.Equal(t, "/2", rules[1].Source)
	require.Len(t, phased.Fallback, 1)
}

func TestRoutesManifestValidate(t *testing.T) {
	manifest := RoutesManifest{
		I18n: &I18nConfig{
			Locales:       []string{"en", "fr"},
			DefaultLocale: "en",
			Domains: []DomainLocales{
				{Domain: "example.com", DefaultLocale: "en", Locales: []string{"en", "fr"}},
			},
		},
	}
	require.NoError(t, manifest.Validate())

	manifest.I18n.Domains[0].Locales = []string{"en", "de"}
	err := manifest.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `"de"`)
}

func TestReadManifestMissing(t *testing.T) {
	_, err := readManifest[RoutesManifest](filepath.Join(t.TempDir(), "routes-manifest.json"))
	require.Error(t, err)

	var manifestErr *frameworks.ManifestError
	require.True(t, errors.As(err, &manifestErr))
	require.Equal(t, frameworks.ManifestMissing, manifestErr.Kind)
}

func TestReadManifestMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes-manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": "not a number"`), 0600))

	_, err := readManifest[RoutesManifest](path)
	require.Error(t, err)

	var manifestErr *frameworks.ManifestError
	require.True(t, errors.As(err, &manifestErr))
	require.Equal(t, frameworks.ManifestMalformed, manifestErr.Kind)
}

func TestActionManifestRoutesWithActions(t *testing.T) {
	manifest := ActionManifest{
		Node: map[string]ActionEntry{
			"abc123": {Workers: map[string]json.RawMessage{
				"app/dashboard/page": json.RawMessage(`{}`),
			}},
		},
		Edge: map[string]ActionEntry{
			"def456": {Workers: map[string]json.RawMessage{
				"app/page": json.RawMessage(`{}`),
			}},
		},
	}

	routes := manifest.RoutesWithActions()
	require.Len(t, routes, 2)
	require.Contains(t, routes, "/dashboard")
	require.Contains(t, routes, "/")
}

func TestLoadManifests(t *testing.T) {
	distDir := t.TempDir()
	writeManifestFixture(t, distDir, routesManifestName, `{"version": 3, "basePath": "", "headers": [], "redirects": [], "rewrites": []}`)
	writeManifestFixture(t, distDir, prerenderManifestName, `{"version": 4, "routes": {}, "dynamicRoutes": {}}`)
	writeManifestFixture(t, distDir, filepath.Join("server", pagesManifestName), `{"/": "pages/index.html"}`)

	m, err := LoadManifests(distDir, Capabilities{})
	require.NoError(t, err)
	require.Equal(t, 3, m.Routes.Version)
	require.Equal(t, "pages/index.html", m.Pages["/"])
	// Missing middleware manifest means no middleware, not a failure.
	require.Empty(t, m.Middleware.Matchers())
}

func TestLoadManifestsRequiresRoutes(t *testing.T) {
	distDir := t.TempDir()
	writeManifestFixture(t, distDir, prerenderManifestName, `{"version": 4, "routes": {}, "dynamicRoutes": {}}`)

	_, err := LoadManifests(distDir, Capabilities{})
	require.Error(t, err)

	var manifestErr *frameworks.ManifestError
	require.True(t, errors.As(err, &manifestErr))
	require.Equal(t, frameworks.ManifestMissing, manifestErr.Kind)
}

func writeManifestFixture(t *testing.T, distDir, name, content string) {
	t.Helper()
	path := filepath.Join(distDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}
