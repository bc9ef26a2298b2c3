// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"os"
	"path/filepath"

	"github.com/blang/semver/v4"
)

var (
	appDirMinVersion        = semver.MustParse("13.0.0")
	serverActionsMinVersion = semver.MustParse("13.4.0")
	pprMinVersion           = semver.MustParse("14.1.0")
	esmConfigMinVersion     = semver.MustParse("12.1.0")
)

// Capabilities is the framework capability set, resolved once at discovery
// time from the installed version and the build output actually present. It
// is passed down as an immutable value; nothing downstream re-checks
// versions.
type Capabilities struct {
	Version semver.Version

	// AppDir reports that the build produced app-router manifests
	// (app-paths-manifest.json and friends).
	AppDir bool
	// ServerActions reports that the build can bind server actions, in which
	// case the server-reference manifest is read.
	ServerActions bool
	// PPR reports that routes may carry the partial prerendering flag.
	PPR bool
	// ESMConfig reports that the framework config module may be an ES module
	// (next.config.mjs), which changes the config loading strategy.
	ESMConfig bool
}

// ResolveCapabilities computes the capability set for a build at distDir.
// Optional manifests only count when the version says they can exist AND the
// build emitted them; older builds simply contribute empty structures.
func ResolveCapabilities(version semver.Version, distDir string) Capabilities {
	caps := Capabilities{
		Version:   version,
		ESMConfig: version.GTE(esmConfigMinVersion),
	}

	if version.GTE(appDirMinVersion) {
		_, err := os.Stat(filepath.Join(distDir, appPathRoutesManifestName))
		caps.AppDir = err == nil
	}

	if version.GTE(serverActionsMinVersion) {
		_, err := os.Stat(filepath.Join(distDir, "server", serverReferenceManifestName))
		caps.ServerActions = err == nil
	}

	caps.PPR = version.GTE(pprMinVersion)

	return caps
}
