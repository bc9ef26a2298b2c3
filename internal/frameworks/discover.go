// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package frameworks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/tidwall/gjson"
)

// Kind identifies a supported meta-framework.
type Kind string

const (
	KindNextJs  Kind = "nextjs"
	KindAngular Kind = "angular"
)

// Detected describes a framework project found under a root, with the
// framework version resolved up front. Capability decisions downstream key
// off this immutable value, never off scattered version checks.
type Detected struct {
	Kind    Kind
	Dir     string
	Version semver.Version
}

var nextConfigFiles = []string{"next.config.js", "next.config.mjs", "next.config.ts"}

// Detect walks the directory tree under root and returns the first framework
// project found. Returns an error when no supported framework is detected.
func Detect(root string) (*Detected, error) {
	var found *Detected

	walkFunc := func(path string, entries []fs.DirEntry) error {
		if shouldSkip(filepath.Base(path)) {
			return filepath.SkipDir
		}

		detected, err := detectAt(path, entries)
		if err != nil {
			return err
		}

		if detected != nil {
			found = detected
			// Once a project is detected, we skip possible inner projects.
			return filepath.SkipDir
		}

		return nil
	}

	if err := WalkDirectories(root, walkFunc); err != nil {
		return nil, fmt.Errorf("scanning directories: %w", err)
	}

	if found == nil {
		return nil, fmt.Errorf("no supported framework found under %s", root)
	}

	return found, nil
}

func detectAt(path string, entries []fs.DirEntry) (*Detected, error) {
	names := map[string]struct{}{}
	for _, entry := range entries {
		names[entry.Name()] = struct{}{}
	}

	if _, ok := names["angular.json"]; ok {
		version, _ := installedPackageVersion(path, "@angular/core")
		return &Detected{Kind: KindAngular, Dir: path, Version: version}, nil
	}

	if _, ok := names["package.json"]; !ok {
		return nil, nil
	}

	isNext := false
	for _, config := range nextConfigFiles {
		if _, ok := names[config]; ok {
			isNext = true
			break
		}
	}

	if !isNext {
		data, err := os.ReadFile(filepath.Join(path, "package.json"))
		if err != nil {
			return nil, fmt.Errorf("reading package.json: %w", err)
		}
		for _, field := range []string{"dependencies.next", "devDependencies.next"} {
			if gjson.GetBytes(data, field).Exists() {
				isNext = true
				break
			}
		}
	}

	if !isNext {
		return nil, nil
	}

	version, err := installedPackageVersion(path, "next")
	if err != nil {
		return nil, err
	}

	return &Detected{Kind: KindNextJs, Dir: path, Version: version}, nil
}

// installedPackageVersion resolves the actual installed version of a package,
// preferring node_modules over the declared semver range in package.json.
func installedPackageVersion(projectDir string, pkg string) (semver.Version, error) {
	installed := filepath.Join(projectDir, "node_modules", filepath.FromSlash(pkg), "package.json")
	if data, err := os.ReadFile(installed); err == nil {
		raw := gjson.GetBytes(data, "version").String()
		if version, err := semver.ParseTolerant(raw); err == nil {
			return version, nil
		}
	}

	data, err := os.ReadFile(filepath.Join(projectDir, "package.json"))
	if err != nil {
		return semver.Version{}, fmt.Errorf("reading package.json: %w", err)
	}

	for _, field := range []string{"dependencies", "devDependencies"} {
		raw := gjson.GetBytes(data, field+"."+gjsonEscape(pkg)).String()
		if raw == "" {
			continue
		}
		cleaned := strings.TrimLeft(raw, "^~>=< ")
		if version, err := semver.ParseTolerant(cleaned); err == nil {
			return version, nil
		}
	}

	return semver.Version{}, fmt.Errorf("cannot resolve version of %s in %s", pkg, projectDir)
}

// gjsonEscape escapes dots in package names ("@angular/core" is fine, but a
// dotted name would otherwise be read as a nested path).
func gjsonEscape(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}

// node_modules, build output, anything that is a gitignore candidate
var shouldSkipRegex = regexp.MustCompile(`node_modules|dist|tests|^\..+`)

func shouldSkip(dirName string) bool {
	return shouldSkipRegex.MatchString(dirName)
}

// WalkDirFunc is the type of function that is called whenever a directory is visited by WalkDirectories.
//
// path is the directory being visited. entries are the file entries (including directories) in that directory.
type WalkDirFunc func(path string, entries []fs.DirEntry) error

// WalkDirectories is like filepath.Walk, except it only visits directories.
//
// Unlike filepath.Walk, it also bubbles up errors by default, unless the error is SkipDir, in which the directory is skipped
// for any further walking.
func WalkDirectories(root string, fn WalkDirFunc) error {
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}

	return walkDirRecursive(root, fs.FileInfoToDirEntry(info), fn)
}

func walkDirRecursive(path string, d fs.DirEntry, fn WalkDirFunc) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}

	err = fn(path, entries)
	if err != nil {
		// do not bubble up error, and simply do not expand the directory further.
		if errors.Is(err, filepath.SkipDir) {
			return nil
		}

		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			newPath := filepath.Join(path, entry.Name())
			err = walkDirRecursive(newPath, entry, fn)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
