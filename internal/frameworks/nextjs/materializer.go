// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentCopies bounds the copy fan-out. Individual copies have
// disjoint destinations, so no ordering between them is needed.
const maxConcurrentCopies = 16

// Materializer copies the static artifacts of every statically servable
// route from the framework build tree into the hosting platform's public
// directory, respecting locale placement. It consumes a fully computed
// Summary; classification never races a copy.
type Materializer struct {
	distDir   string
	outputDir string
	basePath  string
	manifests *Manifests
	summary   *Summary
	locales   ResolvedLocales
}

func NewMaterializer(distDir, outputDir string, manifests *Manifests, summary *Summary, locales ResolvedLocales) *Materializer {
	return &Materializer{
		distDir:   distDir,
		outputDir: outputDir,
		basePath:  strings.Trim(summary.BasePath, "/"),
		manifests: manifests,
		summary:   summary,
		locales:   locales,
	}
}

// copyTask is one source artifact and its destination, relative to the
// output root.
type copyTask struct {
	route   string
	sources []string
	dest    string
}

// Run materializes the static output tree. Per-route skips are non-fatal and
// logged; the operation is not transactional, but every file present in a
// partially completed tree is individually valid.
func (m *Materializer) Run(ctx context.Context) error {
	tasks := m.plan()

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentCopies)

	skips := make([]error, len(tasks))
	for i, task := range tasks {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			skips[i] = m.copyFirst(task)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	if skipped := multierr.Combine(skips...); skipped != nil {
		log.Printf("materialization skips: %v", skipped)
	}

	return nil
}

// plan enumerates every artifact to copy. The route universe is the union of
// prerendered routes and pages-manifest entries mapped to literal HTML,
// minus everything the classifier reserved for the backend.
func (m *Materializer) plan() []copyTask {
	var tasks []copyTask
	planned := map[string]struct{}{}

	for _, route := range slices.Sorted(maps.Keys(m.manifests.Prerender.Routes)) {
		entry := m.manifests.Prerender.Routes[route]

		locale, rest := m.splitLocale(route)
		if !m.locales.Serves(locale) {
			log.Printf("skipping %s: locale %q not served by this deploy", route, locale)
			continue
		}
		if why, excluded := m.excluded(route, rest); excluded {
			log.Printf("skipping %s: %s", route, why)
			continue
		}

		relFile := routeToFile(rest)
		for _, dest := range m.locales.Destinations(locale, relFile+".html") {
			tasks = append(tasks, copyTask{
				route:   route,
				sources: m.pageSources(route),
				dest:    m.withBasePath(dest),
			})
		}
		planned[route] = struct{}{}

		// The client-side data payload follows its manifest-declared path.
		// Routes owned by a server component fetch data live instead.
		if entry.DataRoute != "" && entry.SrcRoute == nil {
			tasks = append(tasks, copyTask{
				route:   route,
				sources: m.dataSources(route),
				dest:    strings.TrimPrefix(entry.DataRoute, "/"),
			})
		}
	}

	for _, route := range slices.Sorted(maps.Keys(m.manifests.Pages)) {
		source := m.manifests.Pages[route]
		if !strings.HasSuffix(source, ".html") {
			continue
		}
		if _, ok := planned[route]; ok {
			continue
		}

		locale, rest := m.splitLocale(route)
		if !m.locales.Serves(locale) {
			continue
		}
		if why, excluded := m.excluded(route, rest); excluded {
			log.Printf("skipping %s: %s", route, why)
			continue
		}

		for _, dest := range m.locales.Destinations(locale, routeToFile(rest)+".html") {
			tasks = append(tasks, copyTask{
				route:   route,
				sources: []string{filepath.Join(m.distDir, "server", filepath.FromSlash(source))},
				dest:    m.withBasePath(dest),
			})
		}
	}

	return tasks
}

// pageSources lists candidate artifact locations for a route, in resolution
// order: the exact file, the file with a document extension added, and the
// body-only artifact of a literal HTTP-method route handler.
func (m *Materializer) pageSources(route string) []string {
	rel := filepath.FromSlash(routeToFile(route))

	var sources []string
	for _, base := range []string{"pages", "app"} {
		dir := filepath.Join(m.distDir, "server", base)
		sources = append(sources,
			filepath.Join(dir, rel),
			filepath.Join(dir, rel+".html"),
			filepath.Join(dir, rel+".body"),
		)
	}

	return sources
}

func (m *Materializer) dataSources(route string) []string {
	rel := filepath.FromSlash(routeToFile(route))

	return []string{
		filepath.Join(m.distDir, "server", "pages", rel+".json"),
		filepath.Join(m.distDir, "server", "app", rel+".rsc"),
	}
}

// copyFirst copies the first existing source to the task's destination. A
// route with no artifact on disk is a non-fatal skip: the route is left to
// the backend or 404s.
func (m *Materializer) copyFirst(task copyTask) error {
	dest := filepath.Join(m.outputDir, filepath.FromSlash(task.dest))

	for _, source := range task.sources {
		info, err := os.Stat(source)
		if err != nil || info.IsDir() {
			continue
		}

		if err := copyFile(source, dest); err != nil {
			return fmt.Errorf("copying %s: %w", task.route, err)
		}
		return nil
	}

	log.Printf("no static artifact for %s, leaving to backend", task.route)
	return fmt.Errorf("no artifact for %s", task.route)
}

func copyFile(source, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// excluded consults the exclusion list under both keys a route is known by:
// per-route exclusions (revalidate, partial prerendering) are recorded under
// the manifest key, which carries the locale prefix in i18n builds, while
// matcher patterns target the locale-stripped public path.
func (m *Materializer) excluded(route, rest string) (string, bool) {
	if why, ok := m.summary.ExcludedFromStatic(route); ok {
		return why, true
	}
	if rest != route {
		return m.summary.ExcludedFromStatic(rest)
	}
	return "", false
}

// withBasePath places a page destination under the configured base path.
// Data routes are not shifted: the manifest declares them with the base path
// already applied.
func (m *Materializer) withBasePath(dest string) string {
	if m.basePath == "" {
		return dest
	}
	return path.Join(m.basePath, dest)
}

// splitLocale separates the locale prefix from a manifest route path. Routes
// carry the prefix only when i18n is configured.
func (m *Materializer) splitLocale(route string) (locale string, rest string) {
	i18n := m.manifests.Routes.I18n
	if i18n == nil {
		return "", route
	}

	trimmed := strings.TrimPrefix(route, "/")
	head, tail, _ := strings.Cut(trimmed, "/")
	if slices.Contains(i18n.Locales, head) {
		if tail == "" {
			return head, "/"
		}
		return head, "/" + tail
	}

	return "", route
}

// routeToFile maps a route path to its artifact name, relative to a source
// or destination root.
func routeToFile(route string) string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return "index"
	}
	return trimmed
}
