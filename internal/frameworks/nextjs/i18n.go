// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"path"
	"slices"
)

// localeRoot is the fixed output segment under which non-default locale
// content is placed in a multi-locale layout.
const localeRoot = "_locales"

// ResolvedLocales is the locale configuration after restricting the i18n
// block to the current deploy target's domains.
type ResolvedLocales struct {
	Locales       []string
	DefaultLocale string
	// SingleLocaleDomain is true when this deploy serves at most one locale,
	// in which case default-locale content lives at the output root and no
	// prefixed copies exist.
	SingleLocaleDomain bool
}

// ResolveLocales restricts the configured locales to the domain mapping (if
// any) that intersects the deploy target's domains. Without a match, the
// top-level i18n config applies unmodified. A nil i18n config resolves to a
// single-locale layout with no locales.
func ResolveLocales(i18n *I18nConfig, deployDomains []string) ResolvedLocales {
	if i18n == nil {
		return ResolvedLocales{SingleLocaleDomain: true}
	}

	locales := i18n.Locales
	defaultLocale := i18n.DefaultLocale

	for _, domain := range i18n.Domains {
		if slices.Contains(deployDomains, domain.Domain) {
			locales = domain.Locales
			defaultLocale = domain.DefaultLocale
			break
		}
	}

	return ResolvedLocales{
		Locales:            locales,
		DefaultLocale:      defaultLocale,
		SingleLocaleDomain: len(locales) <= 1,
	}
}

// Serves reports whether this deploy serves the given locale. Content for a
// locale outside the resolved subset must never be materialized.
func (r ResolvedLocales) Serves(locale string) bool {
	if locale == "" {
		return true
	}
	return slices.Contains(r.Locales, locale)
}

// Destinations returns the output-relative paths at which a route's artifact
// must be placed for the given locale. The domain's default locale serves
// from the output root; in a multi-locale layout every other locale lives
// under the locale root instead. Content is never duplicated between the
// two placements.
func (r ResolvedLocales) Destinations(locale string, relPath string) []string {
	if locale == "" || r.SingleLocaleDomain || locale == r.DefaultLocale {
		return []string{relPath}
	}

	return []string{path.Join(localeRoot, locale, relPath)}
}
