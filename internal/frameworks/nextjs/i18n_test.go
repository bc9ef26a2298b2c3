// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocalesNoI18n(t *testing.T) {
	r := ResolveLocales(nil, []string{"example.com"})
	require.True(t, r.SingleLocaleDomain)
	require.Empty(t, r.Locales)
	require.True(t, r.Serves(""))
}

func TestResolveLocalesTopLevel(t *testing.T) {
	i18n := &I18nConfig{Locales: []string{"en", "fr", "de"}, DefaultLocale: "en"}

	r := ResolveLocales(i18n, nil)
	require.Equal(t, []string{"en", "fr", "de"}, r.Locales)
	require.Equal(t, "en", r.DefaultLocale)
	require.False(t, r.SingleLocaleDomain)
}

func TestResolveLocalesDomainRestriction(t *testing.T) {
	i18n := &I18nConfig{
		Locales:       []string{"en", "fr", "de"},
		DefaultLocale: "en",
		Domains: []DomainLocales{
			{Domain: "example.fr", DefaultLocale: "fr", Locales: []string{"fr"}},
			{Domain: "example.com", DefaultLocale: "en", Locales: []string{"en", "de"}},
		},
	}

	r := ResolveLocales(i18n, []string{"example.fr"})
	require.Equal(t, []string{"fr"}, r.Locales)
	require.Equal(t, "fr", r.DefaultLocale)
	require.True(t, r.SingleLocaleDomain)
	require.True(t, r.Serves("fr"))
	require.False(t, r.Serves("en"))

	r = ResolveLocales(i18n, []string{"example.com"})
	require.Equal(t, []string{"en", "de"}, r.Locales)
	require.False(t, r.SingleLocaleDomain)
}

func TestDestinations(t *testing.T) {
	i18n := &I18nConfig{Locales: []string{"en", "fr"}, DefaultLocale: "en"}
	r := ResolveLocales(i18n, nil)

	// Default locale content lives at the output root only.
	require.Equal(t, []string{"about.html"}, r.Destinations("en", "about.html"))

	// Every other locale lives under the locale root only; content is never
	// placed twice.
	require.Equal(t, []string{"_locales/fr/about.html"}, r.Destinations("fr", "about.html"))

	// Unprefixed artifacts go to the root.
	require.Equal(t, []string{"favicon.ico"}, r.Destinations("", "favicon.ico"))
}

func TestDestinationsSingleLocale(t *testing.T) {
	i18n := &I18nConfig{
		Locales:       []string{"en", "fr"},
		DefaultLocale: "en",
		Domains: []DomainLocales{
			{Domain: "example.fr", DefaultLocale: "fr", Locales: []string{"fr"}},
		},
	}

	r := ResolveLocales(i18n, []string{"example.fr"})
	require.Equal(t, []string{"about.html"}, r.Destinations("fr", "about.html"))
}
