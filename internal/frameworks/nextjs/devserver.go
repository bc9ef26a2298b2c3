// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/tharvik/firebase-tools/internal/frameworks"
)

// DevServerOptions configures the local emulation proxy over the framework's
// own development server.
type DevServerOptions struct {
	// Target is the address the framework dev server listens on.
	Target string
	// UsesMiddleware reports that the project has middleware configured.
	UsesMiddleware bool
	// SupportsMiddleware reports that the emulator environment can serve
	// middleware-gated requests.
	SupportsMiddleware bool
}

// NewDevServerHandler wraps the framework's development request handler
// behind a reverse proxy. It refuses to start when middleware is in use and
// the emulator cannot honor it, since silently dropping middleware would
// serve wrong responses.
func NewDevServerHandler(opts DevServerOptions) (http.Handler, error) {
	if opts.UsesMiddleware && !opts.SupportsMiddleware {
		return nil, &frameworks.UnsupportedConfigurationError{
			Setting: "middleware",
			Value:   "enabled",
			Advice:  "this emulator cannot serve middleware; run the full emulator suite instead",
		}
	}

	target, err := url.Parse(opts.Target)
	if err != nil {
		return nil, &frameworks.UnsupportedConfigurationError{
			Setting: "devServer.target",
			Value:   opts.Target,
			Advice:  "provide the dev server address as an absolute URL",
		}
	}

	proxy := httputil.NewSingleHostReverseProxy(target)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Re-parse the request URL so encoded paths reach the framework
		// handler exactly as the browser sent them.
		if parsed, err := url.ParseRequestURI(r.RequestURI); err == nil {
			r.URL = parsed
		}
		proxy.ServeHTTP(w, r)
	}), nil
}
