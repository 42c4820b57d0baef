package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/omarluq/bizcache/internal/cache"
)

// Gateway proxies requests to the upstream API. Successful writes
// (anything but GET, HEAD and OPTIONS answered with 2xx) invalidate the
// response cache namespace before the reply reaches the client, so a client
// never reads its own stale write.
type Gateway struct {
	proxy       *httputil.ReverseProxy
	invalidator *cache.Invalidator
	target      *url.URL
	namespace   string
}

// NewGateway creates a Gateway for upstream. inv may be nil, in which case
// writes invalidate nothing.
func NewGateway(upstream string, inv *cache.Invalidator, namespace string) (*Gateway, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", upstream, err)
	}

	g := &Gateway{
		invalidator: inv,
		target:      target,
		namespace:   namespace,
	}
	g.proxy = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(g.target)
			r.SetXForwarded()
			r.Out.Header.Del(HeaderAdminKey)
		},
		ModifyResponse: g.afterResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("upstream", g.target.Host).Msg("upstream request failed")
			WriteError(w, http.StatusBadGateway, errTypeUpstream, "upstream connection failed")
		},
	}
	return g, nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.proxy.ServeHTTP(w, r)
}

func (g *Gateway) afterResponse(resp *http.Response) error {
	req := resp.Request
	if g.invalidator == nil || isSafeMethod(req.Method) {
		return nil
	}

	var commitErr error
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		commitErr = fmt.Errorf("upstream %s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	// A failed write is returned untouched by AfterCommit and needs no action.
	_ = g.invalidator.AfterCommit(req.Context(), g.namespace)(commitErr)
	return nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
