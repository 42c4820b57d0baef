package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/omarluq/bizcache/internal/cache"
)

// HeaderCache reports whether a response came from the cache.
const HeaderCache = "X-Cache"

// X-Cache values.
const (
	cacheHit    = "HIT"
	cacheMiss   = "MISS"
	cacheShared = "SHARED"
	cacheBypass = "BYPASS"
)

// credentialHeaders mark a request whose response may be user specific.
var credentialHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization"}

// storedHeaders are the response headers replayed from the cache.
var storedHeaders = []string{
	"Cache-Control", "Content-Encoding", "Content-Language", "Content-Type",
	"ETag", "Expires", "Last-Modified", "Vary",
}

// cachedResponse is what the response cache stores per key.
type cachedResponse struct {
	Header map[string]string `msgpack:"header"`
	Body   []byte            `msgpack:"body"`
	Status int               `msgpack:"status"`
}

// uncacheable carries a response that must be served but not stored.
type uncacheable struct {
	resp cachedResponse
}

func (u *uncacheable) Error() string {
	return "response status " + http.StatusText(u.resp.Status) + " is not cacheable"
}

// ResponseCache serves GET responses from f under the API response policy
// for namespace. Keys are built from the request path and its query
// parameters, so parameter order does not matter. Requests carrying
// credentials bypass the cache entirely. Only 2xx responses without
// Set-Cookie or a private/no-store Cache-Control are stored; everything else
// is passed through uncached. Concurrent misses for one key reach next once.
func ResponseCache(f *cache.Facade, namespace string) func(http.Handler) http.Handler {
	policy := cache.APIResponsePolicy(namespace)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			if hasCredentials(r) {
				w.Header().Set(HeaderCache, cacheBypass)
				next.ServeHTTP(w, r)
				return
			}

			resp, source, err := cache.MemoizeSource(r.Context(), f, policy, requestArgs(r),
				func(ctx context.Context) (cachedResponse, error) {
					rec := newBufferedWriter()
					next.ServeHTTP(rec, r.WithContext(ctx))
					resp := rec.response()
					if !storable(resp, rec.header) {
						return cachedResponse{}, &uncacheable{resp: resp}
					}
					return resp, nil
				})

			var skip *uncacheable
			switch {
			case errors.As(err, &skip):
				writeCached(w, skip.resp, sourceLabel(source))
			case r.Context().Err() != nil:
				// Client went away; nothing to write.
			case err != nil:
				// Key input errors cannot happen for string paths and
				// queries; serve directly if they ever do.
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("response cache bypassed")
				next.ServeHTTP(w, r)
			default:
				writeCached(w, resp, sourceLabel(source))
			}
		})
	}
}

func hasCredentials(r *http.Request) bool {
	return lo.SomeBy(credentialHeaders, func(h string) bool {
		return r.Header.Get(h) != ""
	})
}

func storable(resp cachedResponse, header http.Header) bool {
	if resp.Status < 200 || resp.Status > 299 {
		return false
	}
	if header.Get("Set-Cookie") != "" {
		return false
	}
	cc := strings.ToLower(header.Get("Cache-Control"))
	return !strings.Contains(cc, "private") && !strings.Contains(cc, "no-store")
}

func sourceLabel(source cache.Source) string {
	switch source {
	case cache.SourceCache:
		return cacheHit
	case cache.SourceShared:
		return cacheShared
	default:
		return cacheMiss
	}
}

func requestArgs(r *http.Request) cache.Args {
	query := r.URL.Query()
	kw := make(map[string]any, len(query))
	for k, vs := range query {
		if len(vs) == 1 {
			kw[k] = vs[0]
			continue
		}
		kw[k] = vs
	}
	return cache.Args{Positional: []any{r.URL.Path}, Keyword: kw}
}

func writeCached(w http.ResponseWriter, resp cachedResponse, status string) {
	for k, v := range resp.Header {
		w.Header().Set(k, v)
	}
	w.Header().Set(HeaderCache, status)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// bufferedWriter records a handler's response in memory.
type bufferedWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) response() cachedResponse {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	header := make(map[string]string, len(storedHeaders))
	for _, k := range storedHeaders {
		if v := b.header.Get(k); v != "" {
			header[k] = v
		}
	}
	return cachedResponse{
		Status: status,
		Header: header,
		Body:   b.body.Bytes(),
	}
}
