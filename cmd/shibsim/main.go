// Command shibsim runs a reverse proxy that injects Shibboleth-style
// identity headers into every request, simulating the headers a real
// Service Provider would assert. It exists for manual testing of the
// shib_remote_user handler without a full Shibboleth deployment.
//
// Usage: go run ./cmd/shibsim -upstream http://localhost:9080 -user jdoe
package main

import (
	"flag"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type headerList map[string]string

func (h headerList) String() string {
	pairs := make([]string, 0, len(h))
	for k, v := range h {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (h headerList) Set(value string) error {
	for _, pair := range strings.Split(value, ",") {
		k, v, _ := strings.Cut(pair, "=")
		h[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return nil
}

func main() {
	listen := flag.String("listen", ":9443", "Address to listen on")
	upstream := flag.String("upstream", "http://localhost:9080", "Upstream URL to proxy to")
	user := flag.String("user", "testuser", "Username asserted in the remote-user header")
	userHeader := flag.String("user-header", "X-Remote-User", "Remote-user header name")
	groups := flag.String("groups", "", "Group list asserted in the groups header, e.g. \"staff;admins\"")
	groupHeader := flag.String("group-header", "X-Shib-Groups", "Groups header name")
	attrs := headerList{}
	flag.Var(attrs, "attr", "Extra headers to assert as Header=Value, comma separated (repeatable)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	target, err := url.Parse(*upstream)
	if err != nil {
		logger.Fatal("invalid upstream URL", zap.Error(err))
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		// Strip any identity headers the client sent; only the
		// simulator may assert them, same as a real SP deployment.
		r.Header.Del(*userHeader)
		r.Header.Del(*groupHeader)

		r.Header.Set(*userHeader, *user)
		if *groups != "" {
			r.Header.Set(*groupHeader, *groups)
		}
		for k, v := range attrs {
			r.Header.Set(k, v)
		}
	}

	logger.Info("shibboleth header simulator listening",
		zap.String("listen", *listen),
		zap.String("upstream", target.String()),
		zap.String("user", *user))

	if err := http.ListenAndServe(*listen, proxy); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
