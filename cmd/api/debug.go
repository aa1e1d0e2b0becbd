package main

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// pprofHandler serves chi's profiler under /debug behind basic auth.
// Without credentials the profiler is unreachable.
func pprofHandler(user, pass string) http.Handler {
	profiler := middleware.Profiler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user == "" || pass == "" {
			http.NotFound(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		profiler.ServeHTTP(w, r)
	})
}
