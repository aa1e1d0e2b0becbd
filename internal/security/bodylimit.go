package security

import (
	"net/http"

	"github.com/noah-isme/backend-gpa/internal/common"
)

// BodyLimit caps request payload size. Bodies that declare a larger
// Content-Length are refused before the handler runs; undeclared bodies are
// cut off by http.MaxBytesReader while the handler decodes them.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized requests with HTTP 413.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.PayloadTooLarge(w, b.Max)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
