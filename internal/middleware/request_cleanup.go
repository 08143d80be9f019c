package middleware

import (
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// bodies larger than this are closed without reading the rest
const maxDrainBytes = 256 << 10

// DrainAndCloseRequest discards what a handler left unread of a JSON body,
// so keep-alive connections survive partial decodes, then closes it.
// Bodies that still hold more than maxDrainBytes are only closed.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil || r.Body == http.NoBody {
				return
			}

			n, _ := io.CopyN(io.Discard, r.Body, maxDrainBytes+1)
			if n > maxDrainBytes {
				log.Tracef("[%s %s] body left over %d bytes unread, closing", r.Method, routeTemplate(r), maxDrainBytes)
			}
			if err := r.Body.Close(); err != nil {
				log.Tracef("[%s %s] close body: %s", r.Method, routeTemplate(r), err)
			}
		})
	}
}
