package httpx

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with mws. The first middleware is the outermost, so it sees
// the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recoverer turns a handler panic into a 500 JSON error and logs the stack.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rvr)
			}

			slogx.FromContext(r.Context()).Error("panic recovered",
				"panic", rvr,
				"stack", string(debug.Stack()),
			)
			WriteError(w, http.StatusInternalServerError, CodeInternalServerError, "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
