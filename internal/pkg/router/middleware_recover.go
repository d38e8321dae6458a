package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler { //nolint:errorlint // must compare directly
					panic(rvr)
				}

				slog.ErrorContext(r.Context(), "panic on the server",
					"because", rvr,
					"stack", string(debug.Stack()),
				)

				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
