package middleware

import (
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// Recovery turns a panicking handler into a 500 response and logs the
// panic with the request it happened on.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID, _ := auth.GetRequestID(r)
				var userID string
				if id, ok := auth.GetUserID(r); ok {
					userID = strconv.FormatInt(id, 10)
				}

				logger := utils.RequestLogger(requestID, userID, r.Method, r.URL.Path)
				logger.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("remote_addr", r.RemoteAddr).
					Msg("Panic recovered in request handler")

				utils.Error(w, http.StatusInternalServerError, constants.CodeInternalError, constants.MsgInternalServerError, nil)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
