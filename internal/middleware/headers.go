package middleware

import (
	"net/http"
	"strings"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// securityHeaders are set on every response.
var securityHeaders = [][2]string{
	{constants.HeaderXContentTypeOptions, constants.ContentTypeOptionsNoSniff},
	{constants.HeaderXFrameOptions, constants.FrameOptionsDeny},
	{constants.HeaderXXSSProtection, constants.XSSProtectionModeBlock},
	{constants.HeaderReferrerPolicy, constants.ReferrerPolicyStrictOrigin},
	{constants.HeaderContentSecurityPolicy, constants.CSPDefaultSrc},
}

// SecurityHeaders adds the browser hardening headers to every response.
// Responses under the API prefix carry session data and shared files, so
// they are also marked as not cacheable.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}

			if strings.HasPrefix(r.URL.Path, constants.APIBasePath) {
				h.Set(constants.HeaderCacheControl, constants.CacheControlNoStore)
				h.Set(constants.HeaderPragma, constants.PragmaNoCache)
			}

			next.ServeHTTP(w, r)
		})
	}
}
