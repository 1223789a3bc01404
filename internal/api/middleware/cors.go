package middleware

import "net/http"

const (
	defaultAllowHeaders = "Authorization, Content-Type"
	allowMethods        = "GET,POST,PUT,DELETE,OPTIONS"
)

// CORS echoes the request Origin, allows credentials and answers preflight
// requests with 204.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Preflight answers OPTIONS requests for any path.
func Preflight(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	if origin := r.Header.Get("Origin"); origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Credentials", "true")

	reqHeaders := r.Header.Get("Access-Control-Request-Headers")
	if reqHeaders == "" {
		reqHeaders = defaultAllowHeaders
	}
	h.Set("Access-Control-Allow-Headers", reqHeaders)
	h.Set("Access-Control-Allow-Methods", allowMethods)
}
