package httpapi

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
// Default is 1 MiB.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// sendTimeout bounds how long a message request may stream before it is
// cancelled. Zero means no additional timeout beyond server/connection timeouts.
var sendTimeout = int64(0) // seconds

// SetSendTimeoutSeconds sets the send timeout in seconds (0 disables).
func SetSendTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	sendTimeout = sec
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. Empty lists
// fall back to permissive defaults for local development.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
