package constants

// HTTP Methods
const (
	HTTPMethodGET     = "GET"
	HTTPMethodPOST    = "POST"
	HTTPMethodOPTIONS = "OPTIONS"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// HTTP Headers
const (
	HeaderContentType      = "Content-Type"
	HeaderAuthorization    = "Authorization"
	HeaderAccept           = "Accept"
	HeaderRequestID        = "X-Request-ID"
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
)

// Backend routes
const (
	RouteTextGeneration = "/text-generation"
	RouteLoader         = "/loader"
	RouteSaveWorkspace  = "/save-workspace"
	RouteBlockAction    = "/block-action"
	RouteHealth         = "/healthz"
	RouteMetrics        = "/metrics"
)

// Server defaults
const (
	DefaultHost = "localhost"
	DefaultPort = 8080
)

// JSON formatting
const (
	JSONIndent = "  "
)
