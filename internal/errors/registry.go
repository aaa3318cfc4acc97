package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (Q001-Q009)
	// ============================================

	"Q001": {
		Category: CategoryRuntime,
		Message:  "Router not installed",
		Detail:   "A query synchronizer or the write coalescer touched location state before a router was installed. Install the router once at startup, before any synchronizer is constructed.",
		DocURL:   "https://vango.dev/docs/querysync/errors/Q001",
	},
	"Q002": {
		Category: CategoryRuntime,
		Message:  "Query key collision",
		Detail:   "Two active synchronizers resolve to the same query key, so their writes interleave and the last coalesced write wins. Give one of them a distinct context.",
		DocURL:   "https://vango.dev/docs/querysync/errors/Q002",
	},

	// ============================================
	// Config Errors (Q010-Q019)
	// ============================================

	"Q010": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "querysync.json could not be read or is not valid JSON.",
		DocURL:   "https://vango.dev/docs/querysync/errors/Q010",
	},
	"Q011": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value failed validation.",
		DocURL:   "https://vango.dev/docs/querysync/errors/Q011",
	},

	// ============================================
	// Protocol Errors (Q020-Q029)
	// ============================================

	"Q020": {
		Category: CategoryProtocol,
		Message:  "Invalid client message",
		Detail:   "The client sent a message that is not valid JSON or has an unknown type.",
		DocURL:   "https://vango.dev/docs/querysync/errors/Q020",
	},
	"Q021": {
		Category: CategoryProtocol,
		Message:  "Invalid location",
		Detail:   "A location URL could not be parsed.",
		DocURL:   "https://vango.dev/docs/querysync/errors/Q021",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
