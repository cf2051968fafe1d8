package log

// Canonical field names for structured logging.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldSessionID  = "session_id"
	FieldLevel      = "level_code"
	FieldUser       = "user"
	FieldStatus     = "status"
	FieldRemoteAddr = "remote_addr"
	FieldCommand    = "command"
	FieldDuration   = "duration"
)
