package logging

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Chat
	FieldConnID      = "conn_id"
	FieldRoomID      = "room_id"
	FieldUserID      = "user_id"
	FieldDisplayName = "display_name"
	FieldMessageID   = "message_id"

	// Service
	FieldService = "service"
)
