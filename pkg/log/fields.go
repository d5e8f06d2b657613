package log

// Common structured-field names, shared so log output stays greppable.
const (
	// Chat
	FieldSessionID     = "session_id"
	FieldMessageID     = "message_id"
	FieldCorrelationID = "client_side_id"
	FieldFrameType     = "frame_type"

	// Transport
	FieldEndpoint = "endpoint"
	FieldState    = "state"

	// Actor
	FieldOperatorID = "operator_id"
	FieldTenantID   = "tenant_id"

	// Service
	FieldService = "service"
)
