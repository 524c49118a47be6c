package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldUserID     = "user_id"
	FieldBillID     = "bill_id"
	FieldTemplateID = "template_id"
	FieldBucket     = "bucket"
	FieldDueDate    = "due_date"
	FieldTimezone   = "timezone"
	FieldFrequency  = "frequency"
	FieldAmount     = "amount_cents"
	FieldYear       = "year"
	FieldMonth      = "month"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentSchedule = "schedule"
	ComponentBills    = "bills"
	ComponentWorker   = "worker"
	ComponentExport   = "export"
	ComponentAuth     = "auth"
	ComponentCache    = "cache"
)
