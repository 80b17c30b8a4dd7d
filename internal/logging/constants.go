package logging

// Standardized field names for structured logging.
// Ledger writes and import runs log with these keys so that a single member's
// history can be filtered out of the combined output.
const (
	FieldMember    = "member_id"
	FieldMemberKey = "member_name"
	FieldKind      = "entry_kind"
	FieldEntryID   = "entry_id"
	FieldAmount    = "amount"
	FieldBalance   = "balance"
	FieldDelta     = "delta"
	FieldSchema    = "schema"
	FieldRow       = "row"
	FieldBatch     = "batch"
	FieldReason    = "reason"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldCount     = "count"
	FieldInputFile = "input_file"
	FieldBackend   = "backend"
)
