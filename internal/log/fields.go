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
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldPeriod     = "period"
	FieldTxID       = "transaction_id"
	FieldTxType     = "transaction_type"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldSeriesID   = "series_id"
	FieldPayload    = "payload"
	FieldSheetsRef  = "sheets_ref"
	FieldGenerated  = "generated"
	FieldMessageID  = "message_id"
)

// Components
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentRecommend = "recommend"
	ComponentAuth      = "auth"
)

// Operations
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpList   = "list"
	OpExpand = "expand"
	OpMirror = "mirror"
	OpRender = "render"
	OpDecode = "decode"
)

// Fields is an ordered builder for slog key/value pairs.
type Fields []any

func NewFields() Fields { return Fields{} }

func (f Fields) With(key string, value any) Fields { return append(f, key, value) }

func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, FieldError, err.Error())
}

func (f Fields) WithOperation(op string) Fields { return append(f, FieldOperation, op) }

func (f Fields) WithUser(userID int64) Fields { return append(f, FieldUserID, userID) }

// WithTransaction adds the identifying fields of a ledger row.
func (f Fields) WithTransaction(id int64, typ, category, amount string) Fields {
	return append(f, FieldTxID, id, FieldTxType, typ, FieldCategory, category, FieldAmount, amount)
}

func (f Fields) ToSlice() []any { return []any(f) }
