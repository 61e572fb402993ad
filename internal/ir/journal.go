package ir

// JournalOp names a buffer operation recorded in the journal.
type JournalOp string

const (
	OpOpen      JournalOp = "open"
	OpRequestID JournalOp = "request_id"
	OpRecord    JournalOp = "record"
	OpAppend    JournalOp = "append"
	OpClose     JournalOp = "close"
	OpMutate    JournalOp = "mutate"
)

// JournalEntry is one buffer operation as written to the journal.
// Seq is a per-buffer logical clock value, never wall time.
type JournalEntry struct {
	BufferID    string    `json:"buffer_id"`
	Seq         int64     `json:"seq"`
	Op          JournalOp `json:"op"`
	CommandID   CommandID `json:"command_id,omitempty"`
	Payload     Object    `json:"payload"`
	PayloadHash string    `json:"payload_hash"`
	ErrorCode   string    `json:"error_code,omitempty"`
}
