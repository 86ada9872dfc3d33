package task

// Operation identifies the kind of long-running backend work a task performs.
// It is recorded in the local journal alongside the opaque task identifier.
type Operation string

// Operation values.
const (
	OperationDocumentProcessing Operation = "document_processing"
	OperationImport             Operation = "import"
	OperationUnknown            Operation = "unknown"
)

// String returns the operation as a string.
func (o Operation) String() string {
	return string(o)
}
