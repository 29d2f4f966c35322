package crawler

// ResultKind tags the outcome of a pipeline stage.
type ResultKind int

// Result kinds.
const (
	ResultOK ResultKind = iota
	ResultSkip
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultSkip:
		return "skip"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of extracting or filtering one entry.
// Record is only meaningful for ResultOK, Reason for ResultSkip and Err for
// ResultError.
type Result struct {
	Kind   ResultKind
	Record Record
	Reason string
	Err    error
}

// OK wraps a usable record.
func OK(rec Record) Result {
	return Result{Kind: ResultOK, Record: rec}
}

// Skip marks an entry that was deliberately not kept.
func Skip(reason string) Result {
	return Result{Kind: ResultSkip, Reason: reason}
}

// Fail marks an entry that could not be processed.
func Fail(err error) Result {
	return Result{Kind: ResultError, Err: err}
}
