package level

// MoveResult is the outcome of a Move call. Won is terminal: once a level
// reports it, the session accepts no further moves.
type MoveResult struct {
	Message string `json:"message"`
	Won     bool   `json:"won"`
}

// QueryResult holds either an integer value or a failure message, never both.
// The zero value is a successful query returning 0.
type QueryResult struct {
	value   int
	failure string
	failed  bool
}

// Value returns a successful query result.
func Value(v int) QueryResult {
	return QueryResult{value: v}
}

// Failure returns a failed query result carrying msg.
func Failure(msg string) QueryResult {
	return QueryResult{failure: msg, failed: true}
}

// Failed reports whether the query failed.
func (r QueryResult) Failed() bool { return r.failed }

// Get returns the value, or a *QueryFailure when the query failed.
func (r QueryResult) Get() (int, error) {
	if r.failed {
		return 0, &QueryFailure{Message: r.failure}
	}
	return r.value, nil
}
