package ingestclient

import "fmt"

// NonUniqueTimestampError means the ingestion API already holds a collection
// with this logical timestamp. The upload worker treats this as success
// (§4.5) unless update mode is enabled (§4.5.1).
type NonUniqueTimestampError struct {
	Timestamp string
}

func (e *NonUniqueTimestampError) Error() string {
	return fmt.Sprintf("collection with timestamp %s already exists", e.Timestamp)
}

// ConflictError is returned by updateCollection when the existing
// server-side record can't be reconciled with the local file. The upload
// worker logs and skips; it never invalidates the existing record.
type ConflictError struct {
	Timestamp string
	Err       error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict updating collection %s: %v", e.Timestamp, e.Err)
}
func (e *ConflictError) Unwrap() error { return e.Err }

// ApiError is any other non-2xx response from the ingestion API.
type ApiError struct {
	StatusCode int
	Message    string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("ingestion API error (status %d): %s", e.StatusCode, e.Message)
}

// ConnectError means the startup ping failed; the process must exit non-zero
// without entering the import loop.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return fmt.Sprintf("could not reach ingestion API: %v", e.Err) }
func (e *ConnectError) Unwrap() error { return e.Err }
