package access

import "github.com/google/uuid"

// NewOperationID generates a random UUID string as a correlation ID
// for one access control call. The server layer does not call it; its
// log lines carry no operation ID.
func NewOperationID() string {
	return uuid.NewString()
}
