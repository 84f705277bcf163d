package engine

import "fmt"

// TransportError reports a chat transport failure (connect, join, or part).
// It is surfaced to operators through the status event and logs; it is never
// fatal to the engine, which stays serviceable for further join requests.
type TransportError struct {
	Op      string
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
