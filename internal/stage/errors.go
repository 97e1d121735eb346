package stage

import "fmt"

// Error wraps any stage-level failure. Every stage error is fatal to the
// run — nothing partial is ever committed past the point of failure.
type Error struct {
	Stage string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Msg, e.Err)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(stage, msg string, err error) error {
	return &Error{Stage: stage, Msg: msg, Err: err}
}
