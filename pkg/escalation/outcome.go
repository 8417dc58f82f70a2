package escalation

import (
	"errors"
	"fmt"
)

// Escalation steps, in execution order.
const (
	StepRecord       = "record"
	StepRoster       = "roster"
	StepNotification = "notification"
	StepWarning      = "warning"
)

// StepError is a failure of one escalation step.
type StepError struct {
	Step string
	// Target is the notification recipient, empty for other steps.
	Target string
	Err    error
}

func (e *StepError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("escalation step %s (%s): %v", e.Step, e.Target, e.Err)
	}
	return fmt.Sprintf("escalation step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Outcome reports what an escalation wrote. Failed steps are listed in
// Errors; they never change the verdict.
type Outcome struct {
	// RecordID is empty when the record insert failed.
	RecordID string

	// Notified lists the reviewers that were notified.
	Notified []string

	// WarningID is empty when no warning was written.
	WarningID string

	Errors []*StepError
}

// Err joins every step error, or returns nil.
func (o *Outcome) Err() error {
	if o == nil || len(o.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(o.Errors))
	for i, e := range o.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (o *Outcome) fail(step, target string, err error) {
	o.Errors = append(o.Errors, &StepError{Step: step, Target: target, Err: err})
}
