package species

import "fmt"

// DialogState is the state of one edit dialog.
type DialogState int

const (
	Closed DialogState = iota
	Open
	Submitting
	OpenWithError
)

func (s DialogState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Submitting:
		return "submitting"
	case OpenWithError:
		return "open_with_error"
	default:
		return fmt.Sprintf("DialogState(%d)", int(s))
	}
}

// Dialog tracks the edit dialog lifecycle:
// Closed -> Open -> Submitting -> Closed | OpenWithError.
type Dialog struct {
	state DialogState
	err   string
}

// State returns the current state.
func (d *Dialog) State() DialogState { return d.state }

// Err returns the message shown in OpenWithError, or "".
func (d *Dialog) Err() string { return d.err }

// Open shows the dialog.
func (d *Dialog) Open() error {
	if d.state != Closed {
		return d.invalid("open")
	}
	d.state = Open
	return nil
}

// Submit starts a submission. It is refused while one is in flight.
func (d *Dialog) Submit() error {
	if d.state != Open && d.state != OpenWithError {
		return d.invalid("submit")
	}
	d.state = Submitting
	d.err = ""
	return nil
}

// Succeed closes the dialog after a successful update.
func (d *Dialog) Succeed() error {
	if d.state != Submitting {
		return d.invalid("succeed")
	}
	d.state = Closed
	return nil
}

// Fail keeps the dialog open with msg.
func (d *Dialog) Fail(msg string) error {
	if d.state != Submitting {
		return d.invalid("fail")
	}
	d.state = OpenWithError
	d.err = msg
	return nil
}

// Close dismisses the dialog without submitting.
func (d *Dialog) Close() error {
	if d.state != Open && d.state != OpenWithError {
		return d.invalid("close")
	}
	d.state = Closed
	d.err = ""
	return nil
}

func (d *Dialog) invalid(event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, d.state)
}
