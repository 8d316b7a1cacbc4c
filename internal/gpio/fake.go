package gpio

// FakeIndicator records every value written to it.
type FakeIndicator struct {
	// Values contains each value passed to Set, in order.
	Values []bool

	// On is the last value set.
	On bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeIndicator creates an unlit FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records on.
func (f *FakeIndicator) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, on)
	f.On = on
	return nil
}

// Close switches the indicator off and marks it closed.
func (f *FakeIndicator) Close() error {
	f.On = false
	f.Closed = true
	return nil
}

// Nop is an Indicator that does nothing, used when GPIO is disabled.
type Nop struct{}

func (Nop) Set(bool) error { return nil }
func (Nop) Close() error   { return nil }

var (
	_ Indicator = (*FakeIndicator)(nil)
	_ Indicator = (*RealIndicator)(nil)
	_ Indicator = Nop{}
)
