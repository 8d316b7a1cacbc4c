// Package gpio drives the new-year indicator LED.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Indicator is a single on/off output.
type Indicator interface {
	// Set lights the indicator when on is true.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM line used when none is configured.
const DefaultPin = 17
