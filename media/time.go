// Package media defines the core value types that flow through the alphamask
// processing element: clock times on the nanosecond axis, pixel-format and
// geometry descriptors, timestamped raw-pixel buffers, and mapped per-plane
// frame views.
package media

// ClockTime is a presentation timestamp or duration in nanoseconds.
// ClockTimeNone marks an absent value; comparisons against it follow
// unsigned arithmetic, so callers must check Valid before doing time math.
type ClockTime uint64

// ClockTimeNone is the sentinel for an unset timestamp or duration.
const ClockTimeNone = ^ClockTime(0)

// Common time units on the ClockTime axis.
const (
	Nanosecond  ClockTime = 1
	Microsecond ClockTime = 1000 * Nanosecond
	Millisecond ClockTime = 1000 * Microsecond
	Second      ClockTime = 1000 * Millisecond
)

// Valid reports whether t carries a real time value.
func (t ClockTime) Valid() bool {
	return t != ClockTimeNone
}

// Fraction is an exact ratio, used for frame rates and pixel aspect ratios.
type Fraction struct {
	Num int
	Den int
}

// Valid reports whether the fraction describes a usable positive ratio.
func (f Fraction) Valid() bool {
	return f.Num > 0 && f.Den > 0
}

// FrameDuration returns the duration of a single frame at rate fps, or
// ClockTimeNone when the rate is unknown.
func FrameDuration(fps Fraction) ClockTime {
	if !fps.Valid() {
		return ClockTimeNone
	}
	return Second * ClockTime(fps.Den) / ClockTime(fps.Num)
}
