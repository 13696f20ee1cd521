// Package segment tracks a playback segment window for one input stream
// and converts buffer timestamps onto the pipeline-wide running-time axis.
package segment

import "github.com/zsiec/alphamask/media"

// Format describes the axis a segment's values live on. Only time-based
// segments support clipping and running-time conversion.
type Format int

const (
	// FormatUndefined marks a segment that has not been configured, for
	// example after the auxiliary input is disconnected.
	FormatUndefined Format = iota
	// FormatTime marks a segment whose values are ClockTimes.
	FormatTime
)

// Segment is a declared contiguous window within which buffer timestamps
// are valid, with its own base offset and rate. Position tracks the last
// consumed timestamp and is maintained by the caller; it must not move
// backwards while the segment is active.
type Segment struct {
	Format      Format
	Rate        float64
	AppliedRate float64
	Start       media.ClockTime
	Stop        media.ClockTime
	Base        media.ClockTime
	Offset      media.ClockTime
	Position    media.ClockTime
}

// Init resets the segment to a pristine state of the given format: unit
// rate, zero start, open stop.
func (s *Segment) Init(format Format) {
	*s = Segment{
		Format:      format,
		Rate:        1.0,
		AppliedRate: 1.0,
		Start:       0,
		Stop:        media.ClockTimeNone,
		Base:        0,
		Offset:      0,
		Position:    0,
	}
}

// Clip limits the interval [start, stop) to the segment window. It returns
// false when the interval lies entirely outside the segment. A ClockTimeNone
// stop means the interval is open-ended; the clipped stop then inherits the
// segment's stop. A zero-length interval exactly at the segment start is
// considered inside.
//
// Note for open-ended intervals whose start precedes the segment start:
// Clip forces the start forward to the segment boundary. Callers that want
// to reject such buffers instead (the element's primary input does) must
// check for that case before calling Clip.
func (s *Segment) Clip(start, stop media.ClockTime) (bool, media.ClockTime, media.ClockTime) {
	if s.Format != FormatTime {
		return false, media.ClockTimeNone, media.ClockTimeNone
	}

	// Entirely after the segment.
	if s.Stop.Valid() && start.Valid() && start >= s.Stop {
		return false, media.ClockTimeNone, media.ClockTimeNone
	}
	// Entirely before the segment. A zero-length interval at the exact
	// segment start stays inside.
	if stop.Valid() && (stop < s.Start || (start != stop && stop == s.Start)) {
		return false, media.ClockTimeNone, media.ClockTimeNone
	}

	clipStart := start
	if start.Valid() && start < s.Start {
		clipStart = s.Start
	}

	clipStop := stop
	switch {
	case !stop.Valid():
		clipStop = s.Stop
	case s.Stop.Valid() && stop > s.Stop:
		clipStop = s.Stop
	}

	return true, clipStart, clipStop
}

// ToRunningTime maps a segment-local timestamp onto the shared running-time
// axis, accounting for the segment's base, offset and rate. It returns
// ClockTimeNone outside an active time-based segment.
func (s *Segment) ToRunningTime(pos media.ClockTime) media.ClockTime {
	if s.Format != FormatTime || !pos.Valid() {
		return media.ClockTimeNone
	}
	if s.Stop.Valid() && pos > s.Stop {
		return media.ClockTimeNone
	}

	var rel media.ClockTime
	if s.Rate >= 0 {
		if pos < s.Start {
			return media.ClockTimeNone
		}
		rel = pos - s.Start
	} else {
		// Reverse playback measures from the stop boundary.
		if !s.Stop.Valid() || pos > s.Stop {
			return media.ClockTimeNone
		}
		rel = s.Stop - pos
	}

	if rel < s.Offset {
		return media.ClockTimeNone
	}
	rel -= s.Offset

	if abs := absRate(s.Rate); abs != 1.0 && abs != 0 {
		rel = media.ClockTime(float64(rel) / abs)
	}

	return s.Base + rel
}

func absRate(rate float64) float64 {
	if rate < 0 {
		return -rate
	}
	return rate
}
