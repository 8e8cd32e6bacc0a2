package gifts

import (
	"errors"
	"time"
)

// Schedule harmonizes the two polling cadences into one tick loop.
// The loop ticks every Base; a scan runs on the cycles where its cadence
// divides the cycle counter.
type Schedule struct {
	Base time.Duration

	// DefaultCycles and VIPCycles are how many base ticks separate two
	// consecutive scans of each tier.
	DefaultCycles int
	VIPCycles     int

	// Period is lcm(DefaultCycles, VIPCycles); the cycle counter wraps here
	// so it never overflows on a long-lived process.
	Period int
}

func NewSchedule(vipEvery, defaultEvery time.Duration) (Schedule, error) {
	if vipEvery <= 0 || defaultEvery <= 0 {
		return Schedule{}, errors.New("poll intervals must be positive")
	}
	base := time.Duration(gcd(int64(vipEvery), int64(defaultEvery)))
	dc := int(defaultEvery / base)
	vc := int(vipEvery / base)
	return Schedule{
		Base:          base,
		DefaultCycles: dc,
		VIPCycles:     vc,
		Period:        dc / gcdInt(dc, vc) * vc,
	}, nil
}

// Due reports which scans run at the given cycle. On coincident ticks both
// are due and both run; the default scan (everyone) goes first, so the vip
// tier is never skipped on overlap.
func (s Schedule) Due(cycle int) (defaultDue, vipDue bool) {
	return cycle%s.DefaultCycles == 0, cycle%s.VIPCycles == 0
}

// Next advances the cycle counter, wrapping at Period.
func (s Schedule) Next(cycle int) int {
	return (cycle + 1) % s.Period
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func gcdInt(a, b int) int {
	return int(gcd(int64(a), int64(b)))
}
