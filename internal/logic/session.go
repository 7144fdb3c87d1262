package logic

import "time"

// Result is the resolution of a press session.
type Result struct {
	Classification Classification
	End            time.Duration
	Duration       time.Duration
	DurationKnown  bool
}

// Session tracks a single accepted press from arm to resolution.
// A Session resolves exactly once; later observations return ok=false.
type Session struct {
	start     time.Duration
	threshold time.Duration
	mode      ClassifyMode
	longFired bool
	resolved  bool
}

// NewSession arms a session at start.
func NewSession(start, threshold time.Duration, mode ClassifyMode) *Session {
	return &Session{
		start:     start,
		threshold: threshold,
		mode:      mode,
	}
}

// Start returns the arm timestamp.
func (s *Session) Start() time.Duration {
	return s.start
}

// Resolved reports whether the session has produced its result.
func (s *Session) Resolved() bool {
	return s.resolved
}

// LongFired reports whether a long press has been signalled for this session.
func (s *Session) LongFired() bool {
	return s.longFired
}

// Observe takes a level sample at now and returns the result once the session
// resolves. released is the logical state of the button (true = not pressed).
func (s *Session) Observe(now time.Duration, released bool) (Result, bool) {
	if s.resolved {
		return Result{}, false
	}
	elapsed := now - s.start
	if elapsed < 0 {
		elapsed = 0
	}

	if released {
		if elapsed < s.threshold {
			return s.resolve(Result{
				Classification: ShortPress,
				End:            now,
				Duration:       elapsed,
				DurationKnown:  true,
			}), true
		}
		// Threshold mode would normally have fired already; a coarse poll
		// can still observe release first.
		return s.fireLong(now, elapsed, true), true
	}

	if s.mode == ClassifyOnThreshold && elapsed >= s.threshold {
		return s.fireLong(now, s.threshold, false), true
	}
	return Result{}, false
}

func (s *Session) fireLong(now, d time.Duration, known bool) Result {
	if s.longFired {
		return Result{}
	}
	s.longFired = true
	return s.resolve(Result{
		Classification: LongPress,
		End:            now,
		Duration:       d,
		DurationKnown:  known,
	})
}

func (s *Session) resolve(r Result) Result {
	s.resolved = true
	return r
}
