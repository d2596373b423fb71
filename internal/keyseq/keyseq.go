// Package keyseq recognizes two-key chords in a stream of key events.
package keyseq

// DefaultTimeoutTicks is the idle tick count after which a pending key is forgotten.
const DefaultTimeoutTicks = 10

// Kind describes the physical phase of a key event.
type Kind int

// KindPress and related constants enumerate key event phases.
const (
	KindPress Kind = iota
	KindRepeat
	KindRelease
)

// KeyEvent is one key event. Key is the canonical keystroke name ("g",
// "ctrl+c", "esc") and Text holds any printable text the key produced.
type KeyEvent struct {
	Key  string
	Text string
	Kind Kind
}

// Press builds a press event for a keystroke name, using the name as text
// when it is a single printable character.
func Press(key string) KeyEvent {
	ev := KeyEvent{Key: key, Kind: KindPress}
	if len([]rune(key)) == 1 {
		ev.Text = key
	}
	return ev
}

// String returns the keystroke name so events satisfy fmt.Stringer.
func (e KeyEvent) String() string {
	return e.Key
}

// Filter decides whether an event may participate in chord tracking.
type Filter func(KeyEvent) bool

// PressOnly accepts press events and rejects repeats and releases.
func PressOnly(ev KeyEvent) bool {
	return ev.Kind == KindPress
}

// chord is the ordered key pair of one registered sequence.
type chord struct {
	first  string
	second string
}

// Sequencer maps two-key chords to events of type E.
type Sequencer[E any] struct {
	chords       map[chord]E
	last         string
	hasLast      bool
	idleTicks    int
	timeoutTicks int
	filter       Filter
}

// Option configures a Sequencer.
type Option func(*options)

// options holds constructor settings shared across event types.
type options struct {
	timeoutTicks int
	filter       Filter
}

// WithTimeoutTicks sets the idle tick threshold; values below one are ignored.
func WithTimeoutTicks(ticks int) Option {
	return func(o *options) {
		if ticks > 0 {
			o.timeoutTicks = ticks
		}
	}
}

// WithFilter replaces the default PressOnly filter.
func WithFilter(filter Filter) Option {
	return func(o *options) {
		if filter != nil {
			o.filter = filter
		}
	}
}

// New constructs an empty sequencer.
func New[E any](opts ...Option) *Sequencer[E] {
	o := options{
		timeoutTicks: DefaultTimeoutTicks,
		filter:       PressOnly,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Sequencer[E]{
		chords:       map[chord]E{},
		timeoutTicks: o.timeoutTicks,
		filter:       o.filter,
	}
}

// Register binds first followed by second to event, replacing any prior binding.
func (s *Sequencer[E]) Register(first, second string, event E) {
	s.chords[chord{first: first, second: second}] = event
}

// Feed offers one event. It returns the chord event when ev completes a
// registered chord with the pending key.
func (s *Sequencer[E]) Feed(ev KeyEvent) (E, bool) {
	var zero E
	if !s.filter(ev) {
		return zero, false
	}
	s.idleTicks = 0
	if s.hasLast {
		if event, ok := s.chords[chord{first: s.last, second: ev.Key}]; ok {
			s.clear()
			return event, true
		}
	}
	s.last = ev.Key
	s.hasLast = true
	return zero, false
}

// Tick advances the idle counter and forgets the pending key at the threshold.
func (s *Sequencer[E]) Tick() {
	s.idleTicks++
	if s.idleTicks >= s.timeoutTicks {
		s.clear()
		s.idleTicks = 0
	}
}

// Pending returns the key waiting for a second chord key.
func (s *Sequencer[E]) Pending() (string, bool) {
	return s.last, s.hasLast
}

// Reset drops any pending key without waiting for the timeout.
func (s *Sequencer[E]) Reset() {
	s.clear()
	s.idleTicks = 0
}

// clear forgets the pending key.
func (s *Sequencer[E]) clear() {
	s.last = ""
	s.hasLast = false
}
