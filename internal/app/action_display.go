package app

// DefaultActionResetTicks is the number of ticks an action message stays visible.
const DefaultActionResetTicks = 20

// ActionDisplay holds the last action message until it times out.
type ActionDisplay struct {
	message    string
	ticks      int
	resetTicks int
}

// NewActionDisplay constructs a display that clears after resetTicks ticks.
func NewActionDisplay(resetTicks int) *ActionDisplay {
	if resetTicks <= 0 {
		resetTicks = DefaultActionResetTicks
	}
	return &ActionDisplay{resetTicks: resetTicks}
}

// Set replaces the message and restarts the countdown.
func (d *ActionDisplay) Set(message string) {
	d.ticks = 0
	d.message = message
}

// Get returns the current message, or "" once cleared.
func (d *ActionDisplay) Get() string {
	return d.message
}

// Tick advances the countdown and clears the message at the threshold.
func (d *ActionDisplay) Tick() {
	d.ticks++
	if d.ticks >= d.resetTicks {
		d.message = ""
		d.ticks = 0
	}
}
