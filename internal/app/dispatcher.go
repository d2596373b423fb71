package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
	"github.com/charmbracelet/log"
	"github.com/evanschultz/todoterm/internal/domain"
	"github.com/evanschultz/todoterm/internal/keyseq"
)

// ChordEvent identifies the operation bound to a two-key chord.
type ChordEvent int

// ChordNavigateTop selects the first task.
const (
	ChordNavigateTop ChordEvent = iota
)

// DispatcherConfig holds input tuning for the dispatcher.
type DispatcherConfig struct {
	ChordTimeoutTicks int
	ActionResetTicks  int
	// ChordModes lists the modes that recognize chords. Empty means Normal only.
	ChordModes []domain.Mode
	Keys       KeyConfig
}

// DispatcherOption configures optional dispatcher collaborators.
type DispatcherOption func(*Dispatcher)

// WithLogger routes dispatcher diagnostics to logger.
func WithLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClipboard mirrors yanked task text to clipboard.
func WithClipboard(clipboard Clipboard) DispatcherOption {
	return func(d *Dispatcher) {
		d.clipboard = clipboard
	}
}

// Dispatcher turns key events into store mutations according to the current mode.
type Dispatcher struct {
	store      *Store
	seq        *keyseq.Sequencer[ChordEvent]
	display    *ActionDisplay
	keys       KeyMap
	chordModes map[domain.Mode]bool

	mode         domain.Mode
	selected     int
	hasSelection bool
	yank         string
	hasYank      bool
	showHelp     bool
	running      bool
	quitArmed    bool
	// loadFailed blocks automatic saves until an explicit save succeeds.
	loadFailed bool

	logger    Logger
	clipboard Clipboard
}

// NewDispatcher constructs a dispatcher in Normal mode and registers its chords.
func NewDispatcher(store *Store, cfg DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	keys := NewKeyMap()
	keys.applyConfig(cfg.Keys)
	chordModes := map[domain.Mode]bool{}
	for _, mode := range cfg.ChordModes {
		chordModes[mode] = true
	}
	if len(chordModes) == 0 {
		chordModes[domain.ModeNormal] = true
	}
	d := &Dispatcher{
		store:      store,
		seq:        keyseq.New[ChordEvent](keyseq.WithTimeoutTicks(cfg.ChordTimeoutTicks)),
		display:    NewActionDisplay(cfg.ActionResetTicks),
		keys:       keys,
		chordModes: chordModes,
		mode:       domain.ModeNormal,
		running:    true,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if err := cfg.Keys.Validate(); err != nil {
		d.logger.Warn("key overrides conflict; first match wins", "err", err)
	}
	top := keys.ChordTopKey()
	d.seq.Register(top, top, ChordNavigateTop)
	d.syncSelection()
	return d
}

// Load hydrates the store and reports the outcome in the action display.
// A missing store is a fresh start, not an error.
func (d *Dispatcher) Load(ctx context.Context) error {
	err := d.store.Load(ctx)
	switch {
	case err == nil:
		d.loadFailed = false
		d.logger.Info("tasks loaded", "incomplete", d.store.IncompleteLen(), "total", d.store.Len())
		d.display.Set(fmt.Sprintf("loaded %d tasks", d.store.Len()))
	case errors.Is(err, ErrNotFound):
		d.loadFailed = false
		d.logger.Info("no saved tasks yet")
		d.display.Set("new task list")
		err = nil
	default:
		d.loadFailed = true
		d.logger.Error("load tasks failed", "err", err)
		d.display.Set("load failed: " + causeMessage(err))
	}
	d.syncSelection()
	return err
}

// Tick advances chord and action-message timeouts.
func (d *Dispatcher) Tick() {
	d.seq.Tick()
	d.display.Tick()
}

// HandleKey dispatches one key event.
func (d *Dispatcher) HandleKey(ctx context.Context, ev keyseq.KeyEvent) {
	if d.showHelp {
		if ev.Kind != keyseq.KindRelease {
			d.handleHelpKey(ev)
		}
		return
	}
	if event, ok := d.seq.Feed(ev); ok && d.chordModes[d.mode] {
		d.handleChord(event)
		return
	}
	if ev.Kind == keyseq.KindRelease {
		return
	}
	switch d.mode {
	case domain.ModeNormal:
		d.handleNormalKey(ctx, ev)
	case domain.ModeInsert:
		d.handleInsertKey(ctx, ev)
	default:
		d.logger.Error("key dispatched in unknown mode", "mode", d.mode, "key", ev.Key)
	}
}

// handleChord runs the operation bound to a recognized chord.
func (d *Dispatcher) handleChord(event ChordEvent) {
	switch event {
	case ChordNavigateTop:
		d.NavigateTop()
	default:
		d.logger.Warn("unbound chord event", "event", int(event))
	}
}

// handleHelpKey closes the help overlay on a help or quit key. Every other
// key is ignored while the overlay hides the list.
func (d *Dispatcher) handleHelpKey(ev keyseq.KeyEvent) {
	if key.Matches(ev, d.keys.Help, d.keys.Quit) {
		d.showHelp = false
	}
}

// handleNormalKey matches ev against the Normal-mode key table.
func (d *Dispatcher) handleNormalKey(ctx context.Context, ev keyseq.KeyEvent) {
	if !key.Matches(ev, d.keys.Quit) {
		d.quitArmed = false
	}
	switch {
	case key.Matches(ev, d.keys.Quit):
		d.Quit(ctx)
	case key.Matches(ev, d.keys.Down):
		d.NavigateDown()
	case key.Matches(ev, d.keys.Up):
		d.NavigateUp()
	case key.Matches(ev, d.keys.Bottom):
		d.NavigateBottom()
	case key.Matches(ev, d.keys.Toggle):
		d.ToggleTask()
	case key.Matches(ev, d.keys.AddBelow):
		d.AddTaskBelow()
	case key.Matches(ev, d.keys.AddAbove):
		d.AddTaskAbove()
	case key.Matches(ev, d.keys.Delete):
		d.DeleteTask()
	case key.Matches(ev, d.keys.Change):
		d.ChangeTask()
	case key.Matches(ev, d.keys.Append):
		d.EnterInsertMode()
	case key.Matches(ev, d.keys.Yank):
		d.YankTask()
	case key.Matches(ev, d.keys.PasteBelow):
		d.PasteTaskBelow()
	case key.Matches(ev, d.keys.PasteAbove):
		d.PasteTaskAbove()
	case key.Matches(ev, d.keys.Save):
		d.Save(ctx)
	case key.Matches(ev, d.keys.Help):
		d.showHelp = true
	}
}

// handleInsertKey matches ev against the Insert-mode key table.
func (d *Dispatcher) handleInsertKey(ctx context.Context, ev keyseq.KeyEvent) {
	switch {
	case key.Matches(ev, d.keys.ExitInsert):
		d.ExitInsertMode(ctx)
	case key.Matches(ev, d.keys.Backspace):
		d.PopFromTask()
	case ev.Text != "":
		d.AppendToTask(ev.Text)
	}
}

// Quit saves and stops the program. When the save fails or is refused the
// first request is kept open so unsaved work is not dropped silently; a
// second request quits.
func (d *Dispatcher) Quit(ctx context.Context) {
	if d.quitArmed {
		d.logger.Warn("quitting without saving")
		d.running = false
		return
	}
	if !d.autoSave(ctx) {
		d.quitArmed = true
		d.display.Set(d.display.Get() + " (quit again to discard)")
		return
	}
	d.running = false
}

// NavigateDown selects the next task, wrapping to the first.
func (d *Dispatcher) NavigateDown() {
	if d.store.IsEmpty() {
		return
	}
	if !d.hasSelection {
		d.selectIndex(0)
		return
	}
	d.selectIndex(wrapIndex(d.selected, 1, d.store.Len()))
}

// NavigateUp selects the previous task, wrapping to the last.
func (d *Dispatcher) NavigateUp() {
	if d.store.IsEmpty() {
		return
	}
	if !d.hasSelection {
		d.selectLast()
		return
	}
	d.selectIndex(wrapIndex(d.selected, -1, d.store.Len()))
}

// NavigateTop selects the first task.
func (d *Dispatcher) NavigateTop() {
	if d.store.IsEmpty() {
		return
	}
	d.selectIndex(0)
}

// NavigateBottom selects the last task.
func (d *Dispatcher) NavigateBottom() {
	d.selectLast()
}

// ToggleTask moves the selected task between the incomplete and complete lists.
func (d *Dispatcher) ToggleTask() {
	if !d.hasSelection {
		return
	}
	wasComplete := d.store.IsComplete(d.selected)
	if _, err := d.store.Toggle(d.selected); err != nil {
		d.reportDefect("toggle", err)
		return
	}
	if wasComplete {
		d.display.Set("task reopened")
	} else {
		d.display.Set("task completed")
	}
}

// AddTaskBelow inserts an empty task after the selection and enters Insert mode.
func (d *Dispatcher) AddTaskBelow() {
	if d.insertTask(d.belowIndex(), "") {
		d.setMode(domain.ModeInsert)
		d.display.Set("task added")
	}
}

// AddTaskAbove inserts an empty task before the selection and enters Insert mode.
func (d *Dispatcher) AddTaskAbove() {
	if d.insertTask(d.aboveIndex(), "") {
		d.setMode(domain.ModeInsert)
		d.display.Set("task added")
	}
}

// DeleteTask removes the selected task, falling back to the last task.
func (d *Dispatcher) DeleteTask() {
	if d.store.IsEmpty() || !d.hasSelection {
		return
	}
	if err := d.store.Delete(d.selected); err != nil {
		d.reportDefect("delete", err)
		return
	}
	if d.selected >= d.store.Len() {
		d.selectLast()
	}
	d.display.Set("task deleted")
}

// ChangeTask clears the selected task text and enters Insert mode.
func (d *Dispatcher) ChangeTask() {
	if !d.hasSelection {
		return
	}
	if err := d.store.Edit(d.selected, ""); err != nil {
		d.reportDefect("change", err)
		return
	}
	d.setMode(domain.ModeInsert)
	d.display.Set("changing task")
}

// EnterInsertMode starts editing the selected task.
func (d *Dispatcher) EnterInsertMode() {
	if !d.hasSelection {
		return
	}
	d.setMode(domain.ModeInsert)
}

// ExitInsertMode returns to Normal mode and saves.
func (d *Dispatcher) ExitInsertMode(ctx context.Context) {
	d.setMode(domain.ModeNormal)
	d.autoSave(ctx)
}

// YankTask copies the selected task text into the yank buffer.
func (d *Dispatcher) YankTask() {
	if !d.hasSelection {
		return
	}
	text, err := d.store.Text(d.selected)
	if err != nil {
		d.reportDefect("yank", err)
		return
	}
	d.yank = text
	d.hasYank = true
	if d.clipboard != nil {
		if err := d.clipboard.WriteAll(text); err != nil {
			d.logger.Warn("clipboard write failed", "err", err)
		}
	}
	d.display.Set("task yanked")
}

// PasteTaskBelow inserts the yank buffer after the selection.
func (d *Dispatcher) PasteTaskBelow() {
	d.paste(d.belowIndex())
}

// PasteTaskAbove inserts the yank buffer before the selection.
func (d *Dispatcher) PasteTaskAbove() {
	d.paste(d.aboveIndex())
}

// AppendToTask appends text to the selected task.
func (d *Dispatcher) AppendToTask(text string) {
	if !d.hasSelection {
		return
	}
	current, err := d.store.Text(d.selected)
	if err != nil {
		d.reportDefect("append", err)
		return
	}
	if err := d.store.Edit(d.selected, current+text); err != nil {
		d.reportDefect("append", err)
	}
}

// PopFromTask removes the last character of the selected task.
func (d *Dispatcher) PopFromTask() {
	if !d.hasSelection {
		return
	}
	current, err := d.store.Text(d.selected)
	if err != nil {
		d.reportDefect("backspace", err)
		return
	}
	if current == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(current)
	if err := d.store.Edit(d.selected, current[:len(current)-size]); err != nil {
		d.reportDefect("backspace", err)
	}
}

// Save persists the store and reports the outcome. It returns false on failure.
func (d *Dispatcher) Save(ctx context.Context) bool {
	if err := d.store.Save(ctx); err != nil {
		d.logger.Error("save tasks failed", "err", err)
		d.display.Set("save failed: " + causeMessage(err))
		return false
	}
	d.loadFailed = false
	d.logger.Debug("tasks saved", "total", d.store.Len())
	d.display.Set("saved")
	return true
}

// autoSave is the save run on quit and on leaving Insert mode. After a failed
// load it refuses, so an unreadable store is only replaced by an explicit save.
func (d *Dispatcher) autoSave(ctx context.Context) bool {
	if d.loadFailed {
		d.logger.Warn("automatic save skipped after failed load")
		d.display.Set("store unreadable; not saving (" + d.keys.Save.Help().Key + " to overwrite)")
		return false
	}
	return d.Save(ctx)
}

// setMode switches key tables. A pending chord key never carries across modes.
func (d *Dispatcher) setMode(mode domain.Mode) {
	if d.mode != mode {
		d.seq.Reset()
	}
	d.mode = mode
}

// Mode returns the active mode.
func (d *Dispatcher) Mode() domain.Mode {
	return d.mode
}

// Selected returns the selected logical index, if any.
func (d *Dispatcher) Selected() (int, bool) {
	return d.selected, d.hasSelection
}

// Yanked returns the yank buffer contents, if any.
func (d *Dispatcher) Yanked() (string, bool) {
	return d.yank, d.hasYank
}

// Action returns the current transient action message.
func (d *Dispatcher) Action() string {
	return d.display.Get()
}

// Incomplete returns a copy of the incomplete tasks.
func (d *Dispatcher) Incomplete() []string {
	return d.store.Incomplete()
}

// Complete returns a copy of the complete tasks.
func (d *Dispatcher) Complete() []string {
	return d.store.Complete()
}

// HelpVisible reports whether the help overlay is open.
func (d *Dispatcher) HelpVisible() bool {
	return d.showHelp
}

// PendingChord returns the first key of an unfinished chord.
func (d *Dispatcher) PendingChord() (string, bool) {
	return d.seq.Pending()
}

// Running reports whether the program should keep reading input.
func (d *Dispatcher) Running() bool {
	return d.running
}

// Keys returns the active key map.
func (d *Dispatcher) Keys() KeyMap {
	return d.keys
}

// paste inserts the yank buffer at index.
func (d *Dispatcher) paste(index int) {
	if !d.hasYank {
		d.display.Set("nothing to paste")
		return
	}
	if d.insertTask(index, d.yank) {
		d.display.Set("task pasted")
	}
}

// insertTask adds text at index and selects it.
func (d *Dispatcher) insertTask(index int, text string) bool {
	if err := d.store.Add(index, text); err != nil {
		d.reportDefect("add", err)
		return false
	}
	d.selectIndex(index)
	return true
}

// aboveIndex returns the insert position for a new task above the selection,
// clamped to the incomplete list.
func (d *Dispatcher) aboveIndex() int {
	if d.store.IsEmpty() || !d.hasSelection {
		return 0
	}
	return min(d.selected, d.store.IncompleteLen())
}

// belowIndex returns the insert position for a new task below the selection,
// clamped to the incomplete list.
func (d *Dispatcher) belowIndex() int {
	if d.store.IsEmpty() {
		return 0
	}
	if !d.hasSelection {
		return d.store.IncompleteLen()
	}
	return min(d.selected+1, d.store.IncompleteLen())
}

// selectIndex selects a valid index.
func (d *Dispatcher) selectIndex(index int) {
	d.selected = index
	d.hasSelection = true
}

// selectLast selects the last task, or clears the selection on an empty store.
func (d *Dispatcher) selectLast() {
	if d.store.IsEmpty() {
		d.selected = 0
		d.hasSelection = false
		return
	}
	d.selectIndex(d.store.Len() - 1)
}

// syncSelection keeps the selection inside the current index range.
func (d *Dispatcher) syncSelection() {
	switch {
	case d.store.IsEmpty():
		d.selected = 0
		d.hasSelection = false
	case !d.hasSelection:
		d.selectIndex(0)
	case d.selected >= d.store.Len():
		d.selectLast()
	}
}

// reportDefect logs an index contract failure that callers should have prevented.
func (d *Dispatcher) reportDefect(op string, err error) {
	d.logger.Error("task operation rejected", "op", op, "err", err)
	d.display.Set(op + " failed: " + err.Error())
}

// causeMessage returns the innermost error text of a persistence failure.
func causeMessage(err error) string {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := multi.Unwrap(); len(errs) > 0 {
			return errs[len(errs)-1].Error()
		}
	}
	return err.Error()
}

// wrapIndex wraps an index by delta for a bounded collection.
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := current + delta
	for next < 0 {
		next += total
	}
	for next >= total {
		next -= total
	}
	return next
}
