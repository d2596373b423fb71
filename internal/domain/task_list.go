package domain

import (
	"fmt"
	"slices"
)

// TaskList holds incomplete and complete tasks behind one logical index space.
// Indices [0, len(incomplete)) address incomplete tasks and the following
// indices address complete tasks, both in order.
type TaskList struct {
	incomplete []string
	complete   []string
}

// NewTaskList constructs an empty task list.
func NewTaskList() *TaskList {
	return &TaskList{
		incomplete: []string{},
		complete:   []string{},
	}
}

// NewTaskListFromSnapshot hydrates a task list from a persisted snapshot.
func NewTaskListFromSnapshot(snap Snapshot) *TaskList {
	snap = snap.normalized()
	return &TaskList{
		incomplete: snap.IncompleteTasks,
		complete:   snap.CompleteTasks,
	}
}

// Snapshot returns a deep copy of both lists.
func (l *TaskList) Snapshot() Snapshot {
	return Snapshot{
		CompleteTasks:   cloneTasks(l.complete),
		IncompleteTasks: cloneTasks(l.incomplete),
	}
}

// Replace swaps both lists for the snapshot contents in one step.
func (l *TaskList) Replace(snap Snapshot) {
	snap = snap.normalized()
	l.incomplete = snap.IncompleteTasks
	l.complete = snap.CompleteTasks
}

// Len returns the total number of tasks across both lists.
func (l *TaskList) Len() int {
	return len(l.incomplete) + len(l.complete)
}

// IsEmpty reports whether both lists are empty.
func (l *TaskList) IsEmpty() bool {
	return l.Len() == 0
}

// IncompleteLen returns the number of incomplete tasks.
func (l *TaskList) IncompleteLen() int {
	return len(l.incomplete)
}

// Incomplete returns a copy of the incomplete tasks in order.
func (l *TaskList) Incomplete() []string {
	return cloneTasks(l.incomplete)
}

// Complete returns a copy of the complete tasks in order.
func (l *TaskList) Complete() []string {
	return cloneTasks(l.complete)
}

// IsComplete reports whether the logical index addresses a complete task.
func (l *TaskList) IsComplete(index int) bool {
	return index >= len(l.incomplete) && index < l.Len()
}

// Text returns the task text at a logical index.
func (l *TaskList) Text(index int) (string, error) {
	if err := l.checkIndex(index); err != nil {
		return "", err
	}
	if index < len(l.incomplete) {
		return l.incomplete[index], nil
	}
	return l.complete[index-len(l.incomplete)], nil
}

// Add inserts text as a new incomplete task at index.
// Index must be within [0, IncompleteLen()]; callers clamp before calling.
func (l *TaskList) Add(index int, text string) error {
	if index < 0 || index > len(l.incomplete) {
		return fmt.Errorf("%w: add index %d outside [0, %d]", ErrInvariantViolation, index, len(l.incomplete))
	}
	l.incomplete = slices.Insert(l.incomplete, index, text)
	return nil
}

// Toggle moves the task at index to the other list and returns its new index.
// Completed tasks go to the front of the complete list; reopened tasks are
// appended to the incomplete list.
func (l *TaskList) Toggle(index int) (int, error) {
	if err := l.checkIndex(index); err != nil {
		return 0, err
	}
	if index < len(l.incomplete) {
		task := l.incomplete[index]
		l.incomplete = slices.Delete(l.incomplete, index, index+1)
		l.complete = slices.Insert(l.complete, 0, task)
		return len(l.incomplete), nil
	}
	offset := index - len(l.incomplete)
	task := l.complete[offset]
	l.complete = slices.Delete(l.complete, offset, offset+1)
	l.incomplete = append(l.incomplete, task)
	return len(l.incomplete) - 1, nil
}

// Delete removes the task at index from whichever list holds it.
func (l *TaskList) Delete(index int) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	if index < len(l.incomplete) {
		l.incomplete = slices.Delete(l.incomplete, index, index+1)
		return nil
	}
	offset := index - len(l.incomplete)
	l.complete = slices.Delete(l.complete, offset, offset+1)
	return nil
}

// Edit replaces the text at index without moving the task.
func (l *TaskList) Edit(index int, text string) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	if index < len(l.incomplete) {
		l.incomplete[index] = text
		return nil
	}
	l.complete[index-len(l.incomplete)] = text
	return nil
}

// checkIndex validates a logical index against the current length.
func (l *TaskList) checkIndex(index int) error {
	if index < 0 || index >= l.Len() {
		return fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfBounds, index, l.Len())
	}
	return nil
}
