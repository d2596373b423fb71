package domain

// Snapshot is the serializable form of a task list.
type Snapshot struct {
	CompleteTasks   []string `json:"complete_tasks" yaml:"complete_tasks"`
	IncompleteTasks []string `json:"incomplete_tasks" yaml:"incomplete_tasks"`
}

// Len returns the total number of tasks in the snapshot.
func (s Snapshot) Len() int {
	return len(s.CompleteTasks) + len(s.IncompleteTasks)
}

// normalized returns a copy with nil lists replaced by empty ones.
func (s Snapshot) normalized() Snapshot {
	return Snapshot{
		CompleteTasks:   cloneTasks(s.CompleteTasks),
		IncompleteTasks: cloneTasks(s.IncompleteTasks),
	}
}

// cloneTasks copies a task slice, never returning nil.
func cloneTasks(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
