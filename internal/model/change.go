package model

// ChangeBatch is one debounced set of filesystem change notifications,
// delivered atomically by the notification adapter. Paths are absolute.
type ChangeBatch struct {
	Added    []Path
	Deleted  []Path
	Modified []Path
}

// Triggering returns the union of added and modified paths. Pure
// deletions never retrigger a run, so deleted paths are excluded.
func (b ChangeBatch) Triggering() []Path {
	if len(b.Added) == 0 && len(b.Modified) == 0 {
		return nil
	}

	paths := make([]Path, 0, len(b.Added)+len(b.Modified))
	paths = append(paths, b.Added...)
	paths = append(paths, b.Modified...)

	return paths
}

// Empty reports whether the batch carries no events at all.
func (b ChangeBatch) Empty() bool {
	return len(b.Added) == 0 && len(b.Deleted) == 0 && len(b.Modified) == 0
}

// Classification partitions a batch's triggering paths by watched root.
// A path lands in at most one bucket; code has priority when the roots
// are nested and a path falls under both.
type Classification struct {
	Code  []Path
	Tests []Path
}
