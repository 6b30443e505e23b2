package diag

// Buffer keeps entries in first-seen order and drops exact duplicates.
type Buffer struct {
	items []string
	seen  map[string]struct{}
}

// Add appends s unless an identical entry is already buffered.
func (b *Buffer) Add(s string) bool {
	if b.seen == nil {
		b.seen = make(map[string]struct{})
	}
	if _, ok := b.seen[s]; ok {
		return false
	}
	b.seen[s] = struct{}{}
	b.items = append(b.items, s)
	return true
}

func (b *Buffer) Len() int { return len(b.items) }

// Items returns the buffered entries in insertion order.
func (b *Buffer) Items() []string { return b.items }
