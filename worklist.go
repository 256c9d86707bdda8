package slicer

// worklist is the FIFO queue of entities admitted to the slice but not yet
// expanded. Membership is delegated to the seen predicate so the slice's own
// maps are the only dedup set.
type worklist struct {
	items []*Entity
	head  int
	seen  func(id int64) bool
	admit func(e *Entity)
}

func newWorklist(seen func(int64) bool, admit func(*Entity)) *worklist {
	return &worklist{seen: seen, admit: admit}
}

// push admits e and queues it for expansion unless it was already seen.
func (w *worklist) push(e *Entity) bool {
	if w.seen(e.ID) {
		return false
	}
	w.admit(e)
	w.items = append(w.items, e)
	return true
}

func (w *worklist) pop() (*Entity, bool) {
	if w.head >= len(w.items) {
		return nil, false
	}
	e := w.items[w.head]
	w.items[w.head] = nil
	w.head++
	if w.head == len(w.items) {
		w.items = w.items[:0]
		w.head = 0
	}
	return e, true
}

func (w *worklist) len() int {
	return len(w.items) - w.head
}
