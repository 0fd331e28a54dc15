package core

// callbackList is an ordered set of subscriptions with stable identifiers so
// callers can unsubscribe without knowing their position.
type callbackList[T any] struct {
	next    int
	entries []callbackEntry[T]
}

type callbackEntry[T any] struct {
	id int
	fn T
}

func (l *callbackList[T]) add(fn T) func() {
	id := l.next
	l.next++
	l.entries = append(l.entries, callbackEntry[T]{id: id, fn: fn})
	return func() {
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

func (l *callbackList[T]) snapshot() []T {
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]T, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.fn
	}
	return out
}
