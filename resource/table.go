package resource

import (
	"sync"
)

// UnifiedTable implements the Table interface using a Backend for storage.
type UnifiedTable struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new unified table with a LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle.
func (t *UnifiedTable) Insert(typeID TypeID, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *UnifiedTable) GetTyped(handle Handle, typeID TypeID) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove drops a resource and returns (value, true) if found.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// RemoveTyped removes a resource only if it matches the expected type.
func (t *UnifiedTable) RemoveTyped(handle Handle, typeID TypeID) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.Remove(handle)
}

// Borrow pins a resource so that Remove fails until ReturnBorrow.
func (t *UnifiedTable) Borrow(handle Handle) bool {
	if !t.backend.Borrow(handle) {
		return false
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{Type: EventBorrowed, Handle: handle, TypeID: typeID})
	return true
}

// ReturnBorrow unpins a resource.
func (t *UnifiedTable) ReturnBorrow(handle Handle) bool {
	if !t.backend.ReturnBorrow(handle) {
		return false
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{Type: EventBorrowReturned, Handle: handle, TypeID: typeID})
	return true
}

// Borrowed reports whether handle has outstanding borrows.
func (t *UnifiedTable) Borrowed(handle Handle) bool {
	return t.backend.Borrowed(handle)
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Each iterates over all active resources.
func (t *UnifiedTable) Each(fn func(Handle, TypeID, any) bool) {
	t.backend.Each(fn)
}

// Clear drops all resources, most recently created first.
func (t *UnifiedTable) Clear() {
	// Collect handles first to avoid holding lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID TypeID, value any) bool {
		handles = append(handles, h)
		return true
	})
	for i := len(handles) - 1; i >= 0; i-- {
		t.Remove(handles[i])
	}
}

// Close releases all resources and stops accepting operations.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

type typedTable[T any] struct {
	table  *UnifiedTable
	typeID TypeID
}

// NewTyped returns a TypedTable view of table restricted to typeID.
func NewTyped[T any](table *UnifiedTable, typeID TypeID) TypedTable[T] {
	return &typedTable[T]{table: table, typeID: typeID}
}

func (t *typedTable[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

func (t *typedTable[T]) Get(handle Handle) (T, bool) {
	var zero T
	value, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	v, ok := value.(T)
	return v, ok
}

func (t *typedTable[T]) Remove(handle Handle) (T, bool) {
	var zero T
	value, ok := t.table.RemoveTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	v, ok := value.(T)
	return v, ok
}

func (t *typedTable[T]) Len() int {
	n := 0
	t.table.Each(func(_ Handle, typeID TypeID, _ any) bool {
		if typeID == t.typeID {
			n++
		}
		return true
	})
	return n
}

func (t *typedTable[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, typeID TypeID, value any) bool {
		if typeID != t.typeID {
			return true
		}
		v, ok := value.(T)
		if !ok {
			return true
		}
		return fn(h, v)
	})
}

// Counter is an Observer that tallies created and dropped resources per type.
type Counter struct {
	created map[TypeID]int
	dropped map[TypeID]int
	mu      sync.Mutex
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{
		created: make(map[TypeID]int),
		dropped: make(map[TypeID]int),
	}
}

// OnResourceEvent implements Observer.
func (c *Counter) OnResourceEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case EventCreated:
		c.created[e.TypeID]++
	case EventDropped:
		c.dropped[e.TypeID]++
	}
}

// Created returns how many resources of typeID were inserted.
func (c *Counter) Created(typeID TypeID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[typeID]
}

// Dropped returns how many resources of typeID were removed.
func (c *Counter) Dropped(typeID TypeID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped[typeID]
}

// Live returns created minus dropped for typeID.
func (c *Counter) Live(typeID TypeID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[typeID] - c.dropped[typeID]
}
