// Package resource provides the ownership-tagged handle table behind every
// opaque handle that crosses the host boundary.
//
// Views, roots and view managers never cross the boundary as Go pointers.
// They are inserted into a table and the host only ever sees a Handle.
//
// # Ownership
//
// Every entry is owned by exactly one table. Three operations exist:
//
//	Insert  - take ownership of a value, return its handle
//	Borrow  - temporary access; the entry cannot be removed while borrowed
//	Remove  - release the entry; Dropper values are dropped exactly once
//
// # Handles
//
//	table := resource.NewTable()
//
//	h := table.Insert(resource.TypeView, view)
//	value, ok := table.GetTyped(h, resource.TypeView)
//	value, ok = table.Remove(h)
//
// Handle 0 is reserved and always invalid. A handle embeds the generation of
// its slot, so a handle kept after Remove never resolves to a later entry
// that reuses the same slot.
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	counter := resource.NewCounter()
//	table.Subscribe(counter)
//	...
//	if counter.Live(resource.TypeView) != 0 {
//	    // leaked views
//	}
//
// # Memory Management
//
// Entries are not garbage collected. The owner must Remove them, or Close the
// table to drop everything it still holds.
package resource
