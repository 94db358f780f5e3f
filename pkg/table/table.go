// Package table implements the open-addressed, linear-probing hash table
// used for globals, class method tables, instance field tables, and the
// VM's string intern table.
package table

import (
	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
)

const maxLoad = 0.75

// entry is a single slot. A nil Key with a Bool(true) Value is a
// tombstone: it keeps probe chains intact after a deletion without
// shrinking Count, so lookups past it keep working.
type entry struct {
	key *object.String
	val value.Value
}

// Table is an open-addressed hash map from interned *object.String to
// value.Value, capacity doubling from 8 once the load factor (including
// tombstones) passes 0.75.
type Table struct {
	count    int // live entries + tombstones, for load-factor accounting
	entries  []entry
}

// New returns an empty Table.
func New() *Table {
	return &Table{}
}

// Get looks up key, reporting whether it was present.
func (t *Table) Get(key *object.String) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.NilValue(), false
	}
	e := t.find(key)
	if e.key == nil {
		return value.NilValue(), false
	}
	return e.val, true
}

// Set inserts or overwrites key -> v, returning true iff key was not
// already present (i.e. a new entry was created, possibly reusing a
// tombstone slot).
func (t *Table) Set(key *object.String, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}

	e := t.find(key)
	isNew := e.key == nil
	if isNew && e.val.IsNil() {
		// Brand-new slot (not a reused tombstone): only now does count grow.
		t.count++
	}
	e.key = key
	e.val = v
	return isNew
}

// Delete replaces key's entry with a tombstone so later probes along the
// same chain still find what comes after it. Returns false if key was
// absent.
func (t *Table) Delete(key *object.String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.BoolValue(true) // tombstone sentinel
	return true
}

// FindString looks up an interned string by raw content, used only by the
// GC's intern table when deciding whether a freshly scanned string literal
// or computed string already has a canonical heap object.
func (t *Table) FindString(chars string, hash uint32) *object.String {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if e.val.IsNil() {
				return nil // empty slot: not found
			}
			// tombstone: keep probing
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// AddAllTo copies every live entry into dst, used by OP_INHERIT to seed a
// subclass's method table from its superclass.
func (t *Table) AddAllTo(dst object.MethodTable) {
	for _, e := range t.entries {
		if e.key != nil {
			dst.Set(e.key, e.val)
		}
	}
}

// find returns the entry slot for key, following the table's internal
// linear probe — either the slot key already occupies, the first
// tombstone seen (so repeated insert/delete doesn't lengthen chains
// forever), or the first empty slot.
func (t *Table) find(key *object.String) *entry {
	mask := uint32(len(t.entries) - 1)
	idx := key.Hash & mask
	var tombstone *entry
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if e.val.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue // drop tombstones, they aren't copied on rehash
		}
		dst := t.find(e.key)
		dst.key = e.key
		dst.val = e.val
		t.count++
	}
}

// Count reports the number of live entries plus tombstones (for tests and
// diagnostics; not part of the lookup contract).
func (t *Table) Count() int { return t.count }

// RemoveUnless deletes every live entry whose key fails keep. Used only by
// the GC to sweep the string intern table: entries whose string has
// become otherwise unreachable are dropped so they don't resurrect a
// string the sweep is about to free.
func (t *Table) RemoveUnless(keep func(*object.String) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !keep(e.key) {
			e.key = nil
			e.val = value.BoolValue(true)
		}
	}
}

// Keys returns every live key, in unspecified order.
func (t *Table) Keys() []*object.String {
	keys := make([]*object.String, 0, t.count)
	for _, e := range t.entries {
		if e.key != nil {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Each calls fn for every live key/value pair. Used by the GC to mark
// both the keys and the values of globals/method/field tables.
func (t *Table) Each(fn func(*object.String, value.Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.val)
		}
	}
}
