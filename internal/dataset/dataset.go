package dataset

// #region imports
import (
	"fmt"
)

// #endregion

// #region dataset-struct

// Dataset is the shared pool: an ordered, append-only collection of entries
// partitioned into labeled and unlabeled. All mutation goes through Update,
// which fans out synchronously to registered observers. A Dataset is owned
// by a single experiment loop and is not safe for concurrent mutation.
type Dataset struct {
	entries   []Entry
	labeled   int
	observers []Observer
}

// New creates a pool from an initial ordered collection of entries.
func New(entries []Entry) *Dataset {
	d := &Dataset{entries: make([]Entry, len(entries))}
	copy(d.entries, entries)
	for _, e := range d.entries {
		if e.Labeled {
			d.labeled++
		}
	}
	return d
}

// #endregion

// #region accessors

// Len returns the total number of entries.
func (d *Dataset) Len() int { return len(d.entries) }

// LenLabeled returns the number of labeled entries.
func (d *Dataset) LenLabeled() int { return d.labeled }

// LenUnlabeled returns the number of unlabeled entries.
func (d *Dataset) LenUnlabeled() int { return len(d.entries) - d.labeled }

// Entry returns a copy of the entry at index.
func (d *Dataset) Entry(index int) (Entry, error) {
	if index < 0 || index >= len(d.entries) {
		return Entry{}, &InvalidIndexError{Index: index, Reason: "out of range"}
	}
	return d.entries[index], nil
}

// LabeledEntries returns all labeled entries in pool order.
// Feature slices are shared views; callers must not mutate them.
func (d *Dataset) LabeledEntries() []LabeledExample {
	out := make([]LabeledExample, 0, d.labeled)
	for i, e := range d.entries {
		if e.Labeled {
			out = append(out, LabeledExample{Index: i, Features: e.Features, Label: e.Label})
		}
	}
	return out
}

// UnlabeledEntries returns all unlabeled entries in pool order. The order is
// stable between updates, and the returned indices stay valid query targets
// until labeled.
func (d *Dataset) UnlabeledEntries() []Candidate {
	out := make([]Candidate, 0, len(d.entries)-d.labeled)
	for i, e := range d.entries {
		if !e.Labeled {
			out = append(out, Candidate{Index: i, Features: e.Features})
		}
	}
	return out
}

// #endregion

// #region append

// Append adds one entry to the end of the pool and returns its index.
// Existing indices are never disturbed; the pool never shrinks.
func (d *Dataset) Append(e Entry) int {
	d.entries = append(d.entries, e)
	if e.Labeled {
		d.labeled++
	}
	return len(d.entries) - 1
}

// #endregion

// #region update

// Update commits a label for an unlabeled entry, then notifies every
// registered observer in registration order. The commit happens before
// fan-out: if an observer fails, the label stays visible, later observers
// are not invoked, and the error propagates to the caller.
func (d *Dataset) Update(index int, label int) error {
	if index < 0 || index >= len(d.entries) {
		return &InvalidIndexError{Index: index, Reason: "out of range"}
	}
	if d.entries[index].Labeled {
		return &InvalidIndexError{Index: index, Reason: "already labeled"}
	}

	d.entries[index].Label = label
	d.entries[index].Labeled = true
	d.labeled++

	for _, o := range d.observers {
		if err := o.OnUpdate(d, index, label); err != nil {
			return fmt.Errorf("observer after label commit at index %d: %w", index, err)
		}
	}
	return nil
}

// #endregion

// #region observers

// RegisterObserver appends an observer to the notification list.
// The Dataset holds the registration only; it does not own the observer.
func (d *Dataset) RegisterObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// DeregisterObserver removes a previously registered observer by identity.
// Unknown observers are ignored.
func (d *Dataset) DeregisterObserver(o Observer) {
	for i, reg := range d.observers {
		if reg == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

// #endregion
