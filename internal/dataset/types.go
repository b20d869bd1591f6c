package dataset

// #region entry

// Entry is one pool element: an immutable feature vector plus a label slot.
// Identity is the pool index, never the feature values.
type Entry struct {
	Features []float64
	Label    int
	Labeled  bool
}

// Unlabeled builds an entry with an empty label slot.
func Unlabeled(features []float64) Entry {
	return Entry{Features: features}
}

// Labeled builds an entry whose label is already known.
func Labeled(features []float64, label int) Entry {
	return Entry{Features: features, Label: label, Labeled: true}
}

// #endregion

// #region views

// LabeledExample is one labeled entry as returned by LabeledEntries.
type LabeledExample struct {
	Index    int
	Features []float64
	Label    int
}

// Candidate is one unlabeled entry as returned by UnlabeledEntries.
// Index is a valid query target until the entry is labeled.
type Candidate struct {
	Index    int
	Features []float64
}

// #endregion

// #region observer

// Observer is notified after every committed label.
// Implementations must use a comparable (pointer) receiver so they can be
// deregistered; a non-nil error halts further fan-out and propagates to the
// Update caller with the label commit intact.
type Observer interface {
	OnUpdate(d *Dataset, index int, label int) error
}

// #endregion
