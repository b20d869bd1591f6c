package dataset

// #region imports
import (
	"errors"
	"fmt"
)

// #endregion

// #region errors

// ErrEmptyPool is returned by query strategies when no unlabeled entries remain.
var ErrEmptyPool = errors.New("no unlabeled entries remain in the pool")

// InvalidIndexError reports an Update call against an index that is out of
// range or already labeled.
type InvalidIndexError struct {
	Index  int
	Reason string
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("invalid index %d: %s", e.Index, e.Reason)
}

// #endregion
