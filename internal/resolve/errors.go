package resolve

import (
	"errors"
	"fmt"

	"github.com/jward/lattice/internal/model"
)

// ErrClassNotFound is returned (wrapped) by frontends that do not know a
// requested class.
var ErrClassNotFound = errors.New("class not found")

// ResolutionError reports that the frontend could not locate or parse a
// referenced class. Any hierarchy query involving that class is
// unanswerable until the caller fixes the input (classpath, index) and
// retries.
type ResolutionError struct {
	Class model.ClassType
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Class, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
