package ledger

import (
	"errors"

	"github.com/parimut/pool-engine/internal/store"
)

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

func isConflict(err error) bool { return errors.Is(err, store.ErrConflict) }
