package fastresume

import (
	"errors"
	"fmt"

	"github.com/anacrolix/fastresume/reconcile"
)

var (
	ErrNilMetadata        = errors.New("torrent metadata is nil")
	ErrInfoHashMismatch   = errors.New("resume data info-hash doesn't match torrent")
	ErrTorrentNotFound    = errors.New("torrent not found")
	ErrTorrentRemoved     = errors.New("torrent removed")
	ErrSessionClosed      = errors.New("session closed")
	ErrPriorityOutOfRange = errors.New("priority out of range")
)

// A save request raced with removal, which already delivered its failure.
var errSaveFailedByRemoval = fmt.Errorf("%w while queueing save", ErrTorrentRemoved)

// A priority vector didn't have one entry per file or piece. The vector was truncated or padded
// with normal priority.
type PriorityLengthError struct {
	Class  reconcile.FieldClass
	Source reconcile.Source
	Got    int
	Want   int
}

func (me *PriorityLengthError) Error() string {
	return fmt.Sprintf("%v from %v: got %d entries, want %d", me.Class, me.Source, me.Got, me.Want)
}
