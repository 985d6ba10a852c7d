// package types contains types that are shared by the resolver, the resume data codec and the
// fastresume package.
package types

import (
	"fmt"
)

// Download priority of a file or piece. Values match the libtorrent 0-7 scale that resume data
// persists.
type Priority byte

const (
	PriorityDontDownload Priority = 0 // Not wanted. Must be the zero value.
	PriorityNormal       Priority = 1 // Wanted. The default for files without an explicit priority.
	PriorityTop          Priority = 7
)

func (pp *Priority) Raise(maybe Priority) bool {
	if maybe > *pp {
		*pp = maybe
		return true
	}
	return false
}

func (pp Priority) Wanted() bool {
	return pp != PriorityDontDownload
}

func (pp Priority) String() string {
	switch pp {
	case PriorityDontDownload:
		return "dont-download"
	case PriorityNormal:
		return "normal"
	case PriorityTop:
		return "top"
	}
	return fmt.Sprintf("%d", byte(pp))
}

// Returns a slice of n entries of priority p.
func Priorities(n int, p Priority) []Priority {
	ret := make([]Priority, n)
	if p != PriorityDontDownload {
		for i := range ret {
			ret[i] = p
		}
	}
	return ret
}
