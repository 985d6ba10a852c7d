package alert

import (
	"github.com/anacrolix/torrent/metainfo"
)

// Selects the alerts a wait will consume.
type Filter func(Alert) bool

func Any(Alert) bool { return true }

func OfType(types ...Type) Filter {
	return func(a Alert) bool {
		for _, t := range types {
			if a.Type() == t {
				return true
			}
		}
		return false
	}
}

func ForTorrent(ih metainfo.Hash) Filter {
	return func(a Alert) bool {
		return a.InfoHash() == ih
	}
}

func And(fs ...Filter) Filter {
	return func(a Alert) bool {
		for _, f := range fs {
			if !f(a) {
				return false
			}
		}
		return true
	}
}
