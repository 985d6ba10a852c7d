// Package alert is an ordered queue of notifications about torrents, with waits that select the
// alerts they consume.
package alert

import (
	"fmt"
	"time"

	"github.com/anacrolix/torrent/metainfo"
)

type Type int

const (
	TypeSaveResumeData Type = iota + 1
	TypeSaveResumeDataFailed
	TypeResumeDataRejected
	TypeResumeDataWarning
	TypeTorrentAdded
	TypeTorrentRemoved
)

func (me Type) String() string {
	switch me {
	case TypeSaveResumeData:
		return "save resume data"
	case TypeSaveResumeDataFailed:
		return "save resume data failed"
	case TypeResumeDataRejected:
		return "resume data rejected"
	case TypeResumeDataWarning:
		return "resume data warning"
	case TypeTorrentAdded:
		return "torrent added"
	case TypeTorrentRemoved:
		return "torrent removed"
	}
	return fmt.Sprintf("Type(%d)", int(me))
}

type Alert interface {
	Type() Type
	InfoHash() metainfo.Hash
	Message() string
	Timestamp() time.Time
}

// Embed to implement the identifying parts of Alert.
type Base struct {
	Hash metainfo.Hash
	Time time.Time
}

func NewBase(ih metainfo.Hash) Base {
	return Base{Hash: ih, Time: time.Now()}
}

func (me Base) InfoHash() metainfo.Hash {
	return me.Hash
}

func (me Base) Timestamp() time.Time {
	return me.Time
}
