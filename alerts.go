package fastresume

import (
	"fmt"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/anacrolix/fastresume/alert"
	"github.com/anacrolix/fastresume/resumedata"
)

// A save completed. The blob has also been written to the session's store, if it has one.
type SaveResumeDataAlert struct {
	alert.Base
	Data       []byte
	ResumeData resumedata.ResumeData
}

func (*SaveResumeDataAlert) Type() alert.Type { return alert.TypeSaveResumeData }

func (me *SaveResumeDataAlert) Message() string {
	return fmt.Sprintf("%v: saved %d bytes of resume data", me.Hash, len(me.Data))
}

// A save didn't produce resume data, or it couldn't be stored.
type SaveResumeDataFailedAlert struct {
	alert.Base
	Err error
}

func (*SaveResumeDataFailedAlert) Type() alert.Type { return alert.TypeSaveResumeDataFailed }

func (me *SaveResumeDataFailedAlert) Message() string {
	return fmt.Sprintf("%v: saving resume data: %v", me.Hash, me.Err)
}

// Resume data given to AddTorrent was not applied.
type ResumeDataRejectedAlert struct {
	alert.Base
	Err error
}

func (*ResumeDataRejectedAlert) Type() alert.Type { return alert.TypeResumeDataRejected }

func (me *ResumeDataRejectedAlert) Message() string {
	return fmt.Sprintf("%v: resume data rejected: %v", me.Hash, me.Err)
}

// Something in the add-time inputs was worked around.
type ResumeDataWarningAlert struct {
	alert.Base
	Err error
}

func (*ResumeDataWarningAlert) Type() alert.Type { return alert.TypeResumeDataWarning }

func (me *ResumeDataWarningAlert) Message() string {
	return fmt.Sprintf("%v: %v", me.Hash, me.Err)
}

type TorrentAddedAlert struct {
	alert.Base
	// Resume data was applied.
	Resumed bool
}

func (*TorrentAddedAlert) Type() alert.Type { return alert.TypeTorrentAdded }

func (me *TorrentAddedAlert) Message() string {
	if me.Resumed {
		return fmt.Sprintf("%v: added from resume data", me.Hash)
	}
	return fmt.Sprintf("%v: added", me.Hash)
}

type TorrentRemovedAlert struct {
	alert.Base
}

func (*TorrentRemovedAlert) Type() alert.Type { return alert.TypeTorrentRemoved }

func (me *TorrentRemovedAlert) Message() string {
	return fmt.Sprintf("%v: removed", me.Hash)
}

func saveFailed(ih metainfo.Hash, err error) *SaveResumeDataFailedAlert {
	return &SaveResumeDataFailedAlert{Base: alert.NewBase(ih), Err: err}
}
