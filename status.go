package fastresume

import (
	"slices"
	"time"

	g "github.com/anacrolix/generics"
	"github.com/anacrolix/torrent/metainfo"

	"github.com/anacrolix/fastresume/types"
)

// A consistent snapshot of a torrent. Event times are ages at the moment of the snapshot.
type TorrentStatus struct {
	InfoHash metainfo.Hash
	SavePath string

	Trackers  [][]string
	URLSeeds  []string
	HTTPSeeds []string

	FilePriorities  []types.Priority
	PiecePriorities []types.Priority

	ConnectionsLimit int
	UploadsLimit     int
	UploadLimit      int
	DownloadLimit    int

	AutoManaged        bool
	Paused             bool
	SequentialDownload bool
	SeedMode           bool
	SuperSeeding       bool
	ShareMode          bool
	UploadMode         bool
	IPFilterApplies    bool

	TotalUploaded   int64
	TotalDownloaded int64
	ActiveTime      time.Duration
	SeedingTime     time.Duration
	FinishedTime    time.Duration
	NumSeeds        int
	NumDownloaders  int

	// None if the event never happened.
	SinceAdded      g.Option[time.Duration]
	SinceCompleted  g.Option[time.Duration]
	SinceLastScrape g.Option[time.Duration]
	SinceDownload   g.Option[time.Duration]
	SinceUpload     g.Option[time.Duration]

	NumPieces      int
	PiecesComplete int
	// Every wanted piece is complete.
	Finished bool
	// Every piece is complete.
	Seeding        bool
	NeedSaveResume bool
}

func (t *Torrent) Status() TorrentStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	now := time.Now()
	c := &t.config
	return TorrentStatus{
		InfoHash: t.infoHash,
		SavePath: c.SavePath,

		Trackers:  cloneTiers(c.Trackers),
		URLSeeds:  slices.Clone(c.URLSeeds),
		HTTPSeeds: slices.Clone(c.HTTPSeeds),

		FilePriorities:  slices.Clone(c.FilePriorities),
		PiecePriorities: slices.Clone(c.PiecePriorities),

		ConnectionsLimit: c.MaxConnections,
		UploadsLimit:     c.MaxUploads,
		UploadLimit:      c.UploadLimit,
		DownloadLimit:    c.DownloadLimit,

		AutoManaged:        c.AutoManaged,
		Paused:             c.Paused,
		SequentialDownload: c.SequentialDownload,
		SeedMode:           c.SeedMode,
		SuperSeeding:       c.SuperSeeding,
		ShareMode:          c.ShareMode,
		UploadMode:         c.UploadMode,
		IPFilterApplies:    c.IPFilterApplies,

		TotalUploaded:   t.totalUploaded,
		TotalDownloaded: t.totalDownloaded,
		ActiveTime:      t.active.elapsed(now),
		SeedingTime:     t.seeding.elapsed(now),
		FinishedTime:    t.finished.elapsed(now),
		NumSeeds:        t.numSeeds,
		NumDownloaders:  t.numDownloaders,

		SinceAdded:      ageAt(now, t.added),
		SinceCompleted:  ageAt(now, t.completed),
		SinceLastScrape: ageAt(now, t.lastScrape),
		SinceDownload:   ageAt(now, t.lastDownload),
		SinceUpload:     ageAt(now, t.lastUpload),

		NumPieces:      t.md.NumPieces(),
		PiecesComplete: int(t.have.GetCardinality()),
		Finished:       t.finishedLocked(),
		Seeding:        t.seedingLocked(),
		NeedSaveResume: t.needSave,
	}
}
