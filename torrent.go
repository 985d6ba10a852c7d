package fastresume

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/anacrolix/chansync"
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/log"
	"github.com/anacrolix/sync"
	"github.com/anacrolix/torrent/metainfo"
	"golang.org/x/time/rate"

	"github.com/anacrolix/fastresume/resumedata"
	"github.com/anacrolix/fastresume/types"
)

// Maintains the configuration and progress of a torrent in a Session. All methods are safe for
// concurrent use.
type Torrent struct {
	s        *Session
	infoHash metainfo.Hash
	md       Metadata
	logger   log.Logger

	// Guards everything below, and is held while a save captures it.
	mu     sync.RWMutex
	config TorrentConfig
	have   *roaring.Bitmap

	totalUploaded   int64
	totalDownloaded int64
	numSeeds        int
	numDownloaders  int

	active   stopwatch
	seeding  stopwatch
	finished stopwatch

	added        g.Option[time.Time]
	completed    g.Option[time.Time]
	lastScrape   g.Option[time.Time]
	lastDownload g.Option[time.Time]
	lastUpload   g.Option[time.Time]

	uploadLimiter   *rate.Limiter
	downloadLimiter *rate.Limiter

	// State changed since the last capture.
	needSave bool
	// A capture is queued with the saver.
	savePending bool
	removed     bool
	// Number of captures taken, and the number whose outcome has been delivered.
	captures    int
	savesDone   int
	lastSaveErr error
	saveDone    chansync.BroadcastCond

	// Orders the saver's store write and alert against removal. Taken before mu.
	storeMu sync.Mutex
}

// Accumulates time while running.
type stopwatch struct {
	base  time.Duration
	since g.Option[time.Time]
}

func (me *stopwatch) run(now time.Time, on bool) {
	if on == me.since.Ok {
		return
	}
	if on {
		me.since.Set(now)
	} else {
		me.base += now.Sub(me.since.Value)
		me.since = g.None[time.Time]()
	}
}

func (me *stopwatch) elapsed(now time.Time) time.Duration {
	if me.since.Ok {
		return me.base + now.Sub(me.since.Value)
	}
	return me.base
}

// Returns an anchor such that now.Sub(anchor) is the age. Anchors keep the monotonic clock
// reading of now, so ages computed from them never go backwards.
func anchor(now time.Time, age g.Option[time.Duration]) g.Option[time.Time] {
	if !age.Ok {
		return g.None[time.Time]()
	}
	return g.Some(now.Add(-age.Value))
}

func ageAt(now time.Time, anchor g.Option[time.Time]) g.Option[time.Duration] {
	if !anchor.Ok {
		return g.None[time.Duration]()
	}
	return g.Some(now.Sub(anchor.Value))
}

func newTorrent(s *Session, md Metadata, asm Assembly, now time.Time) *Torrent {
	pr := asm.Progress
	t := &Torrent{
		s:               s,
		infoHash:        asm.InfoHash,
		md:              md,
		logger:          s.logger.WithContextText(asm.InfoHash.HexString()),
		config:          asm.Config,
		have:            pr.Have,
		totalUploaded:   pr.TotalUploaded,
		totalDownloaded: pr.TotalDownloaded,
		numSeeds:        pr.NumSeeds,
		numDownloaders:  pr.NumDownloaders,
		active:          stopwatch{base: pr.ActiveTime},
		seeding:         stopwatch{base: pr.SeedingTime},
		finished:        stopwatch{base: pr.FinishedTime},
		added:           anchor(now, pr.Added),
		completed:       anchor(now, pr.Completed),
		lastScrape:      anchor(now, pr.LastScrape),
		lastDownload:    anchor(now, pr.LastDownload),
		lastUpload:      anchor(now, pr.LastUpload),
		uploadLimiter:   newLimiter(asm.Config.UploadLimit),
		downloadLimiter: newLimiter(asm.Config.DownloadLimit),
	}
	t.updateTimersLocked(now)
	return t
}

func newLimiter(bytesPerSecond int) *rate.Limiter {
	l := rate.NewLimiter(rate.Inf, 0)
	setLimit(l, bytesPerSecond)
	return l
}

// Zero or negative is unlimited.
func setLimit(l *rate.Limiter, bytesPerSecond int) {
	if bytesPerSecond <= 0 {
		l.SetLimit(rate.Inf)
		return
	}
	l.SetLimit(rate.Limit(bytesPerSecond))
	l.SetBurst(max(bytesPerSecond, BlockSize))
}

func (t *Torrent) InfoHash() metainfo.Hash {
	return t.infoHash
}

func (t *Torrent) Metadata() Metadata {
	return t.md
}

// Paces uploads according to the torrent's upload limit. It's adjusted in place when the limit
// changes.
func (t *Torrent) UploadLimiter() *rate.Limiter {
	return t.uploadLimiter
}

func (t *Torrent) DownloadLimiter() *rate.Limiter {
	return t.downloadLimiter
}

// All pieces with nonzero priority are complete.
func (t *Torrent) finishedLocked() bool {
	for i, p := range t.config.PiecePriorities {
		if p.Wanted() && !t.have.Contains(uint32(i)) {
			return false
		}
	}
	return true
}

func (t *Torrent) seedingLocked() bool {
	return t.have.GetCardinality() == uint64(t.md.NumPieces())
}

// Brings the time accumulators in line with the current state.
func (t *Torrent) updateTimersLocked(now time.Time) {
	running := !t.config.Paused
	finished := t.finishedLocked()
	t.active.run(now, running)
	t.finished.run(now, running && finished)
	t.seeding.run(now, running && t.seedingLocked())
	if finished && !t.completed.Ok {
		t.completed.Set(now)
	}
}

// Runs f with the torrent locked, then marks the state as changed.
func (t *Torrent) mutate(f func(now time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	f(now)
	t.updateTimersLocked(now)
	t.needSave = true
}

// Records payload transferred with peers.
func (t *Torrent) AddStats(uploaded, downloaded int64) {
	t.mutate(func(now time.Time) {
		t.totalUploaded += uploaded
		t.totalDownloaded += downloaded
		if uploaded > 0 {
			t.lastUpload.Set(now)
		}
		if downloaded > 0 {
			t.lastDownload.Set(now)
		}
	})
}

// Records that a piece passed or failed its hash check. Indices outside the torrent are ignored.
func (t *Torrent) SetPieceComplete(piece int, complete bool) {
	if piece < 0 || piece >= t.md.NumPieces() {
		t.logger.Levelf(log.Warning, "ignoring completion of piece %v of %v", piece, t.md.NumPieces())
		return
	}
	t.mutate(func(time.Time) {
		if complete {
			t.have.Add(uint32(piece))
		} else {
			t.have.Remove(uint32(piece))
		}
	})
}

// Records the result of a tracker scrape.
func (t *Torrent) Scraped(seeds, downloaders int) {
	t.mutate(func(now time.Time) {
		t.lastScrape.Set(now)
		t.numSeeds = seeds
		t.numDownloaders = downloaders
	})
}

func (t *Torrent) Pause() {
	t.mutate(func(time.Time) {
		t.config.Paused = true
	})
}

func (t *Torrent) Resume() {
	t.mutate(func(time.Time) {
		t.config.Paused = false
	})
}

func (t *Torrent) SetAutoManaged(on bool) {
	t.mutate(func(time.Time) {
		t.config.AutoManaged = on
	})
}

func (t *Torrent) SetSequentialDownload(on bool) {
	t.mutate(func(time.Time) {
		t.config.SequentialDownload = on
	})
}

func (t *Torrent) SetSuperSeeding(on bool) {
	t.mutate(func(time.Time) {
		t.config.SuperSeeding = on
	})
}

func (t *Torrent) SetUploadMode(on bool) {
	t.mutate(func(time.Time) {
		t.config.UploadMode = on
	})
}

// Bytes per second. Zero or negative is unlimited.
func (t *Torrent) SetUploadLimit(bytesPerSecond int) {
	t.mutate(func(time.Time) {
		t.config.UploadLimit = bytesPerSecond
		setLimit(t.uploadLimiter, bytesPerSecond)
	})
}

func (t *Torrent) SetDownloadLimit(bytesPerSecond int) {
	t.mutate(func(time.Time) {
		t.config.DownloadLimit = bytesPerSecond
		setLimit(t.downloadLimiter, bytesPerSecond)
	})
}

func (t *Torrent) SetMaxConnections(n int) {
	t.mutate(func(time.Time) {
		t.config.MaxConnections = n
	})
}

func (t *Torrent) SetMaxUploads(n int) {
	t.mutate(func(time.Time) {
		t.config.MaxUploads = n
	})
}

// Records that the engine moved the torrent's data.
func (t *Torrent) SetSavePath(path string) {
	t.mutate(func(time.Time) {
		t.config.SavePath = path
	})
}

// Appends tracker tiers.
func (t *Torrent) AddTrackers(tiers [][]string) {
	t.mutate(func(time.Time) {
		t.config.Trackers = append(t.config.Trackers, tiers...)
	})
}

// Sets a file's priority. Piece priorities are then derived from file priorities, even if they
// came from resume data. Ignored in share mode, and for indices outside the torrent.
func (t *Torrent) SetFilePriority(file int, prio types.Priority) {
	if file < 0 || file >= t.md.NumFiles() {
		t.logger.Levelf(log.Warning, "ignoring priority for file %v of %v", file, t.md.NumFiles())
		return
	}
	t.mutate(func(time.Time) {
		c := &t.config
		if c.ShareMode {
			return
		}
		c.FilePriorities[file] = min(prio, types.PriorityTop)
		c.PiecePriorities = piecePrioritiesFromFiles(t.md, c.FilePriorities)
		c.PieceLevelPriorities = false
	})
}

// Captures resume data. now must be the time the capture is made, since event times are
// written as ages relative to it.
func (t *Torrent) resumeDataLocked(now time.Time) resumedata.ResumeData {
	c := &t.config
	rd := resumedata.New(t.infoHash)
	rd.BlocksPerPiece.Set(int64(t.md.BlocksPerPiece()))

	pieces := make([]byte, t.md.NumPieces())
	t.have.Iterate(func(i uint32) bool {
		if int(i) < len(pieces) {
			pieces[i] = 1
		}
		return true
	})
	rd.Pieces.Set(pieces)
	// Well-formed resume data has one kind of priority.
	if c.PieceLevelPriorities {
		pp := make([]byte, len(c.PiecePriorities))
		for i, p := range c.PiecePriorities {
			pp[i] = byte(p)
		}
		rd.PiecePriority.Set(pp)
	} else {
		fp := make([]int64, len(c.FilePriorities))
		for i, p := range c.FilePriorities {
			fp[i] = int64(p)
		}
		rd.FilePriority.Set(fp)
	}

	rd.TotalUploaded.Set(t.totalUploaded)
	rd.TotalDownloaded.Set(t.totalDownloaded)
	rd.ActiveTime.Set(wholeSeconds(t.active.elapsed(now)))
	rd.SeedingTime.Set(wholeSeconds(t.seeding.elapsed(now)))
	rd.FinishedTime.Set(wholeSeconds(t.finished.elapsed(now)))
	rd.AddedTime.Set(ageSeconds(now, t.added))
	rd.CompletedTime.Set(ageSeconds(now, t.completed))
	rd.LastScrape.Set(ageSeconds(now, t.lastScrape))
	rd.LastDownload.Set(ageSeconds(now, t.lastDownload))
	rd.LastUpload.Set(ageSeconds(now, t.lastUpload))
	rd.NumSeeds.Set(int64(t.numSeeds))
	rd.NumDownloaders.Set(int64(t.numDownloaders))

	rd.UploadRateLimit.Set(int64(c.UploadLimit))
	rd.DownloadRateLimit.Set(int64(c.DownloadLimit))
	rd.MaxConnections.Set(int64(c.MaxConnections))
	rd.MaxUploads.Set(int64(c.MaxUploads))

	rd.SeedMode.Set(c.SeedMode)
	rd.SuperSeeding.Set(c.SuperSeeding)
	rd.AutoManaged.Set(c.AutoManaged)
	rd.SequentialDownload.Set(c.SequentialDownload)
	rd.Paused.Set(c.Paused)

	rd.Trackers.Set(cloneTiers(c.Trackers))
	rd.URLList.Set(append([]string{}, c.URLSeeds...))
	rd.HTTPSeeds.Set(append([]string{}, c.HTTPSeeds...))
	rd.SavePath.Set(c.SavePath)
	return rd
}

func wholeSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// -1 for events that never happened.
func ageSeconds(now time.Time, anchor g.Option[time.Time]) int64 {
	age := ageAt(now, anchor)
	if !age.Ok {
		return -1
	}
	return wholeSeconds(age.Value)
}

func cloneTiers(tiers [][]string) [][]string {
	ret := make([][]string, 0, len(tiers))
	for _, tier := range tiers {
		ret = append(ret, append([]string{}, tier...))
	}
	return ret
}

// Arms a capture if one isn't already pending. Returns the capture number whose outcome satisfies
// the request.
func (t *Torrent) requestSave() (target int, armed bool, err error) {
	t.mu.Lock()
	if t.removed {
		t.mu.Unlock()
		err = ErrTorrentRemoved
		return
	}
	target = t.captures + 1
	if t.savePending {
		t.mu.Unlock()
		return
	}
	t.savePending = true
	t.mu.Unlock()
	if !t.s.enqueueSave(t) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.removed {
			// The removal already failed this request.
			err = errSaveFailedByRemoval
			return
		}
		t.savePending = false
		err = ErrSessionClosed
		return
	}
	armed = true
	return
}

// Asynchronously saves resume data. The outcome is delivered as a SaveResumeDataAlert or
// SaveResumeDataFailedAlert. Returns false if the request was merged into a save that was
// already pending, or failed immediately. After the session is closed, requests fail with
// ErrSessionClosed and the alert can still be popped.
func (t *Torrent) SaveResumeData() bool {
	_, armed, err := t.requestSave()
	if err == errSaveFailedByRemoval {
		return false
	}
	if err != nil {
		t.s.alerts.Push(saveFailed(t.infoHash, err))
		return false
	}
	if !armed {
		SaveRequestsCoalesced.Inc()
	}
	return armed
}

// Waits until the outcome of the given capture has been delivered.
func (t *Torrent) waitSave(ctx context.Context, target int) error {
	for {
		t.mu.RLock()
		done := t.savesDone >= target
		removed := t.removed
		err := t.lastSaveErr
		signaled := t.saveDone.Signaled()
		t.mu.RUnlock()
		if done {
			return err
		}
		if removed {
			return ErrTorrentRemoved
		}
		select {
		case <-signaled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Whether the torrent's state changed since resume data was last captured.
func (t *Torrent) NeedSaveResume() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.needSave
}
