package fastresume

import (
	"testing"
	"time"

	g "github.com/anacrolix/generics"
	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	qt "github.com/go-quicktest/qt"

	"github.com/anacrolix/fastresume/internal/testutil"
	"github.com/anacrolix/fastresume/types"
)

const (
	callerSavePath = "/add_torrent_params save_path"
	callerTracker  = "http://add_torrent_params_tracker.com/announce"
	callerURLSeed  = "http://add_torrent_params_url_seed.com"
)

func threeFiles(t testing.TB) (Metadata, *metainfo.Info) {
	mi, info := testutil.ThreeFilesMetaInfo()
	md, err := MetadataFromMetaInfo(mi)
	qt.Assert(t, qt.IsNil(err))
	return md, &info
}

func digits(s string) (ret []types.Priority) {
	for _, d := range testutil.Digits(s) {
		ret = append(ret, types.Priority(d))
	}
	return
}

// Params as a client would pass them for a torrent it previously saved. filePriorities are the
// caller's, resumeFilePriorities are persisted in the resume data alongside piece priorities.
func resumeParams(t testing.TB, flags types.AddTorrentFlags, filePriorities, resumeFilePriorities string) AddTorrentParams {
	md, info := threeFiles(t)
	p := NewAddTorrentParams(md)
	p.Flags = flags
	p.SavePath = callerSavePath
	p.Trackers = [][]string{{callerTracker}}
	p.URLSeeds = []string{callerURLSeed}
	p.ResumeData = testutil.ResumeBlob(info, md.InfoHash(), resumeFilePriorities)
	p.MaxUploads = 1
	p.MaxConnections = 2
	p.UploadLimit = 3
	p.DownloadLimit = 4
	p.FilePriorities = digits(filePriorities)
	return p
}

// Resume blob for the three file torrent with some keys replaced or removed (nil values).
func modifiedResumeBlob(t testing.TB, md Metadata, info *metainfo.Info, edits map[string]interface{}) []byte {
	d := testutil.ResumeDict(info, md.InfoHash(), "")
	for k, v := range edits {
		if v == nil {
			delete(d, k)
		} else {
			d[k] = v
		}
	}
	b, err := bencode.Marshal(d)
	qt.Assert(t, qt.IsNil(err))
	return b
}

func newTestSession(t testing.TB, cfg *SessionConfig) *Session {
	if cfg == nil {
		cfg = NewDefaultSessionConfig()
		cfg.AutoSaveInterval = 0
	}
	s := NewSession(cfg)
	t.Cleanup(func() { s.Close() })
	return s
}

func addResumed(t testing.TB, flags types.AddTorrentFlags, filePriorities, resumeFilePriorities string) (*Session, *Torrent) {
	s := newTestSession(t, nil)
	tor, new, err := s.AddTorrent(resumeParams(t, flags, filePriorities, resumeFilePriorities))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(new))
	return s, tor
}

// Allows for the test being slow, since ages keep growing after the add.
func checkAge(t testing.TB, name string, got g.Option[time.Duration], want int64) {
	t.Helper()
	qt.Assert(t, qt.IsTrue(got.Ok), qt.Commentf("%s", name))
	s := wholeSeconds(got.Value)
	qt.Check(t, qt.IsTrue(s >= want && s < want+10), qt.Commentf("%s: %d", name, s))
}

// Counters and times that come from the resume data whatever the flags.
func checkResumedProgress(t testing.TB, st TorrentStatus) {
	t.Helper()
	checkAge(t, "last scrape", st.SinceLastScrape, testutil.ResumeLastScrapeAge)
	checkAge(t, "last download", st.SinceDownload, testutil.ResumeLastDownloadAge)
	checkAge(t, "last upload", st.SinceUpload, testutil.ResumeLastUploadAge)
	checkAge(t, "added", st.SinceAdded, testutil.ResumeAddedAge)
	checkAge(t, "completed", st.SinceCompleted, testutil.ResumeCompletedAge)
	active := wholeSeconds(st.ActiveTime)
	qt.Check(t, qt.IsTrue(active >= testutil.ResumeActiveTime && active < testutil.ResumeActiveTime+10))
	qt.Check(t, qt.Equals(wholeSeconds(st.FinishedTime), testutil.ResumeFinishedTime))
	qt.Check(t, qt.Equals(wholeSeconds(st.SeedingTime), testutil.ResumeSeedingTime))
	qt.Check(t, qt.Equals(st.TotalUploaded, testutil.ResumeTotalUploaded))
	qt.Check(t, qt.Equals(st.TotalDownloaded, testutil.ResumeTotalDownloaded))
	qt.Check(t, qt.Equals(st.NumSeeds, testutil.ResumeNumSeeds))
	qt.Check(t, qt.Equals(st.NumDownloaders, testutil.ResumeNumDownloaders))
}
