package fastresume

import (
	"context"
	"testing"
	"time"

	qt "github.com/go-quicktest/qt"

	"github.com/anacrolix/fastresume/alert"
	"github.com/anacrolix/fastresume/internal/testutil"
	"github.com/anacrolix/fastresume/reconcile"
	"github.com/anacrolix/fastresume/resumedata"
	"github.com/anacrolix/fastresume/types"
)

func filePriorities(tor *Torrent) []types.Priority {
	return tor.Status().FilePriorities
}

func TestFilePrioritiesDefault(t *testing.T) {
	_, tor := addResumed(t, 0, "", "")
	qt.Check(t, qt.DeepEquals(filePriorities(tor), digits("111")))
}

func TestShareModeClearsPriorities(t *testing.T) {
	for _, c := range []struct {
		name, caller, resume string
	}{
		{"resume", "", "123"},
		{"caller", "123", ""},
	} {
		t.Run(c.name, func(t *testing.T) {
			_, tor := addResumed(t, types.FlagShareMode, c.caller, c.resume)
			st := tor.Status()
			qt.Check(t, qt.DeepEquals(st.FilePriorities, digits("000")))
			qt.Check(t, qt.DeepEquals(st.PiecePriorities, types.Priorities(10, types.PriorityDontDownload)))
		})
	}
}

func waitSaved(t testing.TB, s *Session, tor *Torrent) *SaveResumeDataAlert {
	t.Helper()
	a, err := s.Alerts().WaitTimeout(10*time.Second, alert.And(
		alert.OfType(alert.TypeSaveResumeData, alert.TypeSaveResumeDataFailed),
		alert.ForTorrent(tor.InfoHash())))
	qt.Assert(t, qt.IsNil(err))
	sa, ok := a.(*SaveResumeDataAlert)
	qt.Assert(t, qt.IsTrue(ok), qt.Commentf("%v", a.Message()))
	return sa
}

func TestResumeSaveLoad(t *testing.T) {
	for _, c := range []struct {
		name, caller, resume string
	}{
		{"caller", "123", ""},
		{"resume", "", "123"},
	} {
		t.Run(c.name, func(t *testing.T) {
			s, tor := addResumed(t, 0, c.caller, c.resume)
			qt.Assert(t, qt.IsTrue(tor.SaveResumeData()))
			sa := waitSaved(t, s, tor)
			qt.Check(t, qt.DeepEquals(sa.ResumeData.FilePriority.Value, testutil.Digits("123")))
			qt.Check(t, qt.IsFalse(sa.ResumeData.PiecePriority.Ok))
			rd, err := resumedata.Unmarshal(sa.Data)
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.DeepEquals(rd.FilePriority.Value, testutil.Digits("123")))
			qt.Check(t, qt.Equals(rd.InfoHash, tor.InfoHash()))
		})
	}
}

func TestFilePrioritiesResumeOverride(t *testing.T) {
	// An empty caller vector doesn't override persisted priorities, even with the override flag.
	_, tor := addResumed(t, types.FlagOverrideResumeData, "", "123")
	qt.Check(t, qt.DeepEquals(filePriorities(tor), digits("123")))
}

func TestFilePrioritiesResume(t *testing.T) {
	_, tor := addResumed(t, 0, "", "123")
	qt.Check(t, qt.DeepEquals(filePriorities(tor), digits("123")))
}

func TestFilePrioritiesCaller(t *testing.T) {
	for _, c := range []struct {
		caller string
		want   string
	}{
		{"010", "010"},
		{"123", "123"},
		{"4321", "432"},
	} {
		t.Run(c.caller, func(t *testing.T) {
			_, tor := addResumed(t, 0, c.caller, "")
			qt.Check(t, qt.DeepEquals(filePriorities(tor), digits(c.want)))
		})
	}
}

func TestFilePrioritiesTruncationWarns(t *testing.T) {
	s, tor := addResumed(t, 0, "4321", "")
	var found bool
	for _, a := range s.PopAlerts() {
		w, ok := a.(*ResumeDataWarningAlert)
		if !ok {
			continue
		}
		var le *PriorityLengthError
		if qt.Check(t, qt.ErrorAs(w.Err, &le)) {
			qt.Check(t, qt.Equals(le.Class, reconcile.FilePriorities))
			qt.Check(t, qt.Equals(le.Got, 4))
			qt.Check(t, qt.Equals(le.Want, 3))
			found = true
		}
	}
	qt.Check(t, qt.IsTrue(found))
	qt.Check(t, qt.Equals(tor.Status().FilePriorities[2], types.Priority(2)))
}

func TestPiecePrioritiesFollowFiles(t *testing.T) {
	_, tor := addResumed(t, 0, "010", "")
	st := tor.Status()
	want := types.Priorities(10, types.PriorityDontDownload)
	want[8] = types.PriorityNormal
	qt.Check(t, qt.DeepEquals(st.PiecePriorities, want))
}

// Flags and the mode or limit they should produce. Everything not listed is false.
type flagCase struct {
	name     string
	flags    types.AddTorrentFlags
	savePath string
	paused   bool
	seedMode bool
	share    bool
	upload   bool
	// Caller limits won.
	callerLimits bool
}

func TestAddFlags(t *testing.T) {
	for _, c := range []flagCase{
		{name: "plain", savePath: callerSavePath},
		{
			name:     "use resume save path",
			flags:    types.FlagUseResumeSavePath,
			savePath: testutil.ResumeSavePath,
		},
		{
			name:         "override resume data",
			flags:        types.FlagOverrideResumeData | types.FlagPaused,
			savePath:     callerSavePath,
			paused:       true,
			callerLimits: true,
		},
		{
			name:         "seed mode",
			flags:        types.FlagOverrideResumeData | types.FlagSeedMode,
			savePath:     callerSavePath,
			seedMode:     true,
			callerLimits: true,
		},
		{name: "upload mode", flags: types.FlagUploadMode, savePath: callerSavePath, upload: true},
		{
			name:         "share mode",
			flags:        types.FlagOverrideResumeData | types.FlagShareMode,
			savePath:     callerSavePath,
			share:        true,
			callerLimits: true,
		},
		// Resume data wins for these without the override.
		{name: "auto managed", flags: types.FlagAutoManaged, savePath: callerSavePath},
		{name: "paused", flags: types.FlagPaused, savePath: callerSavePath},
	} {
		t.Run(c.name, func(t *testing.T) {
			_, tor := addResumed(t, c.flags, "1111", "")
			st := tor.Status()
			checkResumedProgress(t, st)
			qt.Check(t, qt.Equals(st.SavePath, c.savePath))
			qt.Check(t, qt.IsFalse(st.SequentialDownload))
			qt.Check(t, qt.Equals(st.Paused, c.paused))
			qt.Check(t, qt.IsFalse(st.AutoManaged))
			qt.Check(t, qt.Equals(st.SeedMode, c.seedMode))
			qt.Check(t, qt.IsFalse(st.SuperSeeding))
			qt.Check(t, qt.Equals(st.ShareMode, c.share))
			qt.Check(t, qt.Equals(st.UploadMode, c.upload))
			qt.Check(t, qt.IsFalse(st.IPFilterApplies))
			if c.callerLimits {
				qt.Check(t, qt.Equals(st.ConnectionsLimit, 2))
				qt.Check(t, qt.Equals(st.UploadsLimit, 1))
				qt.Check(t, qt.Equals(st.UploadLimit, 3))
				qt.Check(t, qt.Equals(st.DownloadLimit, 4))
			} else {
				qt.Check(t, qt.Equals(st.ConnectionsLimit, testutil.ResumeMaxConnections))
				qt.Check(t, qt.Equals(st.UploadsLimit, testutil.ResumeMaxUploads))
				qt.Check(t, qt.Equals(st.UploadLimit, testutil.ResumeUploadLimit))
				qt.Check(t, qt.Equals(st.DownloadLimit, testutil.ResumeDownloadLimit))
			}
			if c.seedMode {
				qt.Check(t, qt.Equals(st.PiecesComplete, st.NumPieces))
				qt.Check(t, qt.IsTrue(st.Seeding))
			} else {
				qt.Check(t, qt.Equals(st.PiecesComplete, 0))
			}
		})
	}
}

func TestTrackersAndSeedsAreUnioned(t *testing.T) {
	_, tor := addResumed(t, types.FlagOverrideResumeData, "", "")
	st := tor.Status()
	qt.Check(t, qt.DeepEquals(st.Trackers, [][]string{{callerTracker}, {testutil.ResumeTracker}}))
	qt.Check(t, qt.DeepEquals(st.URLSeeds, []string{callerURLSeed, testutil.ResumeURLSeed}))
	qt.Check(t, qt.DeepEquals(st.HTTPSeeds, []string{testutil.ResumeHTTPSeed}))
}

func TestAgesNeverGoBackwards(t *testing.T) {
	_, tor := addResumed(t, 0, "", "")
	first := tor.Status()
	time.Sleep(10 * time.Millisecond)
	second := tor.Status()
	qt.Check(t, qt.IsTrue(second.SinceLastScrape.Value > first.SinceLastScrape.Value))
	qt.Check(t, qt.IsTrue(second.ActiveTime > first.ActiveTime))
	qt.Check(t, qt.Equals(second.SeedingTime, first.SeedingTime))
}

func TestSaveWritesAgesRelativeToCapture(t *testing.T) {
	s, tor := addResumed(t, 0, "", "")
	tor.Scraped(5, 6)
	tor.SaveResumeData()
	rd := waitSaved(t, s, tor).ResumeData
	qt.Check(t, qt.Equals(rd.LastScrape.Value, 0))
	qt.Check(t, qt.Equals(rd.NumSeeds.Value, 5))
	qt.Check(t, qt.Equals(rd.NumDownloaders.Value, 6))
	qt.Check(t, qt.IsTrue(rd.LastUpload.Value >= testutil.ResumeLastUploadAge))
	qt.Check(t, qt.IsTrue(rd.AddedTime.Value >= testutil.ResumeAddedAge))
	qt.Check(t, qt.IsTrue(rd.ActiveTime.Value >= testutil.ResumeActiveTime))
	qt.Check(t, qt.Equals(rd.FinishedTime.Value, testutil.ResumeFinishedTime))
}

func TestFreshTorrentSavesMissingEventsAsNegative(t *testing.T) {
	s := newTestSession(t, nil)
	md, _ := threeFiles(t)
	tor, _, err := s.AddTorrent(NewAddTorrentParams(md))
	qt.Assert(t, qt.IsNil(err))
	st := tor.Status()
	qt.Check(t, qt.IsTrue(st.SinceAdded.Ok))
	qt.Check(t, qt.IsFalse(st.SinceCompleted.Ok))
	qt.Check(t, qt.IsFalse(st.SinceLastScrape.Ok))
	tor.SaveResumeData()
	rd := waitSaved(t, s, tor).ResumeData
	qt.Check(t, qt.Equals(rd.AddedTime.Value, 0))
	qt.Check(t, qt.Equals(rd.CompletedTime.Value, -1))
	qt.Check(t, qt.Equals(rd.LastScrape.Value, -1))
	qt.Check(t, qt.Equals(rd.LastDownload.Value, -1))
	qt.Check(t, qt.Equals(rd.LastUpload.Value, -1))
	qt.Check(t, qt.Equals(rd.MaxConnections.Value, -1))
}

func TestCompletingPiecesStartsSeeding(t *testing.T) {
	s := newTestSession(t, nil)
	md, _ := threeFiles(t)
	tor, _, err := s.AddTorrent(NewAddTorrentParams(md))
	qt.Assert(t, qt.IsNil(err))
	for i := range md.NumPieces() {
		tor.SetPieceComplete(i, true)
	}
	st := tor.Status()
	qt.Check(t, qt.IsTrue(st.Finished))
	qt.Check(t, qt.IsTrue(st.Seeding))
	qt.Check(t, qt.IsTrue(st.SinceCompleted.Ok))
	qt.Check(t, qt.IsTrue(st.NeedSaveResume))
	tor.SaveResumeData()
	rd := waitSaved(t, s, tor).ResumeData
	qt.Check(t, qt.Equals(rd.CompletedTime.Value, 0))
	qt.Check(t, qt.DeepEquals(rd.Pieces.Value, []byte("\x01\x01\x01\x01\x01\x01\x01\x01\x01\x01")))
	qt.Check(t, qt.IsFalse(tor.NeedSaveResume()))
}

func TestPausedTorrentDoesNotAccumulate(t *testing.T) {
	_, tor := addResumed(t, types.FlagOverrideResumeData|types.FlagPaused, "", "")
	first := tor.Status()
	time.Sleep(10 * time.Millisecond)
	qt.Check(t, qt.Equals(tor.Status().ActiveTime, first.ActiveTime))
	tor.Resume()
	time.Sleep(10 * time.Millisecond)
	qt.Check(t, qt.IsTrue(tor.Status().ActiveTime > first.ActiveTime))
}

func TestSetFilePriorityRederivesPieces(t *testing.T) {
	s, tor := addResumed(t, 0, "", "")
	// Piece priorities from the resume data are persisted until a file priority is set.
	qt.Assert(t, qt.IsTrue(tor.Status().PiecePriorities[0] == types.PriorityNormal))
	tor.SetFilePriority(0, types.PriorityDontDownload)
	st := tor.Status()
	qt.Check(t, qt.DeepEquals(st.FilePriorities, digits("011")))
	qt.Check(t, qt.Equals(st.PiecePriorities[7], types.PriorityDontDownload))
	qt.Check(t, qt.Equals(st.PiecePriorities[8], types.PriorityNormal))
	tor.SaveResumeData()
	rd := waitSaved(t, s, tor).ResumeData
	qt.Check(t, qt.DeepEquals(rd.FilePriority.Value, []int64{0, 1, 1}))
	qt.Check(t, qt.IsFalse(rd.PiecePriority.Ok))
}

func TestSetLimitsAdjustLimiters(t *testing.T) {
	_, tor := addResumed(t, 0, "", "")
	tor.SetUploadLimit(1 << 20)
	qt.Check(t, qt.Equals(float64(tor.UploadLimiter().Limit()), 1<<20))
	tor.SetUploadLimit(0)
	qt.Check(t, qt.IsTrue(tor.UploadLimiter().Limit() > 1e300))
	qt.Check(t, qt.Equals(tor.Status().UploadLimit, 0))
	qt.Check(t, qt.Equals(float64(tor.DownloadLimiter().Limit()), testutil.ResumeDownloadLimit))
}

func TestWaitForAlertTimeout(t *testing.T) {
	s, _ := addResumed(t, 0, "", "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.WaitForAlert(ctx, alert.OfType(alert.TypeSaveResumeData))
	qt.Check(t, qt.ErrorIs(err, context.DeadlineExceeded))
	// Alerts that didn't match are still queued.
	a, err := s.Alerts().WaitTimeout(0, alert.OfType(alert.TypeTorrentAdded))
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.IsTrue(a.(*TorrentAddedAlert).Resumed))
}

func TestOutOfRangeIndicesAreIgnored(t *testing.T) {
	s := newTestSession(t, nil)
	md, _ := threeFiles(t)
	tor, _, err := s.AddTorrent(NewAddTorrentParams(md))
	qt.Assert(t, qt.IsNil(err))
	n := md.NumPieces()
	for i := range n - 1 {
		tor.SetPieceComplete(i, true)
	}
	tor.SetPieceComplete(n, true)
	tor.SetPieceComplete(1000, true)
	tor.SetPieceComplete(-1, true)
	tor.SetFilePriority(md.NumFiles(), types.PriorityTop)
	tor.SetFilePriority(-1, types.PriorityTop)
	st := tor.Status()
	qt.Check(t, qt.Equals(st.PiecesComplete, n-1))
	qt.Check(t, qt.IsFalse(st.Seeding))
	qt.Check(t, qt.IsFalse(st.Finished))
	qt.Check(t, qt.Equals(st.SeedingTime, 0))
	qt.Check(t, qt.DeepEquals(st.FilePriorities, digits("111")))
}
