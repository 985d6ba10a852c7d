package testutil

import (
	"strings"

	"github.com/anacrolix/missinggo/v2/panicif"
	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
)

// Values in the resume data returned by ResumeBlob.
const (
	ResumeTotalUploaded   = 1337
	ResumeTotalDownloaded = 1338
	ResumeActiveTime      = 1339
	ResumeSeedingTime     = 1340
	ResumeNumSeeds        = 1341
	ResumeNumDownloaders  = 1342
	ResumeUploadLimit     = 1343
	ResumeDownloadLimit   = 1344
	ResumeMaxConnections  = 1345
	ResumeMaxUploads      = 1346
	ResumeAddedAge        = 1347
	ResumeCompletedAge    = 1348
	ResumeLastScrapeAge   = 1349
	ResumeLastDownloadAge = 1350
	ResumeLastUploadAge   = 1351
	ResumeFinishedTime    = 1352

	ResumeTracker   = "http://resume_data_tracker.com/announce"
	ResumeURLSeed   = "http://resume_data_url_seed.com"
	ResumeHTTPSeed  = "http://resume_data_http_seed.com"
	ResumeSavePath  = "/resume_data save_path"
	BlockSize       = 0x4000
	ResumeFormat    = "libtorrent resume file"
	ResumeVersion   = 1
	resumeNoPieces  = "\x00"
	resumeNormalPri = "\x01"
)

// Returns a resume dictionary as an earlier session would have written it for info. No pieces are
// complete and every piece has normal priority. filePriorities is a string of digits, one per file
// priority, and is omitted when empty.
func ResumeDict(info *metainfo.Info, ih metainfo.Hash, filePriorities string) map[string]interface{} {
	numPieces := info.NumPieces()
	rd := map[string]interface{}{
		"file-format":         ResumeFormat,
		"file-version":        ResumeVersion,
		"info-hash":           ih.AsString(),
		"blocks per piece":    max(1, info.PieceLength/BlockSize),
		"pieces":              strings.Repeat(resumeNoPieces, numPieces),
		"total_uploaded":      ResumeTotalUploaded,
		"total_downloaded":    ResumeTotalDownloaded,
		"active_time":         ResumeActiveTime,
		"seeding_time":        ResumeSeedingTime,
		"num_seeds":           ResumeNumSeeds,
		"num_downloaders":     ResumeNumDownloaders,
		"upload_rate_limit":   ResumeUploadLimit,
		"download_rate_limit": ResumeDownloadLimit,
		"max_connections":     ResumeMaxConnections,
		"max_uploads":         ResumeMaxUploads,
		"seed_mode":           0,
		"super_seeding":       0,
		"added_time":          ResumeAddedAge,
		"completed_time":      ResumeCompletedAge,
		"last_scrape":         ResumeLastScrapeAge,
		"last_download":       ResumeLastDownloadAge,
		"last_upload":         ResumeLastUploadAge,
		"finished_time":       ResumeFinishedTime,
		"piece_priority":      strings.Repeat(resumeNormalPri, numPieces),
		"auto_managed":        0,
		"sequential_download": 0,
		"paused":              0,
		"trackers":            [][]string{{ResumeTracker}},
		"url-list":            []string{ResumeURLSeed},
		"httpseeds":           []string{ResumeHTTPSeed},
		"save_path":           ResumeSavePath,
	}
	if filePriorities != "" {
		rd["file_priority"] = Digits(filePriorities)
	}
	return rd
}

// ResumeDict encoded as bencode.
func ResumeBlob(info *metainfo.Info, ih metainfo.Hash, filePriorities string) []byte {
	b, err := bencode.Marshal(ResumeDict(info, ih, filePriorities))
	panicif.Err(err)
	return b
}

// Converts a string like "123" to []int64{1, 2, 3}.
func Digits(s string) (ret []int64) {
	for _, r := range s {
		ret = append(ret, int64(r-'0'))
	}
	return
}
