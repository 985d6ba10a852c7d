// Package resumedata encodes and decodes the bencoded resume data dictionary that lets a torrent
// be re-added without rechecking data it already has. The format is the libtorrent "resume file"
// format, version 1.
//
// Every field other than the identifying ones is optional. A field that was not present in the
// input is None, which is distinct from a field that was present with a zero value or an empty
// list. Marshal writes exactly the fields that are set.
package resumedata

import (
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/torrent/metainfo"
)

const (
	FileFormat  = "libtorrent resume file"
	FileVersion = 1
)

// Dictionary keys. These must not change: blobs written by earlier versions are read back with
// them.
const (
	keyFileFormat         = "file-format"
	keyFileVersion        = "file-version"
	keyInfoHash           = "info-hash"
	keyBlocksPerPiece     = "blocks per piece"
	keyPieces             = "pieces"
	keyPiecePriority      = "piece_priority"
	keyFilePriority       = "file_priority"
	keyTotalUploaded      = "total_uploaded"
	keyTotalDownloaded    = "total_downloaded"
	keyActiveTime         = "active_time"
	keySeedingTime        = "seeding_time"
	keyFinishedTime       = "finished_time"
	keyAddedTime          = "added_time"
	keyCompletedTime      = "completed_time"
	keyLastScrape         = "last_scrape"
	keyLastDownload       = "last_download"
	keyLastUpload         = "last_upload"
	keyNumSeeds           = "num_seeds"
	keyNumDownloaders     = "num_downloaders"
	keyUploadRateLimit    = "upload_rate_limit"
	keyDownloadRateLimit  = "download_rate_limit"
	keyMaxConnections     = "max_connections"
	keyMaxUploads         = "max_uploads"
	keySeedMode           = "seed_mode"
	keySuperSeeding       = "super_seeding"
	keyAutoManaged        = "auto_managed"
	keySequentialDownload = "sequential_download"
	keyPaused             = "paused"
	keyTrackers           = "trackers"
	keyURLList            = "url-list"
	keyHTTPSeeds          = "httpseeds"
	keySavePath           = "save_path"
)

// Some writers used a hyphenated key for blocks per piece. Data decoded with it is written back
// with it.
const keyBlocksPerPieceAlt = "blocks-per-piece"

type ResumeData struct {
	FileFormat  string
	FileVersion int64
	InfoHash    metainfo.Hash

	BlocksPerPiece g.Option[int64]
	// One byte per piece, zero means the piece is missing.
	Pieces g.Option[[]byte]
	// One byte per piece.
	PiecePriority g.Option[[]byte]
	// One entry per file. Well-formed data has this or PiecePriority, not both.
	FilePriority g.Option[[]int64]

	TotalUploaded   g.Option[int64]
	TotalDownloaded g.Option[int64]
	// Accumulated durations, in seconds.
	ActiveTime   g.Option[int64]
	SeedingTime  g.Option[int64]
	FinishedTime g.Option[int64]
	// Event timestamps, stored as the number of seconds before the blob was written. Negative
	// means the event never happened.
	AddedTime     g.Option[int64]
	CompletedTime g.Option[int64]
	LastScrape    g.Option[int64]
	LastDownload  g.Option[int64]
	LastUpload    g.Option[int64]

	NumSeeds       g.Option[int64]
	NumDownloaders g.Option[int64]

	UploadRateLimit   g.Option[int64]
	DownloadRateLimit g.Option[int64]
	MaxConnections    g.Option[int64]
	MaxUploads        g.Option[int64]

	SeedMode           g.Option[bool]
	SuperSeeding       g.Option[bool]
	AutoManaged        g.Option[bool]
	SequentialDownload g.Option[bool]
	Paused             g.Option[bool]

	// Tiers of tracker URLs.
	Trackers g.Option[[][]string]
	// BEP 19 web seeds.
	URLList g.Option[[]string]
	// BEP 17 HTTP seeds.
	HTTPSeeds g.Option[[]string]

	SavePath g.Option[string]

	// BlocksPerPiece was read from keyBlocksPerPieceAlt.
	hyphenatedBlocksPerPiece bool
}

// Returns resume data for the info-hash with the identifying fields filled in.
func New(ih metainfo.Hash) ResumeData {
	return ResumeData{
		FileFormat:  FileFormat,
		FileVersion: FileVersion,
		InfoHash:    ih,
	}
}

// Reports problems that Unmarshal tolerates but that make the data ill-formed.
func (me *ResumeData) Validate() error {
	if me.FilePriority.Ok && me.PiecePriority.Ok {
		return ErrBothPriorityKinds
	}
	return nil
}
