package fastresume

import (
	"github.com/anacrolix/torrent/metainfo"

	"github.com/anacrolix/fastresume/types"
)

// Parameters for adding a torrent to a Session. They're consumed once by AddTorrent.
type AddTorrentParams struct {
	// Required.
	Metadata Metadata
	SavePath string
	// Tiers of tracker URLs, in order.
	Trackers  [][]string
	URLSeeds  []string
	HTTPSeeds []string
	// Empty, or one per file. Extra entries are dropped and missing ones are normal priority.
	FilePriorities []types.Priority
	// -1 means no preference, which is also unlimited.
	MaxConnections int
	MaxUploads     int
	// Bytes per second. -1 means no preference, which is also unlimited.
	UploadLimit   int
	DownloadLimit int
	Flags         types.AddTorrentFlags
	// Resume data from an earlier session. If nil, the session's store is consulted.
	ResumeData []byte
}

// Returns params with no limit preferences and no flags.
func NewAddTorrentParams(md Metadata) AddTorrentParams {
	return AddTorrentParams{
		Metadata:       md,
		MaxConnections: -1,
		MaxUploads:     -1,
		UploadLimit:    -1,
		DownloadLimit:  -1,
	}
}

// Params for a torrent file, with its trackers and web seeds.
func AddTorrentParamsFromMetaInfo(mi *metainfo.MetaInfo) (p AddTorrentParams, err error) {
	md, err := MetadataFromMetaInfo(mi)
	if err != nil {
		return
	}
	p = NewAddTorrentParams(md)
	p.Trackers = mi.UpvertedAnnounceList()
	p.URLSeeds = mi.UrlList
	return
}
