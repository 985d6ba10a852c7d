package resumedata

import (
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/torrent/bencode"
)

// Encodes every set field, including zeros and empty lists. Keys are written in sorted order, so
// canonical input round-trips through Unmarshal and Marshal byte for byte.
func Marshal(rd ResumeData) ([]byte, error) {
	return bencode.Marshal(rd.dict())
}

func (rd *ResumeData) dict() dict {
	d := dict{
		keyFileFormat:  rd.FileFormat,
		keyFileVersion: rd.FileVersion,
		keyInfoHash:    rd.InfoHash.AsString(),
	}
	if rd.hyphenatedBlocksPerPiece {
		putInt(d, keyBlocksPerPieceAlt, rd.BlocksPerPiece)
	} else {
		putInt(d, keyBlocksPerPiece, rd.BlocksPerPiece)
	}
	putBytes(d, keyPieces, rd.Pieces)
	putBytes(d, keyPiecePriority, rd.PiecePriority)
	if rd.FilePriority.Ok {
		d[keyFilePriority] = nonNil(rd.FilePriority.Value)
	}

	putInt(d, keyTotalUploaded, rd.TotalUploaded)
	putInt(d, keyTotalDownloaded, rd.TotalDownloaded)
	putInt(d, keyActiveTime, rd.ActiveTime)
	putInt(d, keySeedingTime, rd.SeedingTime)
	putInt(d, keyFinishedTime, rd.FinishedTime)
	putInt(d, keyAddedTime, rd.AddedTime)
	putInt(d, keyCompletedTime, rd.CompletedTime)
	putInt(d, keyLastScrape, rd.LastScrape)
	putInt(d, keyLastDownload, rd.LastDownload)
	putInt(d, keyLastUpload, rd.LastUpload)
	putInt(d, keyNumSeeds, rd.NumSeeds)
	putInt(d, keyNumDownloaders, rd.NumDownloaders)

	putInt(d, keyUploadRateLimit, rd.UploadRateLimit)
	putInt(d, keyDownloadRateLimit, rd.DownloadRateLimit)
	putInt(d, keyMaxConnections, rd.MaxConnections)
	putInt(d, keyMaxUploads, rd.MaxUploads)

	putBool(d, keySeedMode, rd.SeedMode)
	putBool(d, keySuperSeeding, rd.SuperSeeding)
	putBool(d, keyAutoManaged, rd.AutoManaged)
	putBool(d, keySequentialDownload, rd.SequentialDownload)
	putBool(d, keyPaused, rd.Paused)

	if rd.Trackers.Ok {
		tiers := make([][]string, 0, len(rd.Trackers.Value))
		for _, tier := range rd.Trackers.Value {
			tiers = append(tiers, nonNil(tier))
		}
		d[keyTrackers] = tiers
	}
	if rd.URLList.Ok {
		d[keyURLList] = nonNil(rd.URLList.Value)
	}
	if rd.HTTPSeeds.Ok {
		d[keyHTTPSeeds] = nonNil(rd.HTTPSeeds.Value)
	}
	if rd.SavePath.Ok {
		d[keySavePath] = rd.SavePath.Value
	}
	return d
}

func putInt(d dict, key string, v g.Option[int64]) {
	if v.Ok {
		d[key] = v.Value
	}
}

func putBool(d dict, key string, v g.Option[bool]) {
	if !v.Ok {
		return
	}
	if v.Value {
		d[key] = int64(1)
	} else {
		d[key] = int64(0)
	}
}

func putBytes(d dict, key string, v g.Option[[]byte]) {
	if v.Ok {
		d[key] = string(v.Value)
	}
}

// Empty lists must still be written as lists.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
