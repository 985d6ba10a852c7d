// Package testutil builds the torrents and resume data used by tests of the resume subsystem.
package testutil

import (
	"bytes"
	"io"

	"github.com/anacrolix/missinggo/v2/panicif"
	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
)

type File struct {
	Name   string
	Length int64
}

// High-level description of a torrent for testing purposes. File contents are a repeating byte
// pattern so piece hashes are stable.
type Torrent struct {
	Files []File
	Name  string
}

const PieceLength = 128 << 10

// Three files over ten pieces. The first file covers pieces 0 through 7, and each of the others
// has a piece to itself.
var ThreeFiles = Torrent{
	Name: "temporary",
	Files: []File{
		{Name: "tmp1", Length: 1 << 20},
		{Name: "tmp2", Length: 128 << 10},
		{Name: "tmp3", Length: 128 << 10},
	},
}

func (t *Torrent) fileData(name string) []byte {
	for i, f := range t.Files {
		if f.Name == name {
			return bytes.Repeat([]byte{byte('a' + i)}, int(f.Length))
		}
	}
	return nil
}

func (t *Torrent) Info(pieceLength int64) metainfo.Info {
	info := metainfo.Info{
		Name:        t.Name,
		PieceLength: pieceLength,
	}
	for _, f := range t.Files {
		info.Files = append(info.Files, metainfo.FileInfo{
			Path:   []string{f.Name},
			Length: f.Length,
		})
	}
	err := info.GeneratePieces(func(fi metainfo.FileInfo) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(t.fileData(fi.Path[0]))), nil
	})
	panicif.Err(err)
	return info
}

// Create an info and metainfo with bytes set for the torrent with the provided piece length.
func (t *Torrent) Generate(pieceLength int64) (mi metainfo.MetaInfo, info metainfo.Info) {
	var err error
	info = t.Info(pieceLength)
	mi.InfoBytes, err = bencode.Marshal(info)
	panicif.Err(err)
	return
}

// The ThreeFiles torrent, with an announce URL and a web seed of its own.
func ThreeFilesMetaInfo() (*metainfo.MetaInfo, metainfo.Info) {
	mi, info := ThreeFiles.Generate(PieceLength)
	mi.Announce = MetaInfoTracker
	mi.UrlList = []string{MetaInfoURLSeed}
	return &mi, info
}

const (
	MetaInfoTracker = "http://metainfo_tracker.com/announce"
	MetaInfoURLSeed = "http://metainfo_url_seed.com"
)
