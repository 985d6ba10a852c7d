package fastresume

import (
	"fmt"

	"github.com/anacrolix/torrent/metainfo"
)

// Block size used to express piece lengths as blocks per piece in resume data.
const BlockSize = 0x4000

// What the resume subsystem needs to know about a torrent's layout. It's provided by the metainfo
// parser, which lives elsewhere.
type Metadata interface {
	InfoHash() metainfo.Hash
	NumFiles() int
	NumPieces() int
	// Returns the half-open range of piece indices that overlap file i. Empty files overlap no
	// pieces.
	FilePieces(i int) (begin, end int)
	BlocksPerPiece() int
}

type infoMetadata struct {
	infoHash    metainfo.Hash
	pieceLength int64
	numPieces   int
	// Offset and length of each file within the torrent.
	files []fileExtent
}

type fileExtent struct {
	offset, length int64
}

// Adapts a parsed info dictionary. The info-hash must be that of the info's bencoding.
func MetadataFromInfo(ih metainfo.Hash, info *metainfo.Info) Metadata {
	md := &infoMetadata{
		infoHash:    ih,
		pieceLength: info.PieceLength,
		numPieces:   info.NumPieces(),
	}
	var offset int64
	for _, fi := range info.UpvertedFiles() {
		md.files = append(md.files, fileExtent{offset, fi.Length})
		offset += fi.Length
	}
	return md
}

func MetadataFromMetaInfo(mi *metainfo.MetaInfo) (Metadata, error) {
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("unmarshalling info: %w", err)
	}
	return MetadataFromInfo(mi.HashInfoBytes(), &info), nil
}

func (me *infoMetadata) InfoHash() metainfo.Hash {
	return me.infoHash
}

func (me *infoMetadata) NumFiles() int {
	return len(me.files)
}

func (me *infoMetadata) NumPieces() int {
	return me.numPieces
}

func (me *infoMetadata) FilePieces(i int) (begin, end int) {
	f := me.files[i]
	begin = int(f.offset / me.pieceLength)
	if f.length == 0 {
		return begin, begin
	}
	end = int((f.offset + f.length + me.pieceLength - 1) / me.pieceLength)
	return
}

func (me *infoMetadata) BlocksPerPiece() int {
	return max(1, int(me.pieceLength/BlockSize))
}
