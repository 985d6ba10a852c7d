package fastresume

import (
	"testing"

	qt "github.com/go-quicktest/qt"

	"github.com/anacrolix/fastresume/internal/testutil"
)

func TestMetadataFilePieces(t *testing.T) {
	md, info := threeFiles(t)
	qt.Check(t, qt.Equals(md.NumFiles(), 3))
	qt.Check(t, qt.Equals(md.NumPieces(), info.NumPieces()))
	qt.Check(t, qt.Equals(md.NumPieces(), 10))
	qt.Check(t, qt.Equals(md.BlocksPerPiece(), 8))
	for i, want := range [][2]int{{0, 8}, {8, 9}, {9, 10}} {
		begin, end := md.FilePieces(i)
		qt.Check(t, qt.Equals([2]int{begin, end}, want), qt.Commentf("file %d", i))
	}
}

func TestMetadataUnalignedAndEmptyFiles(t *testing.T) {
	tt := testutil.Torrent{
		Name: "odd",
		Files: []testutil.File{
			{Name: "a", Length: testutil.PieceLength + 1},
			{Name: "empty", Length: 0},
			{Name: "b", Length: 10},
		},
	}
	mi, _ := tt.Generate(testutil.PieceLength)
	md, err := MetadataFromMetaInfo(&mi)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(md.NumPieces(), 2))
	for i, want := range [][2]int{{0, 2}, {1, 1}, {1, 2}} {
		begin, end := md.FilePieces(i)
		qt.Check(t, qt.Equals([2]int{begin, end}, want), qt.Commentf("file %d", i))
	}
	// Files with no pieces get normal priority when derived from piece priorities.
	fps := filePrioritiesFromPieces(md, digits("03"))
	qt.Check(t, qt.DeepEquals(fps, digits("313")))
}

func TestAddTorrentParamsFromMetaInfo(t *testing.T) {
	mi, _ := testutil.ThreeFilesMetaInfo()
	p, err := AddTorrentParamsFromMetaInfo(mi)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.DeepEquals(p.Trackers, [][]string{{testutil.MetaInfoTracker}}))
	qt.Check(t, qt.DeepEquals(p.URLSeeds, []string{testutil.MetaInfoURLSeed}))
	qt.Check(t, qt.Equals(p.Metadata.InfoHash(), mi.HashInfoBytes()))
	qt.Check(t, qt.Equals(p.UploadLimit, -1))
}
