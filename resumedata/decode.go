package resumedata

import (
	"fmt"
	"math"

	g "github.com/anacrolix/generics"
	"github.com/anacrolix/torrent/bencode"
)

// Decodes and shape-checks resume data. Any known key with the wrong bencode type fails the
// whole decode with a *FieldError. Unknown keys are ignored.
func Unmarshal(b []byte) (rd ResumeData, err error) {
	var v interface{}
	err = bencode.Unmarshal(b, &v)
	if err != nil {
		err = fmt.Errorf("decoding bencode: %w", err)
		return
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		err = ErrNotDict
		return
	}
	d := dict(m)
	return d.resumeData()
}

type dict map[string]interface{}

func (d dict) resumeData() (rd ResumeData, err error) {
	r := dictReader{d: d}
	ff := r.text(keyFileFormat)
	if r.err == nil {
		if !ff.Ok {
			return rd, &FieldError{Key: keyFileFormat, Want: "string", Err: ErrMissingField}
		}
		if ff.Value != FileFormat {
			return rd, &FieldError{Key: keyFileFormat, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, ff.Value)}
		}
	}
	rd.FileFormat = ff.Value
	rd.FileVersion = r.requiredInt(keyFileVersion)
	ih := r.text(keyInfoHash)
	if r.err == nil {
		if !ih.Ok {
			return rd, &FieldError{Key: keyInfoHash, Want: "string", Err: ErrMissingField}
		}
		if len(ih.Value) != len(rd.InfoHash) {
			return rd, &FieldError{Key: keyInfoHash, Want: "20 byte string", Err: ErrOutOfRange}
		}
		copy(rd.InfoHash[:], ih.Value)
	}
	rd.BlocksPerPiece = r.integer(keyBlocksPerPiece)
	if !rd.BlocksPerPiece.Ok {
		rd.BlocksPerPiece = r.integer(keyBlocksPerPieceAlt)
		rd.hyphenatedBlocksPerPiece = rd.BlocksPerPiece.Ok
	}
	rd.Pieces = r.bytes(keyPieces)
	rd.PiecePriority = r.bytes(keyPiecePriority)
	rd.FilePriority = r.byteInts(keyFilePriority)

	rd.TotalUploaded = r.integer(keyTotalUploaded)
	rd.TotalDownloaded = r.integer(keyTotalDownloaded)
	rd.ActiveTime = r.integer(keyActiveTime)
	rd.SeedingTime = r.integer(keySeedingTime)
	rd.FinishedTime = r.integer(keyFinishedTime)
	rd.AddedTime = r.integer(keyAddedTime)
	rd.CompletedTime = r.integer(keyCompletedTime)
	rd.LastScrape = r.integer(keyLastScrape)
	rd.LastDownload = r.integer(keyLastDownload)
	rd.LastUpload = r.integer(keyLastUpload)
	rd.NumSeeds = r.integer(keyNumSeeds)
	rd.NumDownloaders = r.integer(keyNumDownloaders)

	rd.UploadRateLimit = r.integer(keyUploadRateLimit)
	rd.DownloadRateLimit = r.integer(keyDownloadRateLimit)
	rd.MaxConnections = r.integer(keyMaxConnections)
	rd.MaxUploads = r.integer(keyMaxUploads)

	rd.SeedMode = r.boolean(keySeedMode)
	rd.SuperSeeding = r.boolean(keySuperSeeding)
	rd.AutoManaged = r.boolean(keyAutoManaged)
	rd.SequentialDownload = r.boolean(keySequentialDownload)
	rd.Paused = r.boolean(keyPaused)

	rd.Trackers = r.tiers(keyTrackers)
	rd.URLList = r.strs(keyURLList)
	rd.HTTPSeeds = r.strs(keyHTTPSeeds)
	rd.SavePath = r.text(keySavePath)
	err = r.err
	return
}

// Reads typed values out of a dict, keeping the first error so call sites stay flat.
type dictReader struct {
	d   dict
	err error
}

func (r *dictReader) fail(key, want string, err error) {
	if r.err == nil {
		r.err = &FieldError{Key: key, Want: want, Err: err}
	}
}

func (r *dictReader) lookup(key string) (interface{}, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.d[key]
	return v, ok
}

func (r *dictReader) integer(key string) (ret g.Option[int64]) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	i, ok := v.(int64)
	if !ok {
		r.fail(key, "integer", ErrWrongType)
		return
	}
	return g.Some(i)
}

func (r *dictReader) requiredInt(key string) int64 {
	ret := r.integer(key)
	if r.err == nil && !ret.Ok {
		r.fail(key, "integer", ErrMissingField)
	}
	return ret.Value
}

func (r *dictReader) boolean(key string) (ret g.Option[bool]) {
	i := r.integer(key)
	if !i.Ok {
		return
	}
	return g.Some(i.Value != 0)
}

func (r *dictReader) text(key string) (ret g.Option[string]) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "string", ErrWrongType)
		return
	}
	return g.Some(s)
}

func (r *dictReader) bytes(key string) (ret g.Option[[]byte]) {
	s := r.text(key)
	if !s.Ok {
		return
	}
	return g.Some([]byte(s.Value))
}

func (r *dictReader) list(key string) (l []interface{}, ok bool) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	l, ok = v.([]interface{})
	if !ok {
		r.fail(key, "list", ErrWrongType)
	}
	return
}

// A list of integers that each fit in a byte.
func (r *dictReader) byteInts(key string) (ret g.Option[[]int64]) {
	l, ok := r.list(key)
	if !ok {
		return
	}
	ints := make([]int64, 0, len(l))
	for _, e := range l {
		i, ok := e.(int64)
		if !ok {
			r.fail(key, "list of integers", ErrWrongType)
			return
		}
		if i < 0 || i > math.MaxUint8 {
			r.fail(key, "list of integers in 0-255", ErrOutOfRange)
			return
		}
		ints = append(ints, i)
	}
	return g.Some(ints)
}

func (r *dictReader) strs(key string) (ret g.Option[[]string]) {
	l, ok := r.list(key)
	if !ok {
		return
	}
	ss, ok := stringList(l)
	if !ok {
		r.fail(key, "list of strings", ErrWrongType)
		return
	}
	return g.Some(ss)
}

func (r *dictReader) tiers(key string) (ret g.Option[[][]string]) {
	l, ok := r.list(key)
	if !ok {
		return
	}
	tiers := make([][]string, 0, len(l))
	for _, e := range l {
		tl, ok := e.([]interface{})
		if !ok {
			r.fail(key, "list of lists of strings", ErrWrongType)
			return
		}
		tier, ok := stringList(tl)
		if !ok {
			r.fail(key, "list of lists of strings", ErrWrongType)
			return
		}
		tiers = append(tiers, tier)
	}
	return g.Some(tiers)
}

func stringList(l []interface{}) ([]string, bool) {
	ret := make([]string, 0, len(l))
	for _, e := range l {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		ret = append(ret, s)
	}
	return ret, true
}
