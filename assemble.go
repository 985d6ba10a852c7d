package fastresume

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring"
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/torrent/metainfo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/anacrolix/fastresume/reconcile"
	"github.com/anacrolix/fastresume/resumedata"
	"github.com/anacrolix/fastresume/types"
)

// The resolved configuration a torrent starts with. Runtime commands may change some of it later.
type TorrentConfig struct {
	SavePath  string
	Trackers  [][]string
	URLSeeds  []string
	HTTPSeeds []string
	// One per file.
	FilePriorities []types.Priority
	// One per piece.
	PiecePriorities []types.Priority
	// Piece priorities came from resume data rather than from file priorities. Saves then persist
	// piece priorities instead of file priorities.
	PieceLevelPriorities bool

	// -1 is unlimited.
	MaxConnections int
	MaxUploads     int
	UploadLimit    int
	DownloadLimit  int

	AutoManaged        bool
	Paused             bool
	SequentialDownload bool
	SeedMode           bool
	SuperSeeding       bool
	ShareMode          bool
	UploadMode         bool
	IPFilterApplies    bool

	// The side that won each field class.
	Sources [reconcile.NumFieldClasses]reconcile.Source
}

// Progress carried over from resume data.
type Progress struct {
	TotalUploaded   int64
	TotalDownloaded int64
	ActiveTime      time.Duration
	SeedingTime     time.Duration
	FinishedTime    time.Duration
	NumSeeds        int
	NumDownloaders  int
	// Ages of events when the resume data was written. None if the event never happened.
	Added        g.Option[time.Duration]
	Completed    g.Option[time.Duration]
	LastScrape   g.Option[time.Duration]
	LastDownload g.Option[time.Duration]
	LastUpload   g.Option[time.Duration]
	// Pieces known to be complete.
	Have *roaring.Bitmap
}

type Assembly struct {
	InfoHash metainfo.Hash
	Config   TorrentConfig
	Progress Progress
	// Why resume data was supplied but not applied. The configuration then comes from the
	// caller alone.
	Rejected error
	// Problems with the inputs that were worked around.
	Warnings []error
}

func (me *Assembly) warn(err error) {
	me.Warnings = append(me.Warnings, err)
}

// Decodes p.ResumeData if any, and resolves every field class between it and p. It only fails if
// p has no Metadata. Unusable resume data is reported in Assembly.Rejected.
func Assemble(p AddTorrentParams) (Assembly, error) {
	return assemble(context.Background(), p)
}

func assemble(ctx context.Context, p AddTorrentParams) (ret Assembly, err error) {
	if p.Metadata == nil {
		err = ErrNilMetadata
		return
	}
	md := p.Metadata
	ret.InfoHash = md.InfoHash()
	_, span := tracer.Start(ctx, "assemble torrent config",
		trace.WithAttributes(attribute.String("infohash", ret.InfoHash.HexString())))
	defer span.End()

	var rd g.Option[resumedata.ResumeData]
	if p.ResumeData != nil {
		rd = ret.decodeResumeData(p.ResumeData, md, p.Flags)
	}
	if ret.Rejected != nil {
		span.RecordError(ret.Rejected)
	}
	a := assembler{
		Assembly: &ret,
		p:        p,
		md:       md,
		rd:       rd.Value,
		flags:    p.Flags,
	}
	a.resolveLocations()
	a.resolvePriorities()
	a.resolveLimits()
	a.resolveModes()
	if p.Flags.Has(types.FlagShareMode) {
		// Share mode never downloads for ourselves.
		clear(ret.Config.FilePriorities)
		clear(ret.Config.PiecePriorities)
	}
	a.seedProgress(rd.Ok)
	return
}

// Returns the resume data if it can be applied, otherwise sets Rejected.
func (me *Assembly) decodeResumeData(b []byte, md Metadata, flags types.AddTorrentFlags) (ret g.Option[resumedata.ResumeData]) {
	rd, err := resumedata.Unmarshal(b)
	if err != nil {
		me.Rejected = fmt.Errorf("decoding resume data: %w", err)
		return
	}
	if rd.InfoHash != md.InfoHash() {
		err = fmt.Errorf("%w: resume data has %v, torrent is %v", ErrInfoHashMismatch, rd.InfoHash, md.InfoHash())
		if !flags.Has(types.FlagIgnoreResumeMismatch) {
			me.Rejected = err
			return
		}
		me.warn(err)
	}
	if err := rd.Validate(); err != nil {
		// File priorities win.
		me.warn(fmt.Errorf("dropping piece priorities: %w", err))
		rd.PiecePriority = g.None[[]byte]()
	}
	return g.Some(rd)
}

type assembler struct {
	*Assembly
	p     AddTorrentParams
	md    Metadata
	rd    resumedata.ResumeData
	flags types.AddTorrentFlags
}

func (a *assembler) setSource(class reconcile.FieldClass, src reconcile.Source) {
	a.Config.Sources[class] = src
}

func (a *assembler) resolveLocations() {
	c := &a.Config
	// An empty save path is no preference.
	callerPath := reconcile.NotProvided[string]()
	if a.p.SavePath != "" {
		callerPath = reconcile.Provided(a.p.SavePath)
	}
	var src reconcile.Source
	c.SavePath, src = reconcile.Resolve(
		reconcile.SavePath,
		callerPath,
		reconcile.FromOption(a.rd.SavePath),
		a.flags)
	a.setSource(reconcile.SavePath, src)

	c.Trackers, src = reconcile.ResolveList(
		reconcile.Trackers,
		reconcile.ProvidedSlice(a.p.Trackers),
		reconcile.FromSliceOption(a.rd.Trackers),
		a.flags)
	a.setSource(reconcile.Trackers, src)

	for _, l := range []struct {
		class     reconcile.FieldClass
		caller    []string
		persisted g.Option[[]string]
		out       *[]string
	}{
		{reconcile.URLSeeds, a.p.URLSeeds, a.rd.URLList, &c.URLSeeds},
		{reconcile.HTTPSeeds, a.p.HTTPSeeds, a.rd.HTTPSeeds, &c.HTTPSeeds},
	} {
		*l.out, src = reconcile.ResolveList(
			l.class,
			reconcile.ProvidedSlice(l.caller),
			reconcile.FromSliceOption(l.persisted),
			a.flags)
		a.setSource(l.class, src)
	}
}

func (a *assembler) resolvePriorities() {
	c := &a.Config
	numFiles := a.md.NumFiles()
	numPieces := a.md.NumPieces()

	var persistedFiles g.Option[[]types.Priority]
	if a.rd.FilePriority.Ok {
		persistedFiles.Set(a.clampValues(reconcile.FilePriorities, toPriorities(a.rd.FilePriority.Value)))
	}
	callerFiles := a.clampValues(reconcile.FilePriorities, a.p.FilePriorities)
	files, src := reconcile.ResolveList(
		reconcile.FilePriorities,
		reconcile.ProvidedSlice(callerFiles),
		reconcile.FromSliceOption(persistedFiles),
		a.flags)
	if len(files) != 0 {
		c.FilePriorities = a.fitLength(reconcile.FilePriorities, src, files, numFiles)
		a.setSource(reconcile.FilePriorities, src)
		c.PiecePriorities = piecePrioritiesFromFiles(a.md, c.FilePriorities)
		return
	}

	var persistedPieces g.Option[[]types.Priority]
	if a.rd.PiecePriority.Ok {
		persistedPieces.Set(a.clampValues(reconcile.PiecePriorities, toPriorities(a.rd.PiecePriority.Value)))
	}
	// Callers can only express file priorities.
	pieces, src := reconcile.ResolveList(
		reconcile.PiecePriorities,
		reconcile.NotProvided[[]types.Priority](),
		reconcile.FromSliceOption(persistedPieces),
		a.flags)
	if len(pieces) != 0 {
		c.PiecePriorities = a.fitLength(reconcile.PiecePriorities, src, pieces, numPieces)
		c.PieceLevelPriorities = true
		a.setSource(reconcile.PiecePriorities, src)
		c.FilePriorities = filePrioritiesFromPieces(a.md, c.PiecePriorities)
		return
	}

	c.FilePriorities = types.Priorities(numFiles, types.PriorityNormal)
	c.PiecePriorities = types.Priorities(numPieces, types.PriorityNormal)
}

// Converts persisted priority integers.
func toPriorities[T int64 | byte](in []T) []types.Priority {
	ret := make([]types.Priority, len(in))
	for i, p := range in {
		ret[i] = types.Priority(p)
	}
	return ret
}

// Clamps priorities above the top priority, warning for each.
func (a *assembler) clampValues(class reconcile.FieldClass, ps []types.Priority) []types.Priority {
	var ret []types.Priority
	for i, p := range ps {
		if p <= types.PriorityTop {
			continue
		}
		if ret == nil {
			ret = append([]types.Priority(nil), ps...)
		}
		a.warn(fmt.Errorf("%v entry %d: %w: %d", class, i, ErrPriorityOutOfRange, p))
		ret[i] = types.PriorityTop
	}
	if ret == nil {
		return ps
	}
	return ret
}

// Truncates or pads ps to want entries, warning if it had to.
func (a *assembler) fitLength(class reconcile.FieldClass, src reconcile.Source, ps []types.Priority, want int) []types.Priority {
	if len(ps) == want {
		return append([]types.Priority(nil), ps...)
	}
	a.warn(&PriorityLengthError{
		Class:  class,
		Source: src,
		Got:    len(ps),
		Want:   want,
	})
	ret := types.Priorities(want, types.PriorityNormal)
	copy(ret, ps)
	return ret
}

// A piece gets the highest priority of the files it overlaps.
func piecePrioritiesFromFiles(md Metadata, files []types.Priority) []types.Priority {
	ret := make([]types.Priority, md.NumPieces())
	for i, fp := range files {
		begin, end := md.FilePieces(i)
		for j := begin; j < end; j++ {
			ret[j].Raise(fp)
		}
	}
	return ret
}

// A file gets the highest priority of its pieces. Files with no pieces are normal.
func filePrioritiesFromPieces(md Metadata, pieces []types.Priority) []types.Priority {
	ret := make([]types.Priority, md.NumFiles())
	for i := range ret {
		begin, end := md.FilePieces(i)
		if begin == end {
			ret[i] = types.PriorityNormal
			continue
		}
		for j := begin; j < end; j++ {
			ret[i].Raise(pieces[j])
		}
	}
	return ret
}

func (a *assembler) resolveLimits() {
	c := &a.Config
	for _, l := range []struct {
		class     reconcile.FieldClass
		caller    int
		persisted g.Option[int64]
		out       *int
	}{
		{reconcile.MaxConnections, a.p.MaxConnections, a.rd.MaxConnections, &c.MaxConnections},
		{reconcile.MaxUploads, a.p.MaxUploads, a.rd.MaxUploads, &c.MaxUploads},
		{reconcile.UploadRateLimit, a.p.UploadLimit, a.rd.UploadRateLimit, &c.UploadLimit},
		{reconcile.DownloadRateLimit, a.p.DownloadLimit, a.rd.DownloadRateLimit, &c.DownloadLimit},
	} {
		persisted := reconcile.NotProvided[int]()
		if l.persisted.Ok {
			persisted = reconcile.Provided(int(l.persisted.Value))
		}
		var src reconcile.Source
		*l.out, src = reconcile.Resolve(l.class, reconcile.Provided(l.caller), persisted, a.flags)
		a.setSource(l.class, src)
	}
}

func (a *assembler) resolveModes() {
	c := &a.Config
	for _, m := range []struct {
		class     reconcile.FieldClass
		flag      types.AddTorrentFlags
		persisted g.Option[bool]
		out       *bool
	}{
		{reconcile.AutoManaged, types.FlagAutoManaged, a.rd.AutoManaged, &c.AutoManaged},
		{reconcile.Paused, types.FlagPaused, a.rd.Paused, &c.Paused},
		{reconcile.SequentialDownload, types.FlagSequentialDownload, a.rd.SequentialDownload, &c.SequentialDownload},
		{reconcile.SeedMode, types.FlagSeedMode, a.rd.SeedMode, &c.SeedMode},
		{reconcile.SuperSeeding, types.FlagSuperSeeding, a.rd.SuperSeeding, &c.SuperSeeding},
		{reconcile.UploadMode, types.FlagUploadMode, g.None[bool](), &c.UploadMode},
		{reconcile.ShareMode, types.FlagShareMode, g.None[bool](), &c.ShareMode},
		{reconcile.ApplyIPFilter, types.FlagApplyIPFilter, g.None[bool](), &c.IPFilterApplies},
	} {
		var src reconcile.Source
		*m.out, src = reconcile.Resolve(
			m.class,
			reconcile.Provided(a.flags.Has(m.flag)),
			reconcile.FromOption(m.persisted),
			a.flags)
		a.setSource(m.class, src)
	}
}

func seconds(i int64) time.Duration {
	return time.Duration(i) * time.Second
}

// Negative ages mean the event never happened.
func age(o g.Option[int64]) g.Option[time.Duration] {
	if !o.Ok || o.Value < 0 {
		return g.None[time.Duration]()
	}
	return g.Some(seconds(o.Value))
}

func (a *assembler) seedProgress(applied bool) {
	pr := &a.Progress
	numPieces := a.md.NumPieces()
	pr.Have = roaring.New()
	// A torrent without resume data was added now.
	pr.Added = g.Some[time.Duration](0)
	if applied {
		rd := &a.rd
		pr.TotalUploaded = rd.TotalUploaded.Value
		pr.TotalDownloaded = rd.TotalDownloaded.Value
		pr.ActiveTime = seconds(rd.ActiveTime.Value)
		pr.SeedingTime = seconds(rd.SeedingTime.Value)
		pr.FinishedTime = seconds(rd.FinishedTime.Value)
		pr.NumSeeds = int(rd.NumSeeds.Value)
		pr.NumDownloaders = int(rd.NumDownloaders.Value)
		if rd.AddedTime.Ok {
			pr.Added = age(rd.AddedTime)
		}
		pr.Completed = age(rd.CompletedTime)
		pr.LastScrape = age(rd.LastScrape)
		pr.LastDownload = age(rd.LastDownload)
		pr.LastUpload = age(rd.LastUpload)
		a.seedPieces(numPieces)
	}
	if a.Config.SeedMode {
		pr.Have.AddRange(0, uint64(numPieces))
	}
}

func (a *assembler) seedPieces(numPieces int) {
	rd := &a.rd
	if !rd.Pieces.Ok {
		return
	}
	if bpp := rd.BlocksPerPiece; bpp.Ok && bpp.Value != int64(a.md.BlocksPerPiece()) {
		a.warn(fmt.Errorf(
			"discarding piece bitmap: resume data has %d blocks per piece, torrent has %d",
			bpp.Value, a.md.BlocksPerPiece()))
		return
	}
	pieces := rd.Pieces.Value
	if len(pieces) != numPieces {
		a.warn(fmt.Errorf("piece bitmap has %d entries, torrent has %d pieces", len(pieces), numPieces))
	}
	for i, b := range pieces[:min(len(pieces), numPieces)] {
		if b != 0 {
			a.Progress.Have.Add(uint32(i))
		}
	}
}
