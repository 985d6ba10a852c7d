// Package reconcile decides, one field class at a time, whether the caller's add-time value or
// the value persisted in resume data wins. All the precedence rules live in the Policies table.
package reconcile

import (
	"fmt"

	g "github.com/anacrolix/generics"
	"github.com/anacrolix/missinggo/v2/panicif"

	"github.com/anacrolix/fastresume/types"
)

type FieldClass int

const (
	FilePriorities FieldClass = iota
	PiecePriorities
	SavePath
	MaxConnections
	MaxUploads
	UploadRateLimit
	DownloadRateLimit
	AutoManaged
	Paused
	SequentialDownload
	SeedMode
	SuperSeeding
	UploadMode
	ShareMode
	ApplyIPFilter
	Trackers
	URLSeeds
	HTTPSeeds

	NumFieldClasses = iota
)

var fieldClassNames = [NumFieldClasses]string{
	"file priorities",
	"piece priorities",
	"save path",
	"max connections",
	"max uploads",
	"upload rate limit",
	"download rate limit",
	"auto managed",
	"paused",
	"sequential download",
	"seed mode",
	"super seeding",
	"upload mode",
	"share mode",
	"apply ip filter",
	"trackers",
	"url seeds",
	"http seeds",
}

func (me FieldClass) String() string {
	if me < 0 || me >= NumFieldClasses {
		return fmt.Sprintf("FieldClass(%d)", int(me))
	}
	return fieldClassNames[me]
}

// Where a resolved value came from.
type Source int

const (
	// Neither side provided a value. The result is the zero value.
	SourceNone Source = iota
	SourceCaller
	SourcePersisted
	// Both sides contributed, caller entries first.
	SourceUnion
)

func (me Source) String() string {
	switch me {
	case SourceNone:
		return "none"
	case SourceCaller:
		return "caller"
	case SourcePersisted:
		return "persisted"
	case SourceUnion:
		return "union"
	}
	return fmt.Sprintf("Source(%d)", int(me))
}

func (me Source) other() Source {
	switch me {
	case SourceCaller:
		return SourcePersisted
	case SourcePersisted:
		return SourceCaller
	}
	panic(me)
}

// Precedence rule for a field class.
type Policy struct {
	// The side that wins when both provide a value.
	Default Source
	// The caller flag that hands the win to the other side. Zero for none.
	Flip types.AddTorrentFlags
	// A provided but empty value loses to a provided non-empty one, whichever side it's on.
	EmptyYields bool
	// Both sides are concatenated, caller first, duplicates kept.
	Union bool
}

var Policies = map[FieldClass]Policy{
	FilePriorities:  {Default: SourcePersisted, Flip: types.FlagOverrideResumeData, EmptyYields: true},
	PiecePriorities: {Default: SourcePersisted, Flip: types.FlagOverrideResumeData, EmptyYields: true},

	SavePath: {Default: SourceCaller, Flip: types.FlagUseResumeSavePath},

	MaxConnections:    {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},
	MaxUploads:        {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},
	UploadRateLimit:   {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},
	DownloadRateLimit: {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},

	AutoManaged:        {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},
	Paused:             {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},
	SequentialDownload: {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},
	SeedMode:           {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},
	SuperSeeding:       {Default: SourcePersisted, Flip: types.FlagOverrideResumeData},

	// Resume data has no opinion on these.
	UploadMode:    {Default: SourceCaller},
	ShareMode:     {Default: SourceCaller},
	ApplyIPFilter: {Default: SourceCaller},

	Trackers:  {Union: true},
	URLSeeds:  {Union: true},
	HTTPSeeds: {Union: true},
}

func policy(class FieldClass) Policy {
	p, ok := Policies[class]
	panicif.False(ok)
	return p
}

// The side that wins when both sides provide a non-empty value.
func (me Policy) Winner(flags types.AddTorrentFlags) Source {
	if me.Flip != 0 && flags.Has(me.Flip) {
		return me.Default.other()
	}
	return me.Default
}

// A value offered by one side. None means the side has no value at all, which is distinct from a
// provided value that happens to be empty.
type Input[T any] struct {
	g.Option[T]
	Empty bool
}

func Provided[T any](v T) Input[T] {
	return Input[T]{Option: g.Some(v)}
}

// A provided slice, marked empty if it has no elements.
func ProvidedSlice[E any](s []E) Input[[]E] {
	return Input[[]E]{Option: g.Some(s), Empty: len(s) == 0}
}

func NotProvided[T any]() Input[T] {
	return Input[T]{}
}

// Converts an option to an input, treating None as not provided.
func FromOption[T any](o g.Option[T]) Input[T] {
	return Input[T]{Option: o}
}

// Like FromOption, additionally marking empty slices.
func FromSliceOption[E any](o g.Option[[]E]) Input[[]E] {
	return Input[[]E]{Option: o, Empty: o.Ok && len(o.Value) == 0}
}

// Picks the winning value for a non-union field class. It never fails: with nothing provided it
// returns the zero value and SourceNone.
func Resolve[T any](class FieldClass, caller, persisted Input[T], flags types.AddTorrentFlags) (_ T, _ Source) {
	p := policy(class)
	panicif.True(p.Union)
	side := func(s Source) Input[T] {
		if s == SourceCaller {
			return caller
		}
		return persisted
	}
	first := p.Winner(flags)
	second := first.other()
	w, l := side(first), side(second)
	switch {
	case !w.Ok && !l.Ok:
		return
	case !w.Ok:
		return l.Value, second
	case p.EmptyYields && w.Empty && l.Ok && !l.Empty:
		return l.Value, second
	}
	return w.Value, first
}

// Resolve for slice-valued classes. Union classes concatenate caller entries then persisted
// entries.
func ResolveList[E any](class FieldClass, caller, persisted Input[[]E], flags types.AddTorrentFlags) ([]E, Source) {
	p := policy(class)
	if !p.Union {
		return Resolve(class, caller, persisted, flags)
	}
	switch {
	case caller.Ok && persisted.Ok:
		ret := make([]E, 0, len(caller.Value)+len(persisted.Value))
		ret = append(ret, caller.Value...)
		return append(ret, persisted.Value...), SourceUnion
	case caller.Ok:
		return caller.Value, SourceCaller
	case persisted.Ok:
		return persisted.Value, SourcePersisted
	}
	return nil, SourceNone
}
