package types

import (
	"math/bits"
	"strings"
)

// Caller-side bits that control how a torrent is added and how its parameters are reconciled
// with resume data.
type AddTorrentFlags uint32

const (
	// Caller values win over resume data for limits, mode flags and non-empty priority vectors.
	FlagOverrideResumeData AddTorrentFlags = 1 << iota
	// The save path from resume data wins over AddTorrentParams.SavePath.
	FlagUseResumeSavePath
	// Assume all pieces are present without checking them.
	FlagSeedMode
	// Only upload, never download for ourselves. Forces every priority to zero.
	FlagShareMode
	// Don't download pieces. Typically set after disk errors.
	FlagUploadMode
	FlagAutoManaged
	FlagPaused
	FlagSequentialDownload
	FlagSuperSeeding
	// Peers of this torrent are subject to the session IP filter.
	FlagApplyIPFilter
	// Apply resume data even when its info-hash doesn't match the torrent.
	FlagIgnoreResumeMismatch

	numFlags = iota
)

var flagNames = [numFlags]string{
	"override_resume_data",
	"use_resume_save_path",
	"seed_mode",
	"share_mode",
	"upload_mode",
	"auto_managed",
	"paused",
	"sequential_download",
	"super_seeding",
	"apply_ip_filter",
	"ignore_resume_mismatch",
}

func (me AddTorrentFlags) Has(f AddTorrentFlags) bool {
	return me&f == f
}

func (me *AddTorrentFlags) Set(f AddTorrentFlags, on bool) {
	if on {
		*me |= f
	} else {
		*me &^= f
	}
}

func (me AddTorrentFlags) String() string {
	if me == 0 {
		return "0"
	}
	var names []string
	for rem := me; rem != 0; {
		i := bits.TrailingZeros32(uint32(rem))
		rem &^= 1 << i
		if i < numFlags {
			names = append(names, flagNames[i])
		} else {
			names = append(names, "unknown")
		}
	}
	return strings.Join(names, "|")
}

// Parses a "|" separated list of flag names as produced by String.
func ParseAddTorrentFlags(s string) (ret AddTorrentFlags, ok bool) {
	if s == "" || s == "0" {
		return 0, true
	}
	for _, name := range strings.Split(s, "|") {
		found := false
		for i, fn := range flagNames {
			if fn == strings.TrimSpace(name) {
				ret |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return ret, false
		}
	}
	return ret, true
}
