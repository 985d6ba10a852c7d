package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/pkg/errors"

	"github.com/anacrolix/fastresume"
	"github.com/anacrolix/fastresume/reconcile"
	"github.com/anacrolix/fastresume/types"
)

type CheckCmd struct {
	Torrent  string `arg:"required" help:"torrent file the resume data belongs to"`
	SavePath string `help:"caller save path"`
	Flags    string `help:"add flags, like override_resume_data|paused"`
	Resume   string `arg:"positional,required" help:"resume file, - for stdin"`
}

func check(cmd *CheckCmd) error {
	mi, err := metainfo.LoadFromFile(cmd.Torrent)
	if err != nil {
		return errors.Wrap(err, "loading torrent file")
	}
	p, err := fastresume.AddTorrentParamsFromMetaInfo(mi)
	if err != nil {
		return err
	}
	p.SavePath = cmd.SavePath
	if cmd.Flags != "" {
		var ok bool
		p.Flags, ok = types.ParseAddTorrentFlags(cmd.Flags)
		if !ok {
			return errors.Errorf("bad flags %q", cmd.Flags)
		}
	}
	p.ResumeData, err = readFile(cmd.Resume)
	if err != nil {
		return err
	}
	asm, err := fastresume.Assemble(p)
	if err != nil {
		return err
	}
	if asm.Rejected != nil {
		fmt.Fprintf(os.Stderr, "resume data rejected: %v\n", asm.Rejected)
	}
	for _, w := range asm.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	sources := make(map[string]string, reconcile.NumFieldClasses)
	for class, src := range asm.Config.Sources {
		sources[reconcile.FieldClass(class).String()] = src.String()
	}
	c := asm.Config
	b, _ := json.MarshalIndent(map[string]interface{}{
		"InfoHash":        asm.InfoHash.HexString(),
		"SavePath":        c.SavePath,
		"Trackers":        c.Trackers,
		"URLSeeds":        c.URLSeeds,
		"HTTPSeeds":       c.HTTPSeeds,
		"FilePriorities":  ints(c.FilePriorities),
		"PieceLevel":      c.PieceLevelPriorities,
		"MaxConnections":  c.MaxConnections,
		"MaxUploads":      c.MaxUploads,
		"UploadLimit":     c.UploadLimit,
		"DownloadLimit":   c.DownloadLimit,
		"Paused":          c.Paused,
		"AutoManaged":     c.AutoManaged,
		"SeedMode":        c.SeedMode,
		"ShareMode":       c.ShareMode,
		"UploadMode":      c.UploadMode,
		"PiecesComplete":  asm.Progress.Have.GetCardinality(),
		"TotalUploaded":   asm.Progress.TotalUploaded,
		"TotalDownloaded": asm.Progress.TotalDownloaded,
		"Sources":         sources,
	}, "", "  ")
	b = append(b, '\n')
	_, err = os.Stdout.Write(b)
	return err
}

// Priorities would otherwise be encoded as base64.
func ints(ps []types.Priority) []int {
	ret := make([]int, len(ps))
	for i, p := range ps {
		ret[i] = int(p)
	}
	return ret
}
