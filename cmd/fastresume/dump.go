package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	g "github.com/anacrolix/generics"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/anacrolix/fastresume/resumedata"
)

type DumpCmd struct {
	Spew  bool     `help:"dump the decoded structure instead of a summary"`
	Files []string `arity:"+" arg:"positional" help:"resume files, - for stdin"`
}

func readFile(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func dump(cmd *DumpCmd) error {
	for _, name := range cmd.Files {
		b, err := readFile(name)
		if err != nil {
			return err
		}
		rd, err := resumedata.Unmarshal(b)
		if err != nil {
			return errors.Wrapf(err, "decoding %q", name)
		}
		if cmd.Spew {
			spew.Dump(rd)
			continue
		}
		writeSummary(os.Stdout, name, rd)
	}
	return nil
}

func ago(secs g.Option[int64]) string {
	if !secs.Ok || secs.Value < 0 {
		return "never"
	}
	return humanize.Time(time.Now().Add(-time.Duration(secs.Value) * time.Second))
}

func writeSummary(w io.Writer, name string, rd resumedata.ResumeData) {
	fmt.Fprintf(w, "%s: %v\n", name, rd.InfoHash)
	fmt.Fprintf(w, "  save path: %q\n", rd.SavePath.Value)
	var have int
	for _, b := range rd.Pieces.Value {
		if b != 0 {
			have++
		}
	}
	fmt.Fprintf(w, "  pieces: %d/%d (%d blocks per piece)\n", have, len(rd.Pieces.Value), rd.BlocksPerPiece.Value)
	switch {
	case rd.FilePriority.Ok:
		fmt.Fprintf(w, "  file priorities: %v\n", rd.FilePriority.Value)
	case rd.PiecePriority.Ok:
		fmt.Fprintf(w, "  piece priorities: %v\n", []byte(rd.PiecePriority.Value))
	}
	fmt.Fprintf(w, "  uploaded %s, downloaded %s\n",
		humanize.Bytes(uint64(max(0, rd.TotalUploaded.Value))),
		humanize.Bytes(uint64(max(0, rd.TotalDownloaded.Value))))
	fmt.Fprintf(w, "  active %v, seeding %v, finished %v\n",
		time.Duration(rd.ActiveTime.Value)*time.Second,
		time.Duration(rd.SeedingTime.Value)*time.Second,
		time.Duration(rd.FinishedTime.Value)*time.Second)
	fmt.Fprintf(w, "  added %s, completed %s, last scrape %s\n",
		ago(rd.AddedTime), ago(rd.CompletedTime), ago(rd.LastScrape))
	fmt.Fprintf(w, "  last download %s, last upload %s\n", ago(rd.LastDownload), ago(rd.LastUpload))
	fmt.Fprintf(w, "  rate limits: up %s, down %s\n", rate(rd.UploadRateLimit), rate(rd.DownloadRateLimit))
	fmt.Fprintf(w, "  max connections %d, max uploads %d\n", rd.MaxConnections.Value, rd.MaxUploads.Value)
	for i, tier := range rd.Trackers.Value {
		fmt.Fprintf(w, "  tracker tier %d: %s\n", i, strings.Join(tier, " "))
	}
	for _, u := range rd.URLList.Value {
		fmt.Fprintf(w, "  web seed: %s\n", u)
	}
	for _, u := range rd.HTTPSeeds.Value {
		fmt.Fprintf(w, "  http seed: %s\n", u)
	}
	if err := rd.Validate(); err != nil {
		fmt.Fprintf(w, "  warning: %v\n", err)
	}
}

func rate(o g.Option[int64]) string {
	if !o.Ok || o.Value <= 0 {
		return "unlimited"
	}
	return humanize.Bytes(uint64(o.Value)) + "/s"
}
