package main

import (
	"encoding/json"
	"io"
	"log"
	"os"

	"github.com/anacrolix/tagflag"

	"github.com/anacrolix/fastresume/resumedata"
)

var flags struct {
	JustInfoHash bool
	Pieces       bool
	Priorities   bool
	tagflag.StartPos
}

func processReader(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	rd, err := resumedata.Unmarshal(b)
	if err != nil {
		return err
	}
	if flags.JustInfoHash {
		_, err = os.Stdout.WriteString(rd.InfoHash.HexString())
		return err
	}
	d := map[string]interface{}{
		"InfoHash":        rd.InfoHash.HexString(),
		"FileVersion":     rd.FileVersion,
		"SavePath":        rd.SavePath.Value,
		"TotalUploaded":   rd.TotalUploaded.Value,
		"TotalDownloaded": rd.TotalDownloaded.Value,
		"ActiveTime":      rd.ActiveTime.Value,
		"SeedingTime":     rd.SeedingTime.Value,
		"FinishedTime":    rd.FinishedTime.Value,
		"AddedTime":       rd.AddedTime.Value,
		"CompletedTime":   rd.CompletedTime.Value,
		"Paused":          rd.Paused.Value,
		"AutoManaged":     rd.AutoManaged.Value,
		"Trackers":        rd.Trackers.Value,
		"UrlList":         rd.URLList.Value,
		"HttpSeeds":       rd.HTTPSeeds.Value,
	}
	if flags.Pieces {
		d["Pieces"] = bitString(rd.Pieces.Value)
	}
	if flags.Priorities {
		if rd.FilePriority.Ok {
			d["FilePriority"] = rd.FilePriority.Value
		}
		if rd.PiecePriority.Ok {
			d["PiecePriority"] = digitString(rd.PiecePriority.Value)
		}
	}
	b, _ = json.MarshalIndent(d, "", "  ")
	_, err = os.Stdout.Write(b)
	return err
}

// One character per piece, '1' if it's complete.
func bitString(pieces []byte) string {
	ret := make([]byte, len(pieces))
	for i, p := range pieces {
		ret[i] = '0'
		if p != 0 {
			ret[i] = '1'
		}
	}
	return string(ret)
}

func digitString(prios []byte) string {
	ret := make([]byte, len(prios))
	for i, p := range prios {
		ret[i] = '0' + min(p, 9)
	}
	return string(ret)
}

func main() {
	tagflag.Parse(&flags)
	err := processReader(os.Stdin)
	if err != nil {
		log.Fatal(err)
	}
	os.Stdout.WriteString("\n")
}
