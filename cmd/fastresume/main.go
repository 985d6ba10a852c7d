// Inspects, checks and migrates resume data from the command-line.
//
// Example run:
// $ go run ./cmd/fastresume check --torrent ubuntu.torrent --flags override_resume_data ubuntu.fastresume
package main

import (
	"fmt"
	stdLog "log"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/anacrolix/envpprof"
	"github.com/anacrolix/log"
)

var flags struct {
	Debug bool `help:"log at debug level"`

	*DumpCmd    `arg:"subcommand:dump" help:"print the contents of resume files"`
	*CheckCmd   `arg:"subcommand:check" help:"reconcile resume data with a torrent file"`
	*ListCmd    `arg:"subcommand:list" help:"list the torrents in a resume store"`
	*MigrateCmd `arg:"subcommand:migrate" help:"copy resume data between stores"`
}

var logger = log.Default.WithNames("fastresume")

func main() {
	defer envpprof.Stop()
	if err := mainErr(); err != nil {
		logger.Levelf(log.Error, "error in main: %v", err)
		os.Exit(1)
	}
}

func mainErr() error {
	stdLog.SetFlags(stdLog.Flags() | stdLog.Lshortfile)
	p := arg.MustParse(&flags)
	if flags.Debug {
		logger = logger.FilterLevel(log.Debug)
	}
	switch {
	case flags.DumpCmd != nil:
		return dump(flags.DumpCmd)
	case flags.CheckCmd != nil:
		return check(flags.CheckCmd)
	case flags.ListCmd != nil:
		return list(flags.ListCmd)
	case flags.MigrateCmd != nil:
		return migrate(flags.MigrateCmd)
	default:
		p.Fail(fmt.Sprintf("unexpected subcommand: %v", p.Subcommand()))
		panic("unreachable")
	}
}
