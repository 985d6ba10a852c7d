package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/anacrolix/fastresume/resumedata"
	"github.com/anacrolix/fastresume/storage"
)

// Selects a store on the local filesystem.
type StoreArgs struct {
	Dir  string `help:"directory of .fastresume files"`
	Bolt string `help:"directory containing a bolt resume database"`
}

func (me StoreArgs) open() (storage.ResumeStoreLister, error) {
	switch {
	case me.Dir != "" && me.Bolt != "":
		return nil, errors.New("specify only one store")
	case me.Dir != "":
		return storage.NewFileResumeStore(me.Dir)
	case me.Bolt != "":
		return storage.NewBoltResumeStore(me.Bolt)
	}
	return nil, errors.New("no store specified")
}

type ListCmd struct {
	StoreArgs
	Check bool `help:"decode each blob and report problems"`
}

func list(cmd *ListCmd) error {
	s, err := cmd.open()
	if err != nil {
		return err
	}
	defer s.Close()
	ihs, err := s.List()
	if err != nil {
		return err
	}
	for _, ih := range ihs {
		if !cmd.Check {
			fmt.Println(ih.HexString())
			continue
		}
		b, err := s.Get(ih)
		if err == nil {
			var rd resumedata.ResumeData
			rd, err = resumedata.Unmarshal(b)
			if err == nil && rd.InfoHash != ih {
				err = fmt.Errorf("stored under the wrong info-hash, has %v", rd.InfoHash)
			}
			if err == nil {
				err = rd.Validate()
			}
		}
		if err != nil {
			fmt.Printf("%v: %v\n", ih.HexString(), err)
		} else {
			fmt.Printf("%v: ok\n", ih.HexString())
		}
	}
	return nil
}

type MigrateCmd struct {
	FromDir  string `help:"source directory of .fastresume files"`
	FromBolt string `help:"source bolt database directory"`
	ToDir    string `help:"destination directory of .fastresume files"`
	ToBolt   string `help:"destination bolt database directory"`
	// Blobs that don't decode are skipped unless this is set.
	Force bool `help:"copy blobs that don't decode"`
}

func migrate(cmd *MigrateCmd) (err error) {
	from, err := StoreArgs{Dir: cmd.FromDir, Bolt: cmd.FromBolt}.open()
	if err != nil {
		return errors.Wrap(err, "opening source")
	}
	defer from.Close()
	to, err := StoreArgs{Dir: cmd.ToDir, Bolt: cmd.ToBolt}.open()
	if err != nil {
		return errors.Wrap(err, "opening destination")
	}
	defer func() {
		closeErr := to.Close()
		if err == nil {
			err = closeErr
		}
	}()
	ihs, err := from.List()
	if err != nil {
		return err
	}
	var copied int
	for _, ih := range ihs {
		b, err := from.Get(ih)
		if err != nil {
			return errors.Wrapf(err, "reading %v", ih)
		}
		if _, decodeErr := resumedata.Unmarshal(b); decodeErr != nil && !cmd.Force {
			logger.Printf("skipping %v: %v", ih, decodeErr)
			continue
		}
		if err := to.Put(ih, b); err != nil {
			return errors.Wrapf(err, "writing %v", ih)
		}
		copied++
	}
	logger.Printf("copied %d of %d blobs", copied, len(ihs))
	return nil
}
