package fastresume

import (
	"time"

	"github.com/anacrolix/log"

	"github.com/anacrolix/fastresume/storage"
)

// Configuration for a Session. Use NewDefaultSessionConfig and then modify fields.
type SessionConfig struct {
	// Successful saves are written here, and it's consulted for torrents added without resume
	// data. It's closed with the Session. Optional.
	Store storage.ResumeStore
	// Used for torrents added with an empty save path.
	DefaultSavePath string `help:"save path for torrents added without one"`
	// Periodically saves torrents whose state changed since their last save. Zero disables.
	AutoSaveInterval time.Duration `help:"interval between automatic resume data saves"`
	// Log at debug level.
	Debug  bool `help:"enable debugging"`
	Logger log.Logger
}

func NewDefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		AutoSaveInterval: 5 * time.Minute,
		Logger:           log.Default,
	}
}
