package fastresume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anacrolix/chansync"
	"github.com/anacrolix/log"
	"github.com/anacrolix/sync"
	"github.com/anacrolix/torrent/metainfo"
	list "github.com/bahlo/generic-list-go"
	"golang.org/x/sync/errgroup"

	"github.com/anacrolix/fastresume/alert"
	"github.com/anacrolix/fastresume/storage"
)

// Holds torrents, saves their resume data, and delivers alerts about them.
type Session struct {
	config *SessionConfig
	logger log.Logger
	store  storage.ResumeStore
	alerts alert.Queue

	mu       sync.RWMutex
	torrents map[metainfo.Hash]*Torrent

	// Torrents with a pending capture, in request order.
	saveMu      sync.Mutex
	saveQueue   list.List[*Torrent]
	saverExited bool
	saveQueued  chansync.BroadcastCond

	closed chansync.SetOnce
	wg     sync.WaitGroup
}

// Starts a session. A nil config uses NewDefaultSessionConfig.
func NewSession(cfg *SessionConfig) *Session {
	if cfg == nil {
		cfg = NewDefaultSessionConfig()
	}
	s := &Session{
		config:   cfg,
		logger:   cfg.Logger.WithNames("fastresume"),
		store:    cfg.Store,
		torrents: make(map[metainfo.Hash]*Torrent),
	}
	if cfg.Debug {
		s.logger = s.logger.FilterLevel(log.Debug)
	}
	s.alerts.SetPushHook(countAlert)
	s.wg.Add(1)
	go s.saver()
	if cfg.AutoSaveInterval > 0 {
		s.wg.Add(1)
		go s.autoSave(cfg.AutoSaveInterval)
	}
	return s
}

func (s *Session) Alerts() *alert.Queue {
	return &s.alerts
}

// Blocks until an alert matching f arrives and returns it, leaving other alerts queued.
func (s *Session) WaitForAlert(ctx context.Context, f alert.Filter) (alert.Alert, error) {
	return s.alerts.Wait(ctx, f)
}

// Returns and removes all queued alerts.
func (s *Session) PopAlerts() []alert.Alert {
	return s.alerts.Pop()
}

// Adds a torrent, reconciling p with its resume data. If the torrent is already in the session it's
// returned with new false and p is ignored.
func (s *Session) AddTorrent(p AddTorrentParams) (t *Torrent, new bool, err error) {
	if s.closed.IsSet() {
		err = ErrSessionClosed
		return
	}
	if p.Metadata == nil {
		err = ErrNilMetadata
		return
	}
	ih := p.Metadata.InfoHash()
	if t = s.Torrent(ih); t != nil {
		return
	}
	if p.ResumeData == nil && s.store != nil {
		p.ResumeData, err = s.store.Get(ih)
		if errors.Is(err, storage.ErrNotFound) {
			err = nil
		} else if err != nil {
			s.logger.Levelf(log.Warning, "loading resume data for %v: %v", ih, err)
			err = nil
		}
	}
	asm, err := assemble(context.Background(), p)
	if err != nil {
		return
	}
	if asm.Config.SavePath == "" {
		asm.Config.SavePath = s.config.DefaultSavePath
	}
	t = newTorrent(s, p.Metadata, asm, time.Now())

	s.mu.Lock()
	if s.closed.IsSet() {
		s.mu.Unlock()
		return nil, false, ErrSessionClosed
	}
	if existing, ok := s.torrents[ih]; ok {
		s.mu.Unlock()
		return existing, false, nil
	}
	s.torrents[ih] = t
	s.mu.Unlock()
	new = true
	TorrentsGauge.Inc()

	resumed := p.ResumeData != nil && asm.Rejected == nil
	switch {
	case asm.Rejected != nil:
		AddsTotal.WithLabelValues("rejected").Inc()
		t.logger.Levelf(log.Warning, "not using resume data: %v", asm.Rejected)
		s.alerts.Push(&ResumeDataRejectedAlert{Base: alert.NewBase(ih), Err: asm.Rejected})
	case resumed:
		AddsTotal.WithLabelValues("applied").Inc()
	default:
		AddsTotal.WithLabelValues("absent").Inc()
	}
	for _, w := range asm.Warnings {
		t.logger.Levelf(log.Info, "%v", w)
		s.alerts.Push(&ResumeDataWarningAlert{Base: alert.NewBase(ih), Err: w})
	}
	t.logger.Levelf(log.Debug, "added (resumed=%v, sources=%v)", resumed, asm.Config.Sources)
	s.alerts.Push(&TorrentAddedAlert{Base: alert.NewBase(ih), Resumed: resumed})
	return
}

// Returns nil if the torrent isn't in the session.
func (s *Session) Torrent(ih metainfo.Hash) *Torrent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.torrents[ih]
}

func (s *Session) Torrents() (ret []*Torrent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret = make([]*Torrent, 0, len(s.torrents))
	for _, t := range s.torrents {
		ret = append(ret, t)
	}
	return
}

// Removes a torrent. A save that was pending is failed with ErrTorrentRemoved. If
// deleteResumeData is set, the torrent's blob is deleted from the store.
func (s *Session) RemoveTorrent(ih metainfo.Hash, deleteResumeData bool) error {
	s.mu.Lock()
	t, ok := s.torrents[ih]
	if ok {
		delete(s.torrents, ih)
	}
	s.mu.Unlock()
	if !ok {
		return ErrTorrentNotFound
	}
	TorrentsGauge.Dec()

	t.mu.Lock()
	t.removed = true
	pending := t.savePending
	t.savePending = false
	t.mu.Unlock()
	t.saveDone.Broadcast()
	if pending {
		SavesTotal.WithLabelValues("removed").Inc()
		s.alerts.Push(saveFailed(ih, ErrTorrentRemoved))
	}

	t.storeMu.Lock()
	defer t.storeMu.Unlock()
	var err error
	if deleteResumeData && s.store != nil {
		err = s.store.Delete(ih)
		if errors.Is(err, storage.ErrNotFound) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("deleting resume data: %w", err)
		}
	}
	s.alerts.Push(&TorrentRemovedAlert{Base: alert.NewBase(ih)})
	return err
}

// Requests a save of the torrent's resume data. Unknown torrents get a SaveResumeDataFailedAlert
// with ErrTorrentNotFound. See Torrent.SaveResumeData.
func (s *Session) SaveResumeData(ih metainfo.Hash) bool {
	t := s.Torrent(ih)
	if t == nil {
		s.alerts.Push(saveFailed(ih, ErrTorrentNotFound))
		return false
	}
	return t.SaveResumeData()
}

// Saves every torrent and waits for the outcomes. Alerts are delivered as usual. Returns the first
// failure.
func (s *Session) SaveAllResumeData(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, t := range s.Torrents() {
		target, armed, err := t.requestSave()
		if errors.Is(err, ErrTorrentRemoved) {
			continue
		}
		if err != nil {
			return err
		}
		if !armed {
			SaveRequestsCoalesced.Inc()
		}
		eg.Go(func() error {
			err := t.waitSave(ctx, target)
			if errors.Is(err, ErrTorrentRemoved) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("saving %v: %w", t.infoHash, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Periodically saves torrents whose state changed.
func (s *Session) autoSave(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-s.closed.Done():
			return
		}
		for _, t := range s.Torrents() {
			if t.NeedSaveResume() {
				t.SaveResumeData()
			}
		}
	}
}

// Stops the session. Saves already requested are completed first. The store is closed. Alerts
// already queued can still be popped.
func (s *Session) Close() error {
	if !s.closed.Set() {
		return nil
	}
	s.saveQueued.Broadcast()
	s.wg.Wait()
	s.alerts.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
