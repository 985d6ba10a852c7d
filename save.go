package fastresume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anacrolix/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/anacrolix/fastresume/alert"
	"github.com/anacrolix/fastresume/resumedata"
)

// Queues a torrent for capture. Returns false if the saver has exited.
func (s *Session) enqueueSave(t *Torrent) bool {
	s.saveMu.Lock()
	if s.saverExited {
		s.saveMu.Unlock()
		return false
	}
	s.saveQueue.PushBack(t)
	s.saveMu.Unlock()
	s.saveQueued.Broadcast()
	return true
}

// The only goroutine that captures and encodes resume data, so saves for a torrent complete in
// request order. It drains the queue before exiting on close.
func (s *Session) saver() {
	defer s.wg.Done()
	for {
		s.saveMu.Lock()
		var t *Torrent
		if e := s.saveQueue.Front(); e != nil {
			t = s.saveQueue.Remove(e)
		}
		queued := s.saveQueued.Signaled()
		if t == nil && s.closed.IsSet() {
			s.saverExited = true
			s.saveMu.Unlock()
			return
		}
		s.saveMu.Unlock()
		if t != nil {
			s.save(t)
			continue
		}
		select {
		case <-queued:
		case <-s.closed.Done():
		}
	}
}

func (s *Session) save(t *Torrent) {
	_, span := tracer.Start(context.Background(), "save resume data",
		trace.WithAttributes(attribute.String("infohash", t.infoHash.HexString())))
	defer span.End()
	started := time.Now()

	t.mu.Lock()
	if !t.savePending {
		// Removed while queued. The failure was already delivered.
		t.mu.Unlock()
		return
	}
	t.savePending = false
	t.captures++
	capture := t.captures
	rd := t.resumeDataLocked(started)
	t.needSave = false
	t.mu.Unlock()

	t.storeMu.Lock()
	defer t.storeMu.Unlock()
	b, err := s.encodeAndStore(t, rd)
	if errors.Is(err, ErrTorrentRemoved) {
		SavesTotal.WithLabelValues("removed").Inc()
		s.alerts.Push(saveFailed(t.infoHash, err))
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Levelf(log.Warning, "saving resume data: %v", err)
		SavesTotal.WithLabelValues("failed").Inc()
		s.alerts.Push(saveFailed(t.infoHash, err))
	} else {
		span.SetAttributes(attribute.Int("bytes", len(b)))
		SavesTotal.WithLabelValues("ok").Inc()
		SaveBytes.Observe(float64(len(b)))
		s.alerts.Push(&SaveResumeDataAlert{
			Base:       alert.NewBase(t.infoHash),
			Data:       b,
			ResumeData: rd,
		})
	}
	SaveDuration.Observe(time.Since(started).Seconds())

	t.mu.Lock()
	t.savesDone = capture
	t.lastSaveErr = err
	t.mu.Unlock()
	t.saveDone.Broadcast()
}

// Called with the torrent's storeMu held, so a removal either sees the stored blob or prevents it.
func (s *Session) encodeAndStore(t *Torrent, rd resumedata.ResumeData) ([]byte, error) {
	b, err := resumedata.Marshal(rd)
	if err != nil {
		return nil, fmt.Errorf("encoding resume data: %w", err)
	}
	t.mu.RLock()
	removed := t.removed
	t.mu.RUnlock()
	if removed {
		return nil, ErrTorrentRemoved
	}
	if s.store != nil {
		err = s.store.Put(t.infoHash, b)
		if err != nil {
			return b, fmt.Errorf("storing resume data: %w", err)
		}
	}
	t.logger.Levelf(log.Debug, "saved %d bytes of resume data", len(b))
	return b, nil
}
