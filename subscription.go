package aeron

import (
	"sync"
	"sync/atomic"
)

// Subscription receives images from one or more matching publications.
// on_available_image/on_unavailable_image callbacks, if registered, run on
// the conductor's bounded callback pool, never on the conductor thread
// itself.
type Subscription struct {
	client *Client

	RegistrationID           int64
	StreamID                 int32
	Channel                  string
	ChannelStatusIndicatorID int32

	mu     sync.RWMutex
	images map[int64]*Image

	closed atomic.Bool
}

// Images returns a snapshot of the currently available images.
func (s *Subscription) Images() []*Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Image, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, img)
	}
	return out
}

func (s *Subscription) addImage(img *Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[img.ImageCorrelationID] = img
}

func (s *Subscription) removeImage(imageCorrelationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, imageCorrelationID)
}

// IsClosed reports whether Close has already been called.
func (s *Subscription) IsClosed() bool { return s.closed.Load() }

// Close sends REMOVE_SUBSCRIPTION. Outstanding images are dropped
// immediately; their log mappings, if any were opened, follow the same
// linger-then-unmap schedule as a publication's.
func (s *Subscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.client.conductor.RemoveSubscription(s.RegistrationID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, img := range s.images {
		s.client.lingerUnmap(id, img.log)
	}
	s.images = nil
	return nil
}
