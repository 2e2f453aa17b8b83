package playground

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
	"github.com/GriffinCanCode/playground/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/playground/internal/shared/id"
	"github.com/GriffinCanCode/playground/internal/shared/types"
)

const subscriberBuffer = 8

// Session is one editor/preview pair
type Session struct {
	ID      id.SessionID
	Created time.Time

	driver   *Driver
	executor *sandbox.Executor
	logger   *logging.Logger

	mu          sync.Mutex
	subscribers map[int]chan types.View
	nextSub     int

	releaseOnce sync.Once
	released    chan struct{}
}

// Driver returns the session's driver
func (s *Session) Driver() *Driver {
	return s.driver
}

// Attach marks the preview container as available
func (s *Session) Attach() {
	s.driver.AttachContainer()
}

// Update forwards an editor change
func (s *Session) Update(text *string) {
	s.driver.OnChange(text)
}

// Dispatch forwards a preview event
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	return s.driver.Dispatch(ctx, ev)
}

// View returns the latest view
func (s *Session) View() types.View {
	return s.driver.View()
}

// Subscribe returns a channel receiving every published view. Slow
// subscribers lose the oldest views, never the latest.
func (s *Session) Subscribe() (<-chan types.View, func()) {
	ch := make(chan types.View, subscriberBuffer)

	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subscribers[key] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[key]; ok {
			delete(s.subscribers, key)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Session) broadcast(view types.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subscribers {
		for {
			select {
			case ch <- view:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close stops the driver and releases the executor
func (s *Session) Close(ctx context.Context) error {
	err := s.driver.Close(ctx)

	s.mu.Lock()
	for key, ch := range s.subscribers {
		delete(s.subscribers, key)
		close(ch)
	}
	s.mu.Unlock()

	// The executor belongs to the driver loop until it exits
	select {
	case <-s.driver.Done():
		if cerr := s.release(); err == nil {
			err = cerr
		}
	default:
		go func() {
			<-s.driver.Done()
			if cerr := s.release(); cerr != nil {
				s.logger.Warn("Failed to close executor", zap.Error(cerr))
			}
		}()
	}
	return err
}

// Released is closed once the session's executor has been closed
func (s *Session) Released() <-chan struct{} {
	return s.released
}

func (s *Session) release() error {
	var err error
	s.releaseOnce.Do(func() {
		err = s.executor.Close()
		close(s.released)
	})
	return err
}
