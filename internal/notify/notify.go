package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultNoticeTTL = 8 * time.Second

// Kind labels the notice classes the engine can raise.
type Kind string

const (
	KindExpiredItems Kind = "expired_items"
	KindError        Kind = "error"
)

// Notice is one consumer-facing signal.
type Notice struct {
	Kind    Kind
	Message string
}

// Surface collects consumer-facing signals raised by the engine. It is a
// passive observer: publishing never blocks and never fails the engine.
type Surface struct {
	mu       sync.Mutex
	current  *Notice
	ttl      time.Duration
	after    func(d time.Duration, f func()) *time.Timer
	pending  *time.Timer
	onNotice func(Notice)
}

// Options configures the notification surface.
type Options struct {
	// NoticeTTL is how long a notice stays visible before auto-dismissing.
	NoticeTTL time.Duration
	// OnNotice, when set, is invoked for every published notice.
	OnNotice func(Notice)
}

// NewSurface builds a notification surface.
func NewSurface(opts Options) *Surface {
	ttl := opts.NoticeTTL
	if ttl <= 0 {
		ttl = defaultNoticeTTL
	}
	return &Surface{
		ttl:      ttl,
		after:    time.AfterFunc,
		onNotice: opts.OnNotice,
	}
}

// PublishExpired raises a notice naming the lines whose reservations were lost
// to other shoppers. The notice auto-dismisses after the configured TTL.
func (s *Surface) PublishExpired(items []ExpiredLine) {
	if len(items) == 0 {
		return
	}
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label())
	}
	message := fmt.Sprintf("These items are no longer available and were removed from your cart: %s", strings.Join(labels, ", "))
	s.publish(Notice{Kind: KindExpiredItems, Message: message})
}

// PublishError raises a plain error banner with the same auto-dismiss rules.
func (s *Surface) PublishError(message string) {
	if message == "" {
		return
	}
	s.publish(Notice{Kind: KindError, Message: message})
}

func (s *Surface) publish(notice Notice) {
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.current = &notice
	s.pending = s.after(s.ttl, s.clear)
	callback := s.onNotice
	s.mu.Unlock()

	if callback != nil {
		callback(notice)
	}
}

func (s *Surface) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.pending = nil
}

// Current returns the visible notice, if any.
func (s *Surface) Current() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	notice := *s.current
	return &notice
}

// ExpiredLine names a removed line for the notice message.
type ExpiredLine struct {
	Name string
	Size string
}

// Label renders the line for display.
func (e ExpiredLine) Label() string {
	if e.Size == "" {
		return e.Name
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.Size)
}
