// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifications

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog"
)

const (
	defaultQueueSize = 100
	defaultWorkers   = 2
)

// Target is one configured shoutrrr destination.
type Target struct {
	Name       string
	URL        string
	EventTypes []string // empty means every event
}

type Event struct {
	Type    EventType
	Title   string
	Message string
}

// Sender delivers a message to one shoutrrr URL.
type Sender interface {
	Send(message string, params *types.Params) []error
}

// SenderFactory builds a Sender for a URL. It is replaceable in tests.
type SenderFactory func(rawURL string) (Sender, error)

func shoutrrrSender(rawURL string) (Sender, error) {
	return router.New(nil, rawURL)
}

type Service struct {
	targets   []Target
	logger    zerolog.Logger
	newSender SenderFactory

	mu     sync.RWMutex
	queue  chan Event
	closed bool

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewService returns nil when no targets are configured; a nil Service is a
// valid sink that drops everything.
func NewService(targets []Target, logger zerolog.Logger) *Service {
	if len(targets) == 0 {
		return nil
	}

	return &Service{
		targets:   targets,
		logger:    logger.With().Str("module", "notifications").Logger(),
		newSender: shoutrrrSender,
		queue:     make(chan Event, defaultQueueSize),
	}
}

// WithSender replaces the shoutrrr sender factory.
func (s *Service) WithSender(factory SenderFactory) *Service {
	if s != nil && factory != nil {
		s.newSender = factory
	}
	return s
}

func ValidateURL(rawURL string) error {
	_, err := router.New(nil, rawURL)
	return err
}

func (s *Service) Start(ctx context.Context) {
	if s == nil {
		return
	}

	s.startOnce.Do(func() {
		for range defaultWorkers {
			s.wg.Add(1)
			go s.worker(ctx)
		}
	})
}

// Close stops accepting events and waits for the workers to drain the queue.
func (s *Service) Close() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Send queues a reaper notification.
func (s *Service) Send(title, message string) {
	eventType, ok := eventForTitle[title]
	if !ok {
		eventType = EventMediaCleanup
	}
	s.Notify(Event{Type: eventType, Title: title, Message: message})
}

func (s *Service) Notify(event Event) {
	if s == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Debug().Str("event", string(event.Type)).Msg("notifications: service closed, dropping event")
		return
	}

	select {
	case s.queue <- event:
	default:
		s.logger.Warn().Str("event", string(event.Type)).Msg("notifications: queue full, dropping event")
	}
}

// SendTest delivers a message to every target synchronously.
func (s *Service) SendTest(ctx context.Context, title, message string) error {
	if s == nil {
		return errors.New("no notification targets configured")
	}

	var errs []error
	for _, target := range s.targets {
		if err := s.send(ctx, target, title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for event := range s.queue {
		s.dispatch(ctx, event)
	}
}

func (s *Service) dispatch(ctx context.Context, event Event) {
	title := strings.TrimSpace(event.Title)
	message := buildMessage(splitMessageLines(event.Message))
	if message == "" {
		return
	}

	for _, target := range s.targets {
		if !allowsEvent(target.EventTypes, event.Type) {
			continue
		}

		if err := s.send(ctx, target, title, message); err != nil {
			s.logger.Error().Err(err).Str("target", target.Name).Str("event", string(event.Type)).Msg("notifications: send failed")
		}
	}
}

func (s *Service) send(_ context.Context, target Target, title, message string) error {
	sender, err := s.newSender(target.URL)
	if err != nil {
		return err
	}

	params := types.Params{}
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		params.SetTitle(truncateMessage(trimmed, maxTitleLength))
	}

	results := sender.Send(truncateMessage(message, maxMessageLength), &params)
	var errs []error
	for _, sendErr := range results {
		if sendErr != nil {
			errs = append(errs, sendErr)
		}
	}
	return errors.Join(errs...)
}

func allowsEvent(eventTypes []string, eventType EventType) bool {
	if len(eventTypes) == 0 {
		return true
	}

	return slices.Contains(eventTypes, string(eventType))
}

func buildMessage(lines []string) string {
	payload := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			payload = append(payload, trimmed)
		}
	}
	return strings.Join(payload, "\n")
}

func splitMessageLines(message string) []string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

const (
	maxMessageLength = 1000
	maxTitleLength   = 80
)

func truncateMessage(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if utf8.RuneCountInString(trimmed) <= limit {
		return trimmed
	}
	runes := []rune(trimmed)
	if limit <= 1 {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
