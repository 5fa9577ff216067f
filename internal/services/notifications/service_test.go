// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/unlinkr/internal/reaper"
)

type delivery struct {
	url     string
	title   string
	message string
}

type recordingSender struct {
	url  string
	mu   *sync.Mutex
	sent *[]delivery
	err  error
}

func (r recordingSender) Send(message string, params *types.Params) []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	title, _ := params.Title()
	*r.sent = append(*r.sent, delivery{url: r.url, title: title, message: message})
	return []error{r.err}
}

type recorder struct {
	mu   sync.Mutex
	sent []delivery
	fail map[string]error
}

func (r *recorder) factory(rawURL string) (Sender, error) {
	if strings.HasPrefix(rawURL, "bad://") {
		return nil, errors.New("unknown service")
	}
	return recordingSender{url: rawURL, mu: &r.mu, sent: &r.sent, err: r.fail[rawURL]}, nil
}

func (r *recorder) deliveries() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.sent...)
}

func TestNewServiceWithoutTargets(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, zerolog.Nop())
	require.Nil(t, svc)

	// A nil service is a usable sink.
	svc.Start(context.Background())
	svc.Send(reaper.TitleCleanup, "Source: /downloads/a.mkv")
	svc.Close()
	require.Error(t, svc.SendTest(context.Background(), "t", "m"))
}

func TestServiceRoutesByEventType(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	svc := NewService([]Target{
		{Name: "all", URL: "generic://all"},
		{Name: "failures", URL: "generic://failures", EventTypes: []string{string(EventMediaCleanupFailed)}},
	}, zerolog.Nop()).WithSender(rec.factory)
	svc.Start(context.Background())

	svc.Send(reaper.TitleCleanup, "Source: /downloads/a.mkv\n\nHardlink: /media/a.mkv")
	svc.Send(reaper.TitleCleanupFailed, "STRM: /strm/a.strm")
	svc.Close()

	got := rec.deliveries()
	require.Len(t, got, 3)

	var toAll, toFailures []delivery
	for _, d := range got {
		if d.url == "generic://all" {
			toAll = append(toAll, d)
		} else {
			toFailures = append(toFailures, d)
		}
	}
	require.Len(t, toAll, 2)
	require.Len(t, toFailures, 1)
	assert.Equal(t, reaper.TitleCleanupFailed, toFailures[0].title)

	for _, d := range toAll {
		if d.title == reaper.TitleCleanup {
			assert.Equal(t, "Source: /downloads/a.mkv\nHardlink: /media/a.mkv", d.message)
		}
	}
}

func TestServiceDropsAfterClose(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	svc := NewService([]Target{{Name: "all", URL: "generic://all"}}, zerolog.Nop()).WithSender(rec.factory)
	svc.Start(context.Background())
	svc.Close()
	svc.Close()

	svc.Send(reaper.TitleDirCleanup, "Directory: /media/tv/show")
	assert.Empty(t, rec.deliveries())
}

func TestSendTestJoinsErrors(t *testing.T) {
	t.Parallel()

	rec := &recorder{fail: map[string]error{"generic://flaky": errors.New("http 500")}}
	svc := NewService([]Target{
		{Name: "ok", URL: "generic://ok"},
		{Name: "flaky", URL: "generic://flaky"},
		{Name: "broken", URL: "bad://x"},
	}, zerolog.Nop()).WithSender(rec.factory)

	err := svc.SendTest(context.Background(), "unlinkr test", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 500")
	assert.Contains(t, err.Error(), "unknown service")
	assert.Len(t, rec.deliveries(), 2)
}

func TestTruncateMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateMessage("  short  ", 10))
	assert.Equal(t, "abcd…", truncateMessage("abcdefgh", 5))
	assert.Equal(t, "a", truncateMessage("abc", 1))
	assert.Equal(t, "", truncateMessage("   ", 5))
}

func TestNormalizeEventTypes(t *testing.T) {
	t.Parallel()

	got, err := NormalizeEventTypes([]string{" directory_cleanup", "media_cleanup", "media_cleanup", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"media_cleanup", "directory_cleanup"}, got)

	_, err = NormalizeEventTypes([]string{"torrent_completed"})
	require.Error(t, err)
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateURL("generic://example.org/hook"))
	require.Error(t, ValidateURL("nope://example.org"))
}
