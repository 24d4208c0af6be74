// Package sync turns external lists (RSS/Atom feeds, YAML files) into reading list entries.
package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/jdholdren/sweep/internal/sweep"
)

var syncClient = &http.Client{
	Timeout: time.Second * 3,
}

// Feed fetches the RSS or Atom feed at feedURL and returns one unread entry per linked item.
//
// Items are dated by their published time, then their updated time, then now.
func Feed(ctx context.Context, feedURL string, now time.Time) ([]sweep.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := syncClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting feed url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error decoding feed: %w", err)
	}

	entries := []sweep.Entry{}
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		added := now
		switch {
		case item.PublishedParsed != nil:
			added = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			added = *item.UpdatedParsed
		}

		entries = append(entries, sweep.Entry{
			URL:            link,
			Title:          Sanitize(item.Title),
			CreationTime:   sweep.Millis(added),
			LastUpdateTime: sweep.Millis(added),
		})
	}

	return entries, nil
}

// yamlList is the file format accepted by [YAML].
type yamlList struct {
	Entries []struct {
		URL   string    `yaml:"url"`
		Title string    `yaml:"title"`
		Read  bool      `yaml:"read"`
		Added time.Time `yaml:"added"`
	} `yaml:"entries"`
}

// YAML reads a list of entries like:
//
//	entries:
//	  - url: https://example.com/post
//	    title: A post
//	    read: false
//	    added: 2024-01-02T15:04:05Z
//
// A missing added time means now.
func YAML(r io.Reader, now time.Time) ([]sweep.Entry, error) {
	var list yamlList
	if err := yaml.NewDecoder(r).Decode(&list); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error decoding yaml: %w", err)
	}

	entries := make([]sweep.Entry, 0, len(list.Entries))
	for i, e := range list.Entries {
		if strings.TrimSpace(e.URL) == "" {
			return nil, fmt.Errorf("entry %d has no url", i)
		}

		added := e.Added
		if added.IsZero() {
			added = now
		}
		entries = append(entries, sweep.Entry{
			URL:            strings.TrimSpace(e.URL),
			Title:          Sanitize(e.Title),
			HasBeenRead:    e.Read,
			CreationTime:   sweep.Millis(added),
			LastUpdateTime: sweep.Millis(added),
		})
	}

	return entries, nil
}

var stripPolicy = bluemonday.StrictPolicy()

// In bytes.
const maxTitleLen = 512

// Sanitize removes all html tags from a title and caps its length.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = stripPolicy.Sanitize(s)
	if len(s) > maxTitleLen {
		// Back off to a rune boundary so the cut never splits a character
		cut := maxTitleLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}

	return s
}
