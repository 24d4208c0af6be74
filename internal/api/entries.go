package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	errs "github.com/jdholdren/sweep/internal/errors"
	"github.com/jdholdren/sweep/internal/sweep"
	"github.com/jdholdren/sweep/internal/sync"
)

const (
	defaultEntriesLimit = 50
	maxEntriesLimit     = 500
)

type entriesResp struct {
	Entries    []sweep.Entry  `json:"entries"`
	Pagination paginationMeta `json:"pagination"`
}

func (s *Server) getEntries(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx           = r.Context()
		limit, offset = parsePaginationParams(r, defaultEntriesLimit, maxEntriesLimit)
		unreadOnly    = r.URL.Query().Get("unread") == "true"
	)

	entries, err := s.repo.ListEntries(ctx, sweep.ListEntriesArgs{
		UnreadOnly: unreadOnly,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return err
	}
	total, err := s.repo.CountEntries(ctx, unreadOnly)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, entriesResp{
		Entries:    entries,
		Pagination: calculatePaginationMeta(limit, offset, total),
	})
}

type postEntryReq struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	HasBeenRead bool   `json:"hasBeenRead"`
}

func (req postEntryReq) Validate() error {
	if err := validateLink(req.URL); err != nil {
		return errs.E(http.StatusUnprocessableEntity, "invalid entry", errs.Detail{Field: "url", Error: err.Error()})
	}

	return nil
}

func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	req, err := decodeValid[postEntryReq](r.Body)
	if err != nil {
		return err
	}

	now := sweep.Millis(s.now())
	entry := sweep.Entry{
		URL:            strings.TrimSpace(req.URL),
		Title:          sync.Sanitize(req.Title),
		HasBeenRead:    req.HasBeenRead,
		CreationTime:   now,
		LastUpdateTime: now,
	}
	if err := s.repo.InsertEntry(ctx, entry); err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	link := r.URL.Query().Get("url")
	if link == "" {
		return errs.E(http.StatusBadRequest, "url is required")
	}

	// Removal itself is idempotent, so check first to give callers a 404
	if _, err := s.repo.Entry(ctx, link); err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, link); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type postImportReq struct {
	FeedURL string `json:"feedUrl"`
}

func (req postImportReq) Validate() error {
	if err := validateLink(req.FeedURL); err != nil {
		return errs.E(http.StatusUnprocessableEntity, "invalid import", errs.Detail{Field: "feedUrl", Error: err.Error()})
	}

	return nil
}

type importResp struct {
	Found    int `json:"found"`
	Imported int `json:"imported"`
}

// Pulls every linked item of a feed into the reading list, skipping ones already there.
func (s *Server) postImport(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	req, err := decodeValid[postImportReq](r.Body)
	if err != nil {
		return err
	}

	entries, err := s.fetchFeed(ctx, strings.TrimSpace(req.FeedURL), s.now())
	if err != nil {
		return errs.E(http.StatusBadGateway, err)
	}

	imported, err := s.repo.InsertEntries(ctx, entries)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, importResp{
		Found:    len(entries),
		Imported: imported,
	})
}

func validateLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("must not be empty")
	}

	u, err := url.Parse(link)
	if err != nil {
		return errors.New("not a valid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https url")
	}
	if u.Host == "" {
		return errors.New("must have a host")
	}

	return nil
}
