package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/links"
	"github.com/TremiDkhar/sitelink/internal/logger"
)

const maxAdminBody = 64 << 10

const staleWarning = "Change saved, but the link registry was not rebuilt; it applies after the next reload"

// linkView is what the admin API shows of a record. The secret and the link
// id are token material and never leave the process.
type linkView struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Site1     string    `json:"site1"`
	Site2     string    `json:"site2"`
	Remote    string    `json:"remote,omitempty"`
	Published bool      `json:"published"`
	Locked    bool      `json:"locked"`
	LockError string    `json:"lock_error,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func viewOf(rec *domain.SiteLinkRecord, localSite string) linkView {
	v := linkView{
		ID:        rec.ID,
		Label:     rec.Label,
		Site1:     rec.Site1,
		Site2:     rec.Site2,
		Published: rec.Published,
		Locked:    rec.Locked(),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if v.Locked {
		v.Remote = rec.Remote(localSite)
	}
	return v
}

// ListLinks returns every stored record.
func ListLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := d.Links.List(r.Context())
		if err != nil {
			storeError(w, d, err)
			return
		}

		views := make([]linkView, 0, len(records))
		for _, rec := range records {
			views = append(views, viewOf(rec, d.Links.LocalSite()))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// SaveLink creates or updates a record from a links.Input body.
func SaveLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in links.Input
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_link", "Malformed link payload")
			return
		}

		res, err := d.Links.Save(r.Context(), in)
		if err != nil && !(res != nil && errors.Is(err, links.ErrRegistryStale)) {
			storeError(w, d, err)
			return
		}

		view := viewOf(res.Record, d.Links.LocalSite())
		if res.LockErr != nil {
			view.LockError = res.LockErr.Error()
		}
		if err != nil {
			view.Warning = staleWarning
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, view)
	}
}

// GetLink returns one record.
func GetLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := d.Links.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(rec, d.Links.LocalSite()))
	}
}

// DeleteLink removes a record.
func DeleteLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Links.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			storeError(w, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ResetLink clears the link material of a record so it can be re-keyed.
func ResetLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := d.Links.Reset(r.Context(), chi.URLParam(r, "id"))
		if err != nil && !(rec != nil && errors.Is(err, links.ErrRegistryStale)) {
			storeError(w, d, err)
			return
		}

		view := viewOf(rec, d.Links.LocalSite())
		if err != nil {
			view.Warning = staleWarning
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type statusResponse struct {
	ID     string `json:"id"`
	Remote string `json:"remote"`
	Linked bool   `json:"linked"`
	Error  string `json:"error,omitempty"`
}

// LinkStatus issues a token for the record and asks the remote peer whether
// it recognises it.
func LinkStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := d.Links.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, d, err)
			return
		}
		if !rec.Locked() {
			writeError(w, http.StatusConflict, "link_not_locked", "Link is not locked yet")
			return
		}

		remote := rec.Remote(d.Links.LocalSite())
		resp := statusResponse{ID: rec.ID, Remote: remote}

		ctx := r.Context()
		if d.PeerCheckTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.PeerCheckTimeout)
			defer cancel()
		}

		linked, err := d.Peer.Check(ctx, remote, d.Protocol.Issue(rec.LinkID))
		if err != nil {
			d.Logger.Warn("peer status check failed",
				logger.String("record_id", rec.ID),
				logger.String("remote", remote),
				logger.Error(err))
			resp.Error = err.Error()
		}
		resp.Linked = linked

		writeJSON(w, http.StatusOK, resp)
	}
}

type timestampResponse struct {
	Bucket string `json:"bucket"`
	UTC    string `json:"utc"`
	Digest string `json:"digest"`
}

// Timestamp reports the current hour bucket so operators can compare clocks
// between peers.
func Timestamp(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, timestampResponse{
			Bucket: d.Protocol.Bucket(),
			UTC:    d.Now().UTC().Format(time.RFC3339),
			Digest: string(d.Protocol.Digest()),
		})
	}
}

func storeError(w http.ResponseWriter, d deps.Deps, err error) {
	switch {
	case errors.Is(err, links.ErrNotFound):
		writeError(w, http.StatusNotFound, "link_not_found", "No such site link")
	case errors.Is(err, links.ErrLocked):
		writeError(w, http.StatusConflict, "link_locked", err.Error())
	case errors.Is(err, links.ErrRegistryStale):
		writeError(w, http.StatusInternalServerError, "registry_stale", staleWarning)
	default:
		d.Logger.Error("site link operation failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Site link store unavailable")
	}
}
