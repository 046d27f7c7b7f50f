package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/logger"
)

const maxCheckBody = 16 << 10

type checkRequest struct {
	TransferToken *string `json:"transfer_token"`
}

// SiteLinkCheck answers a peer asking whether a transfer token belongs to a
// linked site. The body is the bare JSON boolean; a missing token is a 400.
func SiteLinkCheck(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := transferToken(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "site_check_error", "Malformed request")
			return
		}

		linkID, linked := d.Protocol.Match(token)
		if linked {
			d.Logger.Debug("transfer token verified",
				logger.String("link_id", domain.ShortID(linkID)))
		}

		writeJSON(w, http.StatusOK, linked)
	}
}

// transferToken reads transfer_token from a JSON body, a form body or the
// query string. ok is false when the field is absent.
func transferToken(r *http.Request) (string, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req checkRequest
		body := io.LimitReader(r.Body, maxCheckBody)
		if err := json.NewDecoder(body).Decode(&req); err != nil || req.TransferToken == nil {
			return "", false
		}
		return *req.TransferToken, true
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxCheckBody)
	if err := r.ParseForm(); err != nil {
		return "", false
	}
	if _, present := r.Form["transfer_token"]; !present {
		return "", false
	}
	return r.Form.Get("transfer_token"), true
}
