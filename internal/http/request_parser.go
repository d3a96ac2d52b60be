package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"messbook/internal/core"
)

// actorHeader carries the authenticated caller's id, stamped by the external
// identity collaborator in front of this service.
const actorHeader = "X-Actor-ID"

func actorID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(actorHeader))
	if id == "" {
		return "", fmt.Errorf("%w: missing %s header", core.ErrUnauthorized, actorHeader)
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", core.ErrValidation, err)
	}
	return nil
}

// parsePage reads page and page_size from the query string. Absent or
// malformed values fall back to defaults downstream.
func parsePage(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}

// optString converts a request field to a patch field. Blank strings count
// as unset so clients can send partial objects without clearing values.
func optString(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

// optAmount parses an optional amount field the same way.
func optAmount(s *string) (*decimal.Decimal, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
