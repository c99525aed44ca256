// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	service "github.com/okian/quizrec/internal/app"
	"github.com/okian/quizrec/internal/domain/model"
)

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps Dependencies
}

// NewRecommendHandler creates a new recommend handler.
func NewRecommendHandler(deps Dependencies) *RecommendHandler {
	return &RecommendHandler{deps: deps}
}

// recommendRequest mirrors the POST /recommend schema. Exactly one of the
// three fields must be set.
type recommendRequest struct {
	PlayerID     string                     `json:"player_id,omitempty"`
	PlayerIDs    []string                   `json:"player_ids,omitempty"`
	Interactions []model.InteractionPayload `json:"interactions,omitempty"`
}

func (r recommendRequest) validate() error {
	set := 0
	if strings.TrimSpace(r.PlayerID) != "" {
		set++
	}
	if len(r.PlayerIDs) > 0 {
		set++
	}
	if len(r.Interactions) > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of player_id, player_ids, interactions required", ErrBadRequest)
	}
	for _, id := range r.PlayerIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty player id", ErrBadRequest)
		}
	}
	for i, it := range r.Interactions {
		if strings.TrimSpace(it.PlayerID) == "" || strings.TrimSpace(it.QuestionID) == "" {
			return fmt.Errorf("%w: interaction %d missing player_id or question_id", ErrBadRequest, i)
		}
	}
	return nil
}

// batchResponse maps each requested player to a ranked question list.
type batchResponse struct {
	Recommendations map[string][]string `json:"recommendations"`
}

// singleResponse carries one flat ranked list for a player_id request.
type singleResponse struct {
	Recommendations []string `json:"recommendations"`
}

// HandleRecommend handles POST /recommend requests.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var (
		out    map[string][]string
		err    error
		single bool
	)
	switch {
	case len(req.Interactions) > 0:
		out, err = h.deps.Ingest(r.Context(), req.Interactions)
	case len(req.PlayerIDs) > 0:
		out, err = h.deps.Recommend(r.Context(), req.PlayerIDs)
	default:
		single = true
		out, err = h.deps.Recommend(r.Context(), []string{req.PlayerID})
	}
	if err != nil {
		status, code := mapServiceError(err)
		writeError(w, status, code, err)
		return
	}

	if single {
		writeJSON(w, http.StatusOK, singleResponse{Recommendations: out[req.PlayerID]})
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Recommendations: out})
}

// mapServiceError translates orchestrator sentinels to HTTP status codes.
func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusBadRequest, "batch_too_large"
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
