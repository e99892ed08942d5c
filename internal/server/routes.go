package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mechanicaltomato/fizzy/internal/engine"
	"github.com/mechanicaltomato/fizzy/internal/scoring"
	"github.com/mechanicaltomato/fizzy/internal/store"
)

type cardResponse struct {
	ID                 int64   `json:"id"`
	CollectionID       int64   `json:"collection_id"`
	Title              string  `json:"title"`
	Status             string  `json:"status"`
	LastActiveAt       *int64  `json:"last_active_at,omitempty"`
	ActivityScore      float64 `json:"activity_score"`
	ActivityScoreOrder float64 `json:"activity_score_order"`
	PostponedAt        *int64  `json:"postponed_at,omitempty"`
	PostponedBy        string  `json:"postponed_by,omitempty"`
	CreatedAt          int64   `json:"created_at"`
}

func cardJSON(c *store.Card) cardResponse {
	return cardResponse{
		ID:                 c.ID,
		CollectionID:       c.CollectionID,
		Title:              c.Title,
		Status:             c.Status,
		LastActiveAt:       c.LastActiveAt,
		ActivityScore:      c.ActivityScore,
		ActivityScoreOrder: c.ActivityScoreOrder,
		PostponedAt:        c.PostponedAt,
		PostponedBy:        c.PostponedBy,
		CreatedAt:          c.CreatedAt,
	}
}

func cardsJSON(cards []store.Card) []cardResponse {
	out := make([]cardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, cardJSON(&cards[i]))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
		return
	}

	coll, err := s.db.CreateCollection(req.Name)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   coll.ID,
		"name": coll.Name,
	})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	colls, err := s.db.ListCollections()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(colls))
	for _, c := range colls {
		out = append(out, map[string]any{"id": c.ID, "name": c.Name, "created_at": c.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": out})
}

func entropyJSON(e *store.Entropy) map[string]any {
	return map[string]any{
		"container_type":     e.ContainerType,
		"container_id":       e.ContainerID,
		"auto_postpone_days": e.Period().Hours() / 24,
	}
}

func (s *Server) handleGetCollectionEntropy(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "collectionID")
	if !ok {
		http.Error(w, `{"error":"invalid collection id"}`, http.StatusBadRequest)
		return
	}

	ent, err := s.db.GetEntropy(store.ContainerCollection, id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if ent == nil {
		http.Error(w, `{"error":"no entropy configured"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entropyJSON(ent))
}

func (s *Server) handleSetCollectionEntropy(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "collectionID")
	if !ok {
		http.Error(w, `{"error":"invalid collection id"}`, http.StatusBadRequest)
		return
	}
	s.setEntropy(w, r, store.ContainerCollection, id)
}

func (s *Server) handleClearCollectionEntropy(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "collectionID")
	if !ok {
		http.Error(w, `{"error":"invalid collection id"}`, http.StatusBadRequest)
		return
	}

	if err := s.engine.ClearEntropy(id); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleGetAccountEntropy(w http.ResponseWriter, r *http.Request) {
	ent, err := s.engine.AccountEntropy()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entropyJSON(ent))
}

func (s *Server) handleSetAccountEntropy(w http.ResponseWriter, r *http.Request) {
	s.setEntropy(w, r, store.ContainerAccount, 0)
}

func (s *Server) setEntropy(w http.ResponseWriter, r *http.Request, containerType string, containerID int64) {
	var req struct {
		AutoPostponeDays float64 `json:"auto_postpone_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.AutoPostponeDays <= 0 {
		http.Error(w, `{"error":"auto_postpone_days must be positive"}`, http.StatusBadRequest)
		return
	}

	period := time.Duration(req.AutoPostponeDays * float64(24*time.Hour))
	ent, err := s.engine.SetEntropy(containerType, containerID, period)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entropyJSON(ent))
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollectionID int64  `json:"collection_id"`
		Title        string `json:"title"`
		Status       string `json:"status"`
		Actor        string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	coll, err := s.db.GetCollection(req.CollectionID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if coll == nil {
		http.Error(w, `{"error":"collection not found"}`, http.StatusBadRequest)
		return
	}

	card := &store.Card{CollectionID: req.CollectionID, Title: req.Title, Status: req.Status}
	if err := s.db.CreateCard(card); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	// Creation by a known actor counts as activity.
	if req.Actor != "" {
		if _, err := s.engine.CaptureEvent(card.ID, scoring.KindCreated, req.Actor, "", time.Now()); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		card, err = s.db.GetCard(card.ID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusCreated, cardJSON(card))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	var cards []store.Card
	var err error

	switch order := r.URL.Query().Get("order"); order {
	case "", "activity":
		cards, err = s.db.ListCardsByActivity()
	case "staleness":
		cards, err = s.db.ListCardsByStaleness(scoring.DefaultStaleBias)
	default:
		http.Error(w, `{"error":"order must be activity or staleness"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cardsJSON(cards)})
}

func (s *Server) handlePostponingSoon(w http.ResponseWriter, r *http.Request) {
	cards, err := s.engine.PostponingSoon(time.Now(), engine.PostponingSoonWindow)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cardsJSON(cards)})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "cardID")
	if !ok {
		http.Error(w, `{"error":"invalid card id"}`, http.StatusBadRequest)
		return
	}

	card, err := s.db.GetCard(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if card == nil {
		http.Error(w, `{"error":"card not found"}`, http.StatusNotFound)
		return
	}

	events, err := s.db.EventsForCard(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	lifecycle, err := s.db.LifecycleEventsForCard(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	eventsOut := make([]map[string]any, 0, len(events))
	for _, e := range events {
		eventsOut = append(eventsOut, map[string]any{
			"kind": e.Kind, "actor": e.Actor, "source": e.Source, "created_at": e.CreatedAt,
		})
	}
	lifecycleOut := make([]map[string]any, 0, len(lifecycle))
	for _, e := range lifecycle {
		lifecycleOut = append(lifecycleOut, map[string]any{
			"action": e.Action, "actor": e.Actor, "created_at": e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card":             cardJSON(card),
		"events":           eventsOut,
		"lifecycle_events": lifecycleOut,
	})
}

func (s *Server) handleCaptureEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "cardID")
	if !ok {
		http.Error(w, `{"error":"invalid card id"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Kind   string `json:"kind"`
		Actor  string `json:"actor"`
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Kind == "" || req.Actor == "" {
		http.Error(w, `{"error":"kind and actor required"}`, http.StatusBadRequest)
		return
	}

	if _, err := s.engine.CaptureEvent(id, req.Kind, req.Actor, req.Source, time.Now()); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	card, err := s.db.GetCard(id)
	if err != nil || card == nil {
		http.Error(w, `{"error":"card not found after capture"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, cardJSON(card))
}

func (s *Server) handleReleaseEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "cardID")
	if !ok {
		http.Error(w, `{"error":"invalid card id"}`, http.StatusBadRequest)
		return
	}
	kind := chi.URLParam(r, "kind")
	source := chi.URLParam(r, "source")

	removed, err := s.engine.ReleaseEvents(id, kind, source)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleRescoreCard(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "cardID")
	if !ok {
		http.Error(w, `{"error":"invalid card id"}`, http.StatusBadRequest)
		return
	}

	if err := s.engine.Rescore(id); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	card, err := s.db.GetCard(id)
	if err != nil || card == nil {
		http.Error(w, `{"error":"card not found after rescore"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cardJSON(card))
}

func (s *Server) handleRescoreAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.RescoreAll()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rescored": n})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var counts engine.SweepCounts

	postponed, err := s.engine.AutoPostponeAllDue(now, engine.SystemActor)
	counts.Add(postponed)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	reconsidered, err := s.engine.AutoReconsiderAllStagnated(now, engine.SystemActor)
	counts.Add(reconsidered)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"postponed":    counts.Postponed,
		"reconsidered": counts.Reconsidered,
		"conflicts":    counts.Conflicts,
		"failures":     counts.Failures,
	})
}
