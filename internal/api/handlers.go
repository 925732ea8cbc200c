package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/extract"
	"trading-journal/internal/journal"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
)

const maxJSONBody = 1 << 20

// tradeResponse carries a saved trade and, when write-back failed, a warning.
type tradeResponse struct {
	Trade   models.Trade `json:"trade"`
	Warning string       `json:"warning,omitempty"`
}

type settingsBody struct {
	InitialBalance *float64 `json:"initialBalance,omitempty"`
	Currency       *string  `json:"currency,omitempty"`
}

type coachRequest struct {
	Question  string `json:"question"`
	Timeframe string `json:"timeframe"`
	Strategy  string `json:"strategy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"trades":    len(s.journal.Trades()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("favorites") == "true":
		s.writeJSON(w, http.StatusOK, s.journal.Favorites())
	case q.Get("recent") != "":
		n, err := strconv.Atoi(q.Get("recent"))
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "recent must be a positive integer")
			return
		}
		s.writeJSON(w, http.StatusOK, s.journal.Recent(n))
	default:
		s.writeJSON(w, http.StatusOK, s.journal.Trades())
	}
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var in journal.TradeInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	t, err := s.journal.CreateTrade(r.Context(), in)
	resp := tradeResponse{Trade: t}
	if err != nil {
		var pe *apperrors.PersistenceError
		if !apperrors.As(err, &pe) {
			s.writeErr(w, r, err)
			return
		}
		resp.Warning = pe.Error()
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp := map[string]interface{}{"id": id, "deleted": true}
	if err := s.journal.DeleteTrade(r.Context(), id); err != nil {
		var pe *apperrors.PersistenceError
		if !apperrors.As(err, &pe) {
			s.writeErr(w, r, err)
			return
		}
		resp["warning"] = pe.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fav, err := s.journal.ToggleFavorite(r.Context(), id)
	resp := map[string]interface{}{"id": id, "isFavorite": fav}
	if err != nil {
		var pe *apperrors.PersistenceError
		if !apperrors.As(err, &pe) {
			s.writeErr(w, r, err)
			return
		}
		resp["warning"] = pe.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.journal.Stats(q))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats := s.journal.Stats(s.journal.Query(models.TimeframeAll, models.AllStrategies))
	s.writeJSON(w, http.StatusOK, stats.Dashboard)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	months := 0
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "months must be a non-negative integer")
			return
		}
		months = n
	}
	s.writeJSON(w, http.StatusOK, analytics.MonthlyPerformance(s.journal.Trades(), s.journal.InitialBalance(), months))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.journal.Heatmap())
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.journal.Strategies())
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.journal.SyncStatus())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"initialBalance": s.journal.InitialBalance(),
		"currency":       s.journal.Currency(),
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if !s.decodeJSON(w, r, &body) {
		return
	}

	var warnings []string
	apply := func(err error) bool {
		if err == nil {
			return true
		}
		var pe *apperrors.PersistenceError
		if apperrors.As(err, &pe) {
			warnings = append(warnings, pe.Error())
			return true
		}
		s.writeErr(w, r, err)
		return false
	}
	if body.InitialBalance != nil && !apply(s.journal.SetInitialBalance(r.Context(), *body.InitialBalance)) {
		return
	}
	if body.Currency != nil && !apply(s.journal.SetCurrency(r.Context(), *body.Currency)) {
		return
	}

	resp := map[string]interface{}{
		"initialBalance": s.journal.InitialBalance(),
		"currency":       s.journal.Currency(),
	}
	if len(warnings) > 0 {
		resp["warning"] = strings.Join(warnings, "; ")
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalculator(w http.ResponseWriter, r *http.Request) {
	var in analytics.RiskRewardInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if in.AccountBalance == 0 {
		in.AccountBalance = s.journal.InitialBalance()
	}
	s.writeJSON(w, http.StatusOK, analytics.CalculateRiskReward(in))
}

// handleExtract accepts a raw image body or a multipart form with an
// "image" file and returns a trade draft.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		s.writeError(w, http.StatusServiceUnavailable, "screenshot extraction is not configured")
		return
	}
	if !s.aiLimiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "too many AI requests, try again shortly")
		return
	}

	image, mimeType, err := readImage(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ext, err := s.extractor.Extract(r.Context(), image, mimeType)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	draft := extract.MergeDraft(journal.TradeInput{
		Date:     models.DateOf(time.Now()).String(),
		Currency: s.journal.Currency(),
	}, ext)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"extraction": ext, "draft": draft})
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	if s.coach == nil {
		s.writeError(w, http.StatusServiceUnavailable, "coach is not configured")
		return
	}
	if !s.aiLimiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "too many AI requests, try again shortly")
		return
	}

	var req coachRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	tf, err := models.ParseTimeframe(req.Timeframe)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats := s.journal.Stats(s.journal.Query(tf, defaultString(req.Strategy, models.AllStrategies)))
	answer, err := s.coach.Ask(r.Context(), req.Question, stats, s.journal.Currency())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// parseQuery reads ?timeframe= and ?strategy=.
func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) (analytics.Query, bool) {
	tf, err := models.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return analytics.Query{}, false
	}
	return s.journal.Query(tf, defaultString(r.URL.Query().Get("strategy"), models.AllStrategies)), true
}

func readImage(r *http.Request) ([]byte, string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(extract.MaxImageSize); err != nil {
			return nil, "", err
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, extract.MaxImageSize+1))
		if err != nil {
			return nil, "", err
		}
		mt := hdr.Header.Get("Content-Type")
		if mt == "" || mt == "application/octet-stream" {
			mt = http.DetectContentType(data)
		}
		return data, mt, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, extract.MaxImageSize+1))
	if err != nil {
		return nil, "", err
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return data, ct, nil
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeErr maps domain errors to HTTP status codes.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.ErrTradeNotFound):
		status = http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrDuplicateTrade):
		status = http.StatusConflict
	case apperrors.Is(err, apperrors.ErrInputValidation),
		apperrors.Is(err, apperrors.ErrInvalidTrade),
		apperrors.Is(err, apperrors.ErrInvalidDate):
		status = http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrExtractionFailed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("Request failed")
	}
	s.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
