package quiz

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
	"github.com/finquest/finquest/internal/models"
)

// Service exposes the quiz app over HTTP.
type Service struct {
	app *App
}

// NewService creates a new quiz HTTP service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes mounts the quiz endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/quiz/daily", s.DailyQuestion).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/quiz/practice/{category}", s.PracticeProblems).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/quiz/questions/{id}/submit", s.SubmitAnswer).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/quiz/submissions", s.SubmissionHistory).Methods(http.MethodGet, http.MethodOptions)
}

// questionView is a question as shown to players. The stored answer never
// leaves the server.
type questionView struct {
	ID        uuid.UUID               `json:"id"`
	Category  models.QuestionCategory `json:"category"`
	Prompt    string                  `json:"prompt"`
	Points    int                     `json:"points"`
	CreatedAt time.Time               `json:"created_at"`
}

func toQuestionView(q *models.Question) questionView {
	return questionView{
		ID:        q.ID,
		Category:  q.Category,
		Prompt:    q.Prompt,
		Points:    q.Points,
		CreatedAt: q.CreatedAt,
	}
}

// DailyQuestion handles GET /quiz/daily.
func (s *Service) DailyQuestion(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.FromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	question, err := s.app.DailyQuestion(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionView(question))
}

// PracticeProblems handles GET /quiz/practice/{category}?limit=N.
func (s *Service) PracticeProblems(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.FromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	questions, err := s.app.PracticeProblems(r.Context(), models.QuestionCategory(mux.Vars(r)["category"]), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]questionView, len(questions))
	for i := range questions {
		views[i] = toQuestionView(&questions[i])
	}
	writeJSON(w, http.StatusOK, views)
}

type submitAnswerRequest struct {
	Answer string `json:"answer"`
}

// SubmitAnswer handles POST /quiz/questions/{id}/submit.
func (s *Service) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	questionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := s.app.SubmitAnswer(r.Context(), id.UserID, questionID, req.Answer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// SubmissionHistory handles GET /quiz/submissions?limit=N.
func (s *Service) SubmissionHistory(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	subs, err := s.app.SubmissionHistory(r.Context(), id.UserID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "question not found")
	default:
		log.Error().Err(err).Msg("quiz request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
