package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/accounts"
	"serotonyl.ru/lifeleveling/internal/features/character"
	"serotonyl.ru/lifeleveling/internal/features/economy"
	"serotonyl.ru/lifeleveling/internal/features/reminders"
	"serotonyl.ru/lifeleveling/internal/features/streak"
)

// SourceAPI — источник выполнения для журнала completions.
const SourceAPI = "api"

const defaultTransactionsLimit = 20

// accountView — аккаунт без хеша пароля.
type accountView struct {
	ID               int64     `json:"id"`
	DisplayName      string    `json:"display_name"`
	Email            *string   `json:"email,omitempty"`
	TelegramID       *int64    `json:"telegram_id,omitempty"`
	TelegramUsername string    `json:"telegram_username,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func newAccountView(a *accounts.Account) accountView {
	return accountView{
		ID:               a.ID,
		DisplayName:      a.Name(),
		Email:            a.Email,
		TelegramID:       a.TelegramID,
		TelegramUsername: a.TelegramUsername,
		CreatedAt:        a.CreatedAt,
	}
}

type authResponse struct {
	Token   string      `json:"token"`
	Account accountView `json:"account"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acc, err := s.deps.Accounts.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := s.deps.Accounts.IssueToken(acc.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, Account: newAccountView(acc)})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, acc, err := s.deps.Accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, Account: newAccountView(acc)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.deps.Characters.Profile(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type allocateRequest struct {
	Stat   string `json:"stat"`
	Points int    `json:"points"`
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	stat, err := character.ParseStat(req.Stat)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Points == 0 {
		req.Points = 1
	}
	c, err := s.deps.Characters.Allocate(r.Context(), accountID(r.Context()), stat, req.Points)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type buyLifePointsRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleBuyLifePoints(w http.ResponseWriter, r *http.Request) {
	var req buyLifePointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	c, err := s.deps.Characters.BuyLifePoints(r.Context(), accountID(r.Context()), req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// reminderRequest — тело создания и изменения напоминания.
// Дата и правило принимаются в тех же форматах, что и в командах бота.
type reminderRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	StartDate    string `json:"start_date"`
	TimeOfDay    string `json:"time_of_day"`
	Rule         string `json:"rule"`
	StreakPeriod string `json:"streak_period"`
	Notify       *bool  `json:"notify"`
}

func (req reminderRequest) input() (reminders.Input, error) {
	in := reminders.Input{
		Title:        req.Title,
		Description:  req.Description,
		TimeOfDay:    req.TimeOfDay,
		StreakPeriod: streak.Period(req.StreakPeriod),
		Notify:       true,
	}
	if req.Notify != nil {
		in.Notify = *req.Notify
	}

	in.StartDate = common.Today()
	if strings.TrimSpace(req.StartDate) != "" {
		d, err := common.ParseDate(req.StartDate)
		if err != nil {
			return in, err
		}
		in.StartDate = d
	}

	in.Rule = reminders.Rule{Kind: reminders.KindOnce}
	if strings.TrimSpace(req.Rule) != "" {
		rule, err := reminders.ParseRule(req.Rule)
		if err != nil {
			return in, err
		}
		in.Rule = rule
	}
	return in, nil
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Reminders.List(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*reminders.Reminder{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rem, err := s.deps.Reminders.Create(r.Context(), accountID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

// reminderID достаёт UUID из пути. Некорректный ID неотличим от несуществующего.
func reminderID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, common.ErrReminderNotFound
	}
	return id, nil
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := reminderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rem, err := s.deps.Reminders.Get(r.Context(), accountID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := reminderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rem, err := s.deps.Reminders.Update(r.Context(), accountID(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := reminderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Reminders.Delete(r.Context(), accountID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type completeRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleCompleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := reminderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req completeRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	date, err := dateParam(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Reminders.Complete(r.Context(), accountID(r.Context()), id, date, SourceAPI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.deps.Reminders.DueOn(r.Context(), accountID(r.Context()), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []reminders.DueItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date.Format("2006-01-02"), "items": items})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	month := common.Today()
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := reminders.ParseMonth(m)
		if err != nil {
			writeError(w, r, err)
			return
		}
		month = parsed
	}
	days, err := s.deps.Reminders.Calendar(r.Context(), accountID(r.Context()), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month.Format("2006-01"), "days": days})
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	if s.deps.Streaks == nil {
		writeErrorCode(w, http.StatusNotFound, "feature_disabled", "серии отключены")
		return
	}
	list, err := s.deps.Streaks.List(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*streak.Streak{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	if s.deps.Badges == nil {
		writeErrorCode(w, http.StatusNotFound, "feature_disabled", "значки отключены")
		return
	}
	list, err := s.deps.Badges.List(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultTransactionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeErrorCode(w, http.StatusBadRequest, "invalid_limit", "limit должен быть от 1 до 100")
			return
		}
		limit = n
	}
	txs, err := s.deps.Wallet.GetTransactions(r.Context(), accountID(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []*economy.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// dateParam разбирает дату из запроса; пустая строка — сегодня.
func dateParam(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return common.Today(), nil
	}
	return common.ParseDate(s)
}
