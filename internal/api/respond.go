package api

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/common"
)

const genericMessage = "внутренняя ошибка, попробуйте позже"

// errorBody — тело ответа с ошибкой.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMapping сопоставляет доменные ошибки с HTTP-статусом и машинным кодом.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{common.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{common.ErrBanned, http.StatusForbidden, "banned"},
	{common.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{common.ErrReminderNotFound, http.StatusNotFound, "reminder_not_found"},
	{common.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{common.ErrAlreadyCompleted, http.StatusConflict, "already_completed"},
	{common.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{common.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{common.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{common.ErrInvalidStat, http.StatusBadRequest, "invalid_stat"},
	{common.ErrInvalidRule, http.StatusBadRequest, "invalid_rule"},
	{common.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{common.ErrEmptyTitle, http.StatusBadRequest, "invalid_title"},
	{common.ErrAmbiguousReminder, http.StatusBadRequest, "ambiguous_reminder"},
	{common.ErrNotDue, http.StatusUnprocessableEntity, "not_due"},
	{common.ErrFutureDate, http.StatusUnprocessableEntity, "future_date"},
	{common.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{common.ErrNotEnoughLifePoints, http.StatusUnprocessableEntity, "not_enough_life_points"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Не удалось записать JSON-ответ")
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// writeError отвечает ошибкой сервиса. Неизвестные ошибки логируются и скрываются от клиента.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeErrorCode(w, m.status, m.code, m.err.Error())
			return
		}
	}
	log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("Ошибка обработки запроса")
	writeErrorCode(w, http.StatusInternalServerError, "internal_error", genericMessage)
}

// decodeJSON читает тело запроса, отклоняя лишние поля.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json", "некорректное тело запроса")
		return false
	}
	return true
}
