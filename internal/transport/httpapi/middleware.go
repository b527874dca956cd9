package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// Аутентификацию выполняет вышестоящий шлюз: сервис доверяет заголовкам
// X-User-ID и X-User-Role уже проверенного запроса.
const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"

	roleAdmin = "admin"
)

type contextKey string

const (
	contextKeyUserID contextKey = "user_id"
	contextKeyAdmin  contextKey = "is_admin"
)

// requireUser извлекает пользователя из заголовков; без валидного id — 401.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(headerUserID))
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeErrorBody(w, http.StatusUnauthorized, "unauthorized", "valid "+headerUserID+" header is required", nil)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		ctx = context.WithValue(ctx, contextKeyAdmin, strings.EqualFold(r.Header.Get(headerRole), roleAdmin))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin пропускает только запросы с ролью admin. Ставится после requireUser.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r) {
			writeErrorBody(w, http.StatusForbidden, "forbidden", "admin role is required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(contextKeyUserID).(int64)
	return id
}

func isAdmin(r *http.Request) bool {
	admin, _ := r.Context().Value(contextKeyAdmin).(bool)
	return admin
}
