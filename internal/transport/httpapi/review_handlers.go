package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// createReview принимает отзыв о купленном товаре. Право на отзыв проверяет
// сервис: нужен доставленный заказ пользователя с этим товаром.
func (h *handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var payload reviewPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	created, err := h.reviews.Submit(domain.Review{
		UserID:    userID(r),
		ProductID: payload.ProductID,
		OrderID:   payload.OrderID,
		Rating:    payload.Rating,
		Title:     payload.Title,
		Comment:   payload.Comment,
		Recommend: payload.Recommend,
	})
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReviewView(created))
}

// updateReview переписывает содержимое собственного отзыва целиком.
func (h *handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(h.logger, w, domain.ErrReviewNotFound)
		return
	}

	var payload updateReviewPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	updated, err := h.reviews.Update(domain.Review{
		ID:        id,
		UserID:    userID(r),
		Rating:    payload.Rating,
		Title:     payload.Title,
		Comment:   payload.Comment,
		Recommend: payload.Recommend,
	})
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewView(updated))
}

// deleteReview удаляет отзыв. Админ может удалить любой, пользователь — свой.
func (h *handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(h.logger, w, domain.ErrReviewNotFound)
		return
	}

	if err := h.reviews.Delete(id, userID(r), isAdmin(r)); err != nil {
		writeError(h.logger, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listProductReviews возвращает отзывы товара, новые первыми. Публичный маршрут.
func (h *handlers) listProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(h.logger, w, domain.ErrProductNotFound)
		return
	}

	reviews, err := h.reviews.ListByProduct(productID, parseLimit(r, defaultListLimit))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	views := make([]reviewView, 0, len(reviews))
	for _, item := range reviews {
		views = append(views, toReviewView(item))
	}
	writeJSON(w, http.StatusOK, views)
}

// productReviewStats возвращает агрегаты отзывов товара. Публичный маршрут.
func (h *handlers) productReviewStats(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(h.logger, w, domain.ErrProductNotFound)
		return
	}

	stats, err := h.reviews.Stats(productID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, reviewStatsView{
		TotalReviews:          stats.TotalReviews,
		AverageRating:         stats.AverageRating,
		RatingDistribution:    stats.RatingDistribution,
		RecommendationPercent: stats.RecommendationPercent,
	})
}

// checkEligibility отвечает, может ли пользователь оставить отзыв,
// не создавая сам отзыв. Ответ всегда 200: отказ — это данные, а не ошибка.
func (h *handlers) checkEligibility(w http.ResponseWriter, r *http.Request) {
	var payload eligibilityPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	eligibility, err := h.reviews.CheckEligibility(userID(r), payload.ProductID, payload.OrderID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, eligibilityView{
		Eligible: eligibility.Eligible,
		Reason:   string(eligibility.Reason),
	})
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrOrderRefRequired
	}
	return id, nil
}
