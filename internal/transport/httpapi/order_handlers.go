package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/intake"
	"github.com/vladislavdragonenkov/storefront/internal/service/review"
	"github.com/vladislavdragonenkov/storefront/internal/service/status"
)

const (
	headerIdempotencyKey = "Idempotency-Key"

	maxRequestBody = 1 << 20

	defaultListLimit = 20
	maxListLimit     = 100
)

// handlers связывает HTTP-маршруты с сервисами витрины.
type handlers struct {
	intake  *intake.Service
	status  *status.Service
	reviews *review.Service

	orders      domain.OrderRepository
	timeline    domain.TimelineRepository
	idempotency domain.IdempotencyRepository

	logger *log.Entry
}

// bufferedResponse накапливает ответ в памяти, чтобы перед отправкой
// сохранить его в idempotency-хранилище.
type bufferedResponse struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: http.Header{}, code: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) { b.code = code }

func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedResponse) flush(w http.ResponseWriter) {
	for name, values := range b.header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(b.code)
	_, _ = w.Write(b.body.Bytes())
}

// placeOrder оформляет заказ. При наличии заголовка Idempotency-Key повтор
// того же запроса возвращает сохранённый ответ вместо повторного оформления.
func (h *handlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, "bad_request", "failed to read request body", nil)
		return
	}

	var payload placeOrderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key == "" || h.idempotency == nil {
		h.executePlaceOrder(w, r, payload)
		return
	}

	sum := sha256.Sum256(body)
	requestHash := hex.EncodeToString(sum[:])

	record, err := h.idempotency.CreateProcessing(key, requestHash, time.Time{})
	switch {
	case err == nil:
		// первый запрос с этим ключом
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeError(h.logger, w, err)
		return
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone:
			h.replayStoredResponse(w, record)
			return
		case domain.IdempotencyStatusProcessing:
			writeErrorBody(w, http.StatusConflict, "idempotency_conflict",
				"request with this idempotency key is still processing", nil)
			return
		case domain.IdempotencyStatusFailed:
			// прошлая попытка упала, разрешаем повторить
		}
	default:
		writeError(h.logger, w, err)
		return
	}

	buffered := newBufferedResponse()
	h.executePlaceOrder(buffered, r, payload)

	if buffered.code < http.StatusBadRequest {
		if markErr := h.idempotency.MarkDone(key, buffered.body.Bytes(), buffered.code); markErr != nil {
			h.logger.WithError(markErr).WithField("idempotency_key", key).Error("failed to cache idempotent response")
		}
	} else {
		if markErr := h.idempotency.MarkFailed(key, buffered.body.Bytes(), buffered.code); markErr != nil {
			h.logger.WithError(markErr).WithField("idempotency_key", key).Error("failed to mark idempotency key failed")
		}
	}

	buffered.flush(w)
}

func (h *handlers) replayStoredResponse(w http.ResponseWriter, record domain.IdempotencyRecord) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Replay", "true")
	code := record.HTTPStatus
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	_, _ = w.Write(record.ResponseBody)
}

func (h *handlers) executePlaceOrder(w http.ResponseWriter, r *http.Request, payload placeOrderPayload) {
	input := intake.PlaceOrderInput{
		UserID:        userID(r),
		SubtotalMinor: payload.SubtotalMinor,
		ShippingMinor: payload.ShippingMinor,
		TaxMinor:      payload.TaxMinor,
		TotalMinor:    payload.TotalMinor,
		Customer: domain.CustomerDetails{
			Name:       payload.Customer.Name,
			Email:      payload.Customer.Email,
			Phone:      payload.Customer.Phone,
			Address:    payload.Customer.Address,
			City:       payload.Customer.City,
			PostalCode: payload.Customer.PostalCode,
			Country:    payload.Customer.Country,
		},
		Payment: domain.PaymentDetails{
			Method:    payload.Payment.Method,
			CardLast4: payload.Payment.CardLast4,
		},
		Notes: payload.Notes,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, intake.ItemInput{ProductID: item.ProductID, Qty: item.Qty})
	}

	order, err := h.intake.PlaceOrder(input)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderView(order))
}

// listUserOrders возвращает заказы текущего пользователя, новые первыми.
func (h *handlers) listUserOrders(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultListLimit)

	orders, err := h.orders.ListByUser(userID(r), limit)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	writeJSON(w, http.StatusOK, views)
}

// getOrder возвращает заказ по id или номеру. Чужие заказы для обычного
// пользователя неотличимы от несуществующих.
func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseOrderRef(chi.URLParam(r, "ref"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	order, err := h.orders.Get(ref)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if order.UserID != userID(r) && !isAdmin(r) {
		writeError(h.logger, w, domain.ErrOrderNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toOrderView(order))
}

// adminGetOrder возвращает заказ вместе с его timeline.
func (h *handlers) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseOrderRef(chi.URLParam(r, "ref"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	order, err := h.orders.Get(ref)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	view := adminOrderView{orderView: toOrderView(order)}
	if h.timeline != nil {
		events, listErr := h.timeline.List(order.ID)
		if listErr != nil {
			h.logger.WithError(listErr).WithField("order_id", order.ID).Warn("failed to load order timeline")
		}
		for _, event := range events {
			view.Timeline = append(view.Timeline, timelineEventView{
				ID:       event.ID,
				Type:     event.Type,
				Reason:   event.Reason,
				Occurred: event.Occurred,
			})
		}
	}

	writeJSON(w, http.StatusOK, view)
}

// adminUpdateStatus переводит заказ в следующий статус жизненного цикла.
func (h *handlers) adminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseOrderRef(chi.URLParam(r, "ref"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	var payload updateStatusPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	order, err := h.status.Change(ref, domain.OrderStatus(payload.Status), payload.TrackingNumber, payload.Notes)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderView(order))
}

func parseLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
