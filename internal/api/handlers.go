package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/internal/repository"
	"github.com/cleanpress/laundry-pos/internal/service"
	apperrors "github.com/cleanpress/laundry-pos/pkg/errors"
)

// ApiResponse is the envelope every endpoint responds with
type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PaginationResponse wraps a paginated list
type PaginationResponse struct {
	Items      interface{} `json:"items"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("Health check database ping failed", "error", err)
		status = "degraded"
	}

	health := Health{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))

	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err = strconv.Atoi(r.URL.Query().Get("pageSize"))

	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	return page, pageSize
}

// getOrdersHandler returns a page of orders, newest first
func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, pageSize := parsePagination(r)
	offset := (page - 1) * pageSize

	orders, err := s.orderService.GetAllOrders(ctx, pageSize, offset)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	total, err := s.orderService.CountOrders(ctx)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: PaginationResponse{
			Items:      orders,
			TotalCount: total,
			Page:       page,
			PageSize:   pageSize,
		},
	})
}

// createOrderHandler takes in a new order
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var input service.CreateOrderInput

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.CreateOrder(r.Context(), input)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// getOrderByIDHandler returns an order by ID
func (s *Server) getOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := s.orderService.GetOrder(r.Context(), id)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// updateOrderStatusHandler moves an order through the workflow
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status models.OrderStatus `json:"status"`
	}

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.UpdateStatus(r.Context(), id, req.Status)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// updateOrderPaymentHandler settles or unsettles an order
func (s *Server) updateOrderPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		IsPaid        bool                 `json:"is_paid"`
		PaymentMethod models.PaymentMethod `json:"payment_method"`
	}

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.UpdatePayment(r.Context(), id, req.IsPaid, req.PaymentMethod)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// manualReminderHandler prepares a WhatsApp deep link for the operator.
// The body is optional; an event_kind overrides the status-based default.
func (s *Server) manualReminderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		EventKind models.EventKind `json:"event_kind"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	link, err := s.orderService.ManualReminderLink(r.Context(), id, req.EventKind)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]string{
			"link": link,
		},
	})
}

// statsHandler returns the dashboard summary
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orderService.Stats(r.Context())

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    stats,
	})
}

// getNotificationSettingsHandler returns the settings currently in effect
func (s *Server) getNotificationSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings := s.settingsService.Get(r.Context())

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    settings,
	})
}

// updateNotificationSettingsHandler persists new settings and applies them
// without a restart
func (s *Server) updateNotificationSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var settings models.NotificationSettings

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&settings); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := s.settingsService.Update(r.Context(), settings); err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    settings,
	})
}

// listInventoryHandler returns all tracked consumables
func (s *Server) listInventoryHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.orderService.ListInventory(r.Context())

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    items,
	})
}

// createInventoryItemHandler registers a new consumable
func (s *Server) createInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		Unit      string  `json:"unit"`
		Stock     float64 `json:"stock"`
		Threshold float64 `json:"threshold"`
	}

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	item, err := s.orderService.CreateInventoryItem(r.Context(), req.Name, req.Unit, req.Stock, req.Threshold)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    item,
	})
}

// adjustStockHandler applies a signed stock delta to a consumable
func (s *Server) adjustStockHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Delta float64 `json:"delta"`
	}

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	item, err := s.orderService.AdjustStock(r.Context(), id, req.Delta)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    item,
	})
}

// notificationStatusHandler exposes the gateway breaker and rate bucket
// for monitoring
func (s *Server) notificationStatusHandler(w http.ResponseWriter, r *http.Request) {
	settings := s.settingsStore.Current()

	status := map[string]interface{}{
		"configured": settings.Configured(),
		"enabled":    settings.Enabled,
		"gateway":    s.gateway.Metrics(),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    status,
	})
}

// respondWithServiceError maps service and repository errors onto HTTP
// status codes
func (s *Server) respondWithServiceError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError

	if errors.As(err, &appErr) {
		s.respondWithError(w, appErr.StatusCode, appErr.Message)
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Resource not found")
		return
	}

	s.logger.Error("Unhandled service error", "error", err)
	s.respondWithError(w, http.StatusInternalServerError, "Internal server error")
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
