package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
	"github.com/rl1809/order-service/internal/logging"
)

const (
	msgOrderNotFound  = "Order not found"
	msgDeleted        = "Deleted"
	msgInvalidJSON    = "invalid JSON"
	msgUserIDInteger  = "The user field must be an integer."
	msgInternalServer = "Internal server error"
)

// OrderService is the lifecycle API both transports call into.
type OrderService interface {
	Create(ctx context.Context, in service.CreateOrderInput) (domain.Order, error)
	Get(ctx context.Context, id int64) (domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (domain.OrderStatus, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
}

type HTTPHandler struct {
	orderService OrderService
}

type envelope struct {
	Status bool `json:"status"`
	Data   any  `json:"data"`
}

type statusData struct {
	Status domain.OrderStatus `json:"status"`
}

func NewHTTPHandler(orderService OrderService) *HTTPHandler {
	return &HTTPHandler{orderService: orderService}
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), service.CreateOrderInput{
		UserID:      body["user_id"],
		ProductList: body["product_list"],
		TotalAmount: body["total_amount"],
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, envelope{Status: true, Data: order})
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Status: true, Data: order})
}

func (h *HTTPHandler) UpdateOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	body, ok := bindObject(c)
	if !ok {
		return
	}

	status, err := h.orderService.UpdateStatus(c.Request.Context(), id, statusField(body["status"]))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Status: true, Data: statusData{Status: status}})
}

func (h *HTTPHandler) DeleteOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Status: true, Data: msgDeleted})
}

func (h *HTTPHandler) ListUserOrders(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, envelope{Data: map[string][]string{"user": {msgUserIDInteger}}})
		return
	}

	orders, err := h.orderService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Status: true, Data: orders})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// orderID treats a malformed id like a missing row.
func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, envelope{Data: msgOrderNotFound})
		return 0, false
	}
	return id, true
}

// bindObject decodes a JSON object body with numbers kept as json.Number.
// An empty body is an empty object so field validation reports what is missing.
func bindObject(c *gin.Context) (map[string]any, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, envelope{Data: map[string][]string{"body": {msgInvalidJSON}}})
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, true
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		c.JSON(http.StatusBadRequest, envelope{Data: map[string][]string{"body": {msgInvalidJSON}}})
		return nil, false
	}
	return body, true
}

func statusField(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func writeError(c *gin.Context, err error) {
	var (
		verr *domain.ValidationError
		nerr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, envelope{Data: verr.Fields})
	case errors.As(err, &nerr):
		c.JSON(http.StatusNotFound, envelope{Data: msgOrderNotFound})
	default:
		logging.From(c).Error("request failed", "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, envelope{Data: internalMessage(err)})
	}
}

// internalMessage names the failed operation without leaking driver detail.
func internalMessage(err error) string {
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		return "failed to " + perr.Op
	}
	return msgInternalServer
}
