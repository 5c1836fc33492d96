package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ordering/internal/core/application/usecases/commands"
	"ordering/internal/core/application/usecases/queries"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Server exposes the operator surface of the ordering core.
// It coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	changeOrderStatusHandler  commands.ChangeOrderStatusCommandHandler
	requeueOutboxEntryHandler commands.RequeueOutboxEntryCommandHandler

	// Query handlers
	getOrderHandler          queries.GetOrderQueryHandler
	listOutboxEntriesHandler queries.ListOutboxEntriesQueryHandler

	logger *slog.Logger
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	changeOrderStatusHandler commands.ChangeOrderStatusCommandHandler,
	requeueOutboxEntryHandler commands.RequeueOutboxEntryCommandHandler,
	getOrderHandler queries.GetOrderQueryHandler,
	listOutboxEntriesHandler queries.ListOutboxEntriesQueryHandler,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		changeOrderStatusHandler:  changeOrderStatusHandler,
		requeueOutboxEntryHandler: requeueOutboxEntryHandler,
		getOrderHandler:           getOrderHandler,
		listOutboxEntriesHandler:  listOutboxEntriesHandler,
		logger:                    logger.With("component", "http"),
	}
}

// Register mounts every route on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.Health)

	api := e.Group("/api/v1")
	api.GET("/orders/:id", s.GetOrder)
	api.POST("/orders/:id/ship", s.ShipOrder)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.GET("/outbox", s.ListOutboxEntries)
	api.POST("/outbox/:eventId/requeue", s.RequeueOutboxEntry)
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Healthy")
}

// GetOrder handles GET /api/v1/orders/:id.
func (s *Server) GetOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	result, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.failure(ctx, err)
	}

	items := make([]OrderItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Units:       item.Units,
			UnitPrice:   item.UnitPrice,
		})
	}

	return ctx.JSON(http.StatusOK, Order{
		ID:        result.ID.String(),
		BuyerID:   result.BuyerID.String(),
		BuyerName: result.BuyerName,
		Status:    result.Status,
		Version:   result.Version,
		Total:     result.Total,
		Items:     items,
	})
}

// ShipOrder handles POST /api/v1/orders/:id/ship.
func (s *Server) ShipOrder(ctx echo.Context) error {
	return s.changeStatus(ctx, commands.EffectShip)
}

// CancelOrder handles POST /api/v1/orders/:id/cancel.
func (s *Server) CancelOrder(ctx echo.Context) error {
	return s.changeStatus(ctx, commands.EffectCancel)
}

func (s *Server) changeStatus(ctx echo.Context, effect commands.Effect) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	cmd, err := commands.NewChangeOrderStatusCommand(orderID, effect)
	if err != nil {
		return badRequest(ctx, "Invalid command: "+err.Error())
	}

	applied, err := s.changeOrderStatusHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.failure(ctx, err)
	}

	if !applied {
		return ctx.JSON(http.StatusAccepted, CommandResult{Applied: false})
	}
	return ctx.JSON(http.StatusOK, CommandResult{Applied: true})
}

// ListOutboxEntries handles GET /api/v1/outbox?state=failed&limit=50.
func (s *Server) ListOutboxEntries(ctx echo.Context) error {
	stateParam := ctx.QueryParam("state")
	if stateParam == "" {
		stateParam = outbox.Failed.String()
	}
	state, err := outbox.ParseState(stateParam)
	if err != nil {
		return badRequest(ctx, "Invalid state")
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return badRequest(ctx, "Invalid limit")
		}
	}

	query, err := queries.NewListOutboxEntriesQuery(state, limit)
	if err != nil {
		return badRequest(ctx, "Invalid query: "+err.Error())
	}

	entries, err := s.listOutboxEntriesHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.failure(ctx, err)
	}

	response := make([]OutboxEntry, len(entries))
	for i, e := range entries {
		response[i] = OutboxEntry{
			EventID:       e.EventID.String(),
			OrderID:       e.OrderID.String(),
			Topic:         e.Topic,
			EventType:     e.EventType,
			State:         e.State,
			Attempts:      e.Attempts,
			LastError:     e.LastError,
			CreatedAt:     e.CreatedAt,
			PublishedAt:   e.PublishedAt,
			NextAttemptAt: e.NextAttemptAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// RequeueOutboxEntry handles POST /api/v1/outbox/:eventId/requeue.
func (s *Server) RequeueOutboxEntry(ctx echo.Context) error {
	eventID, err := kernel.UUIDFromString(ctx.Param("eventId"))
	if err != nil {
		return badRequest(ctx, "Invalid event id")
	}

	cmd, err := commands.NewRequeueOutboxEntryCommand(eventID)
	if err != nil {
		return badRequest(ctx, "Invalid command: "+err.Error())
	}

	if err = s.requeueOutboxEntryHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.failure(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// failure maps a use case error to a status code. Conflict is checked before
// the value errors because version conflicts wrap ValueIsOutOfRange.
func (s *Server) failure(ctx echo.Context, err error) error {
	var code int
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		code = http.StatusBadRequest
	default:
		code = http.StatusServiceUnavailable
		s.logger.Warn("request failed", "path", ctx.Path(), "error", err)
	}

	return ctx.JSON(code, Error{Code: code, Message: err.Error()})
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type CommandResult struct {
	Applied bool `json:"applied"`
}

type Order struct {
	ID        string      `json:"id"`
	BuyerID   string      `json:"buyerId"`
	BuyerName string      `json:"buyerName"`
	Status    string      `json:"status"`
	Version   int64       `json:"version"`
	Total     int64       `json:"total"`
	Items     []OrderItem `json:"items"`
}

type OrderItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Units       int    `json:"units"`
	UnitPrice   int64  `json:"unitPrice"`
}

type OutboxEntry struct {
	EventID       string     `json:"eventId"`
	OrderID       string     `json:"orderId"`
	Topic         string     `json:"topic"`
	EventType     string     `json:"eventType"`
	State         string     `json:"state"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"lastError,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	NextAttemptAt time.Time  `json:"nextAttemptAt"`
}
