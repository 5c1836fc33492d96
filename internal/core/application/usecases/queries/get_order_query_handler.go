package queries

import (
	"context"
	"errors"

	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// GetOrderQueryHandler reads outside of any transaction; the order and its
// buyer are loaded by two independent statements.
type GetOrderQueryHandler struct {
	uowFactory ports.UnitOfWorkFactory
}

func NewGetOrderQueryHandler(uowFactory ports.UnitOfWorkFactory) GetOrderQueryHandler {
	return GetOrderQueryHandler{uowFactory: uowFactory}
}

// Handle returns errs.ObjectNotFoundError when the order does not exist. A
// missing buyer leaves BuyerName empty.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (GetOrderQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderQueryResponse{}, err
	}

	uow := h.uowFactory.Create()

	o, err := uow.OrderRepository().Get(ctx, query.OrderID())
	if err != nil {
		return GetOrderQueryResponse{}, err
	}

	response := GetOrderQueryResponse{
		ID:      o.ID(),
		BuyerID: o.BuyerID(),
		Status:  o.Status().String(),
		Version: o.Version(),
		Total:   o.Total(),
	}

	b, err := uow.BuyerRepository().Get(ctx, o.BuyerID())
	switch {
	case err == nil:
		response.BuyerName = b.Name()
	case !errors.Is(err, errs.ErrObjectNotFound):
		return GetOrderQueryResponse{}, err
	}

	for _, item := range o.Items() {
		response.Items = append(response.Items, OrderItemResponse{
			ProductID:   item.ProductID(),
			ProductName: item.ProductName(),
			Units:       item.Units(),
			UnitPrice:   item.UnitPrice(),
		})
	}

	return response, nil
}
