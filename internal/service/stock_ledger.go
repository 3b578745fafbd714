package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
)

// StockLedger mantiene countInStock y numSold al día con entregas y
// cancelaciones. Cada item se ajusta por separado, sin rollback entre items.
type StockLedger struct {
	products ProductRepository
	log      *zap.Logger
}

func NewStockLedger(products ProductRepository, logger *zap.Logger) *StockLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockLedger{products: products, log: logger}
}

// ApplyDelta mueve los contadores del producto, sin bajar de cero.
func (l *StockLedger) ApplyDelta(ctx context.Context, productID primitive.ObjectID, quantityDelta, soldDelta int) (*model.Product, error) {
	p, err := l.products.AdjustStock(ctx, productID, quantityDelta, soldDelta)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID.Hex())
	}
	return p, err
}

// Deliver descuenta del stock la cantidad de cada item y la suma a vendidos.
func (l *StockLedger) Deliver(ctx context.Context, order *model.Order) {
	l.reconcile(ctx, order, -1, "deliver")
}

// Restock deshace Deliver.
func (l *StockLedger) Restock(ctx context.Context, order *model.Order) {
	l.reconcile(ctx, order, 1, "restock")
}

func (l *StockLedger) reconcile(ctx context.Context, order *model.Order, sign int, op string) {
	for _, item := range order.OrderItems {
		if item.Product.IsZero() || item.Quantity <= 0 {
			continue
		}
		p, err := l.ApplyDelta(ctx, item.Product.ID, sign*item.Quantity, -sign*item.Quantity)
		if err != nil {
			l.log.Warn("stock reconciliation skipped",
				zap.String("op", op),
				zap.String("order_id", order.ID.Hex()),
				zap.String("product_id", item.Product.ID.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			continue
		}
		l.log.Debug("stock reconciled",
			zap.String("op", op),
			zap.String("product_id", p.ID.Hex()),
			zap.Int("count_in_stock", p.CountInStock),
			zap.Int("num_sold", p.NumSold),
		)
	}
}
