package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
)

const (
	warrantyDaysPerMonth = 30
	warrantyMethod       = "activation"
	serialPrefix         = "W-"
	serialSuffixLen      = 8
)

// WarrantyWindow devuelve [start, end) para una garantía de periodMonths meses.
// Un mes son 30 días fijos, no un mes calendario.
func WarrantyWindow(start time.Time, periodMonths int) (time.Time, time.Time) {
	return start, start.Add(time.Duration(periodMonths*warrantyDaysPerMonth) * 24 * time.Hour)
}

// WarrantyEngine marca las órdenes entregadas como en garantía y crea los
// registros reclamables.
type WarrantyEngine struct {
	warranties WarrantyRepository
	log        *zap.Logger
	clock      func() time.Time
	newID      func() string
}

func NewWarrantyEngine(warranties WarrantyRepository, logger *zap.Logger, clock func() time.Time, newID func() string) *WarrantyEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarrantyEngine{warranties: warranties, log: logger, clock: clock, newID: newID}
}

// Activate setea los flags de la orden y la ventana de cada item. Los registros
// solo se crean si no activa un admin, a lo sumo uno por (orden, producto).
// Si falla un registro se loguea; los cambios de la orden quedan igual.
func (e *WarrantyEngine) Activate(ctx context.Context, order *model.Order, actorIsAdmin bool) {
	start := e.clock()
	if order.DeliveredAt != nil {
		start = *order.DeliveredAt
	}

	if order.WarrantyStartDate == nil {
		order.WarrantyStartDate = &start
	}
	order.WarrantyActivated = true

	for i := range order.OrderItems {
		item := &order.OrderItems[i]
		if item.WarrantyPeriodMonths <= 0 {
			continue
		}
		if item.WarrantyStartDate == nil || item.WarrantyEndDate == nil {
			from, to := WarrantyWindow(start, item.WarrantyPeriodMonths)
			item.WarrantyStartDate, item.WarrantyEndDate = &from, &to
		}
	}

	if actorIsAdmin {
		return
	}

	for i := range order.OrderItems {
		item := &order.OrderItems[i]
		if item.WarrantyPeriodMonths <= 0 || item.Product.IsZero() {
			continue
		}
		if err := e.createRecord(ctx, order, item); err != nil {
			e.log.Error("warranty record not created",
				zap.String("order_id", order.ID.Hex()),
				zap.String("product_id", item.Product.ID.Hex()),
				zap.Error(err),
			)
		}
	}
}

func (e *WarrantyEngine) createRecord(ctx context.Context, order *model.Order, item *model.LineItem) error {
	exists, err := e.warranties.Exists(ctx, order.ID, item.Product.ID)
	if err != nil {
		return fmt.Errorf("check existing warranty: %w", err)
	}
	if exists {
		return nil
	}

	if item.SerialNumber == "" {
		item.SerialNumber = e.fallbackSerial()
	}

	now := e.clock()
	w := &model.Warranty{
		Product:      item.Product.ID,
		Customer:     order.User.ID,
		Order:        order.ID,
		OrderNumber:  order.OrderNumber,
		ProductName:  item.Name,
		SerialNumber: item.SerialNumber,
		StartDate:    *item.WarrantyStartDate,
		EndDate:      *item.WarrantyEndDate,
		Status:       model.WarrantyApproved,
		Method:       warrantyMethod,
		Price:        0,
		Description:  fmt.Sprintf("Warranty activated on delivery of order %s", order.OrderNumber),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = e.warranties.Insert(ctx, w)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return err
	}

	e.log.Info("warranty record created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("product_id", item.Product.ID.Hex()),
		zap.String("serial_number", w.SerialNumber),
		zap.Time("end_date", w.EndDate),
	)
	return nil
}

func (e *WarrantyEngine) fallbackSerial() string {
	id := e.newID()
	if len(id) > serialSuffixLen {
		id = id[len(id)-serialSuffixLen:]
	}
	return serialPrefix + id
}
