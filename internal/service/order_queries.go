package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	// MaxPage mantiene (Page-1)*Limit lejos del overflow de int.
	MaxPage = 1_000_000

	day = 24 * time.Hour
)

// Pagination pide una página (empieza en 1).
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Pagination) skip() int {
	return (p.Page - 1) * p.Limit
}

func totalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// OrderFilters filtra el listado admin. ToDate incluye el día completo.
type OrderFilters struct {
	Status   string
	FromDate *time.Time
	ToDate   *time.Time
	Search   string
}

// WarrantyFilters filtra la vista de garantías; CustomerID vacío lista a todos.
type WarrantyFilters struct {
	CustomerID string
}

// ListOrders devuelve el listado admin, las más nuevas primero.
func (s *OrderService) ListOrders(ctx context.Context, f OrderFilters, page Pagination) (dto.Page[dto.AdminOrderView], error) {
	page = page.normalize()
	q, err := s.adminOrderQuery(ctx, f)
	if err != nil {
		return dto.Page[dto.AdminOrderView]{}, err
	}

	total, err := s.orders.Count(ctx, q)
	if err != nil {
		return dto.Page[dto.AdminOrderView]{}, err
	}
	q.Skip, q.Limit = int64(page.skip()), int64(page.Limit)
	orders, err := s.orders.Find(ctx, q)
	if err != nil {
		return dto.Page[dto.AdminOrderView]{}, err
	}

	if err := s.resolveBuyers(ctx, orders); err != nil {
		return dto.Page[dto.AdminOrderView]{}, err
	}

	items := make([]dto.AdminOrderView, 0, len(orders))
	for _, o := range orders {
		items = append(items, adminOrderView(o))
	}
	return dto.Page[dto.AdminOrderView]{Items: items, Total: total, TotalPages: totalPages(total, page.Limit)}, nil
}

func (s *OrderService) adminOrderQuery(ctx context.Context, f OrderFilters) (repository.OrderQuery, error) {
	q := repository.OrderQuery{}
	if f.Status != "" {
		if !IsValidStatus(f.Status) {
			return q, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
		}
		q.Status = f.Status
	}
	if f.FromDate != nil {
		from := *f.FromDate
		q.CreatedFrom = &from
	}
	if f.ToDate != nil {
		before := f.ToDate.Add(day)
		q.CreatedBefore = &before
	}

	text := strings.TrimSpace(f.Search)
	if text == "" {
		return q, nil
	}
	pattern := regexp.QuoteMeta(text)
	search := &repository.OrderSearch{NumberPattern: pattern}
	if id, err := primitive.ObjectIDFromHex(text); err == nil {
		search.ID = &id
	}
	buyers, err := s.users.SearchIDs(ctx, pattern)
	if err != nil {
		return q, err
	}
	search.BuyerIDs = buyers
	q.Search = search
	return q, nil
}

func (s *OrderService) resolveBuyers(ctx context.Context, orders []*model.Order) error {
	users, err := s.users.FindByIDs(ctx, buyerIDs(orders))
	if err != nil {
		return err
	}
	byID := make(map[primitive.ObjectID]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = *u
	}
	for _, o := range orders {
		if u, ok := byID[o.User.ID]; ok {
			o.User = o.User.Resolve(u)
		}
	}
	return nil
}

func adminOrderView(o *model.Order) dto.AdminOrderView {
	user := dto.OrderUser{ID: o.User.ID.Hex(), Name: o.ShippingAddress.FullName}
	if u, ok := o.User.Resolved(); ok && u.Name != "" {
		user.Name = u.Name
	}
	items := o.OrderItems
	if items == nil {
		items = []model.LineItem{}
	}
	return dto.AdminOrderView{
		ID:              o.ID.Hex(),
		OrderNumber:     o.OrderNumber,
		User:            user,
		TotalAmount:     o.TotalPrice,
		Items:           items,
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		CreatedAt:       o.CreatedAt,
		DeliveryAddress: o.ShippingAddress.Join(),
		ShippingAddress: o.ShippingAddress,
	}
}

// ListUserOrders devuelve todas las órdenes de un comprador, las más nuevas primero.
func (s *OrderService) ListUserOrders(ctx context.Context, buyerID string) ([]*model.Order, error) {
	id, err := parseID("buyer", buyerID)
	if err != nil {
		return nil, err
	}
	return s.orders.Find(ctx, repository.OrderQuery{BuyerID: id})
}

// ListDeliveredOrders devuelve las órdenes entregadas del comprador, con el
// producto de cada item resuelto si todavía existe.
func (s *OrderService) ListDeliveredOrders(ctx context.Context, buyerID string) ([]*model.Order, error) {
	id, err := parseID("buyer", buyerID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.Find(ctx, repository.OrderQuery{BuyerID: id, Status: model.StatusDelivered})
	if err != nil {
		return nil, err
	}

	var missing []primitive.ObjectID
	for _, o := range orders {
		if o.OrderItems == nil {
			o.OrderItems = []model.LineItem{}
		}
		for _, it := range o.OrderItems {
			if _, ok := it.Product.Resolved(); !ok && !it.Product.IsZero() && !slices.Contains(missing, it.Product.ID) {
				missing = append(missing, it.Product.ID)
			}
		}
	}
	if len(missing) == 0 {
		return orders, nil
	}

	products, err := s.products.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = *p
	}
	for _, o := range orders {
		for i := range o.OrderItems {
			it := &o.OrderItems[i]
			if _, ok := it.Product.Resolved(); ok {
				continue
			}
			if p, ok := byID[it.Product.ID]; ok {
				it.Product = it.Product.Resolve(p)
			}
		}
	}
	return orders, nil
}

// ListProductsUnderWarranty junta las garantías vigentes con las ventanas
// vigentes guardadas en órdenes activadas, ordenadas por menos días restantes.
// La paginación se aplica después del merge.
func (s *OrderService) ListProductsUnderWarranty(ctx context.Context, f WarrantyFilters, page Pagination) (dto.Page[dto.WarrantyProductView], error) {
	page = page.normalize()
	var customer primitive.ObjectID
	if strings.TrimSpace(f.CustomerID) != "" {
		id, err := parseID("customer", f.CustomerID)
		if err != nil {
			return dto.Page[dto.WarrantyProductView]{}, err
		}
		customer = id
	}

	now := s.clock()
	records, err := s.warranties.FindActive(ctx, now, customer)
	if err != nil {
		return dto.Page[dto.WarrantyProductView]{}, err
	}
	orders, err := s.orders.Find(ctx, repository.OrderQuery{BuyerID: customer, WarrantyActivated: true})
	if err != nil {
		return dto.Page[dto.WarrantyProductView]{}, err
	}

	views := mergeWarrantyViews(records, orders, now)
	total := int64(len(views))
	start := max(0, min(page.skip(), len(views)))
	end := max(start, min(start+page.Limit, len(views)))
	return dto.Page[dto.WarrantyProductView]{
		Items:      views[start:end],
		Total:      total,
		TotalPages: totalPages(total, page.Limit),
	}, nil
}

type orderProduct struct {
	order, product primitive.ObjectID
}

func mergeWarrantyViews(records []*model.Warranty, orders []*model.Order, now time.Time) []dto.WarrantyProductView {
	views := make([]dto.WarrantyProductView, 0, len(records))
	covered := make(map[orderProduct]bool, len(records))

	for _, w := range records {
		if !w.EndDate.After(now) {
			continue
		}
		covered[orderProduct{w.Order, w.Product}] = true
		remaining, used := warrantyUsage(w.StartDate, w.EndDate, now)
		views = append(views, dto.WarrantyProductView{
			ID:             w.ID.Hex(),
			Source:         dto.WarrantySourceRecord,
			ProductID:      w.Product.Hex(),
			ProductName:    w.ProductName,
			OrderID:        w.Order.Hex(),
			OrderNumber:    w.OrderNumber,
			CustomerID:     w.Customer.Hex(),
			SerialNumber:   w.SerialNumber,
			Status:         w.Status,
			StartDate:      w.StartDate,
			EndDate:        w.EndDate,
			RemainingDays:  remaining,
			UsedPercentage: used,
		})
	}

	for _, o := range orders {
		if !o.WarrantyActivated {
			continue
		}
		for _, it := range o.OrderItems {
			if it.WarrantyPeriodMonths <= 0 || it.WarrantyEndDate == nil || !it.WarrantyEndDate.After(now) {
				continue
			}
			if covered[orderProduct{o.ID, it.Product.ID}] {
				continue
			}
			start := it.WarrantyEndDate.Add(-time.Duration(it.WarrantyPeriodMonths*warrantyDaysPerMonth) * day)
			if it.WarrantyStartDate != nil {
				start = *it.WarrantyStartDate
			}
			remaining, used := warrantyUsage(start, *it.WarrantyEndDate, now)
			views = append(views, dto.WarrantyProductView{
				ID:                   o.ID.Hex() + ":" + it.Product.ID.Hex(),
				Source:               dto.WarrantySourceOrder,
				ProductID:            it.Product.ID.Hex(),
				ProductName:          it.Name,
				Image:                it.Image,
				OrderID:              o.ID.Hex(),
				OrderNumber:          o.OrderNumber,
				CustomerID:           o.User.ID.Hex(),
				SerialNumber:         it.SerialNumber,
				Status:               model.WarrantyApproved,
				WarrantyPeriodMonths: it.WarrantyPeriodMonths,
				StartDate:            start,
				EndDate:              *it.WarrantyEndDate,
				RemainingDays:        remaining,
				UsedPercentage:       used,
			})
		}
	}

	slices.SortStableFunc(views, func(a, b dto.WarrantyProductView) int {
		return a.RemainingDays - b.RemainingDays
	})
	return views
}

// warrantyUsage devuelve los días restantes (redondeando hacia arriba) y el
// porcentaje de la ventana ya usado, acotado a [0, 100].
func warrantyUsage(start, end, now time.Time) (remainingDays, usedPercentage int) {
	remainingDays = int(math.Ceil(float64(end.Sub(now)) / float64(day)))
	totalDays := float64(end.Sub(start)) / float64(day)
	if totalDays <= 0 {
		return remainingDays, 100
	}
	used := math.Round((totalDays - float64(remainingDays)) / totalDays * 100)
	return remainingDays, int(math.Max(0, math.Min(100, used)))
}
