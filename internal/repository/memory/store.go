// Package memory keeps orders, products, warranties and users in process.
// It backs tests and local runs with STORE_DRIVER=memory.
package memory

import (
	"context"
	"regexp"
	"slices"
	"sync"
	"time"

	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu         sync.RWMutex
	orders     map[primitive.ObjectID]model.Order
	products   map[primitive.ObjectID]model.Product
	warranties []model.Warranty
	users      map[primitive.ObjectID]model.User
}

func NewStore() *Store {
	return &Store{
		orders:   map[primitive.ObjectID]model.Order{},
		products: map[primitive.ObjectID]model.Product{},
		users:    map[primitive.ObjectID]model.User{},
	}
}

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }
func (s *Store) Warranties() *WarrantyRepository { return &WarrantyRepository{s: s} }
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// PutProduct upserts a product, assigning an id when missing.
func (s *Store) PutProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.products[p.ID] = p
	return p
}

// DeleteProduct drops a product; orders keep their snapshots.
func (s *Store) DeleteProduct(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// PutUser upserts a user, assigning an id when missing.
func (s *Store) PutUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.users[u.ID] = u
	return u
}

// Product returns a copy of the stored product.
func (s *Store) Product(id primitive.ObjectID) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// WarrantyRecords returns a copy of every warranty record.
func (s *Store) WarrantyRecords() []model.Warranty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.warranties)
}

func cloneOrder(o model.Order) model.Order {
	o.OrderItems = slices.Clone(o.OrderItems)
	o.StatusHistory = slices.Clone(o.StatusHistory)
	return o
}

type OrderRepository struct{ s *Store }

func (r *OrderRepository) Insert(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if _, ok := r.s.orders[o.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r *OrderRepository) Save(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.ID]; !ok {
		return repository.ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) Find(_ context.Context, q repository.OrderQuery) ([]*model.Order, error) {
	matched, err := r.match(q)
	if err != nil {
		return nil, err
	}
	if q.Skip > 0 {
		matched = matched[min(int(q.Skip), len(matched)):]
	}
	if q.Limit > 0 && int(q.Limit) < len(matched) {
		matched = matched[:q.Limit]
	}
	out := make([]*model.Order, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *OrderRepository) Count(_ context.Context, q repository.OrderQuery) (int64, error) {
	matched, err := r.match(q)
	return int64(len(matched)), err
}

func (r *OrderRepository) match(q repository.OrderQuery) ([]model.Order, error) {
	var number *regexp.Regexp
	if q.Search != nil && q.Search.NumberPattern != "" {
		re, err := regexp.Compile("(?i)" + q.Search.NumberPattern)
		if err != nil {
			return nil, err
		}
		number = re
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []model.Order
	for _, o := range r.s.orders {
		if !q.BuyerID.IsZero() && o.User.ID != q.BuyerID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		if q.WarrantyActivated && !o.WarrantyActivated {
			continue
		}
		if q.CreatedFrom != nil && o.CreatedAt.Before(*q.CreatedFrom) {
			continue
		}
		if q.CreatedBefore != nil && !o.CreatedAt.Before(*q.CreatedBefore) {
			continue
		}
		if q.Search != nil && !matchesSearch(o, q.Search, number) {
			continue
		}
		out = append(out, cloneOrder(o))
	}

	slices.SortFunc(out, func(a, b model.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func matchesSearch(o model.Order, s *repository.OrderSearch, number *regexp.Regexp) bool {
	if s.ID == nil && number == nil && len(s.BuyerIDs) == 0 {
		return true
	}
	if s.ID != nil && o.ID == *s.ID {
		return true
	}
	if number != nil && number.MatchString(o.OrderNumber) {
		return true
	}
	return slices.Contains(s.BuyerIDs, o.User.ID)
}

type ProductRepository struct{ s *Store }

func (r *ProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Product, error) {
	p, ok := r.s.Product(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *ProductRepository) AdjustStock(_ context.Context, id primitive.ObjectID, quantityDelta, soldDelta int) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.ApplyDelta(quantityDelta, soldDelta)
	r.s.products[id] = p
	return &p, nil
}

type WarrantyRepository struct{ s *Store }

func (r *WarrantyRepository) Exists(_ context.Context, orderID, productID primitive.ObjectID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.indexOf(orderID, productID) >= 0, nil
}

func (r *WarrantyRepository) indexOf(orderID, productID primitive.ObjectID) int {
	return slices.IndexFunc(r.s.warranties, func(w model.Warranty) bool {
		return w.Order == orderID && w.Product == productID
	})
}

func (r *WarrantyRepository) Insert(_ context.Context, w *model.Warranty) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.indexOf(w.Order, w.Product) >= 0 {
		return repository.ErrDuplicate
	}
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	r.s.warranties = append(r.s.warranties, *w)
	return nil
}

func (r *WarrantyRepository) FindActive(_ context.Context, now time.Time, customerID primitive.ObjectID) ([]*model.Warranty, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Warranty
	for _, w := range r.s.warranties {
		if !w.EndDate.After(now) {
			continue
		}
		if !customerID.IsZero() && w.Customer != customerID {
			continue
		}
		out = append(out, &w)
	}
	slices.SortFunc(out, func(a, b *model.Warranty) int {
		return a.EndDate.Compare(b.EndDate)
	})
	return out, nil
}

type UserRepository struct{ s *Store }

func (r *UserRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r *UserRepository) SearchIDs(_ context.Context, pattern string) ([]primitive.ObjectID, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []primitive.ObjectID
	for id, u := range r.s.users {
		if re.MatchString(u.Name) || re.MatchString(u.Phone) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
