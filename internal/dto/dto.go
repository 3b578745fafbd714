// dto.go
package dto

import (
	"time"

	"order-lifecycle-service/internal/model"
)

// CreateOrderRequest usado por la API y por el consumer de order_placed para crear la orden
type CreateOrderRequest struct {
	OrderItems      []OrderItemDTO `json:"orderItems" binding:"required,min=1,dive"`
	ShippingAddress AddressDTO     `json:"shippingAddress" binding:"required"`
	PaymentMethod   string         `json:"paymentMethod" binding:"required"`
	ShippingPrice   float64        `json:"shippingPrice" binding:"gte=0"`
	TotalPrice      float64        `json:"totalPrice" binding:"gte=0"`
}

type OrderItemDTO struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type AddressDTO struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Ward     string `json:"ward"`
	District string `json:"district"`
	City     string `json:"city"`
}

func (a AddressDTO) Model() model.Address {
	return model.Address{
		FullName: a.FullName,
		Phone:    a.Phone,
		Address:  a.Address,
		Ward:     a.Ward,
		District: a.District,
		City:     a.City,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// ListOrdersQuery se bindea desde el query string del listado admin.
type ListOrdersQuery struct {
	Status   string `form:"status"`
	FromDate string `form:"fromDate"`
	ToDate   string `form:"toDate"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type PageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Page es una respuesta paginada.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type OrderUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AdminOrderView es una fila del listado admin de órdenes.
type AdminOrderView struct {
	ID              string           `json:"id"`
	OrderNumber     string           `json:"orderNumber"`
	User            OrderUser        `json:"user"`
	TotalAmount     float64          `json:"totalAmount"`
	Items           []model.LineItem `json:"items"`
	Status          string           `json:"status"`
	PaymentMethod   string           `json:"paymentMethod"`
	CreatedAt       time.Time        `json:"createdAt"`
	DeliveryAddress string           `json:"deliveryAddress"`
	ShippingAddress model.Address    `json:"shippingAddress"`
}

// Orígenes de un WarrantyProductView.
const (
	WarrantySourceRecord = "warranty"
	WarrantySourceOrder  = "order"
)

// WarrantyProductView es un producto que sigue en garantía.
type WarrantyProductView struct {
	ID                   string    `json:"id"`
	Source               string    `json:"source"`
	ProductID            string    `json:"productId"`
	ProductName          string    `json:"productName"`
	Image                string    `json:"image,omitempty"`
	OrderID              string    `json:"orderId"`
	OrderNumber          string    `json:"orderNumber"`
	CustomerID           string    `json:"customerId"`
	SerialNumber         string    `json:"serialNumber,omitempty"`
	Status               string    `json:"status"`
	WarrantyPeriodMonths int       `json:"warrantyPeriodMonths,omitempty"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	RemainingDays        int       `json:"remainingDays"`
	UsedPercentage       int       `json:"usedPercentage"`
}
