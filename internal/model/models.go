// models.go
package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Estados de la orden.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipping   = "shipping"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Métodos de pago aceptados en el checkout.
const (
	PaymentCOD          = "cod"
	PaymentBankTransfer = "bank_transfer"
	PaymentCard         = "card"
)

// WarrantyApproved es el estado de una garantía recién activada.
// Los demás estados pertenecen al flujo de reclamos.
const WarrantyApproved = "approved"

type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OrderNumber       string             `bson:"orderNumber" json:"orderNumber"`
	User              Ref[User]          `bson:"user" json:"user"`
	OrderItems        []LineItem         `bson:"orderItems" json:"orderItems"`
	ShippingAddress   Address            `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod     string             `bson:"paymentMethod" json:"paymentMethod"`
	ItemsPrice        float64            `bson:"itemsPrice" json:"itemsPrice"`
	ShippingPrice     float64            `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice        float64            `bson:"totalPrice" json:"totalPrice"`
	Status            string             `bson:"status" json:"status"`
	IsPaid            bool               `bson:"isPaid" json:"isPaid"`
	PaidAt            *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	DeliveredAt       *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	WarrantyActivated bool               `bson:"warrantyActivated" json:"warrantyActivated"`
	WarrantyStartDate *time.Time         `bson:"warrantyStartDate,omitempty" json:"warrantyStartDate,omitempty"`
	StatusHistory     []StatusRecord     `bson:"statusHistory" json:"statusHistory"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// LineItem es la foto de un producto comprado. Nombre y precio no cambian
// aunque después se edite el producto.
type LineItem struct {
	Product              Ref[Product] `bson:"product" json:"product"`
	Name                 string       `bson:"name" json:"name"`
	Image                string       `bson:"image,omitempty" json:"image,omitempty"`
	Price                float64      `bson:"price" json:"price"`
	Quantity             int          `bson:"quantity" json:"quantity"`
	WarrantyPeriodMonths int          `bson:"warrantyPeriodMonths" json:"warrantyPeriodMonths"`
	SerialNumber         string       `bson:"serialNumber,omitempty" json:"serialNumber,omitempty"`
	WarrantyStartDate    *time.Time   `bson:"warrantyStartDate,omitempty" json:"warrantyStartDate,omitempty"`
	WarrantyEndDate      *time.Time   `bson:"warrantyEndDate,omitempty" json:"warrantyEndDate,omitempty"`
}

type Address struct {
	FullName string `bson:"fullName" json:"fullName"`
	Phone    string `bson:"phone" json:"phone"`
	Address  string `bson:"address" json:"address"`
	Ward     string `bson:"ward,omitempty" json:"ward,omitempty"`
	District string `bson:"district,omitempty" json:"district,omitempty"`
	City     string `bson:"city" json:"city"`
}

// Join arma la dirección en una sola línea de entrega.
func (a Address) Join() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Address, a.Ward, a.District, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type StatusRecord struct {
	Status    string    `bson:"status" json:"status"`
	UpdatedBy string    `bson:"updatedBy" json:"updatedBy"`
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Product struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name                 string             `bson:"name" json:"name"`
	Image                string             `bson:"image,omitempty" json:"image,omitempty"`
	Price                float64            `bson:"price" json:"price"`
	CountInStock         int                `bson:"countInStock" json:"countInStock"`
	NumSold              int                `bson:"numSold" json:"numSold"`
	WarrantyPeriodMonths int                `bson:"warrantyPeriodMonths" json:"warrantyPeriodMonths"`
}

// ApplyDelta mueve los contadores de stock, sin bajar de cero.
func (p *Product) ApplyDelta(quantityDelta, soldDelta int) {
	p.CountInStock = max(0, p.CountInStock+quantityDelta)
	p.NumSold = max(0, p.NumSold+soldDelta)
}

// Warranty es el registro reclamable, uno por (orden, producto).
type Warranty struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Product         primitive.ObjectID `bson:"product" json:"product"`
	Customer        primitive.ObjectID `bson:"customer" json:"customer"`
	Order           primitive.ObjectID `bson:"order" json:"order"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	ProductName     string             `bson:"productName" json:"productName"`
	SerialNumber    string             `bson:"serialNumber" json:"serialNumber"`
	StartDate       time.Time          `bson:"startDate" json:"startDate"`
	EndDate         time.Time          `bson:"endDate" json:"endDate"`
	Status          string             `bson:"status" json:"status"`
	Method          string             `bson:"method" json:"method"`
	Price           float64            `bson:"price" json:"price"`
	Description     string             `bson:"description" json:"description"`
	ResponseMessage string             `bson:"responseMessage,omitempty" json:"responseMessage,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type User struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone string             `bson:"phone,omitempty" json:"phone,omitempty"`
}
