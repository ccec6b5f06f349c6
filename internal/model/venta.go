package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta is an order placed against a mesa. RestauranteID, SucursalID and
// MesaNumero are copied from the mesa at insert time.
type Venta struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestauranteID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SucursalID    uuid.UUID       `gorm:"type:uuid;not null"`
	MesaID        *uuid.UUID      `gorm:"type:uuid;index"`
	MesaNumero    *int
	VendedorID    uuid.UUID       `gorm:"type:uuid;not null"`
	MetodoPagoID  *uuid.UUID      `gorm:"type:uuid;index"`
	TipoServicio  string          `gorm:"type:varchar(20);not null;default:'mesa'"`
	Estado        string          `gorm:"type:varchar(20);not null;default:'recibido'"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Fecha         time.Time       `gorm:"not null"`
	Observaciones *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Detalles []DetalleVenta `gorm:"foreignKey:VentaID"`
	Vendedor *Vendedor      `gorm:"foreignKey:VendedorID"`
}

func (Venta) TableName() string { return "ventas" }

// DetalleVenta is one line of a venta. Subtotal is a generated column in the
// database (cantidad * precio_unitario) and is never written by the app.
type DetalleVenta struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Orden          int             `gorm:"not null;default:0"` // position inside the venta
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"->;type:decimal(12,2)"`
	Observaciones  *string
	CreatedAt      time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (DetalleVenta) TableName() string { return "detalle_ventas" }

// CalcularSubtotal mirrors the generated column so callers can use the line
// before it is read back from the database.
func (d DetalleVenta) CalcularSubtotal() decimal.Decimal {
	return d.PrecioUnitario.Mul(decimal.NewFromInt(int64(d.Cantidad)))
}
