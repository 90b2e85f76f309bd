package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductLotStatus is the lifecycle state of a lot.
type ProductLotStatus string

const (
	LotAvailable   ProductLotStatus = "AVAILABLE"
	LotQuarantined ProductLotStatus = "QUARANTINED"
	LotHold        ProductLotStatus = "HOLD"
	LotExpired     ProductLotStatus = "EXPIRED"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn       MovementType = "IN"
	MovementOut      MovementType = "OUT"
	MovementAdjust   MovementType = "ADJUST"
	MovementTransfer MovementType = "TRANSFER"
)

// ProductLot is a quantity-bearing stock record of one product at one
// location. Quantities are mutated only through the stock ledger.
type ProductLot struct {
	Base
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"productId"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	LotCode          string           `gorm:"size:80" json:"lotCode"`
	Status           ProductLotStatus `gorm:"size:20" json:"status"`
	QuantityOnHand   int              `json:"quantityOnHand"`
	QuantityReserved int              `json:"quantityReserved"`

	LocationID uuid.UUID `gorm:"type:uuid;index" json:"locationId"`
	Location   *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`

	ReceivedOn *time.Time `json:"receivedOn"`
	ExpiresOn  *time.Time `json:"expiresOn"`

	SourceReceiptID   *uuid.UUID `gorm:"type:uuid" json:"sourceReceiptId"`
	StorageConditions string     `gorm:"size:200" json:"storageConditions"`
}

// Available returns the quantity not held by reservations.
func (l *ProductLot) Available() int {
	available := l.QuantityOnHand - l.QuantityReserved
	if available < 0 {
		return 0
	}
	return available
}

// StockMovement is the audit trail row written for every ledger operation.
type StockMovement struct {
	Base
	MovementType MovementType `gorm:"size:20;index" json:"movementType"`
	ProductID    uuid.UUID    `gorm:"type:uuid;index" json:"productId"`
	ProductLotID *uuid.UUID   `gorm:"type:uuid" json:"productLotId"`
	Quantity     int          `json:"quantity"`

	FromLocationID *uuid.UUID `gorm:"type:uuid" json:"fromLocationId"`
	ToLocationID   *uuid.UUID `gorm:"type:uuid" json:"toLocationId"`

	ReasonCode  string `gorm:"size:60" json:"reasonCode"`
	ReasonNotes string `json:"reasonNotes"`
	CreatedBy   string `gorm:"size:150" json:"createdBy"`
}

// ReceiptType discriminates how goods arrived.
type ReceiptType string

const (
	ReceiptStandard ReceiptType = "STANDARD"
	ReceiptPallet   ReceiptType = "PALLET"
)

// ReceiptStatus is the lifecycle state of a receipt.
type ReceiptStatus string

const (
	ReceiptDraft     ReceiptStatus = "DRAFT"
	ReceiptReceived  ReceiptStatus = "RECEIVED"
	ReceiptCancelled ReceiptStatus = "CANCELLED"
)

// Receipt is an inbound delivery. A pallet-listing confirm creates one
// receipt shared by every applied row.
type Receipt struct {
	Base
	Reference   string        `gorm:"size:40;uniqueIndex" json:"reference"`
	ReceiptType ReceiptType   `gorm:"size:20" json:"receiptType"`
	Status      ReceiptStatus `gorm:"size:20" json:"status"`

	SourceContactID  *uuid.UUID `gorm:"type:uuid" json:"sourceContactId"`
	CarrierContactID *uuid.UUID `gorm:"type:uuid" json:"carrierContactId"`

	ReceivedOn           *time.Time `json:"receivedOn"`
	PalletCount          int        `json:"palletCount"`
	TransportRequestDate *time.Time `json:"transportRequestDate"`

	WarehouseID *uuid.UUID `gorm:"type:uuid" json:"warehouseId"`
	Warehouse   *Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`

	CreatedBy string        `gorm:"size:150" json:"createdBy"`
	Lines     []ReceiptLine `gorm:"foreignKey:ReceiptID" json:"lines,omitempty"`
}

// ReceiptLine is one product/quantity pair on a receipt.
type ReceiptLine struct {
	Base
	ReceiptID uuid.UUID `gorm:"type:uuid;index" json:"receiptId"`
	Receipt   *Receipt  `gorm:"foreignKey:ReceiptID" json:"-"`

	ProductID uuid.UUID `gorm:"type:uuid;index" json:"productId"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Quantity   int        `json:"quantity"`
	LocationID *uuid.UUID `gorm:"type:uuid" json:"locationId"`
	Location   *Location  `gorm:"foreignKey:LocationID" json:"location,omitempty"`

	LotCode           string           `gorm:"size:80" json:"lotCode"`
	LotStatus         ProductLotStatus `gorm:"size:20" json:"lotStatus"`
	ExpiresOn         *time.Time       `json:"expiresOn"`
	StorageConditions string           `gorm:"size:200" json:"storageConditions"`

	ReceivedLotID *uuid.UUID `gorm:"type:uuid" json:"receivedLotId"`
	ReceivedBy    string     `gorm:"size:150" json:"receivedBy"`
	ReceivedAt    *time.Time `json:"receivedAt"`
}
