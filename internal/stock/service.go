// Package stock is the movement-backed ledger: every change to a lot's
// on-hand quantity is recorded as a StockMovement, and receipts flip to
// RECEIVED once their last line lands.
package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wms-service/internal/importer"
	"wms-service/internal/models"
)

// Error is a stock invariant violation. Its message is operator-facing and
// importers surface it verbatim as a row error.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(msg string) *Error { return &Error{Message: msg} }

// Service executes ledger operations against the database.
type Service struct {
	db *gorm.DB
}

// NewService builds a ledger over the given database handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// WithTx returns a Service bound to an open transaction.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx}
}

// Receive creates a lot holding the received quantity and records the IN
// movement, in one transaction.
func (s *Service) Receive(ctx context.Context, params importer.ReceiveParams) (*models.ProductLot, error) {
	if params.Quantity <= 0 {
		return nil, errf("invalid quantity")
	}
	if params.LocationID == uuid.Nil {
		return nil, errf("location required for receiving")
	}
	status := params.Status
	if status == "" {
		status = models.LotAvailable
	}

	var lot *models.ProductLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		lot = &models.ProductLot{
			ProductID:         params.ProductID,
			LotCode:           params.LotCode,
			Status:            status,
			QuantityOnHand:    params.Quantity,
			LocationID:        params.LocationID,
			ReceivedOn:        &now,
			ExpiresOn:         params.ExpiresOn,
			SourceReceiptID:   params.SourceReceiptID,
			StorageConditions: params.StorageConditions,
		}
		lot.EnsureID()
		if err := tx.Create(lot).Error; err != nil {
			return err
		}
		locationID := params.LocationID
		movement := &models.StockMovement{
			MovementType: models.MovementIn,
			ProductID:    params.ProductID,
			ProductLotID: &lot.ID,
			Quantity:     params.Quantity,
			ToLocationID: &locationID,
			ReasonCode:   params.ReasonCode,
			CreatedBy:    params.Actor,
		}
		movement.EnsureID()
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// Adjust applies a signed delta to one lot's on-hand quantity. On-hand can
// never go negative or below the reserved quantity.
func (s *Service) Adjust(ctx context.Context, params importer.AdjustParams) (*models.StockMovement, error) {
	if params.Delta == 0 {
		return nil, errf("zero quantity")
	}

	var movement *models.StockMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot models.ProductLot
		if err := tx.First(&lot, "id = ?", params.LotID).Error; err != nil {
			return err
		}
		if lot.QuantityOnHand+params.Delta < 0 {
			return errf("insufficient stock for adjustment")
		}
		if params.Delta < 0 && lot.QuantityOnHand+params.Delta < lot.QuantityReserved {
			return errf("adjustment impossible: reserved stock")
		}
		lot.QuantityOnHand += params.Delta
		if err := tx.Model(&lot).Update("quantity_on_hand", lot.QuantityOnHand).Error; err != nil {
			return err
		}

		quantity := params.Delta
		if quantity < 0 {
			quantity = -quantity
		}
		movement = &models.StockMovement{
			MovementType: models.MovementAdjust,
			ProductID:    lot.ProductID,
			ProductLotID: &lot.ID,
			Quantity:     quantity,
			ReasonCode:   params.ReasonCode,
			ReasonNotes:  params.ReasonNotes,
			CreatedBy:    params.Actor,
		}
		locationID := lot.LocationID
		if params.Delta < 0 {
			movement.FromLocationID = &locationID
		} else {
			movement.ToLocationID = &locationID
		}
		movement.EnsureID()
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Transfer moves a whole lot to another location.
func (s *Service) Transfer(ctx context.Context, lotID, toLocationID uuid.UUID, actor string) (*models.ProductLot, error) {
	var lot models.ProductLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lot, "id = ?", lotID).Error; err != nil {
			return err
		}
		if lot.LocationID == toLocationID {
			return errf("lot is already at this location")
		}
		fromLocationID := lot.LocationID
		lot.LocationID = toLocationID
		if err := tx.Model(&lot).Update("location_id", toLocationID).Error; err != nil {
			return err
		}
		movement := &models.StockMovement{
			MovementType:   models.MovementTransfer,
			ProductID:      lot.ProductID,
			ProductLotID:   &lot.ID,
			Quantity:       lot.QuantityOnHand,
			FromLocationID: &fromLocationID,
			ToLocationID:   &toLocationID,
			CreatedBy:      actor,
		}
		movement.EnsureID()
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// ReceiveReceiptLine receives the stock a receipt line describes, marks the
// line processed and flips a draft receipt to RECEIVED once no unprocessed
// lines remain.
func (s *Service) ReceiveReceiptLine(ctx context.Context, line *models.ReceiptLine, actor string) (*models.ProductLot, error) {
	if line.ReceivedLotID != nil {
		return nil, errf("receipt line already processed")
	}

	var lot *models.ProductLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var receipt models.Receipt
		if err := tx.First(&receipt, "id = ?", line.ReceiptID).Error; err != nil {
			return err
		}
		if receipt.Status == models.ReceiptCancelled {
			return errf("receipt cancelled")
		}

		locationID := line.LocationID
		if locationID == nil {
			var product models.Product
			if err := tx.First(&product, "id = ?", line.ProductID).Error; err != nil {
				return err
			}
			locationID = product.DefaultLocationID
		}
		if locationID == nil {
			return errf("location required for receiving")
		}

		storage := line.StorageConditions
		if storage == "" {
			var product models.Product
			if err := tx.First(&product, "id = ?", line.ProductID).Error; err != nil {
				return err
			}
			storage = product.StorageConditions
		}

		inner := s.WithTx(tx)
		var err error
		lot, err = inner.Receive(ctx, importer.ReceiveParams{
			ProductID:         line.ProductID,
			Quantity:          line.Quantity,
			LocationID:        *locationID,
			LotCode:           line.LotCode,
			Status:            line.LotStatus,
			ReasonCode:        "receive",
			SourceReceiptID:   &line.ReceiptID,
			StorageConditions: storage,
			Actor:             actor,
		})
		if err != nil {
			return err
		}
		if line.ExpiresOn != nil {
			if err := tx.Model(lot).Update("expires_on", line.ExpiresOn).Error; err != nil {
				return err
			}
			lot.ExpiresOn = line.ExpiresOn
		}

		now := time.Now()
		line.ReceivedLotID = &lot.ID
		line.ReceivedBy = actor
		line.ReceivedAt = &now
		if err := tx.Model(line).Updates(map[string]interface{}{
			"received_lot_id": lot.ID,
			"received_by":     actor,
			"received_at":     now,
		}).Error; err != nil {
			return err
		}

		if receipt.Status == models.ReceiptDraft {
			var remaining int64
			if err := tx.Model(&models.ReceiptLine{}).
				Where("receipt_id = ? AND received_lot_id IS NULL", receipt.ID).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				return tx.Model(&receipt).Update("status", models.ReceiptReceived).Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// LotsByProduct returns every lot of a product, oldest received first.
func (s *Service) LotsByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductLot, error) {
	var lots []models.ProductLot
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("received_on, id").
		Find(&lots).Error
	return lots, err
}

// AvailableQuantity sums the available quantity across a product's
// AVAILABLE lots.
func (s *Service) AvailableQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	lots, err := s.LotsByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, lot := range lots {
		if lot.Status == models.LotAvailable {
			total += lot.Available()
		}
	}
	return total, nil
}
