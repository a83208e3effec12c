// internal/domain/trade/returns.go
package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/metrics"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReturnRequest represents a return of one product of a purchase or sale
type ReturnRequest struct {
	TransactionID uint   `json:"transaction_id" binding:"required"`
	ProductID     uint   `json:"product_id" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	Reason        string `json:"reason" binding:"required,max=500"`
}

// ReturnListRequest filters return listings
type ReturnListRequest struct {
	TransactionID uint         `form:"transaction_id"`
	ProductID     uint         `form:"product_id"`
	Status        ReturnStatus `form:"status"`
}

// returnSide describes the tables and ledger direction of one kind of return
type returnSide struct {
	kind         string
	detailModel  interface{}
	returnModel  interface{}
	txnColumn    string
	movementType ledger.MovementType
}

var (
	purchaseSide = returnSide{
		kind:         "purchase",
		detailModel:  &PurchaseDetail{},
		returnModel:  &PurchaseReturn{},
		txnColumn:    "purchase_id",
		movementType: ledger.MovementTypeOut,
	}
	saleSide = returnSide{
		kind:         "sale",
		detailModel:  &SaleDetail{},
		returnModel:  &SaleReturn{},
		txnColumn:    "sale_id",
		movementType: ledger.MovementTypeIn,
	}
)

// returnable is the quantity of productID on the transaction not yet claimed
// by a pending or approved return. excludeID leaves one return out of the sum.
func (side returnSide) returnable(tx *gorm.DB, txnID, productID, excludeID uint) (int, error) {
	var bought int64
	if err := tx.Model(side.detailModel).
		Select("COALESCE(SUM(quantity), 0)").
		Where(side.txnColumn+" = ? AND product_id = ?", txnID, productID).
		Scan(&bought).Error; err != nil {
		return 0, fmt.Errorf("failed to sum %s lines: %w", side.kind, err)
	}
	if bought == 0 {
		return 0, &apperror.Error{
			Kind:    apperror.KindNotFound,
			Field:   "product_id",
			Message: fmt.Sprintf("product %d is not part of %s %d", productID, side.kind, txnID),
		}
	}

	var claimed int64
	query := tx.Model(side.returnModel).
		Select("COALESCE(SUM(quantity), 0)").
		Where(side.txnColumn+" = ? AND product_id = ? AND status IN ?", txnID, productID,
			[]ReturnStatus{ReturnStatusPending, ReturnStatusApproved})
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Scan(&claimed).Error; err != nil {
		return 0, fmt.Errorf("failed to sum %s returns: %w", side.kind, err)
	}

	return int(bought - claimed), nil
}

func (side returnSide) checkQuantity(tx *gorm.DB, txnID, productID, excludeID uint, quantity int) error {
	allowed, err := side.returnable(tx, txnID, productID, excludeID)
	if err != nil {
		return err
	}
	if quantity > allowed {
		if allowed < 0 {
			allowed = 0
		}
		return &apperror.ReturnQuantityExceededError{ProductID: productID, Allowed: allowed, Requested: quantity}
	}
	return nil
}

// PURCHASE RETURNS

// CreatePurchaseReturn records a pending return to the supplier. Stock is untouched until approval.
func (s *Service) CreatePurchaseReturn(ctx context.Context, req *ReturnRequest, userID *uint) (*PurchaseReturn, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	ret := &PurchaseReturn{
		PurchaseID: req.TransactionID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		Status:     ReturnStatusPending,
		CreatedBy:  userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchase, err := lockPurchase(tx, req.TransactionID)
		if err != nil {
			return err
		}
		if purchase.Status == PurchaseStatusCancelled {
			return apperror.StateTransition("purchase %d is cancelled and cannot be returned", purchase.ID)
		}
		if err := purchaseSide.checkQuantity(tx, purchase.ID, req.ProductID, 0, req.Quantity); err != nil {
			return err
		}
		if err := tx.Create(ret).Error; err != nil {
			return fmt.Errorf("failed to create purchase return: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetPurchaseReturn(ctx, ret.ID)
}

// ApprovePurchaseReturn approves a pending purchase return and takes the goods out of stock
func (s *Service) ApprovePurchaseReturn(ctx context.Context, id uint, userID *uint) (*PurchaseReturn, error) {
	var movement *ledger.StockMovement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ret PurchaseReturn
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ret, id).Error; err != nil {
			return apperror.FromDB(err, "purchase return", id)
		}
		if ret.Status != ReturnStatusPending {
			return apperror.StateTransition("purchase return %d is already %s", id, ret.Status)
		}

		purchase, err := lockPurchase(tx, ret.PurchaseID)
		if err != nil {
			return err
		}
		if purchase.Status == PurchaseStatusCancelled {
			return apperror.StateTransition("purchase %d is cancelled", purchase.ID)
		}
		if err := purchaseSide.checkQuantity(tx, purchase.ID, ret.ProductID, ret.ID, ret.Quantity); err != nil {
			return err
		}

		product, err := s.ledger.Lock(tx, ret.ProductID)
		if err != nil {
			return err
		}
		returnID := ret.ID
		movement, err = s.ledger.Apply(tx, product, ledger.Entry{
			Type:     purchaseSide.movementType,
			Reason:   ledger.ReasonReturn,
			Quantity: ret.Quantity,
			Ref:      ledger.Reference{PurchaseReturnID: &returnID},
			Notes:    ret.Reason,
			By:       userID,
		})
		if err != nil {
			return err
		}

		return decide(tx, &PurchaseReturn{}, id, ReturnStatusApproved, userID)
	})
	if err != nil {
		return nil, err
	}

	s.ledger.AfterCommit(ctx, movement)
	metrics.ReturnsDecidedTotal.WithLabelValues("purchase", string(ReturnStatusApproved)).Inc()
	s.logger.WithFields(logrus.Fields{
		"purchase_return_id": id,
		"movement_id":        movement.ID,
	}).Info("purchase return approved")

	return s.GetPurchaseReturn(ctx, id)
}

// RejectPurchaseReturn rejects a pending purchase return
func (s *Service) RejectPurchaseReturn(ctx context.Context, id uint, userID *uint) (*PurchaseReturn, error) {
	if err := s.reject(ctx, &PurchaseReturn{}, "purchase return", id, userID); err != nil {
		return nil, err
	}
	metrics.ReturnsDecidedTotal.WithLabelValues("purchase", string(ReturnStatusRejected)).Inc()
	return s.GetPurchaseReturn(ctx, id)
}

// GetPurchaseReturn retrieves a purchase return
func (s *Service) GetPurchaseReturn(ctx context.Context, id uint) (*PurchaseReturn, error) {
	var ret PurchaseReturn
	if err := s.db.WithContext(ctx).Preload("Product").First(&ret, id).Error; err != nil {
		return nil, apperror.FromDB(err, "purchase return", id)
	}
	return &ret, nil
}

// ListPurchaseReturns lists purchase returns, newest first
func (s *Service) ListPurchaseReturns(ctx context.Context, req *ReturnListRequest) ([]PurchaseReturn, error) {
	var returns []PurchaseReturn
	query := returnFilter(s.db.WithContext(ctx), "purchase_id", req)
	if err := query.Preload("Product").Order("created_at DESC, id DESC").Find(&returns).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase returns: %w", err)
	}
	return returns, nil
}

// SALE RETURNS

// CreateSaleReturn records a pending return from a customer. Stock is untouched until approval.
func (s *Service) CreateSaleReturn(ctx context.Context, req *ReturnRequest, userID *uint) (*SaleReturn, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	ret := &SaleReturn{
		SaleID:    req.TransactionID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Status:    ReturnStatusPending,
		CreatedBy: userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, req.TransactionID)
		if err != nil {
			return err
		}
		if sale.Status == SaleStatusCancelled {
			return apperror.StateTransition("sale %d is cancelled and cannot be returned", sale.ID)
		}
		if err := saleSide.checkQuantity(tx, sale.ID, req.ProductID, 0, req.Quantity); err != nil {
			return err
		}
		if err := tx.Create(ret).Error; err != nil {
			return fmt.Errorf("failed to create sale return: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetSaleReturn(ctx, ret.ID)
}

// ApproveSaleReturn approves a pending sale return and puts the goods back in stock
func (s *Service) ApproveSaleReturn(ctx context.Context, id uint, userID *uint) (*SaleReturn, error) {
	var movement *ledger.StockMovement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ret SaleReturn
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ret, id).Error; err != nil {
			return apperror.FromDB(err, "sale return", id)
		}
		if ret.Status != ReturnStatusPending {
			return apperror.StateTransition("sale return %d is already %s", id, ret.Status)
		}

		sale, err := lockSale(tx, ret.SaleID)
		if err != nil {
			return err
		}
		if sale.Status == SaleStatusCancelled {
			return apperror.StateTransition("sale %d is cancelled", sale.ID)
		}
		if err := saleSide.checkQuantity(tx, sale.ID, ret.ProductID, ret.ID, ret.Quantity); err != nil {
			return err
		}

		product, err := s.ledger.Lock(tx, ret.ProductID)
		if err != nil {
			return err
		}
		returnID := ret.ID
		movement, err = s.ledger.Apply(tx, product, ledger.Entry{
			Type:     saleSide.movementType,
			Reason:   ledger.ReasonReturn,
			Quantity: ret.Quantity,
			Ref:      ledger.Reference{SaleReturnID: &returnID},
			Notes:    ret.Reason,
			By:       userID,
		})
		if err != nil {
			return err
		}

		return decide(tx, &SaleReturn{}, id, ReturnStatusApproved, userID)
	})
	if err != nil {
		return nil, err
	}

	s.ledger.AfterCommit(ctx, movement)
	metrics.ReturnsDecidedTotal.WithLabelValues("sale", string(ReturnStatusApproved)).Inc()
	s.logger.WithFields(logrus.Fields{
		"sale_return_id": id,
		"movement_id":    movement.ID,
	}).Info("sale return approved")

	return s.GetSaleReturn(ctx, id)
}

// RejectSaleReturn rejects a pending sale return
func (s *Service) RejectSaleReturn(ctx context.Context, id uint, userID *uint) (*SaleReturn, error) {
	if err := s.reject(ctx, &SaleReturn{}, "sale return", id, userID); err != nil {
		return nil, err
	}
	metrics.ReturnsDecidedTotal.WithLabelValues("sale", string(ReturnStatusRejected)).Inc()
	return s.GetSaleReturn(ctx, id)
}

// GetSaleReturn retrieves a sale return
func (s *Service) GetSaleReturn(ctx context.Context, id uint) (*SaleReturn, error) {
	var ret SaleReturn
	if err := s.db.WithContext(ctx).Preload("Product").First(&ret, id).Error; err != nil {
		return nil, apperror.FromDB(err, "sale return", id)
	}
	return &ret, nil
}

// ListSaleReturns lists sale returns, newest first
func (s *Service) ListSaleReturns(ctx context.Context, req *ReturnListRequest) ([]SaleReturn, error) {
	var returns []SaleReturn
	query := returnFilter(s.db.WithContext(ctx), "sale_id", req)
	if err := query.Preload("Product").Order("created_at DESC, id DESC").Find(&returns).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sale returns: %w", err)
	}
	return returns, nil
}

func (s *Service) reject(ctx context.Context, model interface{}, entity string, id uint, userID *uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(model).
		Where("id = ? AND status = ?", id, ReturnStatusPending).
		Updates(map[string]interface{}{
			"status":     ReturnStatusRejected,
			"decided_by": userID,
			"decided_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reject %s: %w", entity, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load %s: %w", entity, err)
	}
	if count == 0 {
		return apperror.NotFound(entity, id)
	}
	return apperror.StateTransition("%s %d is no longer pending", entity, id)
}

func decide(tx *gorm.DB, model interface{}, id uint, status ReturnStatus, userID *uint) error {
	now := time.Now()
	return tx.Model(model).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"decided_by": userID,
		"decided_at": &now,
	}).Error
}

func returnFilter(db *gorm.DB, txnColumn string, req *ReturnListRequest) *gorm.DB {
	if req == nil {
		return db
	}
	if req.TransactionID > 0 {
		db = db.Where(txnColumn+" = ?", req.TransactionID)
	}
	if req.ProductID > 0 {
		db = db.Where("product_id = ?", req.ProductID)
	}
	if req.Status != "" {
		db = db.Where("status = ?", req.Status)
	}
	return db
}
