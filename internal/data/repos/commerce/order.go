package commerce

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	domcommerce "github.com/draftlane/draftlane-backend/internal/domain/commerce"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type OrderRepo interface {
	// CreateBatch inserts all orders or none. A unique-index violation maps
	// to a conflict so the webhook path can treat a concurrent duplicate as
	// "already processed".
	CreateBatch(dbc dbctx.Context, orders []*types.Order) ([]*types.Order, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Order, error)
	ListByGatewayTxnID(dbc dbctx.Context, txnID string) ([]*types.Order, error)
	ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Order, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Order, error)
	// Transition moves an order to a later lifecycle status. A stale or
	// backwards write returns a conflict and touches nothing.
	Transition(dbc dbctx.Context, id uuid.UUID, to string, updates map[string]interface{}) (*types.Order, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{db: db, log: baseLog.With("repo", "OrderRepo")}
}

func (r *orderRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *orderRepo) CreateBatch(dbc dbctx.Context, orders []*types.Order) ([]*types.Order, error) {
	if len(orders) == 0 {
		return []*types.Order{}, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(&orders).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("order.create_batch", "order already exists for this transaction")
		}
		return nil, err
	}
	return orders, nil
}

func (r *orderRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Order, error) {
	var o types.Order
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("order.get", "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) ListByGatewayTxnID(dbc dbctx.Context, txnID string) ([]*types.Order, error) {
	var out []*types.Order
	if txnID == "" {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("gateway_txn_id = ?", txnID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Order, error) {
	var out []*types.Order
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Order, error) {
	q := r.handle(dbc).WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Order
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) Transition(dbc dbctx.Context, id uuid.UUID, to string, updates map[string]interface{}) (*types.Order, error) {
	order, err := r.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if order.Status == to {
		return order, nil
	}
	if !domcommerce.CanTransition(order.Status, to) {
		return nil, apierr.Conflict("order.transition", "transition from "+order.Status+" to "+to+" not allowed")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()
	// Guard on the previously-read status so two racing workers cannot both
	// win the same transition.
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.Order{}).
		Where("id = ? AND status = ?", id, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Conflict("order.transition", "order status changed concurrently")
	}
	return r.GetByID(dbc, id)
}

func (r *orderRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}
