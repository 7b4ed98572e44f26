package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

// GenerationPayload and BacklinkPayload reference only IDs plus the minimal
// parameters needed to re-derive state; a crashed worker re-reads the store,
// never the original notification.
type GenerationPayload struct {
	OrderID       uuid.UUID `json:"order_id"`
	ContentItemID uuid.UUID `json:"content_item_id"`
	Topic         string    `json:"topic"`
}

type BacklinkPayload struct {
	OrderID       uuid.UUID `json:"order_id"`
	ContentItemID uuid.UUID `json:"content_item_id"`
	TargetURL     string    `json:"target_url"`
	AnchorText    string    `json:"anchor_text"`
}

type PublishPayload struct {
	OrderID   uuid.UUID `json:"order_id"`
	VersionID uuid.UUID `json:"version_id"`
}

// Dispatcher pushes fulfillment jobs onto the durable queue after payment is
// confirmed.
type Dispatcher interface {
	// EnqueueForOrder picks the job type from the order's unit variant.
	EnqueueForOrder(dbc dbctx.Context, order *types.Order) (*types.JobRun, error)
	EnqueuePublish(dbc dbctx.Context, order *types.Order, versionID uuid.UUID) (*types.JobRun, error)
}

type dispatcher struct {
	log     *logger.Logger
	jobRuns repos.JobRunRepo
}

func New(baseLog *logger.Logger, jobRuns repos.JobRunRepo) Dispatcher {
	return &dispatcher{
		log:     baseLog.With("service", "Dispatcher"),
		jobRuns: jobRuns,
	}
}

func (d *dispatcher) EnqueueForOrder(dbc dbctx.Context, order *types.Order) (*types.JobRun, error) {
	var unit types.OrderUnit
	if err := json.Unmarshal(order.Unit, &unit); err != nil {
		return nil, fmt.Errorf("decode order unit: %w", err)
	}
	switch {
	case unit.IsGeneration():
		return d.enqueue(dbc, order.ID, types.JobTypeGenerateArticle, GenerationPayload{
			OrderID:       order.ID,
			ContentItemID: order.ContentItemID,
			Topic:         unit.Topic,
		})
	case unit.IsBacklink():
		return d.enqueue(dbc, order.ID, types.JobTypeIntegrateBacklink, BacklinkPayload{
			OrderID:       order.ID,
			ContentItemID: order.ContentItemID,
			TargetURL:     unit.TargetURL,
			AnchorText:    unit.AnchorText,
		})
	default:
		return nil, apierr.Validation("dispatch.enqueue", "order unit has unknown type "+unit.Type)
	}
}

func (d *dispatcher) EnqueuePublish(dbc dbctx.Context, order *types.Order, versionID uuid.UUID) (*types.JobRun, error) {
	return d.enqueue(dbc, order.ID, types.JobTypePublishArticle, PublishPayload{
		OrderID:   order.ID,
		VersionID: versionID,
	})
}

func (d *dispatcher) enqueue(dbc dbctx.Context, orderID uuid.UUID, jobType string, payload any) (*types.JobRun, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	entityType := "order"
	job := &types.JobRun{
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   &orderID,
		Status:     types.JobStatusQueued,
		Stage:      "queued",
		Payload:    datatypes.JSON(raw),
		Result:     datatypes.JSON([]byte("{}")),
	}
	created, err := d.jobRuns.Create(dbc, []*types.JobRun{job})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// UnmarshalPayload decodes a job payload into the given payload struct.
func UnmarshalPayload[T any](job *types.JobRun) (T, error) {
	var out T
	if job == nil || len(job.Payload) == 0 {
		return out, fmt.Errorf("empty job payload")
	}
	if err := json.Unmarshal(job.Payload, &out); err != nil {
		return out, err
	}
	return out, nil
}
