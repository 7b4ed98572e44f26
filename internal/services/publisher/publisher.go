package publisher

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/clients/gcp"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

// Service pushes an approved version onto the item's site bucket and records
// where it went live.
type Service interface {
	Publish(ctx context.Context, versionID uuid.UUID) (string, error)
}

type service struct {
	db       *gorm.DB
	log      *logger.Logger
	store    gcp.SiteStore
	items    repos.ContentItemRepo
	domains  repos.ContentDomainRepo
	versions repos.VersionRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, store gcp.SiteStore, items repos.ContentItemRepo, domains repos.ContentDomainRepo, versions repos.VersionRepo) Service {
	return &service{
		db:       db,
		log:      baseLog.With("service", "PublisherService"),
		store:    store,
		items:    items,
		domains:  domains,
		versions: versions,
	}
}

func (s *service) Publish(ctx context.Context, versionID uuid.UUID) (string, error) {
	dbc := dbctx.New(ctx)
	version, err := s.versions.GetByID(dbc, versionID)
	if err != nil {
		return "", err
	}
	if version.ReviewStatus != types.ReviewStatusApproved {
		return "", apierr.Conflict("publisher.publish", "version is not approved")
	}
	item, err := s.items.GetByID(dbc, version.ContentItemID)
	if err != nil {
		return "", err
	}
	domain, err := s.domains.GetByID(dbc, item.DomainID)
	if err != nil {
		return "", err
	}
	if domain.SiteBucket == "" {
		return "", apierr.FatalConfig("publisher.publish", "domain "+domain.Host+" has no site bucket")
	}

	key := "articles/" + item.Slug + ".html"
	url, err := s.store.WriteObject(ctx, domain.SiteBucket, key, strings.NewReader(version.Body))
	if err != nil {
		return "", apierr.Transient("publisher.publish", err)
	}

	now := time.Now()
	if err := s.items.UpdateFields(dbc, item.ID, map[string]interface{}{
		"published_url": url,
		"published_at":  now,
		"updated_at":    now,
	}); err != nil {
		s.log.Error("article written to bucket but item update failed",
			"content_item_id", item.ID, "url", url, "error", err)
		return "", err
	}
	s.log.Info("article published",
		"content_item_id", item.ID, "version_id", version.ID, "url", url)
	return url, nil
}
