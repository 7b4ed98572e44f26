package domain

import (
	"github.com/draftlane/draftlane-backend/internal/domain/admin"
	"github.com/draftlane/draftlane-backend/internal/domain/catalog"
	"github.com/draftlane/draftlane-backend/internal/domain/commerce"
	"github.com/draftlane/draftlane-backend/internal/domain/content"
	"github.com/draftlane/draftlane-backend/internal/domain/jobs"
)

type ContentDomain = catalog.ContentDomain
type ContentItem = catalog.ContentItem

type PurchaseSession = commerce.PurchaseSession
type Order = commerce.Order
type OrderUnit = commerce.OrderUnit
type WebhookEvent = commerce.WebhookEvent

type ContentVersion = content.ContentVersion

type JobRun = jobs.JobRun

type AdminUser = admin.AdminUser

const (
	AvailabilityAvailable  = catalog.AvailabilityAvailable
	AvailabilityProcessing = catalog.AvailabilityProcessing
	AvailabilitySoldOut    = catalog.AvailabilitySoldOut

	SessionKindSingle     = commerce.SessionKindSingle
	SessionKindBulk       = commerce.SessionKindBulk
	SessionKindGeneration = commerce.SessionKindGeneration

	SessionStatusPendingAuth    = commerce.SessionStatusPendingAuth
	SessionStatusAuthenticated  = commerce.SessionStatusAuthenticated
	SessionStatusPaymentPending = commerce.SessionStatusPaymentPending
	SessionStatusPaid           = commerce.SessionStatusPaid
	SessionStatusFailed         = commerce.SessionStatusFailed

	OrderStatusProcessing   = commerce.OrderStatusProcessing
	OrderStatusQualityCheck = commerce.OrderStatusQualityCheck
	OrderStatusAdminReview  = commerce.OrderStatusAdminReview
	OrderStatusCompleted    = commerce.OrderStatusCompleted
	OrderStatusFailed       = commerce.OrderStatusFailed
	OrderStatusRefunded     = commerce.OrderStatusRefunded

	PaymentStatusCaptured = commerce.PaymentStatusCaptured
	PaymentStatusRefunded = commerce.PaymentStatusRefunded

	UnitTypeGeneration = commerce.UnitTypeGeneration
	UnitTypeBacklink   = commerce.UnitTypeBacklink

	QCStatusPending = content.QCStatusPending
	QCStatusPassed  = content.QCStatusPassed
	QCStatusFlagged = content.QCStatusFlagged

	ReviewStatusPending  = content.ReviewStatusPending
	ReviewStatusApproved = content.ReviewStatusApproved
	ReviewStatusRejected = content.ReviewStatusRejected

	JobTypeGenerateArticle   = jobs.JobTypeGenerateArticle
	JobTypeIntegrateBacklink = jobs.JobTypeIntegrateBacklink
	JobTypePublishArticle    = jobs.JobTypePublishArticle

	JobStatusQueued    = jobs.JobStatusQueued
	JobStatusRunning   = jobs.JobStatusRunning
	JobStatusSucceeded = jobs.JobStatusSucceeded
	JobStatusFailed    = jobs.JobStatusFailed
)
