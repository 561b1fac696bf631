package service

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/convertia/backend/internal/converter"
	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/repository"
	"github.com/convertia/backend/internal/upload"
)

// ConvertService is the workflow orchestrator: it ties payment verification,
// the single-use upload read, and artifact generation into one
// request-scoped operation. Every failure is terminal — the caller starts a
// brand-new attempt with a fresh upload or order; nothing here retries.
type ConvertService struct {
	uploads       *upload.Store
	payments      *PaymentService
	subscriptions *SubscriptionService
	converter     converter.Converter
	conversions   repository.ConversionRepository
}

// NewConvertService creates a new ConvertService.
func NewConvertService(
	uploads *upload.Store,
	payments *PaymentService,
	subscriptions *SubscriptionService,
	conv converter.Converter,
	conversions repository.ConversionRepository,
) *ConvertService {
	return &ConvertService{
		uploads:       uploads,
		payments:      payments,
		subscriptions: subscriptions,
		converter:     conv,
		conversions:   conversions,
	}
}

// CaptureAndConvert is the pay-per-use path: capture the order, then
// convert. accountID is nil for anonymous payers. An order funds exactly one
// conversion: only the call that wins the capture flip may proceed, so
// replaying a spent order_id with fresh uploads buys nothing.
func (s *ConvertService) CaptureAndConvert(ctx context.Context, accountID *string, orderID, uploadID string) ([]byte, error) {
	tx, fresh, err := s.payments.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, domain.ErrPaymentRequired(domain.KindOrderAlreadyUsed,
			"payment order was already used for a conversion; create a new order")
	}
	return s.convert(ctx, accountID, uploadID, &tx.ID)
}

// ConvertWithEntitlement is the subscription path: spend a credit, then
// convert. Pay-per-use never reaches this method — the two payment paths are
// disjoint.
func (s *ConvertService) ConvertWithEntitlement(ctx context.Context, accountID, uploadID string) ([]byte, error) {
	if err := s.subscriptions.ConsumeCredit(ctx, accountID); err != nil {
		return nil, err
	}
	return s.convert(ctx, &accountID, uploadID, nil)
}

// convert runs the post-payment half of the workflow. Payment or credit has
// already been spent when this runs, so every outcome past this point —
// failures included — leaves a conversion record for reconciliation.
func (s *ConvertService) convert(ctx context.Context, accountID *string, uploadID string, transactionID *string) ([]byte, error) {
	data, err := s.uploads.Take(uploadID)
	if err != nil {
		if errors.Is(err, upload.ErrNotFound) {
			s.record(ctx, accountID, uploadID, transactionID, false, "upload expired or already consumed")
			appErr := domain.ErrGone("upload not found, expired, or already consumed; upload the document again")
			return nil, s.withSpendDetail(appErr, transactionID)
		}
		return nil, domain.ErrInternal("failed to read upload", err)
	}

	artifact, err := s.converter.Convert(ctx, data)
	if err != nil {
		s.record(ctx, accountID, uploadID, transactionID, false, err.Error())
		appErr := &domain.AppError{
			Code:    http.StatusInternalServerError,
			Message: "conversion failed; the charge was recorded so support can reconcile or refund it",
			Kind:    domain.KindConversionError,
			Err:     err,
		}
		return nil, s.withSpendDetail(appErr, transactionID)
	}

	s.record(ctx, accountID, uploadID, transactionID, true, "")
	return artifact, nil
}

// withSpendDetail makes explicit in the error payload that money or a credit
// was already spent, so the caller knows not to pay twice.
func (s *ConvertService) withSpendDetail(appErr *domain.AppError, transactionID *string) *domain.AppError {
	if transactionID != nil {
		return appErr.WithDetail("payment_captured", true)
	}
	return appErr.WithDetail("credit_consumed", true)
}

func (s *ConvertService) record(ctx context.Context, accountID *string, uploadID string, transactionID *string, succeeded bool, errMsg string) {
	rec := &domain.ConversionRecord{
		ID:            newID(),
		AccountID:     accountID,
		UploadHandle:  uploadID,
		TransactionID: transactionID,
		Succeeded:     succeeded,
		ErrorMessage:  errMsg,
		CreatedAt:     time.Now(),
	}
	if err := s.conversions.Create(ctx, rec); err != nil {
		// The audit row matters, but failing to write it must not change the
		// workflow outcome the caller sees.
		log.Printf("failed to record conversion attempt %s: %v", uploadID, err)
	}
}
