package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clinicore/booking-api/internal/models"
	"github.com/clinicore/booking-api/internal/payments"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	UpdateStatusByIntentID(ctx context.Context, intentID string, status models.PaymentStatus, method *string) error
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
	ListAll(ctx context.Context) ([]models.Payment, error)
}

// PaymentIntentResult pairs the stored payment with the gateway's
// client secret needed to complete the charge.
type PaymentIntentResult struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

// PaymentService raises and settles consultation-fee payment intents.
type PaymentService struct {
	repo      paymentRepository
	intents   payments.IntentClient
	currency  string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, intents payments.IntentClient, currency string, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if currency == "" {
		currency = "inr"
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, intents: intents, currency: currency, validator: validate, logger: logger}
}

// CreateIntent raises a payment intent for the fee and records it. The
// gateway is charged in the currency's smallest unit.
func (s *PaymentService) CreateIntent(ctx context.Context, userID string, req models.CreatePaymentIntentRequest) (*PaymentIntentResult, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	minorUnits := req.Amount * 100
	intent, err := s.intents.CreateIntent(ctx, minorUnits, s.currency)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment intent")
	}

	payment := &models.Payment{
		UserID:          userID,
		Amount:          minorUnits,
		Status:          models.PaymentPending,
		PaymentIntentID: intent.ID,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment intent created",
		zap.String("user_id", userID),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", minorUnits))
	return &PaymentIntentResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// Confirm records the gateway outcome for the caller's intent.
func (s *PaymentService) Confirm(ctx context.Context, userID string, req models.ConfirmPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	payment, err := s.repo.FindByIntentID(ctx, req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another user")
	}

	status := models.PaymentFailed
	if req.Succeeded {
		status = models.PaymentSucceeded
	}
	if err := s.repo.UpdateStatusByIntentID(ctx, req.PaymentIntentID, status, req.PaymentMethod); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	payment.Status = status
	if req.PaymentMethod != nil {
		payment.PaymentMethod = req.PaymentMethod
	}

	s.logger.Info("payment confirmed",
		zap.String("intent_id", req.PaymentIntentID),
		zap.String("status", string(status)))
	return payment, nil
}

// ListMine returns the caller's payments, newest first.
func (s *PaymentService) ListMine(ctx context.Context, userID string) ([]models.Payment, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id required")
	}
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if list == nil {
		list = []models.Payment{}
	}
	return list, nil
}

// ListAll returns every payment for the admin overview.
func (s *PaymentService) ListAll(ctx context.Context) ([]models.Payment, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if list == nil {
		list = []models.Payment{}
	}
	return list, nil
}
