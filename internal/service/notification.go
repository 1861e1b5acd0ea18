package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/custodix/recoveryd/internal/models"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// NotificationRepository defines the persistence operations required by the
// notification request issuer.
type NotificationRepository interface {
	// GetOwner returns the current owner of the account. Returns
	// models.ErrAccountNotFound if no record exists.
	GetOwner(ctx context.Context, accountID string) (string, error)
	// SaveNotificationRequest persists an issued request id. The id column
	// is unique; a collision surfaces as an error.
	SaveNotificationRequest(ctx context.Context, n models.NotificationRequest) error
}

// NotificationService derives unique identifiers for out-of-band
// notification requests. Delivery itself is an external collaborator's
// responsibility.
type NotificationService struct {
	repo NotificationRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo NotificationRepository, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, log: log, now: time.Now}
}

// RequestNotification issues a fresh request identifier for the account and
// message. The id is base58(sha256(account | caller | message | nonce | t))
// with a uuid nonce, so it is collision-resistant and never reused for a
// different logical request.
func (s *NotificationService) RequestNotification(ctx context.Context, caller, accountID, message string) (string, error) {
	if _, err := s.repo.GetOwner(ctx, accountID); err != nil {
		return "", err
	}

	now := s.now()
	nonce := uuid.NewString()
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s|%d", accountID, caller, message, nonce, now.UnixNano()))
	id := base58.Encode(sum[:])

	if err := s.repo.SaveNotificationRequest(ctx, models.NotificationRequest{
		ID:        id,
		AccountID: accountID,
		Requester: caller,
		Message:   message,
		CreatedAt: now,
	}); err != nil {
		return "", err
	}

	s.log.Info("notification request issued",
		zap.String("account", accountID),
		zap.String("requester", caller),
		zap.String("request", id),
	)
	return id, nil
}
