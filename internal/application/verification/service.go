package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/infrastructure/smtp"
	"github.com/inkeddraw/backend/internal/infrastructure/veriff"
	"github.com/inkeddraw/backend/internal/pkg/id"
)

type Service interface {
	// Start opens a vendor session for the user and persists the pending row.
	Start(ctx context.Context, userID string) (*domain.AgeVerification, error)
	// Status returns the user's verification row.
	Status(ctx context.Context, userID string) (*domain.AgeVerification, error)
	// HandleDecision applies a vendor webhook decision and returns the
	// resulting status.
	HandleDecision(ctx context.Context, decision domain.VerificationDecision) (string, error)
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.AgeVerification) error
	GetByUser(ctx context.Context, userID string) (*domain.AgeVerification, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.AgeVerification, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionCreator interface {
	CreateSession(ctx context.Context, userID string) (*veriff.Session, error)
}

type service struct {
	repo     verificationStore
	userRepo userStore
	vendor   sessionCreator
	mailer   smtp.Mailer
	tracker  posthog.Tracker
	log      zerolog.Logger
	ttl      time.Duration
}

func NewService(repo verificationStore, userRepo userStore, vendor sessionCreator, mailer smtp.Mailer, tracker posthog.Tracker, log zerolog.Logger, ttl time.Duration) Service {
	return &service{
		repo:     repo,
		userRepo: userRepo,
		vendor:   vendor,
		mailer:   mailer,
		tracker:  tracker,
		log:      log.With().Str("component", "verification").Logger(),
		ttl:      ttl,
	}
}

func (s *service) Start(ctx context.Context, userID string) (*domain.AgeVerification, error) {
	if _, err := s.userRepo.Get(ctx, userID); err != nil {
		return nil, err
	}

	attempts := 0
	existing, err := s.repo.GetByUser(ctx, userID)
	if err == nil {
		switch existing.Status {
		case domain.VerificationApproved:
			return nil, fmt.Errorf("already verified: %w", domain.ErrConflict)
		case domain.VerificationPending:
			if existing.ExpiresAt.After(time.Now()) {
				return existing, nil
			}
		}
		attempts = existing.Attempts
	}
	if attempts >= domain.MaxVerificationAttempts {
		return nil, fmt.Errorf("verification attempts exhausted: %w", domain.ErrForbidden)
	}

	vs, err := s.vendor.CreateSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	v := &domain.AgeVerification{
		ID:         id.New(),
		UserID:     userID,
		SessionID:  vs.ID,
		SessionURL: vs.URL,
		Status:     domain.VerificationPending,
		Attempts:   attempts + 1,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		// reuse the row, replacing the vendor session
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Put(ctx, v); err != nil {
		return nil, err
	}
	s.tracker.Capture(userID, "verification_started", map[string]interface{}{"attempt": v.Attempts})
	return v, nil
}

func (s *service) Status(ctx context.Context, userID string) (*domain.AgeVerification, error) {
	return s.repo.GetByUser(ctx, userID)
}

func (s *service) HandleDecision(ctx context.Context, decision domain.VerificationDecision) (string, error) {
	v, err := s.repo.GetBySession(ctx, decision.SessionID)
	if err != nil {
		return "", err
	}
	if v.Decided() {
		// vendor retries webhooks; a decided row is final
		return v.Status, nil
	}

	var status string
	switch decision.Code {
	case domain.DecisionApproved:
		status = domain.VerificationApproved
	case domain.DecisionRejected:
		status = domain.VerificationRejected
	case domain.DecisionExpired:
		status = domain.VerificationExpired
	case domain.DecisionResubmission:
		// user must redo the session; row stays pending
		return v.Status, nil
	default:
		return "", fmt.Errorf("unknown decision code %d: %w", decision.Code, domain.ErrBadRequest)
	}

	// resubmission returned above, everything left is a terminal vendor
	// decision and gets a decided_at stamp
	updates := map[string]interface{}{
		"status":        status,
		"decision_code": decision.Code,
		"reason":        decision.Reason,
		"decided_at":    time.Now().UTC(),
	}
	if err := s.repo.Update(ctx, v.ID, updates); err != nil {
		return "", err
	}

	if status == domain.VerificationApproved {
		if err := s.userRepo.Update(ctx, v.UserID, map[string]interface{}{"age_verified": true}); err != nil {
			return "", err
		}
	}

	s.tracker.Capture(v.UserID, "verification_decided", map[string]interface{}{"status": status})
	s.notify(ctx, v.UserID, status)
	return status, nil
}

// notify emails the user the outcome; failure is logged, never propagated.
func (s *service) notify(ctx context.Context, userID, status string) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("decision email skipped")
		return
	}
	var subject, body string
	switch status {
	case domain.VerificationApproved:
		subject = "You're verified"
		body = "Your age verification was approved. Welcome to Inked Draw."
	case domain.VerificationRejected:
		subject = "Verification unsuccessful"
		body = "We could not verify your age. You can retry from the app."
	default:
		subject = "Verification expired"
		body = "Your verification session expired. Start a new one from the app."
	}
	if err := s.mailer.SendEmail(u.Email, subject, body); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("decision email failed")
	}
}
