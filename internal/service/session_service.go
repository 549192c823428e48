package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) ([]models.Session, error)
}

type currentSessionPointer interface {
	CurrentSessionID(ctx context.Context) (string, error)
	Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*dto.ConfigurationItem, error)
}

// SessionRequest creates an academic session.
type SessionRequest struct {
	Name      string `json:"name" validate:"required,max=40"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// SessionService manages academic sessions and which one is current.
type SessionService struct {
	repo      sessionRepository
	current   currentSessionPointer
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, current currentSessionPointer, validate *validator.Validate, logger *zap.Logger, clock Clock) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	return &SessionService{repo: repo, current: current, validator: validate, logger: logger, now: clock}
}

// Create registers a session.
func (s *SessionService) Create(ctx context.Context, req SessionRequest) (*models.SessionView, error) {
	if err := validateStruct(s.validator, req, "invalid session payload"); err != nil {
		return nil, err
	}
	if !validDate(req.StartDate) {
		return nil, errInvalidDate("startDate")
	}
	if !validDate(req.EndDate) {
		return nil, errInvalidDate("endDate")
	}
	if req.StartDate > req.EndDate {
		return nil, errValidation("startDate must not be after endDate")
	}
	session := &models.Session{
		Name:      strings.TrimSpace(req.Name),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, errInternal(err, "failed to create session")
	}
	currentID, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SessionView{Session: *session, IsCurrent: session.ID == currentID}, nil
}

// List returns sessions ordered by start date, flagging the current one.
func (s *SessionService) List(ctx context.Context) ([]models.SessionView, error) {
	sessions, err := s.sorted(ctx)
	if err != nil {
		return nil, err
	}
	currentID, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, models.SessionView{Session: session, IsCurrent: session.ID == currentID})
	}
	return views, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.SessionView, error) {
	session, err := strictLookup(ctx, "session", id, s.repo.FindByID)
	if err != nil {
		return nil, err
	}
	currentID, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SessionView{Session: *session, IsCurrent: session.ID == currentID}, nil
}

// SetCurrent moves the current-session pointer to id in one write.
func (s *SessionService) SetCurrent(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error) {
	session, err := strictLookup(ctx, "session", id, s.repo.FindByID)
	if err != nil {
		return nil, err
	}
	if _, err := s.current.Update(ctx, ConfigKeyCurrentSession, session.ID, actor); err != nil {
		return nil, err
	}
	s.logger.Info("current session changed", zap.String("session_id", session.ID), zap.String("name", session.Name))
	return &models.SessionView{Session: *session, IsCurrent: true}, nil
}

// Current returns the session the pointer names. When the pointer is unset
// or dangling the earliest session is used.
func (s *SessionService) Current(ctx context.Context) (*models.SessionView, error) {
	currentID, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	if currentID != "" {
		session, err := s.repo.FindByID(ctx, currentID)
		switch {
		case err == nil:
			return &models.SessionView{Session: *session, IsCurrent: true}, nil
		case errors.Is(err, docstore.ErrNotFound):
			s.logger.Warn("current session pointer is dangling", zap.String("session_id", currentID))
		default:
			return nil, errInternal(err, "failed to load current session")
		}
	}
	sessions, err := s.sorted(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no sessions configured")
	}
	return &models.SessionView{Session: sessions[0]}, nil
}

func (s *SessionService) sorted(ctx context.Context) ([]models.Session, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, errInternal(err, "failed to list sessions")
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].StartDate != sessions[j].StartDate {
			return sessions[i].StartDate < sessions[j].StartDate
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

func (s *SessionService) currentID(ctx context.Context) (string, error) {
	if s.current == nil {
		return "", nil
	}
	return s.current.CurrentSessionID(ctx)
}
