package service

import (
	"context"

	"github.com/google/uuid"

	"school-admin-be/internal/dto"
	"school-admin-be/internal/pkg/apperrors"
	"school-admin-be/internal/pkg/logger"
	"school-admin-be/internal/repository/contract"
)

type IRecipientService interface {
	// Resolve turns a recipient filter into the deduplicated union of user
	// ids: explicit ids that exist, active holders of the listed roles, and
	// per class its assigned teachers plus the guardians of active students.
	Resolve(ctx context.Context, filter dto.RecipientFilter) ([]uuid.UUID, error)
}

type recipientService struct {
	directory contract.DirectoryRepository
	logger    logger.ILogger
}

func NewRecipientService(directory contract.DirectoryRepository, log logger.ILogger) IRecipientService {
	return &recipientService{
		directory: directory,
		logger:    log,
	}
}

func (s *recipientService) Resolve(ctx context.Context, filter dto.RecipientFilter) ([]uuid.UUID, error) {
	// Checked before any directory lookup.
	if filter.IsEmpty() {
		return nil, apperrors.NewValidation("recipient filter must include at least one of userIds, roles, or classIds")
	}

	seen := make(map[uuid.UUID]struct{})
	var result []uuid.UUID
	add := func(ids []uuid.UUID) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}

	if len(filter.UserIds) > 0 {
		existing, err := s.directory.FilterExistingUserIds(ctx, filter.UserIds)
		if err != nil {
			return nil, apperrors.NewInternal("failed to look up users", err)
		}
		add(existing)
	}

	if len(filter.Roles) > 0 {
		byRole, err := s.directory.GetActiveUserIdsByRoles(ctx, filter.Roles)
		if err != nil {
			return nil, apperrors.NewInternal("failed to look up users by role", err)
		}
		add(byRole)
	}

	for _, classId := range filter.ClassIds {
		byClass, err := s.directory.GetClassRecipientIds(ctx, classId)
		if err != nil {
			return nil, apperrors.NewInternal("failed to look up class recipients", err)
		}
		add(byClass)
	}

	if len(result) == 0 {
		return nil, apperrors.NewNotFound("recipient filter matched no users")
	}

	s.logger.Debug("RecipientService", "Filter resolved", map[string]interface{}{"count": len(result)})
	return result, nil
}
