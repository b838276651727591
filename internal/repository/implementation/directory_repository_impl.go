package implementation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"school-admin-be/internal/model"
	"school-admin-be/internal/repository/contract"
)

type DirectoryRepositoryImpl struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) contract.DirectoryRepository {
	return &DirectoryRepositoryImpl{db: db}
}

func (r *DirectoryRepositoryImpl) FilterExistingUserIds(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	return found, err
}

func (r *DirectoryRepositoryImpl) GetActiveUserIdsByRoles(ctx context.Context, roles []string) ([]uuid.UUID, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("role IN ? AND status = ?", roles, model.UserStatusActive).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *DirectoryRepositoryImpl) GetClassRecipientIds(ctx context.Context, classId uuid.UUID) ([]uuid.UUID, error) {
	var teacherIds []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.ClassTeacher{}).
		Where("class_id = ?", classId).
		Pluck("teacher_id", &teacherIds).Error
	if err != nil {
		return nil, err
	}

	var guardianIds []uuid.UUID
	err = r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("class_id = ? AND status = ?", classId, model.StudentStatusActive).
		Pluck("guardian_id", &guardianIds).Error
	if err != nil {
		return nil, err
	}

	return append(teacherIds, guardianIds...), nil
}
