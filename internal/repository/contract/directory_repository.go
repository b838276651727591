package contract

import (
	"context"

	"github.com/google/uuid"
)

// DirectoryRepository is the read-only view of the user/role/class directory
// the recipient resolver works against. The directory itself is maintained by
// the CRUD surfaces outside this subsystem.
type DirectoryRepository interface {
	// FilterExistingUserIds returns the subset of ids present in the directory.
	FilterExistingUserIds(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

	// GetActiveUserIdsByRoles returns every active user holding any of the roles.
	GetActiveUserIdsByRoles(ctx context.Context, roles []string) ([]uuid.UUID, error)

	// GetClassRecipientIds returns the staff assigned to the class plus the
	// guardian of every active student enrolled in it. Duplicates are allowed;
	// the resolver deduplicates across all filter paths.
	GetClassRecipientIds(ctx context.Context, classId uuid.UUID) ([]uuid.UUID, error)
}
