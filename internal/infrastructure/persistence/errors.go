package persistence

import (
	"errors"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM errors onto domain errors. Driver-level unique
// violations arrive as gorm.ErrDuplicatedKey because the connection is opened
// with TranslateError.
func translateError(err error, entity string, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NewNotFoundError(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError(shared.CodeAlreadyExists, entity+" already exists")
	default:
		return err
	}
}
