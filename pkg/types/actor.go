package types

import (
	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Actor identifies the authenticated principal performing a mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}
