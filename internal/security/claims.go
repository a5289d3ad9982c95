package security

import (
	"time"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/domain"
)

type TokenClaims struct {
	UserID  uuid.UUID
	Role    domain.Role
	Ver     int64
	Exp     time.Time
	Issuer  string
	Subject string
}

func (c TokenClaims) Actor() domain.Actor {
	return domain.Actor{UserID: c.UserID, Role: c.Role}
}

// parseRole maps identity provider roles onto admission roles. "user" is the
// provider's default role for students.
func parseRole(s string) (domain.Role, bool) {
	switch s {
	case "user", string(domain.RoleStudent):
		return domain.RoleStudent, true
	case string(domain.RoleOrganizer):
		return domain.RoleOrganizer, true
	case string(domain.RoleAdmin):
		return domain.RoleAdmin, true
	default:
		return "", false
	}
}
