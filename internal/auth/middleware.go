package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller for one request.
type Principal struct {
	User  *domain.User
	Token string
}

// Middleware resolves bearer tokens into a request-scoped Principal. It never
// rejects a request: missing, malformed, invalid, or expired credentials all
// degrade to an unauthenticated request, and route policies decide downstream
// whether that is acceptable.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle extracts and validates the bearer token, resolving the user and
// attaching the Principal to the request context on success.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token, ok := extractBearer(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	if !m.tokens.Validate(token) {
		return c.Next()
	}

	userID, err := m.tokens.ExtractUserID(token)
	if err != nil {
		return c.Next()
	}

	// The user may have been deleted since issuance; a resolution failure of
	// any kind leaves the request unauthenticated rather than failing it.
	user, err := m.users.GetByID(c.Context(), userID)
	if err != nil {
		return c.Next()
	}

	c.Locals(principalKey, &Principal{User: user, Token: token})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func extractBearer(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
