package auth

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/domain"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// Policy is the access rule attached to an endpoint.
type Policy int

const (
	// PolicyPublic permits every request, authenticated or not.
	PolicyPublic Policy = iota
	// PolicyAdminOnly permits only authenticated ADMIN callers.
	PolicyAdminOnly
	// PolicyAdminOrSelf permits ADMIN callers, or the caller whose id matches
	// the target user id.
	PolicyAdminOrSelf
)

// Decision is the outcome of evaluating a Policy. The two deny variants map to
// 401 and 403 respectively and must never be conflated: missing or invalid
// credentials is unauthenticated, a valid caller failing the role/ownership
// check is forbidden.
type Decision int

const (
	Permit Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// Decide evaluates a policy against the caller and the target user id. It is a
// pure function; targetUserID is ignored for policies that do not involve
// ownership.
func Decide(principal *Principal, policy Policy, targetUserID int64) Decision {
	if policy == PolicyPublic {
		return Permit
	}
	if principal == nil || principal.User == nil {
		return DenyUnauthenticated
	}

	switch policy {
	case PolicyAdminOnly:
		if principal.User.Role == domain.RoleAdmin {
			return Permit
		}
	case PolicyAdminOrSelf:
		if principal.User.Role == domain.RoleAdmin || principal.User.ID == targetUserID {
			return Permit
		}
	}
	return DenyForbidden
}

// RequireAdmin guards admin-only routes.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		switch Decide(principal, PolicyAdminOnly, 0) {
		case Permit:
			return c.Next()
		case DenyUnauthenticated:
			return apperrors.NewUnauthorized()
		default:
			return apperrors.NewForbidden()
		}
	}
}

// RequireAdminOrSelf guards routes targeting a single user, identified by the
// given path parameter.
func RequireAdminOrSelf(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal == nil {
			return apperrors.NewUnauthorized()
		}

		targetID, err := strconv.ParseInt(c.Params(param), 10, 64)
		if err != nil {
			return apperrors.NewValidationError("invalid user id", nil)
		}

		if Decide(principal, PolicyAdminOrSelf, targetID) != Permit {
			return apperrors.NewForbidden()
		}
		return c.Next()
	}
}
