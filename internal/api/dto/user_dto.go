package dto

import "github.com/spec-kit/account-service/internal/domain"

// SignupRequest payload for POST /signup.
type SignupRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	UserName string      `json:"userName" validate:"required"`
	Role     domain.Role `json:"role" validate:"required,oneof=ADMIN MEMBER"`
}

// SigninRequest payload for POST /signin.
type SigninRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ModifyUserRequest carries a partial update; absent fields are unchanged.
type ModifyUserRequest struct {
	UserName *string      `json:"userName" validate:"omitempty,min=1"`
	Password *string      `json:"password" validate:"omitempty,min=1"`
	Role     *domain.Role `json:"role" validate:"omitempty,oneof=ADMIN MEMBER"`
}

// UserResponse is the public projection of an account. Never includes the
// stored password.
type UserResponse struct {
	ID       int64       `json:"id"`
	Email    string      `json:"email"`
	UserName string      `json:"userName"`
	Role     domain.Role `json:"role"`
}

// NewUserResponse projects a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		UserName: user.UserName,
		Role:     user.Role,
	}
}

// LoginResponse bundles the user projection with the issued token.
type LoginResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// UserPageResponse is one page of user projections.
type UserPageResponse struct {
	Content       []UserResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
}
