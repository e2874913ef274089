package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

var validate = validator.New()

// UsersHandler exposes the account endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Signup handles POST /signup.
func (h *UsersHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(req); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	user, err := h.users.Register(c.Context(), req.Email, req.Password, req.UserName, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Signin handles POST /signin.
func (h *UsersHandler) Signin(c *fiber.Ctx) error {
	var req dto.SigninRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(req); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.users.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		User:  dto.NewUserResponse(result.User),
		Token: result.Token,
	})
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUserByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Modify handles PUT /users/:id.
func (h *UsersHandler) Modify(c *fiber.Ctx) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}

	var req dto.ModifyUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(req); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	user, err := h.users.ModifyUser(c.Context(), id, service.UserPatch{
		UserName: req.UserName,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}

	if err := h.users.DeleteUserByID(c.Context(), id); err != nil {
		return err
	}
	// 200 with an empty body
	c.Status(fiber.StatusOK)
	return nil
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", 20)

	result, err := h.users.ListUsers(c.Context(), page, size)
	if err != nil {
		return err
	}

	content := make([]dto.UserResponse, 0, len(result.Users))
	for i := range result.Users {
		content = append(content, dto.NewUserResponse(&result.Users[i]))
	}
	return c.JSON(dto.UserPageResponse{
		Content:       content,
		Page:          result.Page,
		Size:          result.Size,
		TotalElements: result.Total,
	})
}

func pathUserID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid user id", nil)
	}
	return id, nil
}
