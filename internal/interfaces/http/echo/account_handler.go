package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/identity-migration/internal/application/account"
)

type AccountHandler struct {
	login          app.Login
	changePassword app.ChangePassword
	tokens         TokenParser
}

type loginRequest struct {
	ContactNumber string `json:"contact_number"`
	Password      string `json:"password"`
}

type changePasswordRequest struct {
	ID          int64  `json:"id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func NewAccountHandler(login app.Login, changePassword app.ChangePassword, tokens TokenParser) *AccountHandler {
	return &AccountHandler{login: login, changePassword: changePassword, tokens: tokens}
}

func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}

	out, err := h.login.Execute(c.Request().Context(), app.LoginInput{
		ContactNumber: req.ContactNumber,
		Password:      req.Password,
	})
	if err != nil {
		return writeAccountError(c, err, "failed to log in")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *AccountHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}

	// Employees may only change their own password.
	if callerID, ok := c.Get(employeeIDKey).(int64); ok {
		if req.ID == 0 {
			req.ID = callerID
		}
		if req.ID != callerID {
			return writeError(c, http.StatusForbidden, "forbidden", "token does not belong to this employee")
		}
	}

	err := h.changePassword.Execute(c.Request().Context(), app.ChangePasswordInput{
		ID:          req.ID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return writeAccountError(c, err, "failed to change password")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: map[string]string{"message": "password updated"}})
}

func writeAccountError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, app.ErrMissingCredentials),
		errors.Is(err, app.ErrMissingPasswords),
		errors.Is(err, app.ErrInvalidEmployeeID),
		errors.Is(err, app.ErrPasswordTooLong):
		return writeError(c, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, app.ErrEmployeeNotFound):
		return writeError(c, http.StatusNotFound, "not_found", "employee not found")
	case errors.Is(err, app.ErrInvalidPassword):
		return writeError(c, http.StatusUnauthorized, "invalid_password", "invalid password")
	default:
		return writeError(c, http.StatusInternalServerError, "internal_error", fallback)
	}
}
