package quotereel

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

type loginForm struct {
	Password string `json:"password"`
}

func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, APIResponse{
			Success: false, Message: "Too many login attempts. Try again later.",
		})
	}
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Invalid request body"})
	}
	if subtle.ConstantTimeCompare([]byte(form.Password), []byte(a.Config.AdminPassword)) != 1 {
		// Only failed guesses count toward the lockout.
		a.loginLimiter.Record(c.RealIP())
		return c.JSON(http.StatusUnauthorized, APIResponse{Success: false, Message: "Wrong password"})
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "Logged in"})
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "Logged out"})
}

func (a *App) handleSession(c echo.Context) error {
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "ok",
		Data:    map[string]bool{"authenticated": IsAdmin(c)},
	})
}

// requireAdmin rejects unauthenticated callers with a structured payload.
// Returns false when the response has already been written.
func (a *App) requireAdmin(c echo.Context) bool {
	if IsAdmin(c) {
		return true
	}
	_ = c.JSON(http.StatusUnauthorized, APIResponse{Success: false, Message: "Authentication required"})
	return false
}
