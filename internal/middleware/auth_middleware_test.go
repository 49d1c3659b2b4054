package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/service"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/pkg/jwt"
)

type tokenTable map[string]*session.Session

func (t tokenTable) ValidateToken(_ context.Context, token string) (*session.Session, error) {
	switch token {
	case "expired":
		return nil, service.ErrSessionExpired
	case "inactive":
		return nil, service.ErrUserInactive
	case "broken":
		return nil, fmt.Errorf("load user: %w", context.DeadlineExceeded)
	}
	if sess, ok := t[token]; ok {
		return sess, nil
	}
	return nil, jwt.ErrInvalidToken
}

func newTokens() tokenTable {
	tokens := tokenTable{}
	for _, role := range []string{model.RoleSuperAdmin, model.RoleStockManager, model.RoleCashier} {
		tokens[role] = &session.Session{UserID: uuid.New(), Role: role, Privileges: access.GrantsFor(role)}
	}
	return tokens
}

func newApp() *fiber.App {
	tokens := newTokens()

	app := fiber.New()
	api := app.Group("", RequireAuth(tokens))
	api.Get("/whoami", func(c *fiber.Ctx) error { return c.SendString(Session(c).Role) })
	api.Post("/sales", RequirePrivilege(model.PrivSalesInsert), func(c *fiber.Ctx) error { return c.SendStatus(201) })
	api.Get("/stock", RequireAnyPrivilege(model.PrivPurchaseReceive, model.PrivSalesInsert), func(c *fiber.Ctx) error { return c.SendStatus(200) })
	api.Get("/admin", RequireRole(model.RoleSuperAdmin), func(c *fiber.Ctx) error { return c.SendStatus(200) })
	return app
}

func call(t *testing.T, app *fiber.App, method, path, authorization string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	app := newApp()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", 401},
		{"wrong scheme", "Basic abc", 401},
		{"unknown token", "Bearer nope", 401},
		{"expired session", "Bearer expired", 401},
		{"inactive user", "Bearer inactive", 401},
		{"store failure", "Bearer broken", 500},
		{"valid", "Bearer cashier", 200},
		{"lowercase scheme", "bearer cashier", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, app, "GET", "/whoami", tt.header))
		})
	}
}

func TestRequirePrivilege(t *testing.T) {
	app := newApp()

	assert.Equal(t, 201, call(t, app, "POST", "/sales", "Bearer cashier"))
	assert.Equal(t, 201, call(t, app, "POST", "/sales", "Bearer super_admin"))
	assert.Equal(t, 403, call(t, app, "POST", "/sales", "Bearer stock_manager"))
}

func TestRequireAnyPrivilege(t *testing.T) {
	app := newApp()

	assert.Equal(t, 200, call(t, app, "GET", "/stock", "Bearer cashier"))
	assert.Equal(t, 200, call(t, app, "GET", "/stock", "Bearer stock_manager"))
}

func TestRequireRole(t *testing.T) {
	app := newApp()

	assert.Equal(t, 200, call(t, app, "GET", "/admin", "Bearer super_admin"))
	assert.Equal(t, 403, call(t, app, "GET", "/admin", "Bearer stock_manager"))
}

func TestPrivilegeWithoutSession(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequirePrivilege(model.PrivSalesSelect), func(c *fiber.Ctx) error { return c.SendStatus(200) })

	assert.Equal(t, 403, call(t, app, "GET", "/", ""))
}

func TestRequireWebSocket(t *testing.T) {
	app := fiber.New()
	app.Use("/ws", RequireWebSocket(newTokens()))
	app.Get("/ws", func(c *fiber.Ctx) error { return c.SendString(Session(c).Role) })

	upgrade := func(path, authorization string) (int, string) {
		t.Helper()
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	status, _ := upgrade("/ws", "")
	assert.Equal(t, 401, status)
	status, _ = upgrade("/ws?token=forged", "")
	assert.Equal(t, 401, status)
	status, _ = upgrade("/ws?token=expired", "")
	assert.Equal(t, 401, status)
	status, _ = upgrade("/ws?token=broken", "")
	assert.Equal(t, 500, status)

	status, role := upgrade("/ws?token=cashier", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, model.RoleCashier, role)

	status, role = upgrade("/ws", "Bearer stock_manager")
	assert.Equal(t, 200, status)
	assert.Equal(t, model.RoleStockManager, role)

	assert.Equal(t, 426, call(t, app, "GET", "/ws?token=cashier", ""))
}
