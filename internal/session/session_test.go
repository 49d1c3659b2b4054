package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
)

func cashier() *model.User {
	u := &model.User{Email: "c@pharmacy.test", TokenVersion: "v1"}
	u.ID = uuid.New()
	u.Profile = &model.Profile{
		FullName: "Cashier One",
		IsActive: true,
		Role: &model.Role{
			Code:       model.RoleCashier,
			Privileges: []model.Privilege{{Code: model.PrivSalesInsert}},
		},
	}
	return u
}

func TestFromUser(t *testing.T) {
	u := cashier()
	s := FromUser(u, nil)

	assert.Equal(t, u.ID, s.UserID)
	assert.Equal(t, "Cashier One", s.FullName)
	assert.Equal(t, model.RoleCashier, s.Role)
	assert.True(t, s.Has(model.PrivSalesInsert))
	assert.False(t, s.Has(model.PrivProfilesInsert))
	assert.Equal(t, access.ScopeOwn, s.SalesScope())
	assert.Contains(t, s.Screens, access.ScreenPOS)
	assert.Equal(t, u.ID.String(), s.Actor())

	var none *Session
	assert.False(t, none.Has(model.PrivSalesInsert))
	assert.Equal(t, "system", none.Actor())
}

func TestNotifierSubscribeUnsubscribe(t *testing.T) {
	n := NewNotifier()
	var got []Event
	unsubscribe := n.Subscribe(func(e Event) { got = append(got, e) })

	id := uuid.New()
	n.Publish(Event{Type: EventSignedIn, UserID: id})
	require.Len(t, got, 1)
	assert.Equal(t, EventSignedIn, got[0].Type)
	assert.False(t, got[0].At.IsZero())

	unsubscribe()
	unsubscribe()
	n.Publish(Event{Type: EventSignedOut, UserID: id})
	assert.Len(t, got, 1)
}

func TestCapabilitiesInvalidatedByEvents(t *testing.T) {
	n := NewNotifier()
	caps := NewCapabilities(n)
	defer caps.Close()
	id := uuid.New()

	screens := caps.Screens(id, "v1", model.RoleCashier)
	assert.NotContains(t, screens, access.ScreenUsers)
	assert.Equal(t, screens, caps.Screens(id, "v1", model.RoleCashier))

	n.Publish(Event{Type: EventRoleChanged, UserID: id, Role: model.RoleSuperAdmin})
	assert.Contains(t, caps.Screens(id, "v1", model.RoleSuperAdmin), access.ScreenUsers)

	// A new token version recomputes as well.
	assert.NotContains(t, caps.Screens(id, "v2", model.RoleCashier), access.ScreenUsers)
}

func TestCapabilitiesNeverServeAnotherRole(t *testing.T) {
	n := NewNotifier()
	caps := NewCapabilities(n)
	defer caps.Close()
	id := uuid.New()

	// A request that loaded the user before a role change stores the old
	// screens after the change event has already dropped the entry.
	n.Publish(Event{Type: EventRoleChanged, UserID: id, Role: model.RoleStockManager})
	assert.Contains(t, caps.Screens(id, "v1", model.RoleCashier), access.ScreenPOS)

	screens := caps.Screens(id, "v1", model.RoleStockManager)
	assert.Equal(t, access.ScreensFor(model.RoleStockManager), screens)
	assert.NotContains(t, screens, access.ScreenPOS)
	assert.Equal(t, screens, caps.Screens(id, "v1", model.RoleStockManager))
}
