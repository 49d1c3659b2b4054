package ws

import (
	"github.com/google/uuid"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/session"
)

// Audience reports whether a subscriber may receive an event.
type Audience func(sess *session.Session) bool

// Owned is implemented by payloads that belong to a single cashier.
type Owned interface {
	OwnerID() uuid.UUID
}

// audienceFor applies the same privileges and row scopes as the REST routes
// serving the data behind eventType. Unknown events reach super admins only.
func audienceFor(eventType string, payload any) Audience {
	switch eventType {
	case EventStockUpdate, EventLowStock:
		return anyPrivilege(model.PrivBatchesSelect, model.PrivProductsSelect)
	case EventPurchaseReceived:
		return anyPrivilege(model.PrivPurchaseSelect)
	case EventSaleCompleted:
		owned, _ := payload.(Owned)
		return func(sess *session.Session) bool {
			if !sess.Has(model.PrivSalesSelect) {
				return false
			}
			switch sess.SalesScope() {
			case access.ScopeAll:
				return true
			case access.ScopeOwn:
				return owned != nil && owned.OwnerID() == sess.UserID
			}
			return false
		}
	case EventUserStatus:
		return func(sess *session.Session) bool {
			return sess.Has(model.PrivProfilesSelect) && access.CanOpen(sess.Role, access.ScreenUsers)
		}
	}
	return func(sess *session.Session) bool { return sess.IsSuperAdmin() }
}

func anyPrivilege(codes ...string) Audience {
	return func(sess *session.Session) bool {
		for _, code := range codes {
			if sess.Has(code) {
				return true
			}
		}
		return false
	}
}
