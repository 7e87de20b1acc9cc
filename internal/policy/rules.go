package policy

import (
	"fmt"

	"legaldesk/internal/domain"
)

var (
	manageCatalog = Policy{
		AllowRole(domain.RoleAdmin),
		DenyWith("only admins can manage products"),
	}
	placeOrder = Policy{
		AllowRole(domain.RoleClient),
		DenyWith("only clients can create orders"),
	}
	deleteOrder = Policy{
		AllowRole(domain.RoleAdmin),
		DenyWith("only admins can delete orders"),
	}
	manageUsers = Policy{
		AllowRole(domain.RoleAdmin),
		DenyWith("only admins can manage users"),
	}
	viewAnalytics = Policy{
		AllowRole(domain.RoleAdmin),
		DenyWith("only admins can view analytics"),
	}
)

// CanManageCatalog guards product create, update and delete.
// Anonymous callers are forbidden rather than unauthenticated.
func CanManageCatalog(id *domain.Identity) error { return manageCatalog.Eval(id) }

// CanCreateOrder guards order placement: clients only.
func CanCreateOrder(id *domain.Identity) error { return placeOrder.Eval(id) }

// CanDeleteOrder guards order deletion: admins only.
func CanDeleteOrder(id *domain.Identity) error { return deleteOrder.Eval(id) }

// CanManageUsers guards user listing and admin-issued user creation.
func CanManageUsers(id *domain.Identity) error { return manageUsers.Eval(id) }

// CanViewAnalytics guards the analytics summary.
func CanViewAnalytics(id *domain.Identity) error { return viewAnalytics.Eval(id) }

// CanViewOrder allows admins and the client owning the order.
func CanViewOrder(id *domain.Identity, o domain.Order) error {
	return Policy{
		RequireAuthenticated(),
		AllowRole(domain.RoleAdmin),
		AllowOwner(o.UserID),
		DenyWith("order belongs to another user"),
	}.Eval(id)
}

// CanUpdateOrder checks every field present in patch against the caller's role.
// The whole patch is rejected if any single field is not writable by the caller.
func CanUpdateOrder(id *domain.Identity, o domain.Order, patch domain.OrderPatch) error {
	if err := CanViewOrder(id, o); err != nil {
		return err
	}
	return Policy{
		AllowRole(domain.RoleAdmin),
		DenyIf(patch.Status.Set, "clients cannot update order status"),
		DenyIf(patch.InvoiceURL.Set, "clients cannot update invoice url"),
		AlwaysAllow(),
	}.Eval(id)
}

// Scope describes which orders a caller may list.
type Scope struct {
	// OwnerID restricts the listing to one user's orders; empty means all orders.
	OwnerID string
	// IncludeUser joins the owning user into each order.
	IncludeUser bool
}

// OrderScope resolves the listing scope for the caller.
func OrderScope(id *domain.Identity) (Scope, error) {
	if id == nil {
		return Scope{}, ErrUnauthenticated
	}
	switch id.Role {
	case domain.RoleAdmin:
		return Scope{IncludeUser: true}, nil
	case domain.RoleClient:
		return Scope{OwnerID: id.ID}, nil
	default:
		return Scope{}, Forbiddenf("unknown role %q", id.Role)
	}
}

// CanChangeRole allows admins to set another user's role. Targeting oneself
// is only accepted when the role stays admin, which makes it a no-op.
func CanChangeRole(id *domain.Identity, targetID string, role domain.Role) error {
	if err := manageUsers.Eval(id); err != nil {
		return err
	}
	if id.ID == targetID && role != domain.RoleAdmin {
		return fmt.Errorf("%w: you cannot change your own admin role", ErrSelfTarget)
	}
	return nil
}

// CanDeleteUser allows admins to delete any account except their own.
func CanDeleteUser(id *domain.Identity, targetID string) error {
	if err := manageUsers.Eval(id); err != nil {
		return err
	}
	if id.ID == targetID {
		return fmt.Errorf("%w: you cannot delete your own account", ErrSelfTarget)
	}
	return nil
}

// RegistrationRole resolves the role a new account receives. Only an admin
// requester may choose the role; everyone else is registered as a client
// whatever they asked for.
func RegistrationRole(requester *domain.Identity, requested string) (domain.Role, error) {
	if !requester.IsAdmin() || requested == "" {
		return domain.RoleClient, nil
	}
	return domain.ParseRole(requested)
}
