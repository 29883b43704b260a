package access

import "github.com/noah-isme/campus-grievance-api/internal/models"

// Route paths exposed to clients.
const (
	PathSignIn         = "/"
	PathAdminSignIn    = "/admin-login"
	PathRegister       = "/register"
	PathDashboard      = "/dashboard"
	PathLodgeComplaint = "/lodge-complaint"
	PathMyComplaints   = "/my-complaints"
	PathAllComplaints  = "/all-complaints"
	PathAdminPanel     = "/admin-panel"
)

// NavItem is a single entry of a role's navigation menu.
type NavItem struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// CanSubmit reports whether the role may lodge complaints.
func CanSubmit(role models.Role) bool {
	return role == models.RoleStudent
}

// CanResolve reports whether the role may resolve complaints within its scope.
func CanResolve(role models.Role) bool {
	switch role {
	case models.RoleHOD, models.RoleAdmin, models.RolePrincipal:
		return true
	default:
		return false
	}
}

// CanManageUsers reports whether the role may list, re-role and delete accounts.
func CanManageUsers(role models.Role) bool {
	return role == models.RoleAdmin
}

// ReviewerRoles lists the roles allowed to see the complaint review pages.
func ReviewerRoles() []models.Role {
	return []models.Role{models.RoleHOD, models.RoleAdmin, models.RolePrincipal}
}

// RouteRoles maps each protected page to the roles allowed to render it.
// An empty slice means any signed-in role.
var RouteRoles = map[string][]models.Role{
	PathDashboard:      nil,
	PathLodgeComplaint: {models.RoleStudent},
	PathMyComplaints:   {models.RoleStudent},
	PathAllComplaints:  ReviewerRoles(),
	PathAdminPanel:     {models.RoleAdmin},
}

// NavigationFor returns the menu shown to the role.
func NavigationFor(role models.Role) []NavItem {
	items := []NavItem{{Path: PathDashboard, Label: "Dashboard"}}

	switch role {
	case models.RoleStudent:
		return append(items,
			NavItem{Path: PathLodgeComplaint, Label: "Lodge Complaint"},
			NavItem{Path: PathMyComplaints, Label: "My Complaints"},
		)
	case models.RoleAdmin:
		return append(items,
			NavItem{Path: PathAllComplaints, Label: "All Complaints"},
			NavItem{Path: PathAdminPanel, Label: "Admin Panel"},
		)
	case models.RoleHOD:
		return append(items, NavItem{Path: PathAllComplaints, Label: "Department Complaints"})
	case models.RolePrincipal:
		return append(items, NavItem{Path: PathAllComplaints, Label: "All Complaints"})
	default:
		return items
	}
}
