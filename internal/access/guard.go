package access

import "github.com/noah-isme/campus-grievance-api/internal/models"

// Decision is the outcome of a route guard evaluation.
type Decision int

// Guard outcomes.
const (
	Render Decision = iota
	RedirectSignIn
	RedirectDefault
	Loading
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectSignIn:
		return "redirect_sign_in"
	case RedirectDefault:
		return "redirect_default"
	case Loading:
		return "loading"
	default:
		return "unknown"
	}
}

// Target returns the path a redirect decision points to, or "" for non-redirects.
func (d Decision) Target() string {
	switch d {
	case RedirectSignIn:
		return PathSignIn
	case RedirectDefault:
		return PathDashboard
	default:
		return ""
	}
}

// Decide evaluates a protected route. Loading wins over everything, a missing identity
// redirects to sign-in and a role outside a non-empty allowed set redirects to the dashboard.
func Decide(identity *models.Identity, allowed []models.Role, loading bool) Decision {
	if loading {
		return Loading
	}
	if identity == nil {
		return RedirectSignIn
	}
	if len(allowed) == 0 {
		return Render
	}
	for _, role := range allowed {
		if role == identity.Role {
			return Render
		}
	}
	return RedirectDefault
}

// DecidePublic evaluates a sign-in or registration page: signed-in users go to the dashboard.
func DecidePublic(identity *models.Identity, loading bool) Decision {
	if loading {
		return Loading
	}
	if identity != nil {
		return RedirectDefault
	}
	return Render
}

// DecidePath evaluates a named page using RouteRoles. Unknown paths are treated as public.
func DecidePath(path string, identity *models.Identity, loading bool) Decision {
	allowed, protected := RouteRoles[path]
	if !protected {
		return DecidePublic(identity, loading)
	}
	return Decide(identity, allowed, loading)
}
