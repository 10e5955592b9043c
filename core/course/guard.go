package course

import (
	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

const (
	ReasonNotOwner    = "not course owner"
	ReasonNotEnrolled = "not enrolled"
)

// Decision is the outcome of an access check: allowed, or denied with a reason.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err returns nil when allowed, a *core.ForbiddenError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return core.NewForbiddenError(d.Reason)
}

type guardFunc func(usr user.User, c Course, isEnrolled bool) Decision

var viewGuards = map[user.Role]guardFunc{
	user.RoleAdministrator: func(user.User, Course, bool) Decision { return allow },
	user.RoleTeacher: func(usr user.User, c Course, _ bool) Decision {
		if c.TeacherID == usr.ID {
			return allow
		}
		return deny(ReasonNotOwner)
	},
	user.RoleStudent: func(_ user.User, _ Course, isEnrolled bool) Decision {
		if isEnrolled {
			return allow
		}
		return deny(ReasonNotEnrolled)
	},
}

// CanViewCourse decides whether usr may open the detail page of c.
// isEnrolled is whether an enrollment (c, usr) exists; only students depend on it.
func CanViewCourse(usr user.User, c Course, isEnrolled bool) (Decision, error) {
	guard, ok := viewGuards[usr.Role]
	if !ok {
		return Decision{}, errors.Wrapf(core.ErrInvariantViolation, "unknown role %q for user %s", usr.Role, usr.ID)
	}
	return guard(usr, c, isEnrolled), nil
}

// canManage reports whether usr may change c (enroll students...): administrators and the owning teacher.
func canManage(usr user.User, c Course) bool {
	return usr.IsAdministrator() || (usr.IsTeacher() && c.TeacherID == usr.ID)
}
