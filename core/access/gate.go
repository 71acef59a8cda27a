package access

import (
	"net/http"

	"github.com/sims-edu/sims/core/user"
)

type Resource string

const (
	ResourceUsers       Resource = "users"
	ResourceClassrooms  Resource = "classrooms"
	ResourceAssignments Resource = "assignments"
	ResourceSubmissions Resource = "submissions"
	ResourceUploads     Resource = "uploads"
)

// policy lists the roles allowed to use each mutating verb on a resource.
// Resources or verbs missing from here are reserved to superusers.
type policy map[string][]user.Role

var policies = map[Resource]policy{
	ResourceUsers: {
		http.MethodPut: user.AllRoles,
	},
	ResourceAssignments: {
		http.MethodPost:   {user.RoleInstructor},
		http.MethodPut:    {user.RoleInstructor},
		http.MethodPatch:  {user.RoleInstructor},
		http.MethodDelete: {user.RoleInstructor},
	},
	ResourceSubmissions: {
		http.MethodPost:   {user.RoleStudent},
		http.MethodPut:    {user.RoleStudent, user.RoleInstructor},
		http.MethodPatch:  {user.RoleStudent, user.RoleInstructor},
		http.MethodDelete: {user.RoleStudent},
	},
	ResourceUploads: {
		http.MethodPost: {user.RoleStudent, user.RoleInstructor},
	},
}

// Allowed is the coarse, role-level gate run before any handler:
// superusers pass, safe methods pass, mutating methods need a role listed for the resource.
// It says nothing about ownership, which services check on the record itself.
func Allowed(actor user.Actor, method string, res Resource) bool {
	if actor.IsSuperuser() {
		return true
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	for _, role := range policies[res][method] {
		if role == actor.Role() {
			return true
		}
	}
	return false
}
