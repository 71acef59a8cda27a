package access

import (
	"net/http"
	"testing"

	"github.com/sims-edu/sims/core/user"
)

func TestAllowed(t *testing.T) {
	student := user.Actor{User: user.User{ID: "s"}, Profile: user.Student{ID: "st", ClassroomID: "c"}}
	instructor := user.Actor{User: user.User{ID: "i"}, Profile: user.Instructor{ID: "in"}}
	admin := user.Actor{User: user.User{ID: "a"}}
	superuser := user.Actor{User: user.User{ID: "su", IsSuperuser: true}}
	superStudent := user.Actor{User: user.User{ID: "ss", IsSuperuser: true}, Profile: user.Student{ID: "st2"}}

	tests := []struct {
		name   string
		actor  user.Actor
		method string
		res    Resource
		want   bool
	}{
		// superusers
		{name: "superuser delete classroom", actor: superuser, method: http.MethodDelete, res: ResourceClassrooms, want: true},
		{name: "superuser student post assignment", actor: superStudent, method: http.MethodPost, res: ResourceAssignments, want: true},
		// safe methods
		{name: "student GET assignments", actor: student, method: http.MethodGet, res: ResourceAssignments, want: true},
		{name: "admin HEAD submissions", actor: admin, method: http.MethodHead, res: ResourceSubmissions, want: true},
		{name: "instructor OPTIONS uploads", actor: instructor, method: http.MethodOptions, res: ResourceUploads, want: true},
		// assignments
		{name: "instructor POST assignment", actor: instructor, method: http.MethodPost, res: ResourceAssignments, want: true},
		{name: "instructor PATCH assignment", actor: instructor, method: http.MethodPatch, res: ResourceAssignments, want: true},
		{name: "instructor DELETE assignment", actor: instructor, method: http.MethodDelete, res: ResourceAssignments, want: true},
		{name: "student POST assignment", actor: student, method: http.MethodPost, res: ResourceAssignments},
		{name: "admin PUT assignment", actor: admin, method: http.MethodPut, res: ResourceAssignments},
		// submissions
		{name: "student POST submission", actor: student, method: http.MethodPost, res: ResourceSubmissions, want: true},
		{name: "student PATCH submission", actor: student, method: http.MethodPatch, res: ResourceSubmissions, want: true},
		{name: "student DELETE submission", actor: student, method: http.MethodDelete, res: ResourceSubmissions, want: true},
		{name: "instructor PUT submission", actor: instructor, method: http.MethodPut, res: ResourceSubmissions, want: true},
		{name: "instructor POST submission", actor: instructor, method: http.MethodPost, res: ResourceSubmissions},
		{name: "instructor DELETE submission", actor: instructor, method: http.MethodDelete, res: ResourceSubmissions},
		{name: "admin PATCH submission", actor: admin, method: http.MethodPatch, res: ResourceSubmissions},
		// uploads
		{name: "student POST upload", actor: student, method: http.MethodPost, res: ResourceUploads, want: true},
		{name: "instructor POST upload", actor: instructor, method: http.MethodPost, res: ResourceUploads, want: true},
		{name: "admin POST upload", actor: admin, method: http.MethodPost, res: ResourceUploads},
		{name: "student DELETE upload", actor: student, method: http.MethodDelete, res: ResourceUploads},
		// users edit themselves, the service checks which record
		{name: "student PUT user", actor: student, method: http.MethodPut, res: ResourceUsers, want: true},
		{name: "admin DELETE user", actor: admin, method: http.MethodDelete, res: ResourceUsers},
		// superuser-only resources
		{name: "instructor POST classroom", actor: instructor, method: http.MethodPost, res: ResourceClassrooms},
		{name: "admin POST user", actor: admin, method: http.MethodPost, res: ResourceUsers},
		{name: "unknown verb", actor: instructor, method: "PURGE", res: ResourceAssignments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.actor, tt.method, tt.res); got != tt.want {
				t.Errorf("Allowed() = %v, want %v", got, tt.want)
			}
		})
	}
}
