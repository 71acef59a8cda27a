package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/sims-edu/sims/apps/api/echo"
	"github.com/sims-edu/sims/core/user"
	"github.com/sims-edu/sims/tests"
)

const testPassword = "Sup3r$ecret!"

func refreshCookie(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func Test_authApi_login(t *testing.T) {
	db.Reset()

	cr := testutil.CreateClassroom(t, crRepo, "CPE 500L")
	student := testutil.CreateStudent(t, usrRepo, "student@test.cd", testPassword, cr.ID, false)
	testutil.CreateUser(t, usrRepo, "naughty@test.cd", testPassword, false, false)

	creds := func(email, pwd string) []byte {
		return marchallObj(t, user.LoginCredentials{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Email & password required", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "password": "this field is required"}`),
		},
		{
			name: "Unknown user", body: creds("ghost@test.cd", testPassword), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "Wrong password", body: creds("student@test.cd", "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "Inactive user not allowed", body: creds("naughty@test.cd", testPassword), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/login"
	}
	runHTTPTests(t, tests)

	t.Run("Logged in", func(t *testing.T) {
		rec := serve(http.MethodPost, "/v1/auth/login", "", creds("  STUDENT@test.cd ", testPassword))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, student.User.ID, resp.User.ID)
		assert.Equal(t, user.RoleStudent, resp.User.Role)
		require.NotNil(t, resp.User.Student)
		assert.Equal(t, cr.ID, resp.User.Student.ClassroomID)
		assert.NotNil(t, resp.User.LastLogin)

		c := refreshCookie(rec)
		require.NotNil(t, c)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, "/v1/auth", c.Path)

		// the access token opens protected routes
		rec = serve(http.MethodGet, "/v1/users/me", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

type lockedLimiter struct{}

func (lockedLimiter) Allow(context.Context, string) (bool, error) { return false, nil }
func (lockedLimiter) Fail(context.Context, string) error          { return nil }
func (lockedLimiter) Reset(context.Context, string) error         { return nil }

func Test_authApi_loginThrottled(t *testing.T) {
	db.Reset()
	testutil.CreateAdmin(t, usrRepo, "admin@test.cd", testPassword, false)

	throttled := deps
	throttled.Limiter = lockedLimiter{}
	srv := echoapi.NewServer(throttled)

	req, rec := newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, user.LoginCredentials{Email: "admin@test.cd", Password: testPassword}))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Nil(t, refreshCookie(rec))
}

func Test_authApi_refreshToken(t *testing.T) {
	db.Reset()

	admin := testutil.CreateAdmin(t, usrRepo, "admin@test.cd", testPassword, true)
	login := serve(http.MethodPost, "/v1/auth/login", "", marchallObj(t, user.LoginCredentials{Email: admin.User.Email, Password: testPassword}))
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	cookie := refreshCookie(login)
	require.NotNil(t, cookie)

	refresh := func(c *http.Cookie) *http.Response {
		req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
		if c != nil {
			req.AddCookie(c)
		}
		app.ServeHTTP(rec, req)
		return rec.Result()
	}

	t.Run("Cookie required", func(t *testing.T) {
		res := refresh(nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("Tampered cookie", func(t *testing.T) {
		res := refresh(&http.Cookie{Name: "refresh_token", Value: cookie.Value + "x"})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("Token refreshed", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
		req.AddCookie(cookie)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.TokenResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("Deactivated user", func(t *testing.T) {
		usr := admin.User
		usr.IsActive = false
		_, err := usrRepo.UpdateUser(context.Background(), usr)
		require.NoError(t, err)

		res := refresh(cookie)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})
}

func Test_authApi_logout(t *testing.T) {
	rec := serve(http.MethodPost, "/v1/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c := refreshCookie(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.True(t, c.MaxAge < 0)
}

func Test_authApi_me(t *testing.T) {
	db.Reset()

	instructor := testutil.CreateInstructor(t, usrRepo, "instructor@test.cd", "")
	naughty := user.Actor{User: testutil.CreateUser(t, usrRepo, "naughty@test.cd", "", false, false)}
	ghost := user.Actor{User: user.User{ID: "5b7c4f3e-0000-4000-8000-000000000000", Email: "ghost@test.cd"}}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Invalid token", token: "not.a.token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "Unknown user", token: getToken(t, ghost), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Me", token: getToken(t, instructor), wantData: marchallObj(t, instructor.Me())},
	}
	for i := range tests {
		tests[i].path = "/v1/users/me"
	}
	runHTTPTests(t, tests)
}
