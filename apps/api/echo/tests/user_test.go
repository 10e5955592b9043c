package tests

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/junior-science-lms/apps/api/echo"
	"github.com/appdotbuilder/junior-science-lms/core/user"
	"github.com/appdotbuilder/junior-science-lms/services/email"
	"github.com/appdotbuilder/junior-science-lms/testutil"
)

func Test_userApi_login(t *testing.T) {
	e := setup(t)
	usr := e.fx.CreateUser("Alex Thompson", "alex.thompson@student.scilearn.com", pwd, user.RoleStudent)
	testutil.CreateUser(t, e.fx.UserRepo, "N Dog", "ndog@student.scilearn.com", pwd, user.RoleStudent, false)

	body := func(email, pass string) []byte {
		return marshallObj(t, echoapi.LoginRequest{Email: email, Password: pass})
	}

	tests := []httpTest{
		{name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest},
		{name: "invalid email", body: body("alex", pwd), wantCode: http.StatusBadRequest},
		{
			name: "unknown email", body: body("who@scilearn.com", pwd), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: body(usr.Email, "lol"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", body: body("ndog@student.scilearn.com", pwd), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	runTests(t, e, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body("  Alex.Thompson@student.scilearn.com ", pwd))
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		unmarshall(t, rec, &resp)
		require.NotEmpty(t, resp.Token)

		// the token opens the authed endpoints
		req, rec = newAuthRequest(http.MethodGet, "/v1/courses", resp.Token)
		e.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		stored, err := e.fx.UserRepo.GetUser(req.Context(), user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.False(t, stored.LastLogin.IsZero())
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	e := setup(t)
	usr := e.fx.CreateUser("Alex Thompson", "alex.thompson@student.scilearn.com", pwd, user.RoleStudent)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "invalid token", token: "not.a.jwt", wantCode: http.StatusUnauthorized},
		{name: "success", token: e.getToken(t, usr), wantCode: http.StatusOK},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/token-refresh"
	}
	runTests(t, e, tests)
}

func Test_userApi_create(t *testing.T) {
	e := setup(t)
	admin := e.fx.CreateUser("Admin", "admin@scilearn.com", pwd, user.RoleAdministrator)
	teacher := e.fx.CreateUser("Dr. Sarah Johnson", "sarah.johnson@scilearn.com", pwd, user.RoleTeacher)
	adminToken := e.getToken(t, admin)

	newUser := func(name, email string, role user.Role, pass, confirm string) []byte {
		return marshallObj(t, user.NewUser{Name: name, Email: email, Role: role, Password: pass, PasswordConfirm: confirm})
	}
	valid := newUser("Emma Wilson", "emma.wilson@student.scilearn.com", user.RoleStudent, pwd, pwd)

	tests := []httpTest{
		{name: "auth required", body: valid, wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "admin required", body: valid, token: e.getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/register"
	}
	runTests(t, e, tests)

	invalid := []struct {
		name  string
		body  []byte
		field string
	}{
		{name: "unknown role", body: newUser("Emma Wilson", "emma@student.scilearn.com", "janitor", pwd, pwd), field: "role"},
		{name: "duplicate email", body: newUser("Sarah", "SARAH.johnson@scilearn.com", user.RoleTeacher, pwd, pwd), field: "email"},
		{name: "password mismatch", body: newUser("Emma Wilson", "emma@student.scilearn.com", user.RoleStudent, pwd, pwd+"1"), field: "password_confirm"},
		{name: "missing name", body: newUser("  ", "emma@student.scilearn.com", user.RoleStudent, pwd, pwd), field: "name"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, tt.body)
			e.serve(req, rec)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, fieldErrors(t, rec), tt.field)
		})
	}

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, valid)
		e.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		unmarshall(t, rec, &usr)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "emma.wilson@student.scilearn.com", usr.Email)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.True(t, usr.IsActive)
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func Test_userApi_query(t *testing.T) {
	e := setup(t)
	now := time.Now().UTC().Truncate(time.Second)

	admin := e.fx.CreateUser("Admin", "admin@scilearn.com", pwd, user.RoleAdministrator, now.Add(-3*time.Hour))
	e.fx.CreateUser("Dr. Sarah Johnson", "sarah.johnson@scilearn.com", pwd, user.RoleTeacher, now.Add(-2*time.Hour))
	student := e.fx.CreateUser("Alex Thompson", "alex.thompson@student.scilearn.com", pwd, user.RoleStudent, now.Add(-time.Hour))
	testutil.CreateUser(t, e.fx.UserRepo, "Blake Young", "blake.young@student.scilearn.com", pwd, user.RoleStudent, false, now)
	adminToken := e.getToken(t, admin)

	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/v1/users?" + v.Encode()
	}

	runTests(t, e, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: e.getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "invalid is_active", path: path("is_active", "maybe"), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "invalid created_from", path: path("created_from", "yesterday"), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "unknown role", path: path("role", "janitor"), token: adminToken, wantCode: http.StatusOK, wantData: []byte("[]")},
	})

	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "all by name", path: path("ordering", "name"), want: []string{"Admin", "Alex Thompson", "Blake Young", "Dr. Sarah Johnson"}},
		{name: "newest first", path: path("ordering", "-created_at"), want: []string{"Blake Young", "Alex Thompson", "Dr. Sarah Johnson", "Admin"}},
		{name: "search", path: path("search", "STUDENT.scilearn", "ordering", "name"), want: []string{"Alex Thompson", "Blake Young"}},
		{name: "role", path: path("role", "Teacher"), want: []string{"Dr. Sarah Johnson"}},
		{name: "inactive", path: path("is_active", "false"), want: []string{"Blake Young"}},
		{
			name: "created range",
			path: path("created_from", now.Add(-150*time.Minute).Format(time.RFC3339), "created_to", now.Add(-30*time.Minute).Format(time.RFC3339), "ordering", "created_at"),
			want: []string{"Dr. Sarah Johnson", "Alex Thompson"},
		},
		{name: "limit", path: path("ordering", "name", "limit", "2"), want: []string{"Admin", "Alex Thompson"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, adminToken)
			e.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, userNames(t, rec))
		})
	}

	t.Run("roles", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", adminToken)
		e.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, user.Roles)}, rec)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	e := setup(t)
	usr := e.fx.CreateUser("Alex Thompson", "alex.thompson@student.scilearn.com", pwd, user.RoleStudent)
	emailsvc.ResetSentMessages()

	t.Run("unknown email is not disclosed", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", marshallObj(t, echoapi.PasswordResetRequest{Email: "who@scilearn.com"}))
		e.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		_, sent := emailsvc.LastSentMessage()
		assert.False(t, sent)
	})

	t.Run("request", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", marshallObj(t, echoapi.PasswordResetRequest{Email: usr.Email}))
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		msg, sent := emailsvc.LastSentMessage()
		require.True(t, sent)
		require.Len(t, msg.To, 1)
		assert.Equal(t, usr.Email, msg.To[0].Address)
	})

	newPwd := "N3wPassw0rd!"
	confirm := func(uid, token string) []byte {
		return marshallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})
	}

	tests := []httpTest{
		{name: "missing fields", body: []byte("{}"), wantCode: http.StatusBadRequest},
		{name: "invalid uid", body: confirm("lol", user.MakeTestToken(usr)), wantCode: http.StatusBadRequest},
		{name: "invalid token", body: confirm(user.EncodeUID(usr), "lol"), wantCode: http.StatusBadRequest},
		{name: "success", body: confirm(user.EncodeUID(usr), user.MakeTestToken(usr)), wantCode: http.StatusOK},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/password-reset-confirm"
	}
	runTests(t, e, tests)

	t.Run("login with the new password", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marshallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: newPwd}))
		e.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}
