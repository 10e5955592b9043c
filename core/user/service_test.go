package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
	"github.com/appdotbuilder/junior-science-lms/services/email"
	"github.com/appdotbuilder/junior-science-lms/storage/database/inmem"
	"github.com/appdotbuilder/junior-science-lms/testutil"
)

const pwd = "Passw0rd!"

func setup() (user.Repository, user.Service) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return repo, user.NewServiceMock(repo, emailsvc.NewConsoleServiceMock())
}

func TestService_Create(t *testing.T) {
	_, svc := setup()
	ctx := context.Background()
	now := time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	defer user.FreezeTime(now)()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:          "Alex Thompson",
		Email:         "alex.thompson@student.scilearn.com",
		Role:          user.RoleStudent,
		StudentNumber: "STU_001",
		Password:      pwd,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.Equal(t, now, usr.CreatedAt)
	assert.Equal(t, "STU_001", usr.StudentNumber)
	assert.NoError(t, usr.CheckPassword(pwd))

	err = svc.CheckUniqueness("alex.thompson@student.scilearn.com")
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Fields[0].Field)

	assert.NoError(t, svc.CheckUniqueness(usr.Email, usr))
}

func TestService_Get(t *testing.T) {
	repo, svc := setup()
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Alex Thompson", "alex.thompson@student.scilearn.com", pwd, user.RoleStudent, true)
	other := testutil.CreateUser(t, repo, "Emma Wilson", "emma.wilson@student.scilearn.com", pwd, user.RoleStudent, true)

	got, err := svc.GetByEmail(ctx, "  ALEX.Thompson@student.scilearn.com ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.GetByID(ctx, "missing")
	assert.True(t, core.IsNotFound(err))

	users, err := svc.GetByIDs(ctx, []string{usr.ID, other.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, other.Name, users[other.ID].Name)

	users, err = svc.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestService_QueryAndCount(t *testing.T) {
	repo, svc := setup()
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Admin", "admin@scilearn.com", pwd, user.RoleAdministrator, true)
	testutil.CreateUser(t, repo, "Dr. Sarah Johnson", "sarah.johnson@scilearn.com", pwd, user.RoleTeacher, true)
	testutil.CreateUser(t, repo, "Blake Young", "blake@student.scilearn.com", pwd, user.RoleStudent, true)
	testutil.CreateUser(t, repo, "Alex Thompson", "alex@student.scilearn.com", pwd, user.RoleStudent, true)

	users, err := svc.Query(ctx, &user.QueryFilter{Roles: []user.Role{user.RoleStudent}}, []core.DBOrdering{
		{Field: "password_hash", Ascending: true}, // not orderable; ignored
		{Field: "name", Ascending: true},
	})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alex Thompson", users[0].Name)
	assert.Equal(t, "Blake Young", users[1].Name)

	tests := []struct {
		role user.Role
		want int
	}{
		{role: user.RoleStudent, want: 2},
		{role: user.RoleTeacher, want: 1},
		{role: user.RoleAdministrator, want: 1},
	}
	for _, tt := range tests {
		got, err := svc.CountByRole(ctx, tt.role)
		require.NoError(t, err)
		if got != tt.want {
			t.Errorf("CountByRole(%s) = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestService_SetLastLogin(t *testing.T) {
	repo, svc := setup()
	ctx := context.Background()
	now := time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	defer user.FreezeTime(now)()

	usr := testutil.CreateUser(t, repo, "Alex Thompson", "alex@student.scilearn.com", pwd, user.RoleStudent, true)
	usr, err := svc.SetLastLogin(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, now, usr.LastLogin)

	stored, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, now, stored.LastLogin)
}

func TestService_PasswordReset(t *testing.T) {
	repo, svc := setup()
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Alex Thompson", "alex@student.scilearn.com", pwd, user.RoleStudent, true)
	inactive := testutil.CreateUser(t, repo, "N Dog", "ndog@student.scilearn.com", pwd, user.RoleStudent, false)

	assert.True(t, core.IsNotFound(svc.RequestPasswordReset(ctx, "who@scilearn.com")))
	assert.True(t, core.IsNotFound(svc.RequestPasswordReset(ctx, inactive.Email)))
	assert.NoError(t, svc.RequestPasswordReset(ctx, usr.Email))

	newPwd := "N3wPassw0rd!"
	tests := []struct {
		name  string
		data  user.ResetUserPassword
		field string
	}{
		{name: "invalid uid", data: user.ResetUserPassword{UID: "lol", Token: user.MakeTestToken(usr)}, field: "uid"},
		{name: "unknown uid", data: user.ResetUserPassword{UID: user.EncodeUID(user.User{ID: "missing"}), Token: user.MakeTestToken(usr)}, field: "uid"},
		{name: "invalid token", data: user.ResetUserPassword{UID: user.EncodeUID(usr), Token: "lol"}, field: "token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.data.Password, tt.data.PasswordConfirm = newPwd, newPwd
			err := svc.ResetPassword(ctx, tt.data)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	data := user.ResetUserPassword{UID: user.EncodeUID(usr), Token: user.MakeTestToken(usr), Password: newPwd, PasswordConfirm: newPwd}
	require.NoError(t, svc.ResetPassword(ctx, data))

	stored, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword(newPwd))

	// tokens are single use: the password hash they were made from changed
	var verr *core.ValidationError
	require.ErrorAs(t, svc.ResetPassword(ctx, data), &verr)
}
