package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
)

func newAccountService(t *testing.T) *AccountService {
	t.Helper()
	return NewAccountService(setupTestDB(t), utils.NewTokenManager("test-secret", time.Hour))
}

func doctorInput() RegisterInput {
	return RegisterInput{
		Email:          "  Dr.House@Example.com ",
		Password:       "secret123",
		FirstName:      "Gregory",
		LastName:       "House",
		Role:           models.RoleDoctor,
		Department:     "Diagnostics",
		Location:       "Jakarta",
		Specialization: "Nephrology",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()

	reg, err := accounts.Register(ctx, doctorInput())
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "dr.house@example.com", reg.User.Email)
	assert.True(t, reg.User.IsActive)
	assert.NotEqual(t, "secret123", reg.User.Password)

	_, err = accounts.Register(ctx, doctorInput())
	assert.True(t, IsKind(err, KindConflict))

	login, err := accounts.Login(ctx, "DR.HOUSE@example.com", "secret123")
	require.NoError(t, err)
	claims, err := accounts.Tokens.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, models.RoleDoctor, claims.Role)

	_, err = accounts.Login(ctx, "dr.house@example.com", "wrong-password")
	assert.True(t, IsKind(err, KindAuth))
	_, err = accounts.Login(ctx, "nobody@example.com", "secret123")
	assert.True(t, IsKind(err, KindAuth))

	_, err = accounts.SetActive(ctx, reg.User.ID, false)
	require.NoError(t, err)
	_, err = accounts.Login(ctx, "dr.house@example.com", "secret123")
	assert.True(t, IsKind(err, KindForbidden))
}

func TestRegister_Validation(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()

	in := doctorInput()
	in.Role = models.RoleHR
	_, err := accounts.Register(ctx, in)
	assert.True(t, IsKind(err, KindValidation))

	in = doctorInput()
	in.Specialization = ""
	_, err = accounts.Register(ctx, in)
	assert.True(t, IsKind(err, KindValidation), "doctors need a specialization")

	in = doctorInput()
	in.Password = "short"
	_, err = accounts.Register(ctx, in)
	assert.True(t, IsKind(err, KindValidation))

	in = doctorInput()
	in.Role = models.RoleNurse
	in.Specialization = ""
	_, err = accounts.Register(ctx, in)
	assert.NoError(t, err)
}

func TestRefreshAndLogout(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()

	reg, err := accounts.Register(ctx, doctorInput())
	require.NoError(t, err)
	session := Session{UserID: reg.User.ID, Role: reg.User.Role, Token: reg.Token}

	refreshed, err := accounts.Refresh(ctx, session)
	require.NoError(t, err)
	assert.NotEqual(t, reg.Token, refreshed.Token)

	_, err = accounts.Tokens.ParseToken(reg.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken, "refresh revokes the old token")
	_, err = accounts.Tokens.ParseToken(refreshed.Token)
	require.NoError(t, err)

	accounts.Logout(Session{UserID: reg.User.ID, Token: refreshed.Token})
	_, err = accounts.Tokens.ParseToken(refreshed.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	accounts.Logout(Session{})
}

func TestProfileAndPassword(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()

	reg, err := accounts.Register(ctx, doctorInput())
	require.NoError(t, err)

	phone := "0812"
	empty := ""
	updated, err := accounts.UpdateProfile(ctx, reg.User.ID, ProfileInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "0812", updated.Phone)
	assert.Equal(t, "Nephrology", updated.Specialization)

	_, err = accounts.UpdateProfile(ctx, reg.User.ID, ProfileInput{Specialization: &empty})
	assert.True(t, IsKind(err, KindValidation))
	_, err = accounts.UpdateProfile(ctx, 999, ProfileInput{})
	assert.True(t, IsKind(err, KindNotFound))

	err = accounts.ChangePassword(ctx, reg.User.ID, "not-it", "another-pass")
	assert.True(t, IsKind(err, KindAuth))
	err = accounts.ChangePassword(ctx, reg.User.ID, "secret123", "tiny")
	assert.True(t, IsKind(err, KindValidation))
	require.NoError(t, accounts.ChangePassword(ctx, reg.User.ID, "secret123", "another-pass"))

	_, err = accounts.Login(ctx, "dr.house@example.com", "another-pass")
	assert.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()
	createUser(t, accounts.DB, models.RoleNurse, "")
	createUser(t, accounts.DB, models.RoleNurse, "")
	doc := createUser(t, accounts.DB, models.RoleDoctor, "Cardiology")
	_, err := accounts.SetActive(ctx, doc.ID, false)
	require.NoError(t, err)

	page := utils.Page{Number: 1, Limit: 10}
	nurses, total, err := accounts.ListUsers(ctx, UserFilter{Role: "nurse"}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, nurses, 2)

	inactive := false
	users, total, err := accounts.ListUsers(ctx, UserFilter{IsActive: &inactive}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, doc.ID, users[0].ID)

	users, _, err = accounts.ListUsers(ctx, UserFilter{Search: doc.LastName}, page)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, doc.ID, users[0].ID)
}
