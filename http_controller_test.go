package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestSignupRequest_Validate(t *testing.T) {
	valid := accounts.SignupRequest{
		Email:    "ada@example.com",
		Password: "longEnough1",
		Name:     "Ada",
		Age:      36,
	}

	tests := []struct {
		name    string
		mutate  func(r *accounts.SignupRequest)
		wantErr bool
	}{
		{name: "valid payload", mutate: func(r *accounts.SignupRequest) {}},
		{name: "missing email", mutate: func(r *accounts.SignupRequest) { r.Email = "" }, wantErr: true},
		{name: "bad email", mutate: func(r *accounts.SignupRequest) { r.Email = "not-an-email" }, wantErr: true},
		{name: "password too short", mutate: func(r *accounts.SignupRequest) { r.Password = "short" }, wantErr: true},
		{name: "password too long", mutate: func(r *accounts.SignupRequest) {
			r.Password = "0123456789012345678901234567890123456789"
		}, wantErr: true},
		{name: "missing name", mutate: func(r *accounts.SignupRequest) { r.Name = "" }, wantErr: true},
		{name: "missing age", mutate: func(r *accounts.SignupRequest) { r.Age = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := valid
			tt.mutate(&payload)

			err := payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSigninRequest_Validate(t *testing.T) {
	assert.NoError(t, accounts.SigninRequest{Email: "ada@example.com", Password: "x"}.Validate())
	assert.Error(t, accounts.SigninRequest{Email: "", Password: "x"}.Validate())
	assert.Error(t, accounts.SigninRequest{Email: "ada@example.com", Password: ""}.Validate())
}

func TestUpdateUserRequest_Validate(t *testing.T) {
	assert.NoError(t, accounts.UpdateUserRequest{}.Validate(), "empty patch is valid")

	name := "Ada"
	assert.NoError(t, accounts.UpdateUserRequest{Name: &name}.Validate())

	bad := "not-an-email"
	assert.Error(t, accounts.UpdateUserRequest{Email: &bad}.Validate())
}

func TestNewAccountController_Defaults(t *testing.T) {
	service, _ := newTestService(t)

	controller := accounts.NewAccountController(
		accounts.WithControllerService(service),
	)

	assert.Equal(t, "refreshToken", controller.CookieName)
	assert.Equal(t, time.Hour*24*30, controller.CookieTTL)
	assert.Equal(t, "user", controller.ContextKey)
}

func TestNewAccountController_RequiresService(t *testing.T) {
	assert.Panics(t, func() {
		accounts.NewAccountController()
	})
}
