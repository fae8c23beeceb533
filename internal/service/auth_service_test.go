package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/jwt"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/oauth"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/testutil"
)

const testSecret = "test-secret-key-for-testing"

func setupAuthService(t *testing.T) (*AuthService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)

	cfg := config.Default()
	cfg.JWT = config.JWTConfig{Secret: testSecret, ExpireHours: 24}
	cfg.OAuth.Github = config.GithubOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURI:  "http://localhost:8080/callback",
	}

	service := NewAuthService(userRepo, cfg, logger.Discard())

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, db, cleanup
}

func validRegisterRequest(email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		FullName:        "Jane Customer",
		PhoneNumber:     "(555)-010-2030",
		Email:           email,
		SSN:             "123-45-6789",
		AddressLine1:    "12 Elm Street",
		ZipCode:         "30301",
		Password:        "Str0ng!Pass",
		ConfirmPassword: "Str0ng!Pass",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	service, db, cleanup := setupAuthService(t)
	defer cleanup()

	resp, err := service.Register(validRegisterRequest("NewUser@Example.com"))
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)
	assert.Equal(t, model.UserStatusPending, resp.Status)

	var user model.User
	require.NoError(t, db.First(&user, resp.UserID).Error)
	assert.Equal(t, "newuser@example.com", user.EmailAddress())
	assert.Equal(t, model.RoleCustomer, user.Role)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "Str0ng!Pass", *user.PasswordHash)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	service, _, cleanup := setupAuthService(t)
	defer cleanup()

	_, err := service.Register(validRegisterRequest("duplicate@example.com"))
	require.NoError(t, err)

	_, err = service.Register(validRegisterRequest("duplicate@example.com"))
	assert.Equal(t, ErrEmailExists, err)
}

func TestAuthService_Register_Validation(t *testing.T) {
	service, _, cleanup := setupAuthService(t)
	defer cleanup()

	tests := []struct {
		name   string
		mutate func(*dto.RegisterRequest)
		want   error
	}{
		{"blank name", func(r *dto.RegisterRequest) { r.FullName = "  " }, ErrInvalidFullName},
		{"phone without parens", func(r *dto.RegisterRequest) { r.PhoneNumber = "555-010-2030" }, ErrInvalidPhone},
		{"ssn without dashes", func(r *dto.RegisterRequest) { r.SSN = "123456789" }, ErrInvalidSSN},
		{"missing zip", func(r *dto.RegisterRequest) { r.ZipCode = "" }, ErrInvalidZipCode},
		{"short password", func(r *dto.RegisterRequest) { r.Password, r.ConfirmPassword = "Aa1!", "Aa1!" }, ErrWeakPassword},
		{"no special", func(r *dto.RegisterRequest) { r.Password, r.ConfirmPassword = "Abcdefg1", "Abcdefg1" }, ErrWeakPassword},
		{"mismatch", func(r *dto.RegisterRequest) { r.ConfirmPassword = "Str0ng!Pasz" }, ErrPasswordMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegisterRequest("validation@example.com")
			tt.mutate(req)
			_, err := service.Register(req)
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestAuthService_Login_RequiresApproval(t *testing.T) {
	service, db, cleanup := setupAuthService(t)
	defer cleanup()

	resp, err := service.Register(validRegisterRequest("pending@example.com"))
	require.NoError(t, err)

	login := &dto.LoginRequest{Email: "pending@example.com", Password: "Str0ng!Pass"}

	_, err = service.Login(login)
	assert.Equal(t, ErrAwaitingApproval, err)

	require.NoError(t, db.Model(&model.User{}).Where("id = ?", resp.UserID).Updates(map[string]interface{}{
		"status":            model.UserStatusRejected,
		"rejection_comment": "address could not be verified",
	}).Error)
	_, err = service.Login(login)
	assert.ErrorIs(t, err, ErrRegistrationRejected)
	assert.Contains(t, err.Error(), "address could not be verified")

	require.NoError(t, db.Model(&model.User{}).Where("id = ?", resp.UserID).
		Update("status", model.UserStatusApproved).Error)
	ok, err := service.Login(login)
	require.NoError(t, err)
	assert.NotEmpty(t, ok.Token)
	assert.Equal(t, "Jane Customer", ok.User.FullName)
}

func TestAuthService_Login_TokenCarriesRole(t *testing.T) {
	service, db, cleanup := setupAuthService(t)
	defer cleanup()

	admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))

	resp, err := service.Login(&dto.LoginRequest{Email: admin.EmailAddress(), Password: testutil.TestPassword})
	require.NoError(t, err)

	claims, err := jwt.ParseToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	service, db, cleanup := setupAuthService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := service.Login(&dto.LoginRequest{Email: "nonexistent@example.com", Password: "x"})
	assert.Equal(t, ErrInvalidCredentials, err)

	_, err = service.Login(&dto.LoginRequest{Email: user.EmailAddress(), Password: "Wrong#Pass1"})
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestAuthService_GithubUser_CreatesPendingRegistration(t *testing.T) {
	service, db, cleanup := setupAuthService(t)
	defer cleanup()

	gh := &oauth.GithubUser{ID: 4242, Login: "octo", Name: "Octo Cat", Email: "Octo@Example.com"}

	_, err := service.loginGithubUser(gh)
	assert.Equal(t, ErrAwaitingApproval, err)

	var user model.User
	require.NoError(t, db.Where("github_id = ?", "4242").First(&user).Error)
	assert.Equal(t, "Octo Cat", user.FullName)
	assert.Equal(t, model.UserStatusPending, user.Status)
	assert.Equal(t, "octo@example.com", user.EmailAddress())

	// 第二次登录不会重复创建
	_, err = service.loginGithubUser(gh)
	assert.Equal(t, ErrAwaitingApproval, err)
	var count int64
	db.Model(&model.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_GithubUser_LinksExistingAccount(t *testing.T) {
	service, db, cleanup := setupAuthService(t)
	defer cleanup()

	existing := testutil.TestUser(t, db, testutil.WithEmail("linked@example.com"))

	resp, err := service.loginGithubUser(&oauth.GithubUser{ID: 7, Login: "linked", Email: "linked@example.com"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthService_GetGithubAuthURL(t *testing.T) {
	service, _, cleanup := setupAuthService(t)
	defer cleanup()

	assert.True(t, service.GithubEnabled())
	url := service.GetGithubAuthURL("test-state")
	assert.Contains(t, url, "github.com")
	assert.Contains(t, url, "test-state")
}

func TestAuthService_GetUserByID_NotFound(t *testing.T) {
	service, _, cleanup := setupAuthService(t)
	defer cleanup()

	_, err := service.GetUserByID(99999)
	assert.Error(t, err)
}
