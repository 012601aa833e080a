package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email            string                  `json:"email" binding:"required,email"`
	Password         string                  `json:"password" binding:"required,min=8"`
	FirstName        string                  `json:"firstName" binding:"required,max=100"`
	LastName         string                  `json:"lastName" binding:"required,max=100"`
	Role             string                  `json:"role" binding:"required,oneof=DOCTOR NURSE"`
	Department       string                  `json:"department" binding:"max=100"`
	Location         string                  `json:"location" binding:"max=100"`
	Specialization   string                  `json:"specialization" binding:"max=100"`
	LicenseNumber    string                  `json:"licenseNumber" binding:"max=100"`
	Phone            string                  `json:"phone" binding:"max=50"`
	EmergencyContact models.EmergencyContact `json:"emergencyContact"`
	Address          models.Address          `json:"address"`
	HospitalID       *uint                   `json:"hospitalId"`
}

// ProfileInput holds the self-editable profile fields. Nil means unchanged.
type ProfileInput struct {
	FirstName        *string                  `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName         *string                  `json:"lastName" binding:"omitempty,min=1,max=100"`
	Department       *string                  `json:"department" binding:"omitempty,max=100"`
	Location         *string                  `json:"location" binding:"omitempty,max=100"`
	Specialization   *string                  `json:"specialization" binding:"omitempty,max=100"`
	LicenseNumber    *string                  `json:"licenseNumber" binding:"omitempty,max=100"`
	Phone            *string                  `json:"phone" binding:"omitempty,max=50"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact"`
	Address          *models.Address          `json:"address"`
}

// UserFilter narrows ListUsers.
type UserFilter struct {
	Role     string `form:"role"`
	Search   string `form:"search"`
	IsActive *bool  `form:"isActive"`
	Sort     string `form:"sort"`
}

type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type AccountService struct {
	DB     *gorm.DB
	Tokens *utils.TokenManager
}

func NewAccountService(db *gorm.DB, tokens *utils.TokenManager) *AccountService {
	return &AccountService{DB: db, Tokens: tokens}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.Tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

// Register creates a DOCTOR or NURSE account and signs it in. HR and ADMIN accounts are
// provisioned by seeding only.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Role != models.RoleDoctor && in.Role != models.RoleNurse {
		return nil, ValidationError("role must be DOCTOR or NURSE")
	}
	if in.Role == models.RoleDoctor && strings.TrimSpace(in.Specialization) == "" {
		return nil, ValidationError("specialization is required for doctors")
	}
	if len(in.Password) < minPasswordLength {
		return nil, ValidationError("password must be at least %d characters", minPasswordLength)
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, ValidationError("email is required")
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, errors.Wrap(err, "check email")
	}
	if existing > 0 {
		return nil, ConflictError("email %s is already registered", email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := models.User{
		Email:            email,
		Password:         string(hashed),
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Role:             in.Role,
		Department:       strings.TrimSpace(in.Department),
		Location:         strings.TrimSpace(in.Location),
		Specialization:   strings.TrimSpace(in.Specialization),
		LicenseNumber:    in.LicenseNumber,
		Phone:            in.Phone,
		EmergencyContact: in.EmergencyContact,
		Address:          in.Address,
		HospitalID:       in.HospitalID,
		IsActive:         true,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ConflictError("email %s is already registered", email)
		}
		return nil, errors.Wrap(err, "create user")
	}

	utils.InfoLogger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return s.issue(&user)
}

// Login verifies credentials of an active account.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, AuthError("invalid credentials")
		}
		return nil, errors.Wrap(err, "load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, AuthError("invalid credentials")
	}
	if !user.IsActive {
		return nil, ForbiddenError("account is deactivated")
	}

	utils.InfoLogger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("login successful")
	return s.issue(&user)
}

// Refresh swaps the presented token for a fresh one.
func (s *AccountService) Refresh(ctx context.Context, session Session) (*AuthResult, error) {
	user, err := s.Profile(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ForbiddenError("account is deactivated")
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.Logout(session)
	return result, nil
}

// Logout revokes the session token until it expires.
func (s *AccountService) Logout(session Session) {
	if session.Token == "" {
		return
	}
	claims, err := s.Tokens.ParseToken(session.Token)
	if err != nil {
		return
	}
	s.Tokens.Revoke(session.Token, claims)
}

func (s *AccountService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	return &user, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&user.FirstName, in.FirstName)
	set(&user.LastName, in.LastName)
	set(&user.Department, in.Department)
	set(&user.Location, in.Location)
	set(&user.Specialization, in.Specialization)
	set(&user.LicenseNumber, in.LicenseNumber)
	set(&user.Phone, in.Phone)
	if in.EmergencyContact != nil {
		user.EmergencyContact = *in.EmergencyContact
	}
	if in.Address != nil {
		user.Address = *in.Address
	}

	if user.FirstName == "" || user.LastName == "" {
		return nil, ValidationError("firstName and lastName cannot be empty")
	}
	if user.Role == models.RoleDoctor && user.Specialization == "" {
		return nil, ValidationError("specialization is required for doctors")
	}

	if err := s.DB.WithContext(ctx).Save(user).Error; err != nil {
		return nil, errors.Wrapf(err, "update user %d", userID)
	}
	return user, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < minPasswordLength {
		return ValidationError("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return AuthError("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.DB.WithContext(ctx).Model(user).Update("password", string(hashed)).Error; err != nil {
		return errors.Wrapf(err, "update password of user %d", userID)
	}
	utils.InfoLogger.WithField("user_id", userID).Info("password changed")
	return nil
}

var userSorts = map[string]string{
	"name":       "last_name asc, first_name asc",
	"-name":      "last_name desc, first_name desc",
	"createdAt":  "created_at asc",
	"-createdAt": "created_at desc",
	"role":       "role asc, last_name asc",
}

func (s *AccountService) ListUsers(ctx context.Context, filter UserFilter, page utils.Page) ([]models.User, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", strings.ToUpper(filter.Role))
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	order, ok := userSorts[filter.Sort]
	if !ok {
		order = "id asc"
	}
	users := []models.User{}
	if err := q.Order(order).Offset(page.Offset()).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	return users, total, nil
}

func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.Profile(ctx, id)
}

// SetActive enables or disables an account. Disabled staff stop matching new jobs.
func (s *AccountService) SetActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, errors.Wrapf(err, "update user %d", id)
	}
	user.IsActive = active
	utils.InfoLogger.WithFields(logrus.Fields{"user_id": id, "active": active}).Info("account status changed")
	return user, nil
}
