package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Varaprasad-34/college-job-portal/internal/config"
	"github.com/Varaprasad-34/college-job-portal/internal/model"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/notify"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/validate"
)

// Store 是 auth 层需要的用户存储操作。
type Store interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByResetToken(ctx context.Context, token string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
}

// Handler 提供注册、登录与账户管理接口。
type Handler struct {
	store         Store
	jwtSecret     []byte
	tokenTTL      time.Duration
	resetTTL      time.Duration
	collegeDomain string
	mailer        notify.Mailer
	logger        *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(db *gorm.DB, cfg *config.Config, mailer notify.Mailer, logger *slog.Logger) *Handler {
	return &Handler{
		store:         dbStore{db: db, collegeDomain: cfg.App.CollegeEmailDomain},
		jwtSecret:     []byte(cfg.Security.JWTSecret),
		tokenTTL:      cfg.Security.TokenTTL,
		resetTTL:      cfg.Security.ResetTTL,
		collegeDomain: cfg.App.CollegeEmailDomain,
		mailer:        mailer,
		logger:        logger,
	}
}

// dbStore 是 Store 的 gorm 实现。
//
// Create 在持久化入口再次执行邮箱域名策略与毕业年份校验：
// 无论调用方是否已经校验过，违反约束的记录都不会落库。
type dbStore struct {
	db            *gorm.DB
	collegeDomain string
}

func (s dbStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbStore) FindByResetToken(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("password_reset_token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbStore) Create(ctx context.Context, user *model.User) error {
	if err := validate.CollegeEmail(user.Email, user.Role, s.collegeDomain); err != nil {
		return err
	}
	if err := validate.GraduationYear(user.Role, user.GraduationYear, time.Now()); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(user).Error
}

func (s dbStore) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

type registerRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=50"`
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required,min=6"`
	Role           string `json:"role" binding:"required"`
	Major          string `json:"major" binding:"required,min=2"`
	GraduationYear *int   `json:"graduationYear"`
	Bio            string `json:"bio" binding:"omitempty,max=500"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	Major           string    `json:"major"`
	GraduationYear  *int      `json:"graduationYear,omitempty"`
	ProfilePicture  string    `json:"profilePicture,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Skills          []string  `json:"skills"`
	Experience      string    `json:"experience"`
	CurrentPosition string    `json:"currentPosition,omitempty"`
	Company         string    `json:"company,omitempty"`
	LinkedinProfile string    `json:"linkedinProfile,omitempty"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	LastActive      time.Time `json:"lastActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	skills := []string(u.Skills)
	if skills == nil {
		skills = []string{}
	}
	return userResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Major:           u.Major,
		GraduationYear:  u.GraduationYear,
		ProfilePicture:  u.ProfilePicture,
		Bio:             u.Bio,
		Skills:          skills,
		Experience:      u.Experience,
		CurrentPosition: u.CurrentPosition,
		Company:         u.Company,
		LinkedinProfile: u.LinkedinProfile,
		IsEmailVerified: u.IsEmailVerified,
		LastActive:      u.LastActive,
		CreatedAt:       u.CreatedAt,
	}
}

type customClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Register 创建新用户并返回 JWT。
//
// 学生必须使用配置的校园邮箱域名；校友必须提供合法的毕业年份。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"errors":  validate.BindingErrors(err),
		})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	role := strings.TrimSpace(strings.ToLower(req.Role))

	var fieldErrs []validate.FieldError
	if !validate.Role(role) {
		fieldErrs = append(fieldErrs, validate.FieldError{Field: "role", Message: "role must be either student or alumni"})
	} else {
		if err := validate.CollegeEmail(email, role, h.collegeDomain); err != nil {
			fieldErrs = append(fieldErrs, *err)
		}
		if err := validate.GraduationYear(role, req.GraduationYear, time.Now()); err != nil {
			fieldErrs = append(fieldErrs, *err)
		}
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": fieldErrs})
		return
	}

	if _, err := h.store.FindByEmail(c.Request.Context(), email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "user already exists with this email"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "query user failed"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "hash password failed"})
		return
	}

	verifyToken, err := randomToken(32)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "generate token failed"})
		return
	}

	user := model.User{
		Name:             strings.TrimSpace(req.Name),
		Email:            email,
		Password:         string(hash),
		Role:             role,
		Major:            strings.TrimSpace(req.Major),
		Bio:              req.Bio,
		EmailVerifyToken: verifyToken,
		LastActive:       time.Now(),
	}
	if role == model.RoleAlumni {
		user.GraduationYear = req.GraduationYear
	}

	if err := h.store.Create(c.Request.Context(), &user); err != nil {
		var fieldErr *validate.FieldError
		switch {
		case errors.As(err, &fieldErr):
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fieldErr}})
		case errors.Is(err, gorm.ErrDuplicatedKey):
			c.JSON(http.StatusConflict, gin.H{"message": "user already exists with this email"})
		default:
			if h.logger != nil {
				h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"message": "create user failed"})
		}
		return
	}

	// 验证邮件尽力发送，失败不阻塞注册
	if h.mailer != nil {
		if err := h.mailer.SendVerificationEmail(user.Email, user.Name, verifyToken); err != nil && h.logger != nil {
			h.logger.Warn("send verification email failed", slog.String("email", email), slog.String("error", err.Error()))
		}
	}

	token, err := h.issueToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "sign token failed"})
		return
	}

	if h.logger != nil {
		h.logger.Info("user registered", slog.String("email", email), slog.String("role", role))
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"token":   token,
		"user":    toUserResponse(&user),
	})
}

// Login 校验用户并返回 JWT，同时刷新 lastActive。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"errors":  validate.BindingErrors(err),
		})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	now := time.Now()
	if err := h.store.Update(c.Request.Context(), user.ID, map[string]interface{}{"last_active": now}); err != nil {
		if h.logger != nil {
			h.logger.Warn("update last_active failed", slog.String("email", email), slog.String("error", err.Error()))
		}
	}
	user.LastActive = now

	token, err := h.issueToken(user.ID, user.Role)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "sign token failed"})
		return
	}

	if h.logger != nil {
		h.logger.Info("user logged in", slog.String("email", email), slog.String("role", user.Role))
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
		"user":    toUserResponse(user),
	})
}

// Me 返回当前登录用户。
func (h *Handler) Me(c *gin.Context) {
	user, err := h.store.FindByID(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

type updateProfileRequest struct {
	Name            *string   `json:"name"`
	Major           *string   `json:"major"`
	Bio             *string   `json:"bio"`
	Skills          *[]string `json:"skills"`
	Experience      *string   `json:"experience"`
	CurrentPosition *string   `json:"currentPosition"`
	Company         *string   `json:"company"`
	LinkedinProfile *string   `json:"linkedinProfile"`
	GraduationYear  *int      `json:"graduationYear"`
	ProfilePicture  *string   `json:"profilePicture"`
}

// UpdateProfile 部分更新当前用户的资料字段。
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"errors":  validate.BindingErrors(err),
		})
		return
	}

	user, err := h.store.FindByID(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []validate.FieldError

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 2 || len(name) > 50 {
			fieldErrs = append(fieldErrs, validate.FieldError{Field: "name", Message: "name must be between 2-50 characters"})
		} else {
			updates["name"] = name
		}
	}
	if req.Major != nil {
		major := strings.TrimSpace(*req.Major)
		if len(major) < 2 {
			fieldErrs = append(fieldErrs, validate.FieldError{Field: "major", Message: "major is required"})
		} else {
			updates["major"] = major
		}
	}
	if req.Bio != nil {
		if len(*req.Bio) > 500 {
			fieldErrs = append(fieldErrs, validate.FieldError{Field: "bio", Message: "bio cannot exceed 500 characters"})
		} else {
			updates["bio"] = *req.Bio
		}
	}
	if req.Skills != nil {
		skills, err := validate.NormalizeSkills(*req.Skills)
		if err != nil {
			fieldErrs = append(fieldErrs, *err)
		} else {
			updates["skills"] = datatypes.JSONSlice[string](skills)
		}
	}
	if req.Experience != nil {
		if !validate.ExperienceBucket(*req.Experience) {
			fieldErrs = append(fieldErrs, validate.FieldError{Field: "experience", Message: "invalid experience range"})
		} else {
			updates["experience"] = *req.Experience
		}
	}
	if req.CurrentPosition != nil {
		updates["current_position"] = strings.TrimSpace(*req.CurrentPosition)
	}
	if req.Company != nil {
		updates["company"] = strings.TrimSpace(*req.Company)
	}
	if req.LinkedinProfile != nil {
		if err := validate.LinkedinURL(*req.LinkedinProfile); err != nil {
			fieldErrs = append(fieldErrs, *err)
		} else {
			updates["linkedin_profile"] = *req.LinkedinProfile
		}
	}
	if req.GraduationYear != nil {
		if err := validate.GraduationYear(user.Role, req.GraduationYear, time.Now()); err != nil {
			fieldErrs = append(fieldErrs, *err)
		} else {
			updates["graduation_year"] = *req.GraduationYear
		}
	}
	if req.ProfilePicture != nil {
		updates["profile_picture"] = *req.ProfilePicture
	}

	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": fieldErrs})
		return
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "no updates"})
		return
	}

	if err := h.store.Update(c.Request.Context(), user.ID, updates); err != nil {
		if h.logger != nil {
			h.logger.Error("update profile failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "update profile failed"})
		return
	}

	updated, err := h.store.FindByID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "reload profile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "profile updated successfully",
		"user":    toUserResponse(updated),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword 验证当前密码后更新为新密码。
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"errors":  validate.BindingErrors(err),
		})
		return
	}

	user, err := h.store.FindByID(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "current password is incorrect"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "hash password failed"})
		return
	}

	if err := h.store.Update(c.Request.Context(), user.ID, map[string]interface{}{"password": string(hash)}); err != nil {
		if h.logger != nil {
			h.logger.Error("change password failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "change password failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}

// ForgotPassword 为账户签发密码重置 token 并邮件发送。
//
// 不论邮箱是否存在都返回同样的应答，避免账户枚举。
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"errors":  validate.BindingErrors(err),
		})
		return
	}

	const genericReply = "if the account exists, a reset email has been sent"
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": genericReply})
		return
	}

	token, err := randomToken(32)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "generate token failed"})
		return
	}
	expires := time.Now().Add(h.resetTTL)

	if err := h.store.Update(c.Request.Context(), user.ID, map[string]interface{}{
		"password_reset_token":      token,
		"password_reset_expires_at": expires,
	}); err != nil {
		if h.logger != nil {
			h.logger.Error("save reset token failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "save reset token failed"})
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendPasswordReset(user.Email, user.Name, token); err != nil && h.logger != nil {
			h.logger.Warn("send reset email failed", slog.String("email", email), slog.String("error", err.Error()))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": genericReply})
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// ResetPassword 使用重置 token 设置新密码。
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"errors":  validate.BindingErrors(err),
		})
		return
	}

	user, err := h.store.FindByResetToken(c.Request.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid or expired reset token"})
		return
	}
	if user.PasswordResetExpiresAt == nil || time.Now().After(*user.PasswordResetExpiresAt) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid or expired reset token"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "hash password failed"})
		return
	}

	if err := h.store.Update(c.Request.Context(), user.ID, map[string]interface{}{
		"password":                  string(hash),
		"password_reset_token":      "",
		"password_reset_expires_at": nil,
	}); err != nil {
		if h.logger != nil {
			h.logger.Error("reset password failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "reset password failed"})
		return
	}

	if h.logger != nil {
		h.logger.Info("password reset", slog.String("email", user.Email))
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}

func (h *Handler) issueToken(userID uint, role string) (string, error) {
	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func getUserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	if id, ok := v.(uint); ok {
		return id
	}
	return 0
}
