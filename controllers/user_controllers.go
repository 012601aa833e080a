package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
)

type UserController struct {
	Accounts *services.AccountService
}

func NewUserController(accounts *services.AccountService) *UserController {
	return &UserController{Accounts: accounts}
}

// Register creates a doctor or nurse account and returns a token for it.
func (uc *UserController) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	result, err := uc.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "User registered", result)
}

func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	result, err := uc.Accounts.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", result)
}

func (uc *UserController) GetProfile(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}

	user, err := uc.Accounts.Profile(c.Request.Context(), session.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", user)
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	user, err := uc.Accounts.UpdateProfile(c.Request.Context(), session.UserID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile updated", user)
}

func (uc *UserController) ChangePassword(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	if err := uc.Accounts.ChangePassword(c.Request.Context(), session.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Password changed", nil)
}

func (uc *UserController) Logout(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	uc.Accounts.Logout(session)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

func (uc *UserController) Refresh(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	result, err := uc.Accounts.Refresh(c.Request.Context(), session)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Token refreshed", result)
}

// ListUsers is the HR staff directory.
func (uc *UserController) ListUsers(c *gin.Context) {
	var filter services.UserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.RespondBindingError(c, err)
		return
	}
	page := utils.ParsePage(c)

	users, total, err := uc.Accounts.ListUsers(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondPage(c, "Users", users, page, total)
}

func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := uc.Accounts.GetUser(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User", user)
}

func (uc *UserController) SetUserStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	user, err := uc.Accounts.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User status updated", user)
}
