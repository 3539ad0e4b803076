package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/service"
	"github.com/mindfulpath/internal/storage"
)

type emailRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type updateProfileRequest struct {
	Username string `json:"username"`
}

// RequestOTP 发送注册验证码。
func (a *API) RequestOTP(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.auth.RequestRegistrationOTP(c.Request.Context(), req.Email); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to email"})
}

// Register 使用验证码完成注册。
func (a *API) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	result, err := a.auth.Register(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   result.Token,
		"user":    result.User,
	})
}

// Login 校验凭据并签发令牌。
func (a *API) Login(c *gin.Context) {
	var req service.LoginInput
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	result, err := a.auth.Login(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CurrentUser 返回令牌对应的用户资料。
func (a *API) CurrentUser(c *gin.Context) {
	userID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	user, err := a.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile 接受 JSON 或 multipart 表单（username、profilePic）。
func (a *API) UpdateProfile(c *gin.Context) {
	userID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}

	var (
		username string
		picture  *storage.File
	)
	if c.ContentType() == gin.MIMEJSON {
		var req updateProfileRequest
		if err := bindJSON(c, &req); err != nil {
			a.respondError(c, err)
			return
		}
		username = req.Username
	} else {
		username = c.PostForm("username")
		if picture, err = formFile(c, "profilePic"); err != nil {
			a.respondError(c, err)
			return
		}
	}

	user, err := a.auth.UpdateProfile(c.Request.Context(), userID, username, picture)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

// ForgotPassword 发送重置密码验证码。
func (a *API) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to email"})
}

// VerifyOTP 校验重置密码验证码。
func (a *API) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.auth.VerifyResetOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP verified"})
}

// ResetPassword 在验证码通过后设置新密码。
func (a *API) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.auth.ResetPassword(c.Request.Context(), req.Email, req.NewPassword); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
