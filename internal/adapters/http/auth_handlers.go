package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/WatchParty/internal/adapters/auth"
	"github.com/dkeye/WatchParty/internal/adapters/mail"
	"github.com/dkeye/WatchParty/internal/domain"
	"github.com/dkeye/WatchParty/internal/repository/sqlite"
)

const verifyTokenTTL = 24 * time.Hour

type AuthHandlers struct {
	Repo   *sqlite.Repository
	Tokens *auth.TokenManager
	Mailer mail.Mailer
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Please provide username, email and password"})
		return
	}
	if len(req.Password) < domain.MinPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Password must be at least 6 characters"})
		return
	}

	user, err := domain.NewUser(req.Username, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server error"})
		return
	}
	user.PasswordHash = string(hash)
	user.VerifyToken = uuid.NewString()
	user.VerifyTokenExpires = time.Now().Add(verifyTokenTTL).Unix()

	if err := h.Repo.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, sqlite.ErrAlreadyExists) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "User already exists with this email or username"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server error"})
		return
	}

	// Registration succeeds even when mail delivery fails.
	if err := h.Mailer.SendVerification(user.Email, user.Username, user.VerifyToken); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("email", user.Email).Msg("send verification email")
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User registered successfully"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Please provide email and password"})
		return
	}

	user, err := h.Repo.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	token, err := h.Tokens.Issue(user, time.Now())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "userId": user.ID, "username": user.Username})
}

func (h *AuthHandlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": auth.CurrentUser(c)})
}

type updateMeRequest struct {
	Username string `json:"username" binding:"required"`
}

func (h *AuthHandlers) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username is required"})
		return
	}
	if err := domain.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user := auth.CurrentUser(c)
	if err := h.Repo.UpdateUsername(c.Request.Context(), user.ID, req.Username); err != nil {
		if errors.Is(err, sqlite.ErrAlreadyExists) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username is already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server error"})
		return
	}
	user.Username = req.Username
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

func (h *AuthHandlers) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Verification token is required"})
		return
	}
	err := h.Repo.VerifyEmail(c.Request.Context(), token, time.Now().Unix())
	if errors.Is(err, sqlite.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid or expired verification token"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified"})
}

type resendRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *AuthHandlers) ResendVerification(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email is required"})
		return
	}

	user, err := h.Repo.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		// Do not leak whether the address is registered.
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, a verification email was sent"})
		return
	}
	if user.Verified {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email already verified"})
		return
	}

	token := uuid.NewString()
	expires := time.Now().Add(verifyTokenTTL).Unix()
	if err := h.Repo.SetVerifyToken(c.Request.Context(), user.ID, token, expires); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server error"})
		return
	}
	if err := h.Mailer.SendVerification(user.Email, user.Username, token); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("email", user.Email).Msg("resend verification email")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, a verification email was sent"})
}
