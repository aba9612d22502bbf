package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/transport/http/middleware"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

const (
	msgRegistered      = "User registered successfully"
	msgLoggedOut       = "Successfully logged out"
	msgInvalidLogin    = "Invalid credentials"
	msgFieldIsRequired = "This field is required."
)

// AccountHandler exposes registration, login, logout and profile endpoints.
type AccountHandler struct {
	registration *usecase.RegistrationService
	auth         *usecase.AuthService
	tokens       *usecase.TokenService
	users        *usecase.UserService
	logger       *zap.Logger
}

// NewAccountHandler wires the account services.
func NewAccountHandler(registration *usecase.RegistrationService, auth *usecase.AuthService, tokens *usecase.TokenService, users *usecase.UserService, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{
		registration: registration,
		auth:         auth,
		tokens:       tokens,
		users:        users,
		logger:       log,
	}
}

// Register creates an account and returns its summary.
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{User: newUserSummary(user), Message: msgRegistered})
}

// Login exchanges email credentials for the user's token.
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, msgInvalidLogin))
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: msgInvalidLogin},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := h.tokens.Issue(c.Request.Context(), user)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token.Key, User: newUserSummary(user)})
}

// Logout deletes the caller's token. Any other client holding it is signed out too.
func (h *AccountHandler) Logout(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		RespondWithMappedError(c, usecase.ErrUnauthenticated, nil, http.StatusUnauthorized, "")
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), identity.UserID); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: msgLoggedOut})
}

// Profile returns the caller's account.
func (h *AccountHandler) Profile(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		RespondWithMappedError(c, usecase.ErrUnauthenticated, nil, http.StatusUnauthorized, "")
		return
	}

	user, err := h.users.Profile(c.Request.Context(), identity.UserID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newUserSummary(user))
}

// UpdateProfile changes email and username. PUT requires both, PATCH accepts either.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		RespondWithMappedError(c, usecase.ErrUnauthenticated, nil, http.StatusUnauthorized, "")
		return
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if c.Request.Method == http.MethodPut {
		if err := requireProfileFields(req); err != nil {
			RespondWithMappedError(c, err, nil, http.StatusBadRequest, "")
			return
		}
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), identity.UserID, domain.ProfilePatch{
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to update profile")
		return
	}

	h.logger.Info("profile updated", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, newUserSummary(user))
}

func requireProfileFields(req ProfileRequest) error {
	var errs []error
	if req.Email == nil {
		errs = append(errs, &usecase.ValidationError{Field: "email", Message: msgFieldIsRequired})
	}
	if req.Username == nil {
		errs = append(errs, &usecase.ValidationError{Field: "username", Message: msgFieldIsRequired})
	}
	return errors.Join(errs...)
}
