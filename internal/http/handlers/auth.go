package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/sellorahq/sellora-be/internal/auth"
	"github.com/sellorahq/sellora-be/internal/http/respond"
	"github.com/sellorahq/sellora-be/internal/mail"
	"github.com/sellorahq/sellora-be/internal/models"
	"github.com/sellorahq/sellora-be/internal/models/dto"
	"github.com/sellorahq/sellora-be/internal/otp"
	"github.com/sellorahq/sellora-be/internal/storage"
)

// AuthHandler owns the signup, OTP verification, login, and token refresh
// endpoints. It sequences the account store, OTP engine, mail sender, and
// token manager; email delivery is best-effort and never rolls back state.
type AuthHandler struct {
	store    storage.UserStore
	otp      *otp.Engine
	tokens   *auth.TokenManager
	mailer   mail.Sender
	validate *validator.Validate
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, engine *otp.Engine, tokens *auth.TokenManager, mailer mail.Sender) *AuthHandler {
	return &AuthHandler{
		store:    store,
		otp:      engine,
		tokens:   tokens,
		mailer:   mailer,
		validate: validator.New(),
	}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/signup", h.handleSignup)
	mux.HandleFunc("/verify-signup-otp", h.handleVerifySignupOTP)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/verify-login-otp", h.handleVerifyLoginOTP)
	mux.HandleFunc("/token/refresh", h.handleRefresh)
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: passwordHash,
	}
	profile := models.Profile{
		PhoneNo:      req.PhoneNo,
		BusinessName: req.BusinessName,
		LoginType:    req.LoginType,
	}
	created, _, err := h.store.CreateUser(r.Context(), user, profile)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateUsername):
			respond.Error(w, http.StatusBadRequest, "Username already exists.")
		case errors.Is(err, storage.ErrDuplicateEmail):
			respond.Error(w, http.StatusBadRequest, "Email already exists.")
		default:
			log.Printf("create user error: %v", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	code, err := h.otp.Issue(r.Context(), created.ID)
	if err != nil {
		log.Printf("issue signup otp for %s: %v", created.Email, err)
		respond.Error(w, http.StatusInternalServerError, "failed to issue verification code")
		return
	}
	h.dispatchOTP(created.Email, code)

	respond.JSON(w, http.StatusCreated, dto.SignupResponse{
		Message: "User created successfully.",
		UserID:  created.ID,
		Email:   created.Email,
	})
}

func (h *AuthHandler) handleVerifySignupOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, ok := h.verifyChallenge(w, r, true)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Account verified successfully."})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.store.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("login: fetch user %s: %v", req.Email, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	code, err := h.otp.Issue(r.Context(), user.ID)
	if err != nil {
		log.Printf("issue login otp for %s: %v", user.Email, err)
		respond.Error(w, http.StatusInternalServerError, "failed to issue verification code")
		return
	}
	h.dispatchOTP(user.Email, code)

	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "OTP sent to your email."})
}

func (h *AuthHandler) handleVerifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, ok := h.verifyChallenge(w, r, true)
	if !ok {
		return
	}
	pair, err := h.tokens.Mint(user)
	if err != nil {
		log.Printf("mint tokens for %s: %v", user.Email, err)
		respond.Error(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}
	respond.JSON(w, http.StatusOK, dto.TokenResponse{
		Message: "Login successful!",
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	access, err := h.tokens.Refresh(req.Refresh)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	respond.JSON(w, http.StatusOK, dto.RefreshResponse{Access: access})
}

// verifyChallenge resolves the user by email and checks the submitted code
// against the outstanding challenge, writing the error response itself when
// verification fails.
func (h *AuthHandler) verifyChallenge(w http.ResponseWriter, r *http.Request, markVerified bool) (models.User, bool) {
	var req dto.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return models.User{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
		return models.User{}, false
	}

	user, err := h.store.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return models.User{}, false
		}
		log.Printf("verify otp: fetch user %s: %v", req.Email, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return models.User{}, false
	}
	profile, err := h.store.ProfileByUserID(r.Context(), user.ID)
	if err != nil {
		log.Printf("verify otp: fetch profile for %s: %v", user.Email, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch profile")
		return models.User{}, false
	}

	if err := h.otp.Verify(r.Context(), profile, req.OTP, markVerified); err != nil {
		switch {
		case errors.Is(err, otp.ErrNoChallenge), errors.Is(err, otp.ErrExpired), errors.Is(err, otp.ErrMismatch):
			respond.Error(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("verify otp for %s: %v", user.Email, err)
			respond.Error(w, http.StatusInternalServerError, "failed to verify code")
		}
		return models.User{}, false
	}
	return user, true
}

// dispatchOTP delivers the code by email. Failures are logged and do not
// affect the calling flow; the challenge has already been committed.
func (h *AuthHandler) dispatchOTP(email, code string) {
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(h.otp.TTL().Minutes()))
	if err := h.mailer.Send(email, "Your verification code", body); err != nil {
		log.Printf("warning: send otp email to %s: %v", email, err)
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// validationMessage flattens validator errors into the API's error strings.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid request"
	}
	for _, fe := range fieldErrs {
		switch {
		case fe.Tag() == "required":
			return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
		case fe.Tag() == "email":
			return "invalid email address"
		case fe.Field() == "Password" && fe.Tag() == "min":
			return "password must be at least 8 characters"
		}
	}
	return "invalid request"
}
