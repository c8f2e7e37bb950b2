package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"petbuddies/internal/cache"
	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

// LoginRequest is the body of POST /auth/login. Identifier is a login or an email.
type LoginRequest struct {
	Identifier string `json:"login"`
	Password   string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)

	for _, check := range []error{
		validation.ValidateLogin(req.Login),
		validation.ValidateEmail(req.Email),
		validation.ValidatePassword(req.Password),
		validation.ValidateRequired("name", req.Name),
		validation.ValidateMaxLength("name", req.Name, 100),
		validation.ValidateRequired("surname", req.Surname),
		validation.ValidateMaxLength("surname", req.Surname, 100),
	} {
		if check != nil {
			return s.respondError(c, models.NewValidationError(check.Error()))
		}
	}

	loginTaken, emailTaken, err := s.userRepo.Taken(ctx, req.Login, req.Email)
	if err != nil {
		return s.respondError(c, err)
	}
	if loginTaken {
		return s.respondError(c, models.NewConflictError("Login already taken"))
	}
	if emailTaken {
		return s.respondError(c, models.NewConflictError("Email already registered"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Login:    req.Login,
		Email:    req.Email,
		Password: string(hashedPassword),
		Name:     req.Name,
		Surname:  req.Surname,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return s.respondError(c, err)
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(SessionResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Authenticate by login or email and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		return s.respondError(c, models.NewValidationError("Login and password are required"))
	}

	user, err := s.userRepo.GetByLoginOrEmail(c.UserContext(), req.Identifier)
	if err != nil {
		if models.StatusForError(err) == fiber.StatusNotFound {
			return s.respondError(c, models.NewUnauthorizedError("Invalid credentials"))
		}
		return s.respondError(c, err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return s.respondError(c, models.NewUnauthorizedError("Invalid credentials"))
	}
	if user.IsBanned {
		return s.respondError(c, models.NewForbiddenError("Account is banned"))
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return c.JSON(SessionResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout
// @Summary Log out
// @Description Revoke the current session token and clear the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if tokenString, err := middleware.TokenFromRequest(c, s.config.CookieName); err == nil {
		if claims, err := middleware.ParseSessionToken(tokenString, s.config.JWTSecret); err == nil && claims.ExpiresAt != nil {
			remaining := time.Until(claims.ExpiresAt.Time)
			if err := cache.RevokeToken(ctx, claims.ID, remaining); err != nil {
				middleware.Logger.WarnContext(ctx, "failed to revoke session token",
					slog.String("error", err.Error()))
			}
		}
	}

	c.Cookie(s.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me
// @Summary Current session
// @Description Return the identity carried by the session token
// @Tags auth
// @Produce json
// @Success 200 {object} object{id=int,login=string,name=string,surname=string,email=string,is_admin=bool}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*middleware.SessionClaims)
	if !ok {
		return s.respondError(c, models.NewUnauthorizedError("Authorization required"))
	}
	userID, _ := claims.UserID()
	return c.JSON(fiber.Map{
		"id":       userID,
		"login":    claims.Login,
		"name":     claims.Name,
		"surname":  claims.Surname,
		"email":    claims.Email,
		"is_admin": claims.IsAdmin,
	})
}

// startSession signs a token for user and sets it as the session cookie.
func (s *Server) startSession(c *fiber.Ctx, user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	ttl := time.Duration(s.config.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()

	claims := middleware.NewSessionClaims(user.ID, uuid.NewString(), ttl, now)
	claims.Login = user.Login
	claims.Name = user.Name
	claims.Surname = user.Surname
	claims.Email = user.Email
	claims.IsAdmin = user.IsAdmin

	token, err := middleware.SignSessionToken(claims, s.config.JWTSecret)
	if err != nil {
		return "", err
	}
	c.Cookie(s.sessionCookie(token, now.Add(ttl)))
	return token, nil
}

func (s *Server) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	name := s.config.CookieName
	if name == "" {
		name = "access_token"
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure || s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
