package server

import (
	"petbuddies/internal/models"
	"petbuddies/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest is the body of PUT /users/me.
type UpdateProfileRequest struct {
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	City            string `json:"city"`
	PostalCode      string `json:"postal_code"`
	Street          string `json:"street"`
	HouseNumber     string `json:"house_number"`
	ApartmentNumber string `json:"apartment_number"`
	PhoneNumber     string `json:"phone_number"`
	Description     string `json:"description"`
}

// ReportUserRequest is the body of POST /users/:id/report.
type ReportUserRequest struct {
	ReportTypeID uint   `json:"report_type_id"`
	Description  string `json:"description"`
}

// ProfileResponse is the caller's own editable profile.
type ProfileResponse struct {
	User  *models.User `json:"user"`
	Photo string       `json:"photo,omitempty"`
}

// GetMyProfile handles GET /api/users/me
// @Summary Get my profile
// @Description Editable profile fields of the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	user, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	photo, err := s.userService.PhotoURL(ctx, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(ProfileResponse{User: user, Photo: photo})
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update my profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:          userID,
		Name:            req.Name,
		Surname:         req.Surname,
		City:            req.City,
		PostalCode:      req.PostalCode,
		Street:          req.Street,
		HouseNumber:     req.HouseNumber,
		ApartmentNumber: req.ApartmentNumber,
		PhoneNumber:     req.PhoneNumber,
		Description:     req.Description,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// UploadMyPhoto handles PUT /api/users/me/photo
// @Summary Replace my profile photo
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param photo formData file true "Image (JPEG, PNG or WebP)"
// @Success 200 {object} object{photo=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/photo [put]
func (s *Server) UploadMyPhoto(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	content, contentType, ok, err := s.readPhoto(c, "photo")
	if err != nil {
		return s.respondError(c, err)
	}
	if !ok {
		return s.respondError(c, models.NewValidationError("No file uploaded"))
	}

	url, err := s.userService.SetPhoto(c.UserContext(), userID, content, contentType)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"photo": url})
}

// GetUserProfile handles GET /api/users/:id
// @Summary Public profile
// @Description User details, ratings received and pets
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} service.PublicProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	viewerID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.PublicProfile(c.UserContext(), id, viewerID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// ReportUser handles POST /api/users/:id/report
// @Summary Report a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reported user ID"
// @Param request body ReportUserRequest true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/{id}/report [post]
func (s *Server) ReportUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req ReportUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	report, err := s.reports.ReportUser(c.UserContext(), service.ReportUserInput{
		ReporterID:     userID,
		ReportedUserID: id,
		ReportTypeID:   req.ReportTypeID,
		Description:    req.Description,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}
