package server

import (
	"encoding/json"
	"strings"

	"petbuddies/internal/models"
	"petbuddies/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePetRequest describes a new pet. Multipart requests carry it as the
// "json" form field next to an optional "photo" file.
type CreatePetRequest struct {
	Name        string         `json:"pet_name"`
	Type        models.PetType `json:"type"`
	Race        string         `json:"race"`
	Size        models.PetSize `json:"size"`
	BirthDate   string         `json:"birth_date"`
	Description string         `json:"description"`
}

// CreatePet handles POST /api/pets
// @Summary Add a pet
// @Tags pets
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body CreatePetRequest false "Pet (JSON body)"
// @Param json formData string false "Pet as JSON (multipart)"
// @Param photo formData file false "Pet photo (multipart)"
// @Success 201 {object} models.Pet
// @Failure 400 {object} models.ErrorResponse
// @Router /pets [post]
func (s *Server) CreatePet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req CreatePetRequest
	in := service.CreatePetInput{OwnerID: userID}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := json.Unmarshal([]byte(c.FormValue("json")), &req); err != nil {
			return s.respondError(c, models.NewValidationError("Invalid pet data"))
		}
		content, contentType, ok, err := s.readPhoto(c, "photo")
		if err != nil {
			return s.respondError(c, err)
		}
		if ok {
			in.Photo = content
			in.PhotoContentType = contentType
		}
	} else if err := parseBody(c, &req); err != nil {
		return nil
	}

	in.Name = req.Name
	in.Type = req.Type
	in.Race = req.Race
	in.Size = req.Size
	in.BirthDate = req.BirthDate
	in.Description = req.Description

	pet, err := s.petService.CreatePet(c.UserContext(), in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pet)
}

// GetMyPets handles GET /api/pets/me
// @Summary List my pets
// @Tags pets
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Pet
// @Router /pets/me [get]
func (s *Server) GetMyPets(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	pets, err := s.petService.ListMine(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pets)
}

// GetPet handles GET /api/pets/:id
// @Summary Get one of my pets
// @Tags pets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pet ID"
// @Success 200 {object} models.Pet
// @Failure 404 {object} models.ErrorResponse
// @Router /pets/{id} [get]
func (s *Server) GetPet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	pet, err := s.petService.Get(c.UserContext(), id, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pet)
}

// UploadPetPhoto handles PUT /api/pets/:id/photo
// @Summary Replace a pet's photo
// @Tags pets
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pet ID"
// @Param photo formData file true "Image (JPEG, PNG or WebP)"
// @Success 200 {object} models.Pet
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /pets/{id}/photo [put]
func (s *Server) UploadPetPhoto(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	content, contentType, ok, err := s.readPhoto(c, "photo")
	if err != nil {
		return s.respondError(c, err)
	}
	if !ok {
		return s.respondError(c, models.NewValidationError("No file uploaded"))
	}

	pet, err := s.petService.SetPhoto(c.UserContext(), id, userID, content, contentType)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pet)
}

// DeletePet handles DELETE /api/pets/:id
// @Summary Delete a pet
// @Description Soft delete; the pet stays on past posts
// @Tags pets
// @Security BearerAuth
// @Param id path int true "Pet ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /pets/{id} [delete]
func (s *Server) DeletePet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.petService.Delete(c.UserContext(), id, userID); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
