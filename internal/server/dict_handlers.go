package server

import (
	"github.com/gofiber/fiber/v2"
)

// SearchCities handles GET /api/dicts/cities/:term
// @Summary Postal code and place suggestions
// @Description A term starting with a digit matches postal codes, anything else matches place names
// @Tags dictionaries
// @Produce json
// @Param term path string true "Prefix"
// @Success 200 {array} service.CitySuggestion
// @Router /dicts/cities/{term} [get]
func (s *Server) SearchCities(c *fiber.Ctx) error {
	items, err := s.dictService.SearchCities(c.UserContext(), c.Params("term"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(items)
}

// GetReportTypes handles GET /api/dicts/report-types
// @Summary Report categories
// @Tags dictionaries
// @Produce json
// @Success 200 {array} models.ReportType
// @Router /dicts/report-types [get]
func (s *Server) GetReportTypes(c *fiber.Ctx) error {
	types, err := s.dictService.ReportTypes(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(types)
}
