package server

import (
	"log/slog"

	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// GetAdminDashboard handles GET /api/admin/dashboard.
// @Summary Admin dashboard counters
// @Tags moderation-admin
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/dashboard [get]
func (s *Server) GetAdminDashboard(c *fiber.Ctx) error {
	stats, err := s.moderation.Stats(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(stats)
}

// GetAdminReports handles GET /api/admin/reports.
// @Summary List user reports
// @Tags moderation-admin
// @Produce json
// @Param pending query bool false "Only reports not yet considered"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {array} service.ReportRow
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports [get]
func (s *Server) GetAdminReports(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	rows, err := s.moderation.ListReports(c.UserContext(), c.QueryBool("pending"), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(rows)
}

// ConsiderReport handles POST /api/admin/reports/:id/consider.
// @Summary Mark a report as considered
// @Tags moderation-admin
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports/{id}/consider [post]
func (s *Server) ConsiderReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.moderation.ConsiderReport(c.UserContext(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Report considered"})
}

// GetAdminUsers handles GET /api/admin/users.
// @Summary List users with report counts
// @Tags moderation-admin
// @Produce json
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset"
// @Success 200 {array} service.AdminUserRow
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 100)

	rows, err := s.moderation.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(rows)
}

// GetAdminUserDetail handles GET /api/admin/users/:userId.
// @Summary Get user detail for admin
// @Description Fetch the user with the reports against them and their posts.
// @Tags moderation-admin
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} service.AdminUserDetail
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{userId} [get]
func (s *Server) GetAdminUserDetail(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	detail, err := s.moderation.GetAdminUserDetail(c.UserContext(), targetID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(detail)
}

// BanUser handles POST /api/admin/users/:userId/ban.
// @Summary Ban a user
// @Description Bans the user, closes their active posts and marks pending reports against them as considered.
// @Tags moderation-admin
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} service.BanResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{userId}/ban [post]
func (s *Server) BanUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	adminID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	result, err := s.moderation.BanUser(ctx, adminID, targetID)
	if err != nil {
		return s.respondError(c, err)
	}

	middleware.Logger.InfoContext(ctx, "user banned",
		slog.Uint64("admin_id", uint64(adminID)),
		slog.Uint64("target_id", uint64(targetID)),
		slog.Int64("posts_deactivated", result.PostsDeactivated),
	)
	return c.JSON(result)
}

// UnbanUser handles POST /api/admin/users/:userId/unban.
// @Summary Unban a user
// @Description Lifts the ban; posts closed by the ban stay closed.
// @Tags moderation-admin
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{userId}/unban [post]
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.moderation.UnbanUser(c.UserContext(), targetID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unbanned"})
}

// RemovePost handles DELETE /api/admin/posts/:postId.
// @Summary Remove a post
// @Description Deactivates any active post and notifies its owner.
// @Tags moderation-admin
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/posts/{postId} [delete]
func (s *Server) RemovePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	post, err := s.moderation.RemovePost(ctx, postID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.publishUserEvent(ctx, post.UserID, notifications.EventPostClosed, postEvent{PostID: post.ID})
	return c.JSON(post)
}

// GetAdmins handles GET /api/admin/admins.
// @Summary List administrators
// @Tags moderation-admin
// @Produce json
// @Success 200 {array} models.User
// @Security BearerAuth
// @Router /admin/admins [get]
func (s *Server) GetAdmins(c *fiber.Ctx) error {
	admins, err := s.userService.ListAdmins(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(admins)
}

// PromoteToAdmin handles POST /api/admin/users/:userId/promote.
// @Summary Grant admin rights
// @Tags moderation-admin
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{userId}/promote [post]
func (s *Server) PromoteToAdmin(c *fiber.Ctx) error {
	return s.setAdmin(c, true)
}

// DemoteFromAdmin handles POST /api/admin/users/:userId/demote.
// @Summary Revoke admin rights
// @Tags moderation-admin
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{userId}/demote [post]
func (s *Server) DemoteFromAdmin(c *fiber.Ctx) error {
	return s.setAdmin(c, false)
}

func (s *Server) setAdmin(c *fiber.Ctx, isAdmin bool) error {
	adminID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	if !isAdmin && targetID == adminID {
		return s.respondError(c, models.NewValidationError("You cannot revoke your own admin rights"))
	}

	user, err := s.userService.SetAdmin(c.UserContext(), targetID, isAdmin)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}
