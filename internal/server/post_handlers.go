package server

import (
	"context"
	"log/slog"

	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/notifications"
	"petbuddies/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostRequest is the body of POST /posts and PUT /posts/:id.
// Dates are YYYY-MM-DD and times HH:MM.
type PostRequest struct {
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Cost        float64 `json:"cost"`
	Description string  `json:"description"`
	PetIDs      []uint  `json:"pet_ids"`
}

// CreatePost handles POST /api/posts
// @Summary Publish a care request
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 406 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req PostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.lifecycle.CreatePost(c.UserContext(), service.CreatePostInput{
		OwnerID:     userID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Cost:        req.Cost,
		Description: req.Description,
		PetIDs:      req.PetIDs,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetDashboard handles GET /api/posts/dashboard
// @Summary Browse active posts
// @Description Newest active posts of other users
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of posts (max 50)" default(10)
// @Param city query string false "Owner city"
// @Success 200 {array} service.DashboardItem
// @Router /posts/dashboard [get]
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	limit := c.QueryInt("limit", service.DefaultDashboardLimit)

	items, err := s.queries.Dashboard(c.UserContext(), userID, limit, c.Query("city"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(items)
}

// GetMyPosts handles GET /api/posts/me
// @Summary List my posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.MyPostItem
// @Router /posts/me [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	items, err := s.queries.MyPosts(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(items)
}

// GetPost handles GET /api/posts/:id
// @Summary Post detail
// @Description Post, owner and pets with the viewer's status and rating eligibility
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} service.PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.queries.PostDetail(c.UserContext(), id, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(detail)
}

// GetPostEdit handles GET /api/posts/:id/edit
// @Summary Post for editing
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} service.PostEditView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/edit [get]
func (s *Server) GetPostEdit(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	view, err := s.queries.EditView(c.UserContext(), id, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(view)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit an active post
// @Description Updates the window, cost and description; pets cannot change
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body PostRequest true "Post"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req PostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.lifecycle.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:      id,
		OwnerID:     userID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Cost:        req.Cost,
		Description: req.Description,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// ClosePost handles DELETE /api/posts/:id
// @Summary Close a post
// @Description Deactivates the post for good; pending applicants are notified
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) ClosePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.lifecycle.ClosePost(ctx, id, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	for _, applicantID := range result.PendingApplicantIDs {
		s.publishUserEvent(ctx, applicantID, notifications.EventPostClosed, postEvent{PostID: id})
	}
	return c.JSON(result.Post)
}

// ApplyToPost handles POST /api/posts/:id/applications
// @Summary Apply to look after the pets
// @Description Re-applying after cancelling reopens the same application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PetCareApplication
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/applications [post]
func (s *Server) ApplyToPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	app, err := s.lifecycle.ApplyToPost(ctx, id, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.publishUserEvent(ctx, s.postOwnerID(ctx, id), notifications.EventApplicationReceived,
		postEvent{PostID: id, UserID: userID})
	return c.JSON(app)
}

// GetApplicants handles GET /api/posts/:id/applications
// @Summary Applicants of my post
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {array} service.ApplicantItem
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/applications [get]
func (s *Server) GetApplicants(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	items, err := s.queries.Applicants(c.UserContext(), id, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(items)
}

// AcceptApplication handles POST /api/posts/:id/applications/:userId/accept
// @Summary Accept an applicant
// @Description Accepting closes the post; concurrent accepts cannot both win
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param userId path int true "Applicant user ID"
// @Success 200 {object} models.PetCareApplication
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/applications/{userId}/accept [post]
func (s *Server) AcceptApplication(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ownerID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	volunteerID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	app, err := s.lifecycle.AcceptApplication(ctx, id, ownerID, volunteerID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.publishUserEvent(ctx, volunteerID, notifications.EventApplicationAccepted, postEvent{PostID: id})
	return c.JSON(app)
}

// DeclineApplication handles POST /api/posts/:id/applications/:userId/decline
// @Summary Decline an applicant
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param userId path int true "Applicant user ID"
// @Success 200 {object} models.PetCareApplication
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/applications/{userId}/decline [post]
func (s *Server) DeclineApplication(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ownerID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	volunteerID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	app, err := s.lifecycle.DeclineApplication(ctx, id, ownerID, volunteerID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.publishUserEvent(ctx, volunteerID, notifications.EventApplicationDeclined, postEvent{PostID: id})
	return c.JSON(app)
}

// CancelMyApplication handles POST /api/posts/:id/applications/cancel
// @Summary Withdraw my application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PetCareApplication
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/applications/cancel [post]
func (s *Server) CancelMyApplication(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	app, err := s.lifecycle.CancelMyApplication(ctx, id, userID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.publishUserEvent(ctx, s.postOwnerID(ctx, id), notifications.EventApplicationCancelled,
		postEvent{PostID: id, UserID: userID})
	return c.JSON(app)
}

// GetMyApplications handles GET /api/applications/me
// @Summary List my applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.MyApplicationItem
// @Router /applications/me [get]
func (s *Server) GetMyApplications(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	items, err := s.queries.MyApplications(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(items)
}

// GetApplicationsCount handles GET /api/applications/count
// @Summary Count applications on my active posts
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{count=int}
// @Router /applications/count [get]
func (s *Server) GetApplicationsCount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	n, err := s.queries.ApplicationsCount(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// RateUserRequest is the body of POST /posts/:id/reviews/:userId.
type RateUserRequest struct {
	StarNumber  int    `json:"star_number"`
	Description string `json:"description"`
}

// RateUser handles POST /api/posts/:id/reviews/:userId
// @Summary Rate the other side of a finished care
// @Tags ratings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param userId path int true "Rated user ID"
// @Param request body RateUserRequest true "Rating"
// @Success 201 {object} models.UserRating
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/reviews/{userId} [post]
func (s *Server) RateUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	authorID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ratedID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	var req RateUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	rating, err := s.ratings.RateUser(ctx, service.RateUserInput{
		PostID:      id,
		AuthorID:    authorID,
		RatedUserID: ratedID,
		StarNumber:  req.StarNumber,
		Description: req.Description,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	s.publishUserEvent(ctx, ratedID, notifications.EventUserRated,
		ratingEvent{PostID: id, AuthorID: authorID, StarNumber: rating.StarNumber})
	return c.Status(fiber.StatusCreated).JSON(rating)
}

// postOwnerID looks up who to notify about a post. It returns 0 on failure,
// which publishUserEvent ignores.
func (s *Server) postOwnerID(ctx context.Context, postID uint) uint {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&post, postID).Error; err != nil {
		middleware.Logger.WarnContext(ctx, "failed to resolve post owner",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return post.UserID
}
