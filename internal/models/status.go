package models

import "time"

// Status labels shown to viewers of a post or an application.
const (
	StatusOwn       = "own"
	StatusNone      = ""
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusApplied   = "applied"
	StatusCancelled = "cancelled"
	StatusWaiting   = "waiting"
	StatusActive    = "active"
)

// Labels used in the owner's applicant list.
const (
	ApplicantAccepted = "Accepted"
	ApplicantDeclined = "Declined"
	ApplicantPending  = "Pending"
)

// DetailStatus is the viewer's relation to a post on the post detail page.
// app is the viewer's own application and may be nil.
func DetailStatus(post *Post, app *PetCareApplication, viewerID uint) string {
	switch {
	case post.UserID == viewerID:
		return StatusOwn
	case app == nil:
		return StatusNone
	case app.Accepted:
		return StatusAccepted
	case app.Declined:
		return StatusDeclined
	case !app.Cancelled:
		return StatusApplied
	default:
		return StatusCancelled
	}
}

// ApplicationListStatus is the status shown in the volunteer's own application list.
// A pending application on a post that went inactive reads as cancelled.
func ApplicationListStatus(post *Post, app *PetCareApplication) string {
	switch {
	case app.Declined:
		return StatusDeclined
	case app.Accepted:
		return StatusAccepted
	case !app.Cancelled && post.IsActive:
		return StatusWaiting
	default:
		return StatusCancelled
	}
}

// OwnerPostStatus is the status of a post in its owner's list.
func OwnerPostStatus(post *Post, hasAccepted bool) string {
	switch {
	case hasAccepted:
		return StatusAccepted
	case post.IsActive:
		return StatusActive
	default:
		return StatusCancelled
	}
}

// ApplicantLabel labels an application row in the owner's applicant list.
// Cancelled applications are not listed, so they have no label.
func ApplicantLabel(app *PetCareApplication) string {
	switch {
	case app.Accepted:
		return ApplicantAccepted
	case app.Declined:
		return ApplicantDeclined
	default:
		return ApplicantPending
	}
}

// CanRate reports whether a participant may leave a rating for a stay.
// accepted is the post's accepted application, nil when there is none.
func CanRate(post *Post, accepted *PetCareApplication, alreadyRated bool, now time.Time) bool {
	if alreadyRated || accepted == nil || !accepted.Accepted {
		return false
	}
	end, err := post.EndsAt()
	if err != nil {
		return false
	}
	return !end.After(now)
}
