package service

import (
	"errors"
	"strings"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/observability"
)

// Field limits shared by the services.
const (
	maxPostDescriptionLen   = 2000
	maxRatingDescriptionLen = 1000
	maxReportDescriptionLen = 1000
	maxProfileDescLen       = 2000
)

// isRejection reports whether err is a domain error rather than a failure.
func isRejection(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code != models.CodeInternal
}

// finish records the outcome of a transition on the metrics and the span.
func finish(span *observability.Span, transition string, err error) {
	observability.RecordTransition(transition, err, isRejection)
	if err != nil && !isRejection(err) {
		span.SetError(err)
	}
}

// txError normalises an error returned from a transaction body.
func txError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if models.IsIntegrityViolation(err) {
		return models.NewIntegrityError("Data integrity violation", err)
	}
	return models.NewInternalError(err)
}

// postWindow is a validated date and time range.
type postWindow struct {
	StartDate time.Time
	EndDate   time.Time
	StartTime string
	EndTime   string
}

// parseWindow validates YYYY-MM-DD dates and HH:MM times and requires start <= end.
func parseWindow(startDate, endDate, startTime, endTime string) (postWindow, error) {
	var w postWindow
	sd, err := time.Parse(models.DateLayout, strings.TrimSpace(startDate))
	if err != nil {
		return w, models.NewValidationError("start_date must be in YYYY-MM-DD format")
	}
	ed, err := time.Parse(models.DateLayout, strings.TrimSpace(endDate))
	if err != nil {
		return w, models.NewValidationError("end_date must be in YYYY-MM-DD format")
	}
	st, err := time.Parse(models.TimeLayout, strings.TrimSpace(startTime))
	if err != nil {
		return w, models.NewValidationError("start_time must be in HH:MM format")
	}
	et, err := time.Parse(models.TimeLayout, strings.TrimSpace(endTime))
	if err != nil {
		return w, models.NewValidationError("end_time must be in HH:MM format")
	}

	start := sd.Add(time.Duration(st.Hour())*time.Hour + time.Duration(st.Minute())*time.Minute)
	end := ed.Add(time.Duration(et.Hour())*time.Hour + time.Duration(et.Minute())*time.Minute)
	if start.After(end) {
		return w, models.NewValidationError("Care window must not end before it starts")
	}

	return postWindow{
		StartDate: sd,
		EndDate:   ed,
		StartTime: st.Format(models.TimeLayout),
		EndTime:   et.Format(models.TimeLayout),
	}, nil
}

// uniqueIDs drops zero and repeated ids, keeping order.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
