package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func countApplications(t *testing.T, db *gorm.DB, postID uint, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(&models.PetCareApplication{}).Where("post_id = ?", postID)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func validPostInput(ownerID uint, petIDs ...uint) CreatePostInput {
	w := testutil.FutureWindow()
	return CreatePostInput{
		OwnerID:     ownerID,
		StartDate:   w.Start.Format(models.DateLayout),
		EndDate:     w.End.Format(models.DateLayout),
		StartTime:   "09:00",
		EndTime:     "18:00",
		Cost:        99.999,
		Description: "  Spacery dwa razy dziennie  ",
		PetIDs:      petIDs,
	}
}

func TestLifecycle_CreatePost(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	pet1 := testutil.CreatePet(t, db, owner.ID)
	pet2 := testutil.CreatePet(t, db, owner.ID)

	post, err := svc.CreatePost(ctx, validPostInput(owner.ID, pet1.ID, pet2.ID, pet1.ID))
	require.NoError(t, err)
	assert.True(t, post.IsActive)
	assert.Equal(t, 100.0, post.Cost)
	assert.Equal(t, "Spacery dwa razy dziennie", post.Description)

	var cares int64
	require.NoError(t, db.Model(&models.PetCare{}).Where("post_id = ?", post.ID).Count(&cares).Error)
	assert.Equal(t, int64(2), cares)
}

func TestLifecycle_CreatePostRejections(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	pet := testutil.CreatePet(t, db, owner.ID)
	homeless := testutil.CreateUser(t, db, testutil.WithoutAddress())
	homelessPet := testutil.CreatePet(t, db, homeless.ID)
	other := testutil.CreateUser(t, db)
	foreignPet := testutil.CreatePet(t, db, other.ID)
	deletedPet := testutil.CreatePet(t, db, owner.ID)
	require.NoError(t, db.Model(deletedPet).Update("is_deleted", true).Error)

	tests := []struct {
		name   string
		mutate func(*CreatePostInput)
		code   string
	}{
		{"No Pets", func(in *CreatePostInput) { in.PetIDs = nil }, models.CodeValidation},
		{"Foreign Pet", func(in *CreatePostInput) { in.PetIDs = []uint{pet.ID, foreignPet.ID} }, models.CodeValidation},
		{"Deleted Pet", func(in *CreatePostInput) { in.PetIDs = []uint{deletedPet.ID} }, models.CodeValidation},
		{"No Address", func(in *CreatePostInput) { in.OwnerID = homeless.ID; in.PetIDs = []uint{homelessPet.ID} }, models.CodeValidation},
		{"Unknown Owner", func(in *CreatePostInput) { in.OwnerID = 9999 }, models.CodeNotFound},
		{"Bad Date", func(in *CreatePostInput) { in.StartDate = "01-02-2030" }, models.CodeValidation},
		{"Bad Time", func(in *CreatePostInput) { in.EndTime = "25:00" }, models.CodeValidation},
		{"End Before Start", func(in *CreatePostInput) { in.EndDate = in.StartDate; in.EndTime = "08:00" }, models.CodeValidation},
		{"Negative Cost", func(in *CreatePostInput) { in.Cost = -1 }, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validPostInput(owner.ID, pet.ID)
			tt.mutate(&in)
			_, err := svc.CreatePost(ctx, in)
			assertCode(t, err, tt.code)
		})
	}

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts, "rejected posts must leave no rows behind")
}

func TestLifecycle_UpdatePost(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	other := testutil.CreateUser(t, db)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow(), testutil.CreatePet(t, db, owner.ID).ID)

	in := UpdatePostInput{
		PostID:      post.ID,
		OwnerID:     owner.ID,
		StartDate:   "2031-05-01",
		EndDate:     "2031-05-03",
		StartTime:   "08:00",
		EndTime:     "20:00",
		Cost:        80,
		Description: "Nowy opis",
	}
	updated, err := svc.UpdatePost(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "20:00", updated.EndTime)

	got := testutil.Reload[models.Post](t, db, post.ID)
	assert.Equal(t, "Nowy opis", got.Description)
	assert.Equal(t, "2031-05-03", got.EndDate.Format(models.DateLayout))
	assert.Equal(t, 80.0, got.Cost)

	in.OwnerID = other.ID
	_, err = svc.UpdatePost(ctx, in)
	assertCode(t, err, models.CodeNotFound)

	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Update("is_active", false).Error)
	in.OwnerID = owner.ID
	_, err = svc.UpdatePost(ctx, in)
	assertCode(t, err, models.CodeConflict)
}

func TestLifecycle_ApplyRules(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	volunteer := testutil.CreateUser(t, db)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow())

	_, err := svc.ApplyToPost(ctx, post.ID, owner.ID)
	assertCode(t, err, models.CodeValidation)

	_, err = svc.ApplyToPost(ctx, 9999, volunteer.ID)
	assertCode(t, err, models.CodeNotFound)

	first, err := svc.ApplyToPost(ctx, post.ID, volunteer.ID)
	require.NoError(t, err)
	assert.True(t, first.Pending())

	again, err := svc.ApplyToPost(ctx, post.ID, volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, int64(1), countApplications(t, db, post.ID, ""))

	closed := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow())
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", closed.ID).Update("is_active", false).Error)
	_, err = svc.ApplyToPost(ctx, closed.ID, volunteer.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestLifecycle_ReapplyAfterCancelReusesRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	volunteer := testutil.CreateUser(t, db)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow())

	app, err := svc.ApplyToPost(ctx, post.ID, volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, models.DetailStatus(post, app, volunteer.ID))

	cancelled, err := svc.CancelMyApplication(ctx, post.ID, volunteer.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, models.StatusCancelled, models.DetailStatus(post, cancelled, volunteer.ID))
	assert.NotEqual(t, models.StatusApplied, models.DetailStatus(post, cancelled, volunteer.ID))

	// Cancelling twice is a no-op.
	_, err = svc.CancelMyApplication(ctx, post.ID, volunteer.ID)
	require.NoError(t, err)

	reopened, err := svc.ApplyToPost(ctx, post.ID, volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, reopened.ID)
	assert.False(t, reopened.Cancelled)
	assert.Equal(t, models.StatusApplied, models.DetailStatus(post, reopened, volunteer.ID))
	assert.Equal(t, int64(1), countApplications(t, db, post.ID, ""))

	stored := testutil.Reload[models.PetCareApplication](t, db, app.ID)
	assert.True(t, stored.Pending())
}

func TestLifecycle_AcceptScenario(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	pet := testutil.CreatePet(t, db, owner.ID)
	v := testutil.CreateUser(t, db)
	w := testutil.CreateUser(t, db)

	post, err := svc.CreatePost(ctx, CreatePostInput{
		OwnerID: owner.ID, StartDate: "2024-01-01", EndDate: "2024-01-02",
		StartTime: "10:00", EndTime: "12:00", Cost: 50, PetIDs: []uint{pet.ID},
	})
	require.NoError(t, err)

	_, err = svc.ApplyToPost(ctx, post.ID, w.ID)
	require.NoError(t, err)
	vApp, err := svc.ApplyToPost(ctx, post.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, models.DetailStatus(post, vApp, v.ID))
	assert.Equal(t, models.StatusWaiting, models.ApplicationListStatus(post, vApp))

	accepted, err := svc.AcceptApplication(ctx, post.ID, owner.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)

	post = testutil.Reload[models.Post](t, db, post.ID)
	assert.False(t, post.IsActive)
	vApp = testutil.Reload[models.PetCareApplication](t, db, vApp.ID)
	assert.Equal(t, models.StatusAccepted, models.DetailStatus(post, vApp, v.ID))

	// W is still pending but can no longer be accepted.
	_, err = svc.AcceptApplication(ctx, post.ID, owner.ID, w.ID)
	assertCode(t, err, models.CodeConflict)
	var wApp models.PetCareApplication
	require.NoError(t, db.Where("post_id = ? AND user_id = ?", post.ID, w.ID).First(&wApp).Error)
	assert.True(t, wApp.Pending())
	assert.Equal(t, models.StatusApplied, models.DetailStatus(post, &wApp, w.ID))
	assert.Equal(t, models.StatusCancelled, models.ApplicationListStatus(post, &wApp))

	assert.Equal(t, int64(1), countApplications(t, db, post.ID, "accepted = ?", true))
}

func TestLifecycle_AcceptAndDeclineRules(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	stranger := testutil.CreateUser(t, db)
	v := testutil.CreateUser(t, db)
	c := testutil.CreateUser(t, db)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow())
	testutil.CreateApplication(t, db, post.ID, v.ID)
	testutil.CreateApplication(t, db, post.ID, c.ID, func(a *models.PetCareApplication) { a.Cancelled = true })

	_, err := svc.AcceptApplication(ctx, post.ID, stranger.ID, v.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.AcceptApplication(ctx, post.ID, owner.ID, stranger.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.AcceptApplication(ctx, post.ID, owner.ID, c.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.DeclineApplication(ctx, post.ID, owner.ID, c.ID)
	assertCode(t, err, models.CodeNotFound)

	declined, err := svc.DeclineApplication(ctx, post.ID, owner.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, declined.Declined)
	assert.True(t, testutil.Reload[models.Post](t, db, post.ID).IsActive)

	_, err = svc.AcceptApplication(ctx, post.ID, owner.ID, v.ID)
	assertCode(t, err, models.CodeConflict)

	_, err = svc.CancelMyApplication(ctx, post.ID, v.ID)
	assertCode(t, err, models.CodeConflict)
}

func TestLifecycle_CancelAccepted(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	v := testutil.CreateUser(t, db)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow())
	testutil.CreateApplication(t, db, post.ID, v.ID)

	_, err := svc.AcceptApplication(ctx, post.ID, owner.ID, v.ID)
	require.NoError(t, err)

	_, err = svc.CancelMyApplication(ctx, post.ID, v.ID)
	assertCode(t, err, models.CodeConflict)
	_, err = svc.DeclineApplication(ctx, post.ID, owner.ID, v.ID)
	assertCode(t, err, models.CodeConflict)

	_, err = svc.CancelMyApplication(ctx, post.ID, owner.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestLifecycle_ConcurrentAcceptsOneWins(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow())
	var volunteers []uint
	for i := 0; i < 4; i++ {
		v := testutil.CreateUser(t, db)
		testutil.CreateApplication(t, db, post.ID, v.ID)
		volunteers = append(volunteers, v.ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for _, id := range volunteers {
		wg.Add(1)
		go func(volunteerID uint) {
			defer wg.Done()
			_, err := svc.AcceptApplication(ctx, post.ID, owner.ID, volunteerID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			if models.StatusForError(err) == 409 {
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, len(volunteers)-1, conflicts)
	assert.Equal(t, int64(1), countApplications(t, db, post.ID, "accepted = ?", true))
	assert.False(t, testutil.Reload[models.Post](t, db, post.ID).IsActive)
}

func TestLifecycle_ClosePost(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db)
	pending := testutil.CreateUser(t, db)
	gone := testutil.CreateUser(t, db)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow())
	testutil.CreateApplication(t, db, post.ID, pending.ID)
	testutil.CreateApplication(t, db, post.ID, gone.ID, func(a *models.PetCareApplication) { a.Cancelled = true })

	_, err := svc.ClosePost(ctx, post.ID, pending.ID)
	assertCode(t, err, models.CodeNotFound)

	res, err := svc.ClosePost(ctx, post.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, res.Post.IsActive)
	assert.Equal(t, []uint{pending.ID}, res.PendingApplicantIDs)

	_, err = svc.ClosePost(ctx, post.ID, owner.ID)
	assertCode(t, err, models.CodeConflict)

	// Closed posts accept no new applications.
	_, err = svc.ApplyToPost(ctx, post.ID, gone.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestParseWindow(t *testing.T) {
	t.Parallel()
	w, err := parseWindow("2030-01-01", "2030-01-01", "9:05", "09:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", w.StartTime)
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), w.StartDate)
}
