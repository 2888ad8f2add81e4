package moderation

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() PlaceRequestDraft {
	return PlaceRequestDraft{
		Name:         "  Taberna Nueva ",
		Address:      "Calle Mayor 5",
		Province:     "Madrid",
		Municipality: "Getafe",
		Latitude:     floatPtr(40.3057),
		Longitude:    floatPtr(-3.7329),
		Phone:        "+34 600 000 000",
	}
}

func floatPtr(v float64) *float64 { return &v }

func submit(t *testing.T, e *testEnv, d PlaceRequestDraft) *domain.PlaceRequest {
	t.Helper()
	req, err := e.wf.SubmitRequest(context.Background(), userID, d)
	require.NoError(t, err)
	return req
}

func TestSubmitRequest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	req := submit(t, e, validDraft())
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, userID, req.SubmittedBy)
	assert.True(t, req.CreatedAt.Equal(fixedNow))

	stored, err := e.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "  Taberna Nueva ", stored.Name)
}

func TestSubmitRequest_Rejections(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.wf.SubmitRequest(ctx, "", validDraft())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = e.wf.SubmitRequest(ctx, "ghost", validDraft())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	bad := validDraft()
	bad.Name = " "
	bad.Latitude = floatPtr(math.NaN())
	_, err = e.wf.SubmitRequest(ctx, userID, bad)
	require.ErrorIs(t, err, domain.ErrValidationFailed)

	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestSubmitRequest_MissingCoordinates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	noLon := validDraft()
	noLon.Longitude = nil
	_, err := e.wf.SubmitRequest(ctx, userID, noLon)
	require.ErrorIs(t, err, domain.ErrValidationFailed)

	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, domain.ValidationErrors{{Field: "coordinates", Reason: "are required"}}, verrs)

	// Явный ноль - обычная координата.
	zero := validDraft()
	zero.Latitude, zero.Longitude = floatPtr(0), floatPtr(0)
	req, err := e.wf.SubmitRequest(ctx, userID, zero)
	require.NoError(t, err)
	assert.Zero(t, req.Latitude)

	reqs, err := e.store.PendingRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestReviewRequest_ApproveCreatesOnePlace(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, out.Status)
	assert.False(t, out.Replayed)
	assert.NotEmpty(t, out.PlaceID)
	assert.NotEqual(t, req.ID, out.PlaceID)

	place, err := e.store.GetPlace(ctx, out.PlaceID)
	require.NoError(t, err)
	assert.Equal(t, "Taberna Nueva", place.Name)
	assert.Equal(t, "40.3057", place.Latitude)
	assert.True(t, place.Valid())
	assert.Equal(t, 2, e.countPlaces(t))

	_, err = e.store.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	approval, err := e.store.GetApproval(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, approval.Completed)
	assert.Equal(t, adminID, approval.ReviewedBy)
	assert.Equal(t, domain.DecisionApprove, approval.Decision)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.ModerationTotal.WithLabelValues("request", "APPROVE", "ok")))
}

func TestReviewRequest_ApproveTwiceYieldsOnePlace(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	first, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)
	second, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.PlaceID, second.PlaceID)
	assert.Equal(t, 2, e.countPlaces(t))
}

func TestReviewRequest_ConcurrentApprovals(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	const reviewers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placeIDs = map[string]bool{}
		fresh    int
	)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			placeIDs[out.PlaceID] = true
			if !out.Replayed {
				fresh++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, placeIDs, 1)
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 2, e.countPlaces(t))
	pending, err := e.store.PendingRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReviewRequest_ApproveMissingFieldLeavesRecord(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := validDraft()
	d.Address = ""
	req := submit(t, e, d)

	_, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.ErrorIs(t, err, domain.ErrValidationFailed)

	stored, err := e.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, 1, e.countPlaces(t))

	_, err = e.store.GetApproval(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReviewRequest_Reject(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, out.Status)
	assert.Empty(t, out.PlaceID)

	_, err = e.store.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1, e.countPlaces(t))

	rec, err := e.store.GetApproval(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionReject, rec.Decision)
	assert.True(t, rec.Completed)

	// Повтор отклонения возвращает прежний результат, одобрение уже невозможно.
	again, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionReject)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, domain.StatusRejected, again.Status)

	_, err = e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, e.countPlaces(t))
}

func TestReviewRequest_RejectClaimedFirstBlocksApprove(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	// Отклонение проходит целиком, пока одобряющий еще не записал решение.
	var (
		rejected  *RequestOutcome
		rejectErr error
	)
	e.docs.DocumentStore = &beforeCreate{
		DocumentStore: e.docs.DocumentStore,
		collection:    storage.Approvals,
		hook: func() {
			rejected, rejectErr = e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionReject)
		},
	}

	_, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, rejectErr)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.Equal(t, 1, e.countPlaces(t))
	_, err = e.store.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReviewRequest_ApproveClaimedFirstBlocksReject(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	// Отклонение приходит между записью решения и созданием заведения.
	var rejectErr error
	e.docs.DocumentStore = &beforeCreate{
		DocumentStore: e.docs.DocumentStore,
		collection:    storage.Places,
		hook: func() {
			_, rejectErr = e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionReject)
		},
	}

	out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.ErrorIs(t, rejectErr, domain.ErrConflict)
	assert.Equal(t, 2, e.countPlaces(t))

	_, err = e.store.GetPlace(ctx, out.PlaceID)
	require.NoError(t, err)
}

func TestReviewRequest_RejectDeleteFailureReleasesRecord(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	e.docs.failDeleteIf(storage.PlaceRequests, errors.New("timeout"))
	_, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionReject)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = e.store.GetApproval(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Запись снята: заявку по-прежнему можно одобрить.
	e.docs.heal()
	out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.False(t, out.Replayed)
}

func TestReviewRequest_RequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	for _, actor := range []string{userID, "", "ghost"} {
		_, err := e.wf.ReviewRequest(ctx, actor, req.ID, domain.DecisionApprove)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	}

	stored, err := e.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, 1, e.countPlaces(t))
}

func TestReviewRequest_InvalidDecision(t *testing.T) {
	e := newTestEnv(t)
	req := submit(t, e, validDraft())

	_, err := e.wf.ReviewRequest(context.Background(), adminID, req.ID, domain.Decision("MAYBE"))
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestReviewRequest_UnknownRequest(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.wf.ReviewRequest(context.Background(), adminID, "missing", domain.DecisionApprove)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReviewRequest_PartialMutationThenRetry(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	e.docs.failDeleteIf(storage.PlaceRequests, errors.New("network partition"))
	_, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.ErrorIs(t, err, domain.ErrPartialMutation)

	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	require.NotEmpty(t, derr.CreatedID)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.PartialMutations.WithLabelValues("request")))

	// Заведение создано, заявка осталась в очереди, повторной вставки нет.
	_, err = e.store.GetPlace(ctx, derr.CreatedID)
	require.NoError(t, err)
	_, err = e.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, e.countPlaces(t))

	e.docs.heal()
	out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.True(t, out.Replayed)
	assert.Equal(t, derr.CreatedID, out.PlaceID)
	assert.Equal(t, 2, e.countPlaces(t))

	_, err = e.store.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	approval, err := e.store.GetApproval(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, approval.Completed)
}

func TestReviewRequest_PlaceWriteFailureReleasesApproval(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	e.docs.failCreate(storage.Places, errors.New("disk full"))
	_, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = e.store.GetApproval(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = e.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)

	e.docs.heal()
	out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.False(t, out.Replayed)
	assert.Equal(t, 2, e.countPlaces(t))
}

func TestReviewRequest_RejectAfterApprovalStartedConflicts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	req := submit(t, e, validDraft())

	e.docs.failDeleteIf(storage.PlaceRequests, errors.New("timeout"))
	_, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.ErrorIs(t, err, domain.ErrPartialMutation)
	e.docs.heal()

	_, err = e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionReject)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReviewRequest_CanceledAfterFirstWriteStillCompletes(t *testing.T) {
	e := newTestEnv(t)
	req := submit(t, e, validDraft())

	ctx, cancel := context.WithCancel(context.Background())
	// Отмена сразу после записи в журнал.
	e.docs.DocumentStore = &cancelAfterCreate{DocumentStore: e.docs.DocumentStore, collection: storage.Approvals, cancel: cancel}

	out, err := e.wf.ReviewRequest(ctx, adminID, req.ID, domain.DecisionApprove)
	require.NoError(t, err)
	assert.Error(t, ctx.Err())

	_, err = e.store.GetPlace(context.Background(), out.PlaceID)
	require.NoError(t, err)
	_, err = e.store.GetRequest(context.Background(), req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// cancelAfterCreate отменяет контекст вызывающего после успешного Create в collection.
type cancelAfterCreate struct {
	storage.DocumentStore
	collection string
	cancel     context.CancelFunc
}

func (c *cancelAfterCreate) Create(ctx context.Context, collection, id string, doc storage.Document) error {
	err := c.DocumentStore.Create(ctx, collection, id, doc)
	if err == nil && collection == c.collection {
		c.cancel()
	}
	return err
}

func TestPendingRequests(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	submit(t, e, validDraft())

	_, err := e.wf.PendingRequests(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	reqs, err := e.wf.PendingRequests(ctx, adminID)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}
