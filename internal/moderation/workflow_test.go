package moderation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UkralStul/barfinder-service/internal/access"
	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/metrics"
	"github.com/UkralStul/barfinder-service/internal/placestore"
	"github.com/UkralStul/barfinder-service/internal/storage"
	"github.com/UkralStul/barfinder-service/internal/storage/inmemory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	adminID     = "admin-1"
	userID      = "user-1"
	seedPlaceID = "place-1"
)

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// faultyStore позволяет сломать отдельные операции над коллекцией.
type faultyStore struct {
	storage.DocumentStore

	mu           sync.Mutex
	deleteIfErrs map[string]error
	createErrs   map[string]error
}

func (f *faultyStore) failDeleteIf(collection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteIfErrs[collection] = err
}

func (f *faultyStore) failCreate(collection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErrs[collection] = err
}

func (f *faultyStore) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteIfErrs = map[string]error{}
	f.createErrs = map[string]error{}
}

func (f *faultyStore) DeleteIf(ctx context.Context, collection, id, field string, expected any) error {
	f.mu.Lock()
	err := f.deleteIfErrs[collection]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.DocumentStore.DeleteIf(ctx, collection, id, field, expected)
}

func (f *faultyStore) Create(ctx context.Context, collection, id string, doc storage.Document) error {
	f.mu.Lock()
	err := f.createErrs[collection]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.DocumentStore.Create(ctx, collection, id, doc)
}

// beforeCreate один раз вызывает hook перед первым Create в collection.
type beforeCreate struct {
	storage.DocumentStore
	collection string
	hook       func()
	fired      atomic.Bool
}

func (b *beforeCreate) Create(ctx context.Context, collection, id string, doc storage.Document) error {
	if collection == b.collection && b.fired.CompareAndSwap(false, true) {
		b.hook()
	}
	return b.DocumentStore.Create(ctx, collection, id, doc)
}

type recordingNotifier struct {
	mu       sync.Mutex
	comments []domain.Comment
}

func (n *recordingNotifier) CommentApproved(c domain.Comment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments = append(n.comments, c)
}

func (n *recordingNotifier) received() []domain.Comment {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Comment(nil), n.comments...)
}

type testEnv struct {
	wf       *Workflow
	store    *placestore.Store
	docs     *faultyStore
	notifier *recordingNotifier
	metrics  *metrics.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	docs := &faultyStore{
		DocumentStore: inmemory.New(),
		deleteIfErrs:  map[string]error{},
		createErrs:    map[string]error{},
	}
	ps := placestore.New(docs)
	ctx := context.Background()

	require.NoError(t, ps.SetUser(ctx, domain.User{ID: adminID, Name: "Admin", Role: domain.RoleAdmin}))
	require.NoError(t, ps.SetUser(ctx, domain.User{ID: userID, Name: "User", Role: domain.RoleUser}))
	require.NoError(t, ps.SetPlace(ctx, domain.Place{
		ID: seedPlaceID, Name: "Bar Sol", Address: "Puerta del Sol 1",
		Province: "Madrid", Municipality: "Madrid",
		Latitude: "40.4169", Longitude: "-3.7035",
	}))

	notifier := &recordingNotifier{}
	rec := metrics.New(prometheus.NewRegistry())
	wf := New(ps, access.New(ps),
		WithNotifier(notifier),
		WithMetrics(rec),
		WithClock(func() time.Time { return fixedNow }),
	)
	return &testEnv{wf: wf, store: ps, docs: docs, notifier: notifier, metrics: rec}
}

func (e *testEnv) countPlaces(t *testing.T) int {
	t.Helper()
	places, err := e.store.ListPlaces(context.Background())
	require.NoError(t, err)
	return len(places)
}
