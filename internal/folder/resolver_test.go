package folder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocos/attendance-go/internal/drive"
)

// fakeAPI records calls and serves a mutable folder list.
type fakeAPI struct {
	mu        sync.Mutex
	folders   []drive.File
	listErr   error
	createErr error
	listDelay time.Duration

	// listStarted, when set, is closed on the first List call, which then
	// blocks until listGate is closed.
	listStarted chan struct{}
	listGate    chan struct{}
	startOnce   sync.Once

	lists   atomic.Int32
	creates atomic.Int32
	queries []string
}

func (f *fakeAPI) List(ctx context.Context, query, _ string) ([]drive.File, error) {
	f.lists.Add(1)

	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
	}

	if f.listGate != nil {
		f.startOnce.Do(func() { close(f.listStarted) })
		<-f.listGate
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)

	if f.listErr != nil {
		return nil, f.listErr
	}

	return append([]drive.File(nil), f.folders...), nil
}

func (f *fakeAPI) Create(_ context.Context, meta drive.FileMetadata, _ string) (*drive.File, error) {
	f.creates.Add(1)

	if f.createErr != nil {
		return nil, f.createErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	created := drive.File{ID: "NEW", Name: meta.Name, MimeType: meta.MimeType}
	f.folders = append(f.folders, created)

	return &created, nil
}

func TestResolve_ExistingFolder(t *testing.T) {
	api := &fakeAPI{folders: []drive.File{{ID: "F1", Name: "HR_Attendance_Data"}}}
	r := NewResolver(api, slog.Default())

	id, err := r.Resolve(context.Background(), "HR_Attendance_Data")
	require.NoError(t, err)
	assert.Equal(t, "F1", id)
	assert.Equal(t, int32(0), api.creates.Load())
}

func TestResolve_FirstOfDuplicates(t *testing.T) {
	api := &fakeAPI{folders: []drive.File{{ID: "F1"}, {ID: "F2"}}}

	id, err := NewResolver(api, nil).Resolve(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "F1", id)
}

func TestResolve_CreatesWhenMissing(t *testing.T) {
	api := &fakeAPI{}

	id, err := NewResolver(api, nil).Resolve(context.Background(), "HR_Attendance_Data")
	require.NoError(t, err)
	assert.Equal(t, "NEW", id)
	assert.Equal(t, int32(1), api.creates.Load())
}

func TestResolve_Idempotent(t *testing.T) {
	api := &fakeAPI{}
	r := NewResolver(api, nil)

	first, err := r.Resolve(context.Background(), "HR_Attendance_Data")
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), "HR_Attendance_Data")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), api.creates.Load())
	// No cache: both calls hit the provider.
	assert.Equal(t, int32(2), api.lists.Load())
}

func TestResolve_ExistingNeverCreates(t *testing.T) {
	api := &fakeAPI{folders: []drive.File{{ID: "F1"}}}
	r := NewResolver(api, nil)

	for range 3 {
		id, err := r.Resolve(context.Background(), "HR_Attendance_Data")
		require.NoError(t, err)
		assert.Equal(t, "F1", id)
	}

	assert.Equal(t, int32(0), api.creates.Load())
}

func TestResolve_ListError(t *testing.T) {
	apiErr := &drive.APIError{StatusCode: 500, Err: drive.ErrServerError}
	api := &fakeAPI{listErr: apiErr}

	_, err := NewResolver(api, nil).Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, drive.ErrServerError)
	assert.Equal(t, int32(0), api.creates.Load())
	assert.Equal(t, int32(1), api.lists.Load())
}

func TestResolve_CreateError(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("network down")}

	_, err := NewResolver(api, nil).Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.Equal(t, int32(1), api.creates.Load())
}

func TestResolve_ConcurrentCallsShareOneCreate(t *testing.T) {
	api := &fakeAPI{listDelay: 50 * time.Millisecond}
	r := NewResolver(api, nil)

	var wg sync.WaitGroup

	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id, err := r.Resolve(context.Background(), "HR_Attendance_Data")
			assert.NoError(t, err)
			ids[i] = id
		}()
	}

	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "NEW", id)
	}

	assert.Equal(t, int32(1), api.creates.Load())
}

func TestResolve_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	api := &fakeAPI{
		folders:     []drive.File{{ID: "F1", Name: "HR_Attendance_Data"}},
		listStarted: make(chan struct{}),
		listGate:    make(chan struct{}),
	}
	r := NewResolver(api, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)

	go func() {
		_, err := r.Resolve(firstCtx, "HR_Attendance_Data")
		firstErr <- err
	}()

	<-api.listStarted

	type result struct {
		id  string
		err error
	}

	second := make(chan result, 1)

	go func() {
		id, err := r.Resolve(context.Background(), "HR_Attendance_Data")
		second <- result{id, err}
	}()

	// Let the second caller join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()

	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "cancelled caller did not return")
	}

	close(api.listGate)

	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, "F1", res.id)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "second caller did not return")
	}
}

func TestResolve_CancelledBeforeResult(t *testing.T) {
	api := &fakeAPI{
		listStarted: make(chan struct{}),
		listGate:    make(chan struct{}),
	}
	defer close(api.listGate)

	r := NewResolver(api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-api.listStarted
		cancel()
	}()

	_, err := r.Resolve(ctx, "HR_Attendance_Data")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLookup_NotFound(t *testing.T) {
	api := &fakeAPI{}

	_, err := NewResolver(api, nil).Lookup(context.Background(), "x")
	assert.ErrorIs(t, err, ErrFolderNotFound)
	assert.Equal(t, int32(0), api.creates.Load())
}

func TestQuery(t *testing.T) {
	assert.Equal(t,
		"name = 'HR_Attendance_Data' and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
		Query("HR_Attendance_Data"))
	assert.Equal(t,
		`name = 'O\'Brien' and mimeType = 'application/vnd.google-apps.folder' and trashed = false`,
		Query("O'Brien"))
}

func TestChildrenQuery(t *testing.T) {
	assert.Equal(t, "'F1' in parents and trashed = false", ChildrenQuery("F1"))
}
