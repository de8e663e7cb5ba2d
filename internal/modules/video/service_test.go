package video

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clipshare/internal/database"
	domain "clipshare/internal/domain/video"
	"clipshare/internal/media"
	"clipshare/internal/media/mediatest"
)

// --- Mock store ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateVideo(ctx context.Context, v *domain.Video) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockStore) GetVideo(ctx context.Context, id string) (*domain.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Video), args.Error(1)
}

func (m *MockStore) ListVideos(ctx context.Context) ([]domain.Video, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Video), args.Error(1)
}

func (m *MockStore) DeleteVideo(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// --- Helpers ---

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

type fixture struct {
	svc  *Service
	repo domain.Repository
	tool *mediatest.Tool
	dir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, domain.Migrate(db))

	repo := domain.NewRepository(db)
	tool := mediatest.New()
	dir := t.TempDir()
	svc := NewService(repo, tool, Config{
		UploadDir: dir,
		Policy:    media.DefaultPolicy(),
		Now:       func() time.Time { return fixedNow },
	}, nil, nil)
	return &fixture{svc: svc, repo: repo, tool: tool, dir: dir}
}

func (f *fixture) upload(t *testing.T, name string, dur float64) *domain.Video {
	t.Helper()
	v, err := f.svc.Upload(context.Background(), UploadInput{
		OriginalName: name,
		Content:      bytes.NewReader(mediatest.Clip(dur, 2048)),
	})
	require.NoError(t, err)
	return v
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// --- Upload ---

func TestService_Upload_StoresProbedValues(t *testing.T) {
	f := newFixture(t)

	v := f.upload(t, "holiday.mov", 10.7)

	assert.Equal(t, "holiday.mov", v.OriginalName)
	assert.Equal(t, int64(10), v.Duration)
	assert.Equal(t, int64(2048), v.Size)
	assert.Equal(t, ".mov", filepath.Ext(v.Filename))
	assert.Equal(t, fixedNow, v.CreatedAt)
	assert.FileExists(t, filepath.Join(f.dir, v.Filename))

	stored, err := f.repo.GetVideo(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.Filename, stored.Filename)
}

func TestService_Upload_DefaultsNameAndExtension(t *testing.T) {
	f := newFixture(t)

	v := f.upload(t, "", 5)
	assert.Equal(t, "upload.mp4", v.OriginalName)
	assert.Equal(t, ".mp4", filepath.Ext(v.Filename))

	v = f.upload(t, "../../etc/notes.txt", 5)
	assert.Equal(t, "notes.txt", v.OriginalName)
	assert.Equal(t, ".mp4", filepath.Ext(v.Filename))
}

func TestService_Upload_RejectedClipIsRemoved(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		OriginalName: "long.mp4",
		Content:      bytes.NewReader(mediatest.Clip(30, 0)),
	})

	var cerr *ConstraintError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"Video duration is too long"}, cerr.Verdict.Reasons())
	assert.Empty(t, dirEntries(t, f.dir))

	list, err := f.repo.ListVideos(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_Upload_OversizeReportedFirst(t *testing.T) {
	f := newFixture(t)
	f.svc.policy = media.Policy{MaxSizeBytes: 100, MinDurationSeconds: 1, MaxDurationSeconds: 25}

	_, err := f.svc.Upload(context.Background(), UploadInput{
		OriginalName: "big.mp4",
		Content:      bytes.NewReader(mediatest.Clip(0.5, 500)),
	})

	var cerr *ConstraintError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"File size exceeds maximum limit", "Video duration is too short"}, cerr.Verdict.Reasons())
	assert.Empty(t, dirEntries(t, f.dir))
}

func TestService_Upload_ProbeFailureRemovesFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		OriginalName: "garbage.mp4",
		Content:      bytes.NewReader([]byte("not a video")),
	})

	assert.ErrorIs(t, err, media.ErrProbeFailed)
	assert.Empty(t, dirEntries(t, f.dir))
}

func TestService_Upload_PersistFailureRemovesFile(t *testing.T) {
	store := new(MockStore)
	store.On("CreateVideo", mock.Anything, mock.Anything).Return(errors.New("db down"))

	dir := t.TempDir()
	svc := NewService(store, mediatest.New(), Config{UploadDir: dir, Policy: media.DefaultPolicy()}, nil, nil)

	_, err := svc.Upload(context.Background(), UploadInput{
		OriginalName: "clip.mp4",
		Content:      bytes.NewReader(mediatest.Clip(5, 0)),
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Empty(t, dirEntries(t, dir))
	store.AssertExpectations(t)
}

// --- Trim ---

func TestService_Trim_ProducesDerivedClip(t *testing.T) {
	f := newFixture(t)
	src := f.upload(t, "source.mp4", 10)

	v, err := f.svc.Trim(context.Background(), TrimRequest{VideoID: src.ID, StartTime: f64(2), EndTime: f64(5)})
	require.NoError(t, err)

	assert.Equal(t, int64(3), v.Duration)
	assert.Equal(t, "trimmed_source.mp4", v.OriginalName)
	assert.Regexp(t, `^trim-[0-9a-f-]{36}\.mp4$`, v.Filename)
	assert.NotEqual(t, src.ID, v.ID)
	assert.FileExists(t, filepath.Join(f.dir, src.Filename))
}

func TestService_Trim_InvalidRangeRejectedBeforeRunner(t *testing.T) {
	store := new(MockStore)
	tool := mediatest.New()
	svc := NewService(store, tool, Config{UploadDir: t.TempDir(), Policy: media.DefaultPolicy()}, nil, nil)

	cases := []TrimRequest{
		{VideoID: "a", StartTime: f64(5), EndTime: f64(5)},
		{VideoID: "a", StartTime: f64(5), EndTime: f64(2)},
		{VideoID: "a", StartTime: f64(-1), EndTime: f64(2)},
		{VideoID: "a", StartTime: nil, EndTime: f64(2)},
		{VideoID: "a", StartTime: f64(0), EndTime: nil},
		{VideoID: "", StartTime: f64(0), EndTime: f64(2)},
	}
	for _, req := range cases {
		_, err := svc.Trim(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}

	_, trims, _ := tool.Calls()
	assert.Zero(t, trims)
	store.AssertNotCalled(t, "GetVideo", mock.Anything, mock.Anything)
}

func TestService_Trim_UnknownSource(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Trim(context.Background(), TrimRequest{VideoID: "missing", StartTime: f64(0), EndTime: f64(1)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Trim_RunnerFailureRemovesPartialOutput(t *testing.T) {
	f := newFixture(t)
	src := f.upload(t, "source.mp4", 10)
	f.tool.FailTrim = errors.New("encoder exploded")
	f.tool.LeavePartial = true

	_, err := f.svc.Trim(context.Background(), TrimRequest{VideoID: src.ID, StartTime: f64(1), EndTime: f64(4)})

	assert.ErrorIs(t, err, media.ErrOperationFailed)
	assert.Equal(t, []string{src.Filename}, dirEntries(t, f.dir))
}

func TestService_Trim_TooShortResultRejected(t *testing.T) {
	f := newFixture(t)
	src := f.upload(t, "source.mp4", 10)

	_, err := f.svc.Trim(context.Background(), TrimRequest{VideoID: src.ID, StartTime: f64(2), EndTime: f64(2.5)})

	var cerr *ConstraintError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"Video duration is too short"}, cerr.Verdict.Reasons())
	assert.Equal(t, []string{src.Filename}, dirEntries(t, f.dir))
}

// --- Merge ---

func TestService_Merge_ConcatenatesInOrder(t *testing.T) {
	f := newFixture(t)
	a := f.upload(t, "a.mp4", 4)
	b := f.upload(t, "b.webm", 7)

	v, err := f.svc.Merge(context.Background(), MergeRequest{VideoIDs: []string{a.ID, b.ID, a.ID}})
	require.NoError(t, err)

	assert.Equal(t, int64(15), v.Duration)
	assert.Equal(t, "merged-video.mp4", v.OriginalName)
	assert.Regexp(t, `^merge-[0-9a-f-]{36}\.mp4$`, v.Filename)
	assert.FileExists(t, filepath.Join(f.dir, a.Filename))
	assert.FileExists(t, filepath.Join(f.dir, b.Filename))
}

func TestService_Merge_NeedsTwoDistinctBeforeLookup(t *testing.T) {
	store := new(MockStore)
	tool := mediatest.New()
	svc := NewService(store, tool, Config{UploadDir: t.TempDir(), Policy: media.DefaultPolicy()}, nil, nil)

	for _, ids := range [][]string{nil, {"a"}, {"a", "a"}, {"a", ""}} {
		_, err := svc.Merge(context.Background(), MergeRequest{VideoIDs: ids})
		assert.ErrorIs(t, err, ErrInvalidRequest, "%v", ids)
	}

	_, _, merges := tool.Calls()
	assert.Zero(t, merges)
	store.AssertNotCalled(t, "GetVideo", mock.Anything, mock.Anything)
}

func TestService_Merge_UnknownInput(t *testing.T) {
	f := newFixture(t)
	a := f.upload(t, "a.mp4", 4)

	_, err := f.svc.Merge(context.Background(), MergeRequest{VideoIDs: []string{a.ID, "missing"}})

	assert.ErrorIs(t, err, ErrNotFound)
	_, _, merges := f.tool.Calls()
	assert.Zero(t, merges)
}

func TestService_Merge_TooLongResultRejected(t *testing.T) {
	f := newFixture(t)
	a := f.upload(t, "a.mp4", 20)
	b := f.upload(t, "b.mp4", 20)

	_, err := f.svc.Merge(context.Background(), MergeRequest{VideoIDs: []string{a.ID, b.ID}})

	var cerr *ConstraintError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"Video duration is too long"}, cerr.Verdict.Reasons())
	assert.ElementsMatch(t, []string{a.Filename, b.Filename}, dirEntries(t, f.dir))
}

// --- Delete / Get / List ---

func TestService_Delete_RemovesRowFileAndLinks(t *testing.T) {
	f := newFixture(t)
	v := f.upload(t, "a.mp4", 4)
	ctx := context.Background()
	require.NoError(t, f.repo.CreateShareLink(ctx, &domain.ShareLink{
		ID: "l1", VideoID: v.ID, Token: "tok", ExpiresAt: fixedNow.Add(time.Hour), CreatedAt: fixedNow,
	}))

	require.NoError(t, f.svc.Delete(ctx, v.ID))

	assert.NoFileExists(t, filepath.Join(f.dir, v.Filename))
	_, err := f.svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.repo.GetShareLinkByToken(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrShareLinkNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, v.ID), ErrNotFound)
}

func TestService_Delete_MissingFileIsFine(t *testing.T) {
	f := newFixture(t)
	v := f.upload(t, "a.mp4", 4)
	require.NoError(t, os.Remove(filepath.Join(f.dir, v.Filename)))

	assert.NoError(t, f.svc.Delete(context.Background(), v.ID))
}

func TestService_Delete_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	v := f.upload(t, "a.mp4", 4)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.Delete(context.Background(), v.ID)
		}(i)
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			notFound++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)
}

func TestService_Delete_LostRaceAfterLookup(t *testing.T) {
	store := new(MockStore)
	store.On("GetVideo", mock.Anything, "a").Return(&domain.Video{ID: "a", Filename: "a.mp4"}, nil)
	store.On("DeleteVideo", mock.Anything, "a").Return(false, nil)

	dir := t.TempDir()
	require.NoError(t, mediatest.WriteClip(filepath.Join(dir, "a.mp4"), 4, 0))
	svc := NewService(store, mediatest.New(), Config{UploadDir: dir, Policy: media.DefaultPolicy()}, nil, nil)

	assert.ErrorIs(t, svc.Delete(context.Background(), "a"), ErrNotFound)
	assert.FileExists(t, filepath.Join(dir, "a.mp4"))
}

func TestService_List_NewestFirst(t *testing.T) {
	f := newFixture(t)
	now := fixedNow
	f.svc.now = func() time.Time { now = now.Add(time.Minute); return now }

	a := f.upload(t, "a.mp4", 4)
	b := f.upload(t, "b.mp4", 4)

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestService_List_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestService_Path_RefusesSeparators(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"../x.mp4", `..\x.mp4`, "a/b.mp4", "", ".."} {
		_, err := f.svc.Path(&domain.Video{Filename: name})
		assert.ErrorIs(t, err, ErrUnsafePath, name)
	}

	p, err := f.svc.Path(&domain.Video{Filename: "ok.mp4"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "ok.mp4"), p)
}
