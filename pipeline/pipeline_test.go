package pipeline_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/machimap/machimap/kvstore"
	"github.com/machimap/machimap/pipeline"
	"github.com/machimap/machimap/venue"
)

const sampleCSV = "スポット名,緯度,経度,カテゴリ,タイムスタンプ\n" +
	"やきとり大将,35.01,139.01,居酒屋,2026/08/01 10:00:00\n" +
	",35.02,139.02,カフェ,2026/08/02 10:00:00\n" +
	"ベーカリーこむぎ,35.03,139.03,パン,2026/08/03 10:00:00\n"

func newPipeline(t *testing.T, url string) (*pipeline.Pipeline, *kvstore.Store) {
	t.Helper()

	store := kvstore.New(nil, zap.NewNop())

	return pipeline.New(pipeline.Config{
		DataURL: url,
		Store:   store,
		Logger:  zap.NewNop(),
	}), store
}

func serveCSV(t *testing.T, body *string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(*body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestLoad_SanitizesAndReindexes(t *testing.T) {
	body := "スポット名,緯度,経度\n" +
		"やきとり大将,35.01,139.01\n" +
		"   ,35.02,139.02\n" + // whitespace-only name
		"食堂みなと,,139.04\n" // missing latitude
	srv := serveCSV(t, &body)

	p, _ := newPipeline(t, srv.URL)
	require.NoError(t, p.Load(context.Background()))

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.False(t, snap.FromCache)
	require.Len(t, snap.Records, 1)
	require.Equal(t, 0, snap.Records[0].Index)
	require.Equal(t, "やきとり大将", snap.Records[0].Name)
	require.Equal(t, 2, snap.Rejected)
}

func TestLoad_OrdersByTimestampDescending(t *testing.T) {
	body := sampleCSV
	srv := serveCSV(t, &body)

	p, _ := newPipeline(t, srv.URL)
	require.NoError(t, p.Load(context.Background()))

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)
	require.Equal(t, "ベーカリーこむぎ", snap.Records[0].Name)
	require.Equal(t, "やきとり大将", snap.Records[1].Name)

	// indices follow the published order
	require.Equal(t, 0, snap.Records[0].Index)
	require.Equal(t, 1, snap.Records[1].Index)
}

func TestLoad_CacheHitPublishesImmediatelyThenRefreshes(t *testing.T) {
	body := sampleCSV
	srv := serveCSV(t, &body)

	p, store := newPipeline(t, srv.URL)
	require.NoError(t, p.Load(context.Background()))

	first, err := p.Snapshot()
	require.NoError(t, err)

	// second pipeline over the same store: the cached collection must be
	// published before any network round trip completes
	published := make(chan pipeline.Snapshot, 4)

	p2 := pipeline.New(pipeline.Config{
		DataURL: srv.URL,
		Store:   store,
		Logger:  zap.NewNop(),
	})
	p2.Subscribe(func(s pipeline.Snapshot) { published <- s })

	require.NoError(t, p2.Load(context.Background()))

	select {
	case snap := <-published:
		require.True(t, snap.FromCache)
		require.Equal(t, len(first.Records), len(snap.Records))
	case <-time.After(time.Second):
		t.Fatal("no snapshot published from cache")
	}
}

func TestLoad_UnchangedDataIsNotRepublished(t *testing.T) {
	body := sampleCSV
	srv := serveCSV(t, &body)

	p, store := newPipeline(t, srv.URL)
	require.NoError(t, p.Load(context.Background()))

	p2 := pipeline.New(pipeline.Config{
		DataURL: srv.URL,
		Store:   store,
		Logger:  zap.NewNop(),
	})

	published := make(chan pipeline.Snapshot, 4)
	p2.Subscribe(func(s pipeline.Snapshot) { published <- s })

	require.NoError(t, p2.Load(context.Background()))

	// first publish is the cache fast path
	snap := <-published
	require.True(t, snap.FromCache)

	// the background refresh sees identical data and must stay silent
	select {
	case snap := <-published:
		t.Fatalf("unexpected second publish: %+v", snap)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestLoad_ChangedDataRepublishesWithNewID(t *testing.T) {
	body := sampleCSV
	srv := serveCSV(t, &body)

	p, store := newPipeline(t, srv.URL)
	require.NoError(t, p.Load(context.Background()))

	first, err := p.Snapshot()
	require.NoError(t, err)

	body = sampleCSV + "食堂みなと,35.04,139.04,定食,2026/08/04 10:00:00\n"

	p2 := pipeline.New(pipeline.Config{
		DataURL: srv.URL,
		Store:   store,
		Logger:  zap.NewNop(),
	})

	published := make(chan pipeline.Snapshot, 4)
	p2.Subscribe(func(s pipeline.Snapshot) { published <- s })

	require.NoError(t, p2.Load(context.Background()))

	snap := <-published
	require.True(t, snap.FromCache)

	select {
	case refreshed := <-published:
		require.False(t, refreshed.FromCache)
		require.Len(t, refreshed.Records, 3)
		require.NotEqual(t, first.ID, refreshed.ID)
	case <-time.After(time.Second):
		t.Fatal("changed dataset was not republished")
	}
}

func TestLoad_FetchFailureWithoutCacheIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p, _ := newPipeline(t, srv.URL)

	err := p.Load(context.Background())
	require.Error(t, err)

	snap, snapErr := p.Snapshot()
	require.Error(t, snapErr)
	require.Empty(t, snap.Records)
}

func TestLoad_AllRowsRejectedIsAnError(t *testing.T) {
	body := "スポット名,緯度,経度\n,35.01,139.01\n"
	srv := serveCSV(t, &body)

	p, _ := newPipeline(t, srv.URL)

	err := p.Load(context.Background())
	require.ErrorIs(t, err, pipeline.ErrNoRecords)
}

func TestLoad_FailedRefreshKeepsPublishedRecords(t *testing.T) {
	body := sampleCSV
	srv := serveCSV(t, &body)

	p, store := newPipeline(t, srv.URL)
	require.NoError(t, p.Load(context.Background()))

	// break the origin; the cache fast path must still publish
	srv.Close()

	p2 := pipeline.New(pipeline.Config{
		DataURL: srv.URL,
		Store:   store,
		Logger:  zap.NewNop(),
	})

	published := make(chan pipeline.Snapshot, 4)
	p2.Subscribe(func(s pipeline.Snapshot) { published <- s })

	require.NoError(t, p2.Load(context.Background()))

	snap := <-published
	require.True(t, snap.FromCache)
	require.NotEmpty(t, snap.Records)

	require.Eventually(t, func() bool {
		current, err := p2.Snapshot()

		return err != nil && len(current.Records) == len(snap.Records)
	}, time.Second, 10*time.Millisecond, "refresh failure should surface as advisory error while records survive")
}

func TestRecordSurvivesCacheRoundTrip(t *testing.T) {
	body := "スポット名,緯度,経度,駐車場,謎の列\n" +
		"やきとり大将,35.01,139.01,3台,noted\n"
	srv := serveCSV(t, &body)

	p, store := newPipeline(t, srv.URL)
	require.NoError(t, p.Load(context.Background()))

	var cached []venue.Record
	require.True(t, store.Get(context.Background(), pipeline.DefaultCacheKey, 0, &cached))
	require.Len(t, cached, 1)
	require.Equal(t, "3台", cached[0].Parking)
	require.Equal(t, "noted", cached[0].Extra["謎の列"])
}

func TestLoad_DistinctCacheKeysDoNotCollide(t *testing.T) {
	venueBody := sampleCSV
	venueSrv := serveCSV(t, &venueBody)

	eventBody := "スポット名,緯度,経度\n夏祭り,35.05,139.05\n"
	eventSrv := serveCSV(t, &eventBody)

	store := kvstore.New(nil, zap.NewNop())
	ctx := context.Background()

	venues := pipeline.New(pipeline.Config{
		DataURL: venueSrv.URL,
		Store:   store,
		Logger:  zap.NewNop(),
	})
	events := pipeline.New(pipeline.Config{
		DataURL:  eventSrv.URL,
		Store:    store,
		CacheKey: "eventListCache",
		Logger:   zap.NewNop(),
	})

	require.NoError(t, venues.Load(ctx))
	require.NoError(t, events.Load(ctx))

	venueSnap, err := venues.Snapshot()
	require.NoError(t, err)
	require.Len(t, venueSnap.Records, 2)

	eventSnap, err := events.Snapshot()
	require.NoError(t, err)
	require.Len(t, eventSnap.Records, 1)
	require.Equal(t, "夏祭り", eventSnap.Records[0].Name)

	var cached []venue.Record
	require.True(t, store.Get(ctx, pipeline.DefaultCacheKey, 0, &cached))
	require.Len(t, cached, 2)
	require.True(t, store.Get(ctx, "eventListCache", 0, &cached))
	require.Len(t, cached, 1)
}
