package distance_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/machimap/machimap/distance"
	"github.com/machimap/machimap/venue"
)

func records() []venue.Record {
	return []venue.Record{
		{Index: 0, Name: "equator east", Latitude: 0, Longitude: 1},
		{Index: 1, Name: "one degree north", Latitude: 1, Longitude: 0},
		{Index: 2, Name: "tokyo", Latitude: 35.6812, Longitude: 139.7671},
		{Index: 3, Name: "broken", Latitude: math.NaN(), Longitude: 139.7},
	}
}

var origin = venue.Position{0, 0}

func TestHaversine_Symmetry(t *testing.T) {
	a := venue.Record{Latitude: 35.6812, Longitude: 139.7671}
	b := venue.Record{Latitude: 34.6937, Longitude: 135.5023}

	ab := a.HaversineDistance(venue.Position{b.Longitude, b.Latitude})
	ba := b.HaversineDistance(venue.Position{a.Longitude, a.Latitude})

	require.InEpsilon(t, ab, ba, 1e-12)
}

func TestHaversine_OneDegreeLatitudeAtEquator(t *testing.T) {
	r := venue.Record{Latitude: 1, Longitude: 0}

	d := r.HaversineDistance(origin)
	require.InDelta(t, 111000, d, 1000)
}

func TestSyncComputer_SkipsInvalidCoords(t *testing.T) {
	c := distance.NewSyncComputer()

	got, err := c.Compute(context.Background(), records(), origin)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for _, d := range got {
		require.NotEqual(t, 3, d.Index)
	}
}

func TestSyncComputer_SmallBatches(t *testing.T) {
	c := &distance.SyncComputer{BatchSize: 2}

	got, err := c.Compute(context.Background(), records(), origin)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestWorkerAndSyncProduceEqualDistances(t *testing.T) {
	w := distance.NewWorkerComputer()
	defer w.Terminate()

	s := distance.NewSyncComputer()

	fromWorker, err := w.Compute(context.Background(), records(), origin)
	require.NoError(t, err)

	fromSync, err := s.Compute(context.Background(), records(), origin)
	require.NoError(t, err)

	require.Equal(t, len(fromSync), len(fromWorker))

	for i := range fromSync {
		require.Equal(t, fromSync[i].Index, fromWorker[i].Index)
		require.InEpsilon(t, fromSync[i].Distance, fromWorker[i].Distance, 1e-6)
	}
}

func TestWorkerComputer_RespawnsAfterTerminate(t *testing.T) {
	w := distance.NewWorkerComputer()
	defer w.Terminate()

	w.Terminate()

	got, err := w.Compute(context.Background(), records(), origin)
	require.NoError(t, err, "a terminated worker is replaced on the next call")
	require.Len(t, got, 3)

	// and again, repeatedly
	w.Terminate()

	got, err = w.Compute(context.Background(), records(), origin)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestEngine_AttachesDistances(t *testing.T) {
	e := distance.NewEngine(zap.NewNop())

	got, err := e.Compute(context.Background(), records(), origin)
	require.NoError(t, err)
	require.Len(t, got, 4)

	require.NotNil(t, got[0].Distance)
	require.NotNil(t, got[2].Distance)
	require.Nil(t, got[3].Distance, "invalid coords pass through unmodified")

	// tokyo is much farther from the origin than the equator point
	require.Greater(t, *got[2].Distance, *got[0].Distance)
}

func TestEngine_DoesNotMutateInput(t *testing.T) {
	e := distance.NewEngine(zap.NewNop())
	in := records()

	_, err := e.Compute(context.Background(), in, origin)
	require.NoError(t, err)

	for i := range in {
		require.Nil(t, in[i].Distance)
	}
}

func TestEngine_MemoizesPerPosition(t *testing.T) {
	e := distance.NewEngine(zap.NewNop())

	first, err := e.Compute(context.Background(), records(), origin)
	require.NoError(t, err)

	second, err := e.Compute(context.Background(), records(), origin)
	require.NoError(t, err)

	require.Equal(t, *first[0].Distance, *second[0].Distance)

	other := venue.Position{10, 10}

	moved, err := e.Compute(context.Background(), records(), other)
	require.NoError(t, err)
	require.NotEqual(t, *first[0].Distance, *moved[0].Distance)

	e.Reset()

	afterReset, err := e.Compute(context.Background(), records(), origin)
	require.NoError(t, err)
	require.InEpsilon(t, *first[0].Distance, *afterReset[0].Distance, 1e-12)
}

func TestEngine_FallsBackWhenWorkerDies(t *testing.T) {
	e := distance.NewEngineWithComputers(failingComputer{}, distance.NewSyncComputer(), zap.NewNop())

	got, err := e.Compute(context.Background(), records(), origin)
	require.NoError(t, err)
	require.NotNil(t, got[0].Distance)
}

type failingComputer struct{}

func (failingComputer) Compute(context.Context, []venue.Record, venue.Position) ([]distance.IndexDistance, error) {
	return nil, distance.ErrWorkerStopped
}
