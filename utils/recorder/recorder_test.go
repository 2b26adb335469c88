package recorder_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tilesim/entity"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/recorder"
)

func TestRecorderRoundTrip(t *testing.T) {
	c := config.Recorder{
		Driver:        "sqlite",
		DSN:           filepath.Join(t.TempDir(), "run.db"),
		FlushInterval: 10,
	}
	r, err := recorder.New(c, "test-map")
	require.NoError(t, err)

	r.RecordTrip(entity.TripRecord{VehicleID: 3, Class: "SUV", SpawnTime: 1, EndTime: 4.5, Distance: 40, MaxSpeed: 12})
	r.RecordCollision(entity.CollisionRecord{
		Time: 2, Step: 20, First: 3, Second: 4,
		Position: geometry.Point{X: 10, Y: 20},
		Flags:    map[string]bool{"first_braking": true},
	})
	// 未到写库间隔
	require.NoError(t, r.Step(5, entity.RunStats{}))
	r.RecordTrip(entity.TripRecord{VehicleID: 4, Class: "Bike"})
	require.NoError(t, r.Step(10, entity.RunStats{}))

	stats := entity.RunStats{Spawned: 5, Despawned: 2, InFlight: 3, Collisions: 1}
	require.NoError(t, r.Close(stats))
	assert.ErrorIs(t, r.Step(11, stats), recorder.ErrClosed)

	db, err := recorder.Open(c)
	require.NoError(t, err)

	var trips []recorder.Trip
	require.NoError(t, db.Order("vehicle_id").Find(&trips).Error)
	require.Len(t, trips, 2)
	assert.Equal(t, int32(3), trips[0].VehicleID)
	assert.Equal(t, r.RunID(), trips[0].RunID)
	assert.Equal(t, 40., trips[0].Distance)

	var collisions []recorder.Collision
	require.NoError(t, db.Find(&collisions).Error)
	require.Len(t, collisions, 1)
	assert.Equal(t, int32(20), collisions[0].Step)
	assert.True(t, collisions[0].Flags.Data()["first_braking"])

	var run recorder.Run
	require.NoError(t, db.First(&run, "id = ?", r.RunID()).Error)
	assert.Equal(t, "test-map", run.MapName)
	assert.Equal(t, int32(10), run.Steps)
	assert.Equal(t, int32(5), run.Spawned)
	assert.Equal(t, int32(1), run.Collisions)
	assert.NotNil(t, run.EndedAt)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := recorder.Open(config.Recorder{Driver: "mysql"})
	assert.Error(t, err)
}
