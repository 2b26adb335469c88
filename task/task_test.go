package task_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tilesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/tilesim/task"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/input"
	"github.com/tsinghua-fib-lab/tilesim/utils/recorder"
	"gopkg.in/yaml.v2"
)

// straightRoad 1x4网格的直路，西端出生、东端消失，没有停车线与转弯
func straightRoad() *input.MapDescription {
	return &input.MapDescription{
		Name:     "straight",
		TileSize: 100,
		Rows:     1,
		Columns:  4,
		Tiles: []input.TileDescription{{
			Row: 0, Col: 0,
			Spawns: []input.SpawnDescription{{
				Position: geometry.Point{X: 10, Y: 50}, Angle: 0, Speed: 0.5, Probability: 10,
			}},
		}},
		Despawns: []input.DespawnDescription{
			{Start: geometry.Point{X: 390, Y: 0}, End: geometry.Point{X: 390, Y: 100}},
		},
	}
}

func writeMap(t *testing.T, m *input.MapDescription) string {
	data, err := yaml.Marshal(m)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Input: config.Input{Map: config.InputPath{File: writeMap(t, straightRoad())}},
		Control: config.Control{
			Step: config.ControlStep{Total: 100, Interval: 0.1},
			Seed: 1,
		},
	}
}

func TestRunStraightRoad(t *testing.T) {
	c := testConfig(t)
	c.Output = config.Output{
		Recorder: config.Recorder{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "run.db")},
		Metrics:  true,
	}
	sim, err := task.NewContext(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, sim.Recorder())

	require.NoError(t, sim.Run(context.Background()))
	snap := sim.Snapshot()
	assert.Equal(t, int32(100), snap.Step)
	assert.InDelta(t, 10, snap.Time, 1e-9)

	stats := snap.Stats
	assert.Positive(t, stats.Spawned)
	assert.Positive(t, stats.Despawned)
	assert.Equal(t, stats.Spawned-stats.InFlight, stats.Despawned)
	assert.Len(t, snap.Vehicles, int(stats.InFlight))
	assert.Zero(t, stats.ConfigErrors)

	db, err := recorder.Open(c.Output.Recorder)
	require.NoError(t, err)
	var trips []recorder.Trip
	require.NoError(t, db.Order("vehicle_id").Find(&trips).Error)
	require.Len(t, trips, int(stats.Despawned))

	// 第一辆车前方无车，加速到车型最高速度后驶过整条直路
	first := trips[0]
	assert.Equal(t, int32(0), first.VehicleID)
	assert.InDelta(t, 0.1, first.SpawnTime, 1e-9)
	assert.Greater(t, first.EndTime, first.SpawnTime)
	assert.InDelta(t, 75.5, first.Distance, 4.5)
	var class vehicle.Class
	for _, cl := range vehicle.Classes() {
		if cl.String() == first.Class {
			class = cl
		}
	}
	assert.InDelta(t, class.MaxSpeed(), first.MaxSpeed, 1e-9)

	var run recorder.Run
	require.NoError(t, db.First(&run).Error)
	assert.Equal(t, "straight", run.MapName)
	assert.Equal(t, stats.Spawned, run.Spawned)
	assert.Equal(t, stats.Despawned, run.Despawned)
	assert.NotNil(t, run.EndedAt)

	// 重复关闭无副作用
	assert.NoError(t, sim.Close())
}

// twoTileRoad 1x2网格、边长250像素的直路，出生点以最高速度发车，东端消失
func twoTileRoad() *input.MapDescription {
	return &input.MapDescription{
		Name:     "two-tiles",
		TileSize: 250,
		Rows:     1,
		Columns:  2,
		Tiles: []input.TileDescription{{
			Row: 0, Col: 0,
			Spawns: []input.SpawnDescription{{
				Position: geometry.Point{X: 5, Y: 125}, Angle: 0, Speed: 1, Probability: 1,
			}},
		}},
		Despawns: []input.DespawnDescription{
			{Start: geometry.Point{X: 495, Y: 0}, End: geometry.Point{X: 495, Y: 250}},
		},
	}
}

func TestRunTwoTilesAtMaxSpeed(t *testing.T) {
	classes := lo.SliceToMap(vehicle.Classes(), func(c vehicle.Class) (string, vehicle.Class) {
		return c.String(), c
	})
	path := writeMap(t, twoTileRoad())
	for seed := uint64(1); seed <= 5; seed++ {
		c := config.Config{
			Input: config.Input{Map: config.InputPath{File: path}},
			Control: config.Control{
				Step: config.ControlStep{Total: 100, Interval: 0.1},
				Seed: seed,
			},
			Output: config.Output{
				Recorder: config.Recorder{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "run.db")},
			},
		}
		sim, err := task.NewContext(context.Background(), c)
		require.NoError(t, err)
		require.NoError(t, sim.Run(context.Background()))

		stats := sim.Snapshot().Stats
		assert.Positive(t, stats.Spawned, "seed %d", seed)
		assert.Equal(t, stats.Spawned, stats.Despawned+stats.InFlight, "seed %d", seed)
		assert.Zero(t, stats.Collisions, "seed %d", seed)
		assert.Zero(t, stats.ConfigErrors, "seed %d", seed)

		db, err := recorder.Open(c.Output.Recorder)
		require.NoError(t, err)
		var trips []recorder.Trip
		require.NoError(t, db.Find(&trips).Error)
		require.Len(t, trips, int(stats.Despawned), "seed %d", seed)
		for _, trip := range trips {
			class, ok := classes[trip.Class]
			require.True(t, ok, "seed %d: class %q", seed, trip.Class)
			assert.InDelta(t, class.MaxSpeed(), trip.MaxSpeed, 1e-9, "seed %d vehicle %d", seed, trip.VehicleID)
			assert.Zero(t, trip.Collisions, "seed %d vehicle %d", seed, trip.VehicleID)
		}
		var collisions int64
		require.NoError(t, db.Model(&recorder.Collision{}).Count(&collisions).Error)
		assert.Zero(t, collisions, "seed %d", seed)
	}
}

func TestRunCancelled(t *testing.T) {
	sim, err := task.NewContext(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.True(t, sim.Recorder() == nil)

	c, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sim.Run(c), context.Canceled)
	assert.Equal(t, int32(0), sim.Clock().InternalStep)
}

func TestStepWithoutTime(t *testing.T) {
	sim, err := task.NewContext(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NoError(t, sim.Step(0.1))
	require.Equal(t, 1, sim.VehicleManager().Len())
	before := sim.Snapshot().Vehicles[0].Position

	// dt为0时车辆不移动
	require.NoError(t, sim.Step(0))
	after := sim.Snapshot().Vehicles[0].Position
	assert.Equal(t, before, after)
}

func TestNewContextErrors(t *testing.T) {
	_, err := task.NewContext(context.Background(), config.Config{})
	assert.ErrorIs(t, err, input.ErrNoInput)

	c := testConfig(t)
	c.Control.Step.Interval = -1
	_, err = task.NewContext(context.Background(), c)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestExampleConfig(t *testing.T) {
	data, err := os.ReadFile("../example/config.yaml")
	require.NoError(t, err)
	c, err := config.Parse(data)
	require.NoError(t, err)
	c.Input.Map.File = "../example/map.yaml"
	c.Output.Recorder.DSN = filepath.Join(t.TempDir(), "run.db")
	c.Control.Step.Total = 200

	sim, err := task.NewContext(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background()))
	snap := sim.Snapshot()
	assert.Equal(t, "two-way-road", snap.Network.Name)
	assert.Len(t, snap.Network.Stops, 2)
	assert.Zero(t, snap.Stats.ConfigErrors)
}
