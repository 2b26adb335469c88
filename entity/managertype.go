package entity

import (
	"github.com/tsinghua-fib-lab/tilesim/entity/network"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/randengine"
)

// Manager依赖倒置

// entity/network/network.go的依赖倒置
type INetwork interface {
	Name() string
	Bounds() (float64, float64) // 地图宽高（像素）

	// 输入转弯ID，查找转弯，如果不存在则panic
	Turn(id int32) *network.Turn
	// 输入出生点ID，查找出生点，如果不存在则panic
	Spawn(id int32) *network.Spawn
	Despawns() []*network.Despawn

	TileIndex(p geometry.Point) int32 // 点所在瓦片（无副作用）
	TileOf(p geometry.Point) int32    // 点所在瓦片，同时标记出生点瓦片有车
	AdjacentTileInHeading(tile int32, heading float64) int32

	TurnsCrossed(tile int32, pos geometry.Point) ([]int32, error)
	TurnEntryTest(turnID int32, pos geometry.Point, direction geometry.TurningDirection, tolerance float64) bool
	StopsVisible(front geometry.Point, heading float64, locationTile, directionTile int32) []int32
	DistanceToStop(front geometry.Point, stopID int32) float64
	AbleToCross(stopID int32) bool
	SpawnCandidates(dt float64, rng *randengine.Engine) []int32
	ClosestCollisionTurns(observation geometry.Segment, tolerance float64, locationTile, directionTile int32) ([]int32, []geometry.Point)

	Tick(dt float64) // 推进信号灯并清空出生点瓦片的占用标记
	Snapshot() network.Snapshot
}

// entity/vehicle/manager.go的依赖倒置
type IVehicleManager interface {
	Spawn(dt float64) int     // 出生阶段，返回本步出生的车辆数
	Despawn() int             // 消失阶段，返回本步消失的车辆数
	Update(dt float64)        // 决策与运动阶段
	UpdateCollisions() int    // 碰撞阶段，返回本步新增的碰撞数
	Len() int                 // 当前车辆数
	Stats() RunStats          // 累计统计
	SetDebugVehicle(id int32) // 对指定车辆输出逐步调试信息，-1关闭
	Snapshot(ids ...int32) []VehicleSnapshot
}

// utils/recorder的依赖倒置
type IRecorder interface {
	RecordTrip(trip TripRecord)
	RecordCollision(c CollisionRecord)
	Step(step int32, stats RunStats) error // 每步调用，按间隔写库
	Close(stats RunStats) error
}
