package entity

import (
	"fmt"

	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
)

// VehicleSnapshot 车辆的只读快照，供绘制与记录使用
type VehicleSnapshot struct {
	ID             int32          `json:"id"`
	Class          string         `json:"class"`
	Position       geometry.Point `json:"position"`
	Heading        float64        `json:"heading"` // 弧度
	Speed          float64        `json:"speed"`   // 米/秒
	Length         float64        `json:"length"`  // 像素
	Width          float64        `json:"width"`   // 像素
	Braking        bool           `json:"braking"`
	Turning        bool           `json:"turning"` // 跳过转弯时同样为true
	WaitingForStop bool           `json:"waiting_for_stop"`
	Colliding      []int32        `json:"colliding"`
}

// TripRecord 一辆车从出生到消失的行程
type TripRecord struct {
	VehicleID  int32
	Class      string
	SpawnID    int32
	SpawnTime  float64 // 秒
	EndTime    float64 // 秒
	Distance   float64 // 米
	MaxSpeed   float64 // 米/秒
	Collisions int32
}

// CollisionRecord 一次新发生的碰撞
type CollisionRecord struct {
	Time     float64
	Step     int32
	First    int32
	Second   int32
	Position geometry.Point // 两车中点
	Flags    map[string]bool
}

// RunStats 运行累计统计
type RunStats struct {
	Spawned      int32
	Despawned    int32
	InFlight     int32
	Collisions   int32
	ConfigErrors int32
}

// CollisionRate 碰撞数占出生车辆数的百分比
func (s RunStats) CollisionRate() float64 {
	if s.Spawned == 0 {
		return 0
	}
	return float64(s.Collisions) / float64(s.Spawned) * 100
}

func (s RunStats) String() string {
	return fmt.Sprintf(
		"spawned=%d, despawned=%d, in flight=%d, collisions=%d (%.2f%%), config errors=%d",
		s.Spawned, s.Despawned, s.InFlight, s.Collisions, s.CollisionRate(), s.ConfigErrors,
	)
}
