package network

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
)

// ElementKind 瓦片中登记的元素类型
type ElementKind int32

const (
	KindStop ElementKind = iota
	KindTurn
	KindSpawn

	kindCount
)

func (k ElementKind) String() string {
	switch k {
	case KindStop:
		return "stop"
	case KindTurn:
		return "turn"
	case KindSpawn:
		return "spawn"
	}
	return fmt.Sprintf("ElementKind(%d)", int32(k))
}

// IDRange 左闭右开的ID区间
type IDRange struct {
	Start int32
	End   int32
}

func (r IDRange) Contains(id int32) bool {
	return r.Start <= id && id < r.End
}

func (r IDRange) Empty() bool {
	return r.Start == r.End
}

// Tile 瓦片
type Tile struct {
	ID     int32
	Row    int32
	Col    int32
	ranges [kindCount]IDRange
}

// Range 该瓦片中某类元素的ID区间
func (t *Tile) Range(kind ElementKind) IDRange {
	return t.ranges[kind]
}

// Stop 停车线，由一个信号灯控制
type Stop struct {
	ID           int32
	Tile         int32
	Line         geometry.Segment
	TrafficLight int32
}

// Turn 转弯区：从FirstAngle逆时针到SecondAngle的环形扇区
type Turn struct {
	ID          int32
	Tile        int32
	Center      geometry.Point
	MinDistance float64 // 内半径（像素）
	MaxDistance float64 // 外半径（像素）
	FirstAngle  float64 // 弧度，[0, 2π)
	SecondAngle float64 // 弧度，[0, 2π)
	Span        float64 // 扇区角宽，[0, 2π)
	CanSkip     bool

	FirstBorder  geometry.Segment // FirstAngle处的径向边界线段
	SecondBorder geometry.Segment // SecondAngle处的径向边界线段
}

func newTurn(id, tile int32, center geometry.Point, minDistance, maxDistance, firstDeg, secondDeg float64, canSkip bool) *Turn {
	t := &Turn{
		ID:          id,
		Tile:        tile,
		Center:      center,
		MinDistance: minDistance,
		MaxDistance: maxDistance,
		FirstAngle:  geometry.CorrectRadian(firstDeg * math.Pi / 180),
		SecondAngle: geometry.CorrectRadian(secondDeg * math.Pi / 180),
		CanSkip:     canSkip,
	}
	t.Span = geometry.CorrectRadian(t.SecondAngle - t.FirstAngle)
	t.FirstBorder, t.SecondBorder = geometry.SectorBorderLines(center, t.FirstAngle, t.SecondAngle, minDistance, maxDistance)
	return t
}

// Contains 点是否位于扇区内：半径在[min, max]内且方位角在从first逆时针到second的圆弧上
func (t *Turn) Contains(p geometry.Point) bool {
	r := geometry.Distance(t.Center, p)
	if r < t.MinDistance || r > t.MaxDistance {
		return false
	}
	return geometry.AngleInBetween(t.SecondAngle, t.FirstAngle, geometry.AnglePointToPoint(t.Center, p))
}

// AngleLeft 按给定方向从angle走到扇区边界还剩的角度
// 说明：先看到first边界的距离，为正说明正朝first运动；否则返回到second边界的距离
func (t *Turn) AngleLeft(angle float64, direction geometry.TurningDirection) float64 {
	toFirst := geometry.ClosestAngularDistance(t.FirstAngle, angle, direction)
	if toFirst > 0 {
		return toFirst
	}
	return geometry.ClosestAngularDistance(t.SecondAngle, angle, direction)
}

// Spawn 出生点
type Spawn struct {
	ID            int32
	Tile          int32
	Position      geometry.Point
	Heading       float64 // 弧度
	SpeedFraction float64 // 初速度占车型最高速度的比例
	Probability   float64 // 每秒出生概率
}

// Despawn 消失线
type Despawn struct {
	ID   int32
	Line geometry.Segment
}
