package network

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
)

// TurnsCrossed 位于tile中且包含pos的转弯
// 功能：先判断到圆心的距离是否在[min, max]内，再判断方位角是否在扇区内
// 参数：tile-车辆所在瓦片，pos-车辆中心位置
// 返回：命中的转弯ID；命中多于一个时同时返回ErrOverlappingTurns，调用方应报告该配置错误
func (n *Network) TurnsCrossed(tile int32, pos geometry.Point) ([]int32, error) {
	res := lo.Filter(n.ids(KindTurn, tile), func(id int32, _ int) bool {
		return n.turns[id].Contains(pos)
	})
	if len(res) > 1 {
		return res, fmt.Errorf("%w: turns %v all contain %+v", ErrOverlappingTurns, res, pos)
	}
	return res, nil
}

// TurnEntryTest 车辆是否正在进入转弯
// 功能：判断车辆方位角是否在转弯任一边界的容差内，并根据旋转方向判断车辆是在驶入还是已驶出
// 参数：turnID-转弯ID，pos-车辆中心位置，direction-车辆相对转弯圆心的旋转方向，tolerance-角度容差（弧度）
// 返回：是否正在进入
// 算法说明：
// 1. d1、d2分别为方位角到first、second边界的有符号角距离，S为扇区角宽
// 2. |d1|<=容差时：逆时针在|d2|<S时要求d1<0，否则要求d1>0；顺时针符号相反
// 3. 第2步未命中且|d2|<=容差时：顺时针在|d1|<S时要求d2<0，否则要求d2>0；逆时针符号相反
// 4. 径向运动不算进入
func (n *Network) TurnEntryTest(turnID int32, pos geometry.Point, direction geometry.TurningDirection, tolerance float64) bool {
	turn := n.Turn(turnID)
	if direction == geometry.Normal {
		return false
	}
	bearing := geometry.AnglePointToPoint(turn.Center, pos)
	d1 := geometry.ClosestAngularDistance(turn.FirstAngle, bearing, direction)
	d2 := geometry.ClosestAngularDistance(turn.SecondAngle, bearing, direction)
	span := turn.Span

	if math.Abs(d1) <= tolerance {
		inside := math.Abs(d2) < span
		switch direction {
		case geometry.Counterclockwise:
			if inside && d1 < 0 || !inside && d1 > 0 {
				return true
			}
		case geometry.Clockwise:
			if inside && d1 > 0 || !inside && d1 < 0 {
				return true
			}
		}
	}
	if math.Abs(d2) <= tolerance {
		inside := math.Abs(d1) < span
		switch direction {
		case geometry.Clockwise:
			if inside && d2 < 0 || !inside && d2 > 0 {
				return true
			}
		case geometry.Counterclockwise:
			if inside && d2 > 0 || !inside && d2 < 0 {
				return true
			}
		}
	}
	return false
}

// StopsVisible 车辆可见的停车线
// 功能：在车辆所在瓦片和前方瓦片中，找出从车头看两个端点的方位角夹住车辆朝向的停车线
// 参数：front-车头位置，heading-车辆朝向，locationTile-所在瓦片，directionTile-前方瓦片（可为NoTile）
// 返回：停车线ID
func (n *Network) StopsVisible(front geometry.Point, heading float64, locationTile, directionTile int32) []int32 {
	return lo.Filter(n.ids(KindStop, locationTile, directionTile), func(id int32, _ int) bool {
		s := n.stops[id]
		a := geometry.AnglePointToPoint(front, s.Line.Start)
		b := geometry.AnglePointToPoint(front, s.Line.End)
		return geometry.AngleInBetweenOrdered(a, b, geometry.CorrectRadian(heading), geometry.SmallSpan)
	})
}

// DistanceToStop 车头到停车线所在直线的距离（米）
func (n *Network) DistanceToStop(front geometry.Point, stopID int32) float64 {
	s := n.Stop(stopID)
	return geometry.PixelsToMeters(geometry.DistanceToLine(front, s.Line.Start, s.Line.End))
}

// AbleToCross 控制停车线的信号灯是否为绿灯
func (n *Network) AbleToCross(stopID int32) bool {
	return n.lights.Get(n.Stop(stopID).TrafficLight).Color() == trafficlight.Green
}

// CollisionProjectionTurns 观测线段与转弯边界的交点
// 功能：将观测线段与所在瓦片和前方瓦片中每个转弯的两条径向边界求交
// 返回：与交点一一对应的转弯ID（同一转弯的两条边界都相交时出现两次）和交点
func (n *Network) CollisionProjectionTurns(observation geometry.Segment, locationTile, directionTile int32) ([]int32, []geometry.Point) {
	ids := make([]int32, 0)
	points := make([]geometry.Point, 0)
	for _, id := range n.ids(KindTurn, locationTile, directionTile) {
		t := n.turns[id]
		for _, border := range []geometry.Segment{t.FirstBorder, t.SecondBorder} {
			if p, ok := geometry.FindIntersection(border, observation); ok {
				ids = append(ids, id)
				points = append(points, p)
			}
		}
	}
	return ids, points
}

// ClosestCollisionTurns 离观测起点最近的转弯交点
// 功能：在CollisionProjectionTurns的结果中，保留到观测起点距离与最小距离相差小于tolerance（像素）的交点
// 说明：车辆可能同时跨在两个转弯的边界上，因此返回的是一组并列最近的交点
func (n *Network) ClosestCollisionTurns(observation geometry.Segment, tolerance float64, locationTile, directionTile int32) ([]int32, []geometry.Point) {
	ids, points := n.CollisionProjectionTurns(observation, locationTile, directionTile)
	if len(ids) == 0 {
		return ids, points
	}
	distances := lo.Map(points, func(p geometry.Point, _ int) float64 {
		return geometry.Distance(observation.Start, p)
	})
	minDistance := lo.Min(distances)
	closestIDs := make([]int32, 0, len(ids))
	closestPoints := make([]geometry.Point, 0, len(ids))
	for i, d := range distances {
		if math.Abs(d-minDistance) < tolerance {
			closestIDs = append(closestIDs, ids[i])
			closestPoints = append(closestPoints, points[i])
		}
	}
	return closestIDs, closestPoints
}

// TurnSnapshot 转弯的只读快照
type TurnSnapshot struct {
	ID          int32          `json:"id"`
	Center      geometry.Point `json:"center"`
	MinDistance float64        `json:"min_distance"`
	MaxDistance float64        `json:"max_distance"`
	FirstAngle  float64        `json:"first_angle"`
	SecondAngle float64        `json:"second_angle"`
}

// StopSnapshot 停车线的只读快照
type StopSnapshot struct {
	ID    int32              `json:"id"`
	Line  geometry.Segment   `json:"line"`
	Color trafficlight.Color `json:"color"`
}

// Snapshot 路网的只读快照，供绘制与记录使用
type Snapshot struct {
	Name     string                       `json:"name"`
	Width    float64                      `json:"width"`
	Height   float64                      `json:"height"`
	Lights   map[int32]trafficlight.Color `json:"lights"`
	Stops    []StopSnapshot               `json:"stops"`
	Turns    []TurnSnapshot               `json:"turns"`
	Spawns   []geometry.Point             `json:"spawns"`
	Despawns []geometry.Segment           `json:"despawns"`
}

// Snapshot 生成路网的只读快照
func (n *Network) Snapshot() Snapshot {
	w, h := n.Bounds()
	colors := n.lights.Colors()
	return Snapshot{
		Name:   n.name,
		Width:  w,
		Height: h,
		Lights: colors,
		Stops: lo.Map(n.stops, func(s *Stop, _ int) StopSnapshot {
			return StopSnapshot{ID: s.ID, Line: s.Line, Color: colors[s.TrafficLight]}
		}),
		Turns: lo.Map(n.turns, func(t *Turn, _ int) TurnSnapshot {
			return TurnSnapshot{
				ID:          t.ID,
				Center:      t.Center,
				MinDistance: t.MinDistance,
				MaxDistance: t.MaxDistance,
				FirstAngle:  t.FirstAngle,
				SecondAngle: t.SecondAngle,
			}
		}),
		Spawns: lo.Map(n.spawns, func(s *Spawn, _ int) geometry.Point {
			return s.Position
		}),
		Despawns: lo.Map(n.despawns, func(d *Despawn, _ int) geometry.Segment {
			return d.Line
		}),
	}
}
