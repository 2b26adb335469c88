package vehicle

import (
	"fmt"
	"math"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tilesim/entity"
	"github.com/tsinghua-fib-lab/tilesim/entity/network"
	"github.com/tsinghua-fib-lab/tilesim/utils/container"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
)

// Vehicle 车辆
// 功能：维护车辆的运动学状态、转弯导航状态与前向观测状态，每步完成一次决策与运动
// 说明：位置为屏幕像素坐标（y向下），朝向为数学角度，速度单位为米/秒
type Vehicle struct {
	container.IncrementalItemBase

	ctx entity.ITaskContext
	m   *Manager

	id     int32
	class  Class
	length float64 // 车长（像素）
	width  float64 // 车宽（像素）

	pos     geometry.Point // 车辆中心
	heading float64        // 朝向（弧度）
	speed   float64        // 速度（米/秒）
	front   geometry.Point // 车头中点

	locationTile  int32 // 所在瓦片
	directionTile int32 // 朝向指向的相邻瓦片
	collisionTile int32 // 观测路径末端所在瓦片

	// 每次update时更新

	braking             bool
	waitingForStop      bool    // 本车（或其前车）正在等待停车线
	closestStopID       int32   // 最近的可见停车线，-1表示无
	closestStopDistance float64 // 米
	closestVehicleID    int32   // 观测到的最近前车，-1表示无
	closestVehicleDist  float64 // 米

	nav navigation
	obs observation

	colliding []int32 // 正在发生碰撞的车辆

	trip  entity.TripRecord
	debug bool
}

// newVehicle 在出生点创建车辆
// 功能：按车型与出生点初始化车辆，初速度为车型最高速度乘以出生点的速度比例
func newVehicle(ctx entity.ITaskContext, m *Manager, id int32, class Class, spawn *network.Spawn) *Vehicle {
	v := &Vehicle{
		ctx:              ctx,
		m:                m,
		id:               id,
		class:            class,
		length:           geometry.MetersToPixels(class.Length()),
		width:            geometry.MetersToPixels(class.Width()),
		pos:              spawn.Position,
		heading:          spawn.Heading,
		speed:            class.MaxSpeed() * spawn.SpeedFraction,
		closestStopID:    -1,
		closestVehicleID: -1,
		nav:              newNavigation(),
		obs:              newObservation(spawn.Position),
		colliding:        []int32{},
		trip: entity.TripRecord{
			VehicleID: id,
			Class:     class.String(),
			SpawnID:   spawn.ID,
			SpawnTime: ctx.Clock().T,
		},
	}
	v.trip.MaxSpeed = v.speed
	v.refresh()
	return v
}

func (v *Vehicle) ID() int32 {
	return v.id
}

func (v *Vehicle) Class() Class {
	return v.class
}

func (v *Vehicle) Position() geometry.Point {
	return v.pos
}

func (v *Vehicle) Heading() float64 {
	return v.heading
}

func (v *Vehicle) Speed() float64 {
	return v.speed
}

// Turning 是否处于转弯中（跳过转弯期间也为true）
func (v *Vehicle) Turning() bool {
	return v.nav.turning || v.nav.skipping
}

func (v *Vehicle) String() string {
	return fmt.Sprintf(
		"Vehicle{id=%d, class=%v, pos=(%.2f, %.2f), heading=%.4f, speed=%.2f, tile=%d}",
		v.id, v.class, v.pos.X, v.pos.Y, v.heading, v.speed, v.locationTile,
	)
}

// tracef 调试车辆的逐步跟踪日志
func (v *Vehicle) tracef(format string, args ...any) {
	if v.debug {
		log.WithFields(logrus.Fields{"vehicle": v.id, "step": v.ctx.Clock().InternalStep}).Infof(format, args...)
	}
}

// update 单步决策与运动
// 功能：依次完成转弯导航、前向观测、停车线制动、跟车制动、加减速和位置积分
// 参数：dt-时间步长（秒）
// 算法说明：
// 1. 转弯导航：检测进入/驶出转弯，转弯中绕圆心旋转朝向
// 2. 前向观测：构建观测路径并找出最近前车
// 3. 停车线策略：转弯、出弯或跳过转弯时不启用
// 4. 跟车策略：本步已因停车线制动时跳过
// 5. 有制动动作则减速到目标速度，否则加速
// 6. 沿朝向积分位置，刷新车头与瓦片缓存
func (v *Vehicle) update(dt float64) {
	b := v.ctx.RuntimeConfig().B
	v.braking = false
	v.waitingForStop = false

	step := v.navigate(dt)
	ahead, distance := v.observe()

	var ac Action
	stopping := false
	if b.Braking && !step.newTurn && !step.ended && !v.nav.skipping {
		stop := v.policyStop(dt)
		ac.Update(stop)
		stopping = stop.Brake
	}
	if b.Braking && !stopping && ahead != nil {
		ac.Update(v.policyFollow(ahead, distance, dt))
	}

	if ac.Brake {
		v.brake(ac.TargetV, dt)
		v.waitingForStop = ac.WaitingForStop
	} else {
		v.accelerate(dt)
	}
	v.move(dt)
	v.refresh()
	v.tracef("new turn %v, ended %v, braking %v (target %.2f), waiting %v, speed %.2f, ahead %d at %.2fm",
		step.newTurn, step.ended, v.braking, ac.TargetV, v.waitingForStop, v.speed, v.closestVehicleID, v.closestVehicleDist)
}

// accelerate 加速，不超过车型最高速度
func (v *Vehicle) accelerate(dt float64) {
	v.speed = math.Min(v.class.MaxSpeed(), v.speed+v.class.Acceleration()*dt)
}

// brake 以车型制动减速度减速，不低于目标速度
func (v *Vehicle) brake(target, dt float64) {
	v.braking = true
	v.speed = math.Max(math.Max(target, 0), v.speed-v.class.BrakeDeceleration()*dt)
}

// move 沿当前朝向前进speed*dt
func (v *Vehicle) move(dt float64) {
	d := v.speed * dt
	v.pos = geometry.Forward(v.pos, v.heading, geometry.MetersToPixels(d))
	v.trip.Distance += d
	v.trip.MaxSpeed = math.Max(v.trip.MaxSpeed, v.speed)
}

// refresh 重新计算车头位置与瓦片缓存
func (v *Vehicle) refresh() {
	net := v.ctx.Network()
	v.front = geometry.Forward(v.pos, v.heading, v.length/2)
	v.locationTile = net.TileOf(v.pos)
	v.directionTile = net.AdjacentTileInHeading(v.locationTile, v.heading)
	v.collisionTile = net.TileIndex(v.obs.segment2)
}

// tileCoincidence 瓦片是否为本车所在瓦片，或前方瓦片（collision为true时为观测路径末端瓦片）
func (v *Vehicle) tileCoincidence(tile int32, collision bool) bool {
	if v.locationTile == tile {
		return true
	}
	if collision {
		return v.collisionTile == tile
	}
	return v.directionTile == tile
}

// sharesTile 两车是否处在同一瓦片或互为前方瓦片
func (v *Vehicle) sharesTile(o *Vehicle) bool {
	return v.tileCoincidence(o.locationTile, false) || o.tileCoincidence(v.locationTile, false)
}

// overlaps 车身是否重叠：两车中心距离小于两车半宽之和
func (v *Vehicle) overlaps(o *Vehicle) bool {
	return geometry.Distance(v.pos, o.pos) < v.width/2+o.width/2
}

// body 车身矩形，车身尺寸退化时返回错误
func (v *Vehicle) body() (geom.Polygon, error) {
	c, s := math.Cos(v.heading), math.Sin(v.heading)
	f := geometry.Point{X: c, Y: -s}.Scale(v.length / 2)
	side := geometry.Point{X: s, Y: c}.Scale(v.width / 2)
	corners := []geometry.Point{
		v.pos.Add(f).Add(side),
		v.pos.Add(f).Sub(side),
		v.pos.Sub(f).Sub(side),
		v.pos.Sub(f).Add(side),
	}
	corners = append(corners, corners[0])
	flat := lo.FlatMap(corners, func(p geometry.Point, _ int) []float64 {
		return []float64{p.X, p.Y}
	})
	ring, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("vehicle %d body ring: %w", v.id, err)
	}
	return geom.NewPolygon([]geom.LineString{ring})
}

// touches 车身是否与任一线段相交，车身退化时视为不相交
func (v *Vehicle) touches(lines []geom.LineString) bool {
	body, err := v.body()
	if err != nil {
		log.Warnf("vehicle %d has no valid body (%.2fx%.2f px): %v", v.id, v.length, v.width, err)
		return false
	}
	g := body.AsGeometry()
	return lo.SomeBy(lines, func(l geom.LineString) bool {
		return geom.Intersects(g, l.AsGeometry())
	})
}

// outside 是否驶出地图，x方向允许tolerance像素的越界
func (v *Vehicle) outside(width, height, tolerance float64) bool {
	return v.pos.X < -tolerance || v.pos.X > width+tolerance || v.pos.Y < 0 || v.pos.Y > height
}

// Snapshot 车辆的只读快照
func (v *Vehicle) Snapshot() entity.VehicleSnapshot {
	return entity.VehicleSnapshot{
		ID:             v.id,
		Class:          v.class.String(),
		Position:       v.pos,
		Heading:        v.heading,
		Speed:          v.speed,
		Length:         v.length,
		Width:          v.width,
		Braking:        v.braking,
		Turning:        v.Turning(),
		WaitingForStop: v.waitingForStop,
		Colliding:      append([]int32{}, v.colliding...),
	}
}
