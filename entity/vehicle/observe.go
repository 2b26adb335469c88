package vehicle

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/randengine"
)

// obsStatus 前向观测路径的构建状态
type obsStatus int32

const (
	obsIdle        obsStatus = iota // 附近没有转弯，观测路径为直线
	obsPinned                       // 刚锁定前方转弯的边界交点
	obsApproaching                  // 驶向锁定的转弯
	obsEntered                      // 刚进入转弯
	obsTurning                      // 转弯中
)

func (s obsStatus) String() string {
	switch s {
	case obsIdle:
		return "idle"
	case obsPinned:
		return "pinned"
	case obsApproaching:
		return "approaching"
	case obsEntered:
		return "entered"
	case obsTurning:
		return "turning"
	}
	return "unknown"
}

// observation 前向观测路径
// 说明：路径由三段组成：车辆位置到segment1的直线段，绕转弯圆心从segment1扫过arc到arcEnd的圆弧，
// 以及从arcEnd沿出弯朝向到segment2的尾随直线段（trailing为true时存在）
type observation struct {
	status    obsStatus
	turnID    int32          // 锁定或正在转的转弯，-1表示无
	turnPoint geometry.Point // 锁定时观测线与转弯边界的交点
	end       geometry.Point // 无转弯时的直线观测终点

	segment1     geometry.Point
	startBearing float64                   // 圆心到segment1的方位角
	direction    geometry.TurningDirection // 沿路径前进时方位角的变化方向：Clockwise减小，Counterclockwise增大
	arc          float64                   // 圆弧扫过的角度
	radius       float64                   // 圆弧半径（像素）
	arcEnd       geometry.Point
	segment2     geometry.Point
	trailing     bool
}

func newObservation(pos geometry.Point) observation {
	return observation{
		turnID:    -1,
		direction: geometry.Normal,
		turnPoint: pos,
		end:       pos,
		segment1:  pos,
		arcEnd:    pos,
		segment2:  pos,
	}
}

// reset 回到无转弯状态
func (o *observation) reset() {
	o.status = obsIdle
	o.turnID = -1
}

// straight 观测路径只有一条到end的直线段
func (o *observation) straight(end geometry.Point) {
	o.end = end
	o.segment1 = end
	o.direction = geometry.Normal
	o.arc = 0
	o.radius = 0
	o.arcEnd = end
	o.segment2 = end
	o.trailing = false
}

// inArc 方位角是否落在扫过的圆弧上，或越过圆弧远端不超过tolerance
func (o *observation) inArc(bearing, tolerance float64) bool {
	switch o.direction {
	case geometry.Clockwise:
		far := geometry.CorrectRadian(o.startBearing - o.arc)
		return geometry.AngleInBetween(o.startBearing, far, bearing) ||
			geometry.AngleInBetween(far, geometry.CorrectRadian(far-tolerance), bearing)
	case geometry.Counterclockwise:
		far := geometry.CorrectRadian(o.startBearing + o.arc)
		return geometry.AngleInBetween(far, o.startBearing, bearing) ||
			geometry.AngleInBetween(geometry.CorrectRadian(far+tolerance), far, bearing)
	case geometry.Normal:
	}
	return false
}

// observe 前向观测
// 功能：构建观测路径并找出路径上最近的车辆
// 返回：最近前车与沿路径的距离（米），没有时返回nil与-1
func (v *Vehicle) observe() (*Vehicle, float64) {
	v.buildObservationPath()
	ahead, distance := v.nearestObstacle()
	if ahead == nil {
		v.closestVehicleID = -1
		v.closestVehicleDist = -1
		return nil, -1
	}
	v.closestVehicleID = ahead.id
	v.closestVehicleDist = distance
	return ahead, distance
}

// buildObservationPath 构建观测路径
// 功能：按状态机维护观测路径，总长度为观测距离加半个车长
// 算法说明：
// 1. 跳过转弯期间：直线路径，状态回到idle
// 2. 转弯中：entered→turning，路径从车辆当前位置开始，沿剩余扇区绕行，剩余长度足够时接出弯直线段
// 3. 出弯当步（turning且不再转弯）：状态回到idle，本步不搜索转弯
// 4. idle：沿朝向的直线与所在/前方瓦片中转弯边界求交，命中时选择转弯（或跳过），选中则锁定交点
// 5. 锁定后：pinned→approaching，路径为到交点的直线段加完整扇区圆弧，剩余长度足够时接出弯直线段
// 说明：状态与导航不一致时（例如驶过锁定的转弯却没有转弯）以导航为准修正状态，并输出调试日志
func (v *Vehicle) buildObservationPath() {
	o := &v.obs
	b := v.ctx.RuntimeConfig().B
	reach := geometry.MetersToPixels(b.ObservationDistance) + v.length/2
	straightEnd := geometry.Forward(v.pos, v.heading, reach)

	if v.nav.skipping {
		if o.status != obsIdle {
			v.desync("skipping turn")
		}
		o.reset()
		o.straight(straightEnd)
		return
	}

	if v.nav.turning {
		switch o.status {
		case obsIdle, obsPinned:
			v.desync("turning without pinned approach")
			o.status = obsEntered
		case obsApproaching:
			o.status = obsEntered
		case obsEntered, obsTurning:
			o.status = obsTurning
		}
		o.turnID = v.nav.turnID
		v.projectTurn(v.pos, reach, false)
		return
	}

	switch o.status {
	case obsTurning:
		o.reset()
		o.straight(straightEnd)
		return
	case obsEntered:
		v.desync("left turn before turning")
		o.reset()
	case obsIdle, obsPinned, obsApproaching:
	}

	if o.status == obsIdle && !v.pinTurn(straightEnd) {
		o.straight(straightEnd)
		return
	}

	switch o.status {
	case obsIdle:
		o.status = obsPinned
	case obsPinned, obsApproaching:
		o.status = obsApproaching
	}
	toPoint := o.turnPoint.Sub(v.pos)
	remaining := reach - toPoint.Length2D()
	if toPoint.Dot2D(geometry.Point{X: math.Cos(v.heading), Y: -math.Sin(v.heading)}) < 0 || remaining <= 0 {
		v.desync("passed pinned turn without turning")
		o.reset()
		o.straight(straightEnd)
		return
	}
	v.projectTurn(o.turnPoint, remaining, true)
}

// pinTurn 在idle状态下搜索前方转弯并做出转弯选择
// 返回：是否锁定了转弯
// 说明：选择结果记录为导航的转弯意图，进入转弯时导航沿用该选择
func (v *Vehicle) pinTurn(end geometry.Point) bool {
	o := &v.obs
	n := &v.nav
	net := v.ctx.Network()
	b := v.ctx.RuntimeConfig().B

	ids, points := net.ClosestCollisionTurns(
		geometry.Segment{Start: v.pos, End: end}, b.TurnCollisionTolerance, v.locationTile, v.directionTile,
	)
	if len(ids) == 0 {
		n.intent = turnIntent{}
		return false
	}
	candidates := lo.Uniq(ids)
	if n.intent.valid && n.intent.skip && len(lo.Intersect(candidates, n.intent.candidates)) > 0 {
		return false
	}

	rng := v.ctx.Generator()
	skippable := lo.Filter(candidates, func(id int32, _ int) bool {
		return net.Turn(id).CanSkip
	})
	if b.Turning && len(skippable) > 0 && rng.CoinFlip() {
		n.intent = turnIntent{valid: true, skip: true, turnID: -1, candidates: candidates}
		v.tracef("observation: skip intent for turns %v", candidates)
		return false
	}
	chosen := randengine.Choice(rng, candidates)
	n.intent = turnIntent{valid: true, turnID: chosen, candidates: candidates}
	o.turnID = chosen
	o.turnPoint = points[lo.IndexOf(ids, chosen)]
	v.tracef("observation: pinned turn %d at %+v", chosen, o.turnPoint)
	return true
}

// projectTurn 从start开始沿转弯投影观测路径
// 参数：start-圆弧起点，remaining-从start起剩余的路径长度（像素），full-是否按完整扇区投影（否则按剩余扇区）
func (v *Vehicle) projectTurn(start geometry.Point, remaining float64, full bool) {
	o := &v.obs
	turn := v.ctx.Network().Turn(o.turnID)

	o.segment1 = start
	o.startBearing = geometry.AnglePointToPoint(turn.Center, start)
	o.direction, _ = geometry.MovementRotationalDirection(o.startBearing, v.heading+math.Pi)
	o.radius = geometry.Distance(turn.Center, start)

	angle := turn.Span
	if !full {
		angle = math.Max(turn.AngleLeft(o.startBearing, o.direction), 0)
	}
	if o.radius < geometry.MinLength {
		angle = 0
	}
	o.arc = angle
	o.trailing = false
	if arcLength := angle * o.radius; arcLength < remaining {
		remaining -= arcLength
		o.trailing = true
	} else {
		o.arc = remaining / o.radius
	}
	o.arcEnd = geometry.RotateAround(turn.Center, start, o.arc, o.direction)
	o.segment2 = o.arcEnd
	if o.trailing {
		o.segment2 = geometry.Forward(o.arcEnd, o.exitHeading(v.heading), remaining)
	}
	v.tracef("observation %v: turn %d, direction %v, arc %.4f, radius %.2f, trailing %v",
		o.status, o.turnID, o.direction, o.arc, o.radius, o.trailing)
}

// exitHeading 沿圆弧走完后的朝向
func (o *observation) exitHeading(heading float64) float64 {
	switch o.direction {
	case geometry.Counterclockwise:
		return geometry.CorrectRadian(heading + o.arc)
	case geometry.Clockwise:
		return geometry.CorrectRadian(heading - o.arc)
	case geometry.Normal:
	}
	return heading
}

func (v *Vehicle) desync(reason string) {
	log.WithField("vehicle", v.id).Debugf("observation %v (turn %d): %s, nav turning %v turn %d",
		v.obs.status, v.obs.turnID, reason, v.nav.turning, v.nav.turnID)
}

// nearestObstacle 观测路径上最近的车辆
// 功能：依次在第一直线段、圆弧、尾随直线段上搜索，前一阶段有结果时不再进行后续阶段
// 返回：最近的车辆与沿路径的距离（米），没有车辆时距离为INF
// 算法说明：
// 1. 直线段：所在或前方瓦片中、位于车辆前方且到线段距离不超过检测范围的车辆，距离取直线距离
// 2. 圆弧：到圆心距离在半径±检测范围内，方位角在扫过的圆弧上（或越过远端不超过检测范围对应的角度）的车辆，
// 距离为直线段长度加弧长
// 3. 尾随直线段：所在瓦片或观测末端瓦片中到线段距离不超过检测范围的车辆，距离为直线段长度加弧长加到弧终点的距离
func (v *Vehicle) nearestObstacle() (closest *Vehicle, best float64) {
	o := &v.obs
	detection := geometry.MetersToPixels(v.ctx.RuntimeConfig().B.DetectionRange)
	best = mathutil.INF
	consider := func(other *Vehicle, px float64) {
		if d := geometry.PixelsToMeters(px); d < best {
			closest, best = other, d
		}
	}
	others := lo.Filter(v.m.vehicles.Data(), func(other *Vehicle, _ int) bool {
		return other != v
	})

	first := o.segment1.Sub(v.pos)
	firstLen := first.Length2D()
	if firstLen >= geometry.MinLength {
		for _, other := range others {
			if !v.tileCoincidence(other.locationTile, false) || other.pos.Sub(v.pos).Dot2D(first) < 0 {
				continue
			}
			if geometry.DistanceToSegment(other.pos, v.pos, o.segment1) <= detection {
				consider(other, geometry.Distance(v.pos, other.pos))
			}
		}
	}
	if closest != nil || o.turnID < 0 {
		return
	}

	if o.arc > 0 {
		turn := v.ctx.Network().Turn(o.turnID)
		tolerance := detection / o.radius
		inner, outer := math.Max(0, o.radius-detection), o.radius+detection
		for _, other := range others {
			if !v.tileCoincidence(other.locationTile, false) {
				continue
			}
			if r := geometry.Distance(turn.Center, other.pos); r <= inner || r >= outer {
				continue
			}
			bearing := geometry.AnglePointToPoint(turn.Center, other.pos)
			if o.inArc(bearing, tolerance) {
				consider(other, firstLen+geometry.AngleDifference(bearing, o.startBearing)*o.radius)
			}
		}
	}
	if closest != nil || !o.trailing {
		return
	}

	arcLength := o.arc * o.radius
	for _, other := range others {
		if !v.tileCoincidence(other.locationTile, true) {
			continue
		}
		if geometry.DistanceToSegment(other.pos, o.arcEnd, o.segment2) <= detection {
			consider(other, firstLen+arcLength+geometry.Distance(o.arcEnd, other.pos))
		}
	}
	return
}
