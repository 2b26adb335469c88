package vehicle

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/entity/network"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/randengine"
)

// minTurnRadius 计算转弯角速度时半径的下限（米）
const minTurnRadius = 0.1

// turnIntent 前向观测阶段提前做出的转弯选择
type turnIntent struct {
	valid      bool
	skip       bool    // 是否跳过
	turnID     int32   // 不跳过时选中的转弯
	candidates []int32 // 做选择时的候选转弯
}

// navigation 转弯导航状态
type navigation struct {
	turning    bool  // 本步是否绕转弯圆心旋转
	turnID     int32 // 正在转的弯，不在转弯中时为-1
	skipping   bool  // 正在跳过转弯
	skipTurnID int32 // 被跳过的转弯，-1表示无

	direction geometry.TurningDirection // 当前相对圆心的旋转方向

	// 进入转弯时的快照，用于出弯修正
	entryHeading   float64
	entryDirection geometry.TurningDirection
	entryRadius    float64 // 像素

	// 最近一次出弯修正的偏差百分比
	angleError    float64
	distanceError float64

	intent turnIntent
}

func newNavigation() navigation {
	return navigation{
		turnID:         -1,
		skipTurnID:     -1,
		direction:      geometry.Normal,
		entryDirection: geometry.Normal,
	}
}

// navStep 本步导航结果
type navStep struct {
	newTurn bool // 本步处于转弯区并参与转弯（包括跳过）
	started bool // 本步开始转弯
	ended   bool // 本步结束转弯
}

// navigate 转弯导航
// 功能：检测车辆所在的转弯区，决定是否转弯、转哪个弯，并执行旋转与出弯修正
// 参数：dt-时间步长（秒）
// 返回：本步导航结果
// 算法说明：
// 1. 查询包含车辆位置的转弯；命中多个转弯属于配置错误，记录后继续使用全部结果
// 2. 若上一步正在转的弯或正在跳过的弯仍被检测到，则延续；否则对检测到的转弯做进入判定并选择
// 3. 处于转弯区且未跳过：绕圆心旋转，首步记录进入时的朝向、方向与半径
// 4. 上一步在转弯而本步不再延续：执行出弯修正并清除转弯ID；若本步紧接着进入另一个转弯，先修正旧弯再开始新弯
// 5. 检测不到任何转弯时清除跳过状态
func (v *Vehicle) navigate(dt float64) (s navStep) {
	net := v.ctx.Network()
	b := v.ctx.RuntimeConfig().B
	n := &v.nav

	lastTurning := n.turning
	lastTurnID := n.turnID
	n.turning = false

	detected, err := net.TurnsCrossed(v.locationTile, v.pos)
	if err != nil {
		log.WithField("vehicle", v.id).Error(err)
		v.m.reportConfigError()
	}
	continuing := lastTurning && lo.Contains(detected, lastTurnID)
	skipped := n.skipping && lo.Contains(detected, n.skipTurnID)

	entered := []int32{}
	if b.Turning && len(detected) > 0 && !continuing && !skipped {
		entered = lo.Filter(detected, func(id int32, _ int) bool {
			return v.enteringTurn(id, b.TurnAngleTolerance)
		})
		if len(entered) > 0 {
			v.chooseTurn(entered)
		}
	}
	s.newTurn = b.Turning && len(detected) > 0 && (len(entered) > 0 || continuing || skipped)

	if s.newTurn && !n.skipping {
		if lastTurning && n.turnID != lastTurnID {
			// 连续转弯
			v.exitTurn(lastTurnID)
			s.ended = true
		}
		s.started = !lastTurning || n.turnID != lastTurnID
		v.rotateAroundTurn(net.Turn(n.turnID), dt, s.started)
	} else if lastTurning {
		v.exitTurn(lastTurnID)
		n.turnID = -1
		s.ended = true
	}

	if len(detected) == 0 {
		n.skipping = false
		n.skipTurnID = -1
	}
	v.tracef("detected turns %v, entered %v, turn %d, started %v, ended %v, skipping %v",
		detected, entered, n.turnID, s.started, s.ended, n.skipping)
	return
}

// enteringTurn 车辆是否正在进入转弯
func (v *Vehicle) enteringTurn(turnID int32, tolerance float64) bool {
	net := v.ctx.Network()
	turn := net.Turn(turnID)
	bearing := geometry.AnglePointToPoint(turn.Center, v.pos)
	dir, _ := geometry.MovementRotationalDirection(bearing, v.heading)
	ok := net.TurnEntryTest(turnID, v.pos, dir, tolerance)
	v.tracef("entry test turn %d: bearing %.4f, direction %v, result %v", turnID, bearing, dir, ok)
	return ok
}

// chooseTurn 在进入的转弯中做出选择
// 功能：优先沿用前向观测阶段的选择，使观测路径与实际行驶路径一致；否则抛硬币决定是否跳过，再等概率选择转弯
// 参数：entered-正在进入的转弯
// 说明：只有存在可跳过的转弯时才可能跳过；前向观测的选择只对与其候选集有交集的转弯生效
func (v *Vehicle) chooseTurn(entered []int32) {
	n := &v.nav
	net := v.ctx.Network()
	skippable := lo.Filter(entered, func(id int32, _ int) bool {
		return net.Turn(id).CanSkip
	})
	intent := n.intent
	n.intent = turnIntent{}
	if intent.valid && len(lo.Intersect(entered, intent.candidates)) > 0 {
		if intent.skip && len(skippable) > 0 {
			n.skip(skippable[0])
			return
		}
		if !intent.skip && lo.Contains(entered, intent.turnID) {
			n.take(intent.turnID)
			return
		}
	}
	rng := v.ctx.Generator()
	if len(skippable) > 0 && rng.CoinFlip() {
		n.skip(skippable[0])
	} else {
		n.take(randengine.Choice(rng, entered))
	}
}

func (n *navigation) skip(turnID int32) {
	n.skipping = true
	n.skipTurnID = turnID
}

func (n *navigation) take(turnID int32) {
	n.skipping = false
	n.skipTurnID = -1
	n.turnID = turnID
}

// rotateAroundTurn 绕转弯圆心旋转朝向
// 功能：以角速度 speed/radius 按相对圆心的旋转方向改变朝向，位置由随后的move沿新朝向积分
// 参数：turn-转弯，dt-时间步长（秒），first-是否为进入转弯的第一步
func (v *Vehicle) rotateAroundTurn(turn *network.Turn, dt float64, first bool) {
	n := &v.nav
	n.turning = true
	bearing := geometry.AnglePointToPoint(turn.Center, v.pos)
	n.direction, _ = geometry.MovementRotationalDirection(bearing, v.heading)
	radius := geometry.Distance(turn.Center, v.pos)
	if first {
		n.entryHeading = v.heading
		n.entryDirection = n.direction
		n.entryRadius = radius
	}
	r := math.Max(geometry.PixelsToMeters(radius), minTurnRadius)
	v.heading = geometry.CorrectRadian(v.heading + n.direction.Sign()*v.speed/r*dt)
}

// exitTurn 出弯修正
func (v *Vehicle) exitTurn(turnID int32) {
	if turnID < 0 {
		return
	}
	n := &v.nav
	turn := v.ctx.Network().Turn(turnID)
	pos, heading := exitCorrection(turn, n.entryHeading, n.entryDirection, n.entryRadius, v.pos, v.heading)
	n.angleError = geometry.PercentageDifference(v.heading, heading)
	n.distanceError = geometry.PercentageDifference(v.pos.X+v.pos.Y, pos.X+pos.Y)
	log.WithField("vehicle", v.id).Debugf("exit turn %d: heading %.4f -> %.4f (%.2f%%), position %+v -> %+v (%.2f%%)",
		turnID, v.heading, heading, n.angleError, v.pos, pos, n.distanceError)
	v.pos = pos
	v.heading = heading
}

// exitCorrection 计算出弯时的理想位置与朝向
// 功能：消除离散积分在转弯中累积的误差
// 参数：turn-转弯，entryHeading/entryDirection/entryRadius-进入转弯时的朝向、旋转方向与半径，pos/heading-当前位置与朝向
// 返回：修正后的位置与朝向
// 算法说明：
// 1. 朝向：方位角增大方向（Clockwise）驶过整个扇区时朝向增加扇区角宽，反之减少；径向进入时保持当前朝向
// 2. 位置：保持相对圆心的方向，把到圆心的距离缩放为进入时的半径
// 说明：纯函数，相同输入得到相同输出
func exitCorrection(
	turn *network.Turn,
	entryHeading float64, entryDirection geometry.TurningDirection, entryRadius float64,
	pos geometry.Point, heading float64,
) (geometry.Point, float64) {
	switch entryDirection {
	case geometry.Clockwise:
		heading = geometry.CorrectRadian(entryHeading + turn.Span)
	case geometry.Counterclockwise:
		heading = geometry.CorrectRadian(entryHeading - turn.Span)
	case geometry.Normal:
	}
	return geometry.ChangeDistance(turn.Center, pos, entryRadius), heading
}
