package vehicle

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
)

// Action 车辆动作结构体
// 功能：描述车辆本步的速度控制，未制动时车辆加速
type Action struct {
	Brake          bool    // 是否制动
	TargetV        float64 // 制动目标速度（米/秒）
	WaitingForStop bool    // 制动是否源于停车线（直接或经由前车传递）
}

// Update 更新车辆动作
// 功能：采用取最小的方式合并制动目标速度，处理多个动作的冲突
// 参数：others-其他动作列表
func (a *Action) Update(others ...Action) {
	for _, o := range others {
		if !o.Brake {
			continue
		}
		if !a.Brake || o.TargetV < a.TargetV {
			*a = o
		}
	}
}

// BrakingDistance 以减速度decel从v0减速到v1所需的距离
// 参数：v0-当前速度（米/秒），v1-目标速度（米/秒），decel-减速度（米/秒²，正数）
// 返回：距离（米）
func BrakingDistance(v0, v1, decel float64) float64 {
	return (v1*v1 - v0*v0) / (-2 * decel)
}

// policyStop 停车线策略
// 功能：找出最近的可见停车线，红灯或黄灯时判断是否需要制动停车
// 返回：制动动作，不需要制动时Brake为false
// 算法说明：
// 1. 在所在瓦片与前方瓦片中找出视野内的停车线，取车头到停车线距离最小者
// 2. 信号灯为绿灯时不制动
// 3. 本步行驶距离加制动到0所需距离与停车余量不小于到停车线的距离时制动
func (v *Vehicle) policyStop(dt float64) (ac Action) {
	net := v.ctx.Network()
	b := v.ctx.RuntimeConfig().B
	v.closestStopID = -1
	v.closestStopDistance = -1

	stops := net.StopsVisible(v.front, v.heading, v.locationTile, v.directionTile)
	if len(stops) == 0 {
		return
	}
	distances := lo.SliceToMap(stops, func(id int32) (int32, float64) {
		return id, net.DistanceToStop(v.front, id)
	})
	v.closestStopID = lo.MinBy(stops, func(a, b int32) bool {
		return distances[a] < distances[b]
	})
	v.closestStopDistance = distances[v.closestStopID]

	if net.AbleToCross(v.closestStopID) {
		return
	}
	need := v.speed*dt + BrakingDistance(v.speed, 0, v.class.BrakeDeceleration()) + b.StopMargin
	v.tracef("stop %d at %.2fm, need %.2fm", v.closestStopID, v.closestStopDistance, need)
	if need >= v.closestStopDistance {
		ac = Action{Brake: true, TargetV: 0, WaitingForStop: true}
	}
	return
}

// policyFollow 跟车策略
// 功能：根据前向观测得到的最近前车判断是否需要减速到前车速度
// 参数：ahead-最近前车，distance-沿观测路径到前车的距离（米），dt-本步时间间隔（秒）
// 返回：制动动作，不需要制动时Brake为false
// 算法说明：
// 1. 前车的最近前车就是本车时互相等待，本车不制动，避免两车同时停住
// 2. 本步行驶距离加减速到前车速度所需距离、安全余量与半个车长不小于距离，且本车不慢于前车时制动
// 3. 前车的等待停车线状态传递给本车，使红灯前的车队一致排队
func (v *Vehicle) policyFollow(ahead *Vehicle, distance, dt float64) (ac Action) {
	if ahead.closestVehicleID == v.id {
		v.tracef("mutual wait with %d, not braking", ahead.id)
		return
	}
	b := v.ctx.RuntimeConfig().B
	need := v.speed*dt + BrakingDistance(v.speed, ahead.speed, v.class.BrakeDeceleration()) +
		b.SafetyMargin + geometry.PixelsToMeters(v.length)/2
	if need >= distance && v.speed >= ahead.speed {
		ac = Action{Brake: true, TargetV: ahead.speed, WaitingForStop: ahead.waitingForStop}
	}
	return
}
