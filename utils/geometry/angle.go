// 角度相关计算：所有角度均为数学坐标系下的弧度（x向右，y向上，逆时针为正）
package geometry

import (
	"fmt"
	"math"
)

const (
	TwoPi = 2 * math.Pi

	quadrantSnap = 1e-9
)

// TurningDirection 绕某中心点运动的旋转方向
// 说明：取值仅有三种，调用方必须显式处理全部三种情况
type TurningDirection int32

const (
	Clockwise        TurningDirection = iota + 1 // 顺时针
	Counterclockwise                             // 逆时针
	Normal                                       // 沿半径方向，无旋转分量
)

func (d TurningDirection) String() string {
	switch d {
	case Clockwise:
		return "Clockwise"
	case Counterclockwise:
		return "Counterclockwise"
	case Normal:
		return "Normal"
	}
	return fmt.Sprintf("TurningDirection(%d)", int32(d))
}

// Sign 旋转方向对应的角速度符号：顺时针+1，逆时针-1，径向0
func (d TurningDirection) Sign() float64 {
	switch d {
	case Clockwise:
		return 1
	case Counterclockwise:
		return -1
	case Normal:
		return 0
	}
	panic(fmt.Sprintf("geometry: invalid turning direction %d", int32(d)))
}

// Opposite 反向
func (d TurningDirection) Opposite() TurningDirection {
	switch d {
	case Clockwise:
		return Counterclockwise
	case Counterclockwise:
		return Clockwise
	case Normal:
		return Normal
	}
	panic(fmt.Sprintf("geometry: invalid turning direction %d", int32(d)))
}

// SpanSide 由两个角度确定圆弧时选择较短的一侧还是较长的一侧
type SpanSide int32

const (
	SmallSpan SpanSide = iota
	BigSpan
)

// CorrectRadian 将角度归一化到[0, 2π)
func CorrectRadian(a float64) float64 {
	m := math.Mod(a, TwoPi)
	if m < 0 {
		m += TwoPi
	}
	// 浮点误差可能得到恰好2π
	if m >= TwoPi {
		m = 0
	}
	return m
}

// wrapSigned 将角度差归一化到(-π, π]
func wrapSigned(diff float64) float64 {
	for diff > math.Pi {
		diff -= TwoPi
	}
	for diff <= -math.Pi {
		diff += TwoPi
	}
	return diff
}

// ClosestAngularDistance 运动角度到静止角度的有符号角距离
// 功能：以给定旋转方向解释movingAngle相对staticAngle的角距离
// 参数：staticAngle-静止角度，movingAngle-运动物体当前角度，direction-旋转方向
// 返回：(-π, π]内的角距离，正值表示正在接近静止角度，负值表示正在远离；径向运动返回0
// 算法说明：
// 1. 顺时针：静止角恰为2π而运动角不是时视为0，距离=运动角-静止角
// 2. 逆时针：静止角恰为0而运动角不是时视为2π，距离=静止角-运动角
// 3. 结果归一化到(-π, π]
func ClosestAngularDistance(staticAngle, movingAngle float64, direction TurningDirection) float64 {
	var diff float64
	switch direction {
	case Clockwise:
		if staticAngle == TwoPi && movingAngle != TwoPi {
			staticAngle = 0
		}
		diff = movingAngle - staticAngle
	case Counterclockwise:
		if staticAngle == 0 && movingAngle != 0 {
			staticAngle = TwoPi
		}
		diff = staticAngle - movingAngle
	case Normal:
		return 0
	}
	return wrapSigned(diff)
}

// AngleInBetween 判断angle是否位于从first顺时针走到second的圆弧内（含端点）
// 算法说明：将second与angle都相对first归一化到(0, 2π]，angle的逆时针偏移不小于second的逆时针偏移时，
// angle即落在顺时针从first到second的圆弧上
func AngleInBetween(first, second, angle float64) bool {
	end := second - first
	if end <= 0 {
		end += TwoPi
	}
	a := angle - first
	if a <= 0 {
		a += TwoPi
	}
	return a >= end
}

// OrderedAngles 调整两个角度的顺序，使得从first顺时针到second的圆弧为指定的一侧
func OrderedAngles(start, end float64, side SpanSide) (first, second float64) {
	ccwFromEnd := CorrectRadian(start - end)
	ccwFromStart := CorrectRadian(end - start)
	small := ccwFromEnd >= ccwFromStart
	switch side {
	case SmallSpan:
		if small {
			return end, start
		}
		return start, end
	case BigSpan:
		if small {
			return start, end
		}
		return end, start
	}
	panic(fmt.Sprintf("geometry: invalid span side %d", int32(side)))
}

// AngleInBetweenOrdered 先按side确定圆弧再判断angle是否在其中
func AngleInBetweenOrdered(start, end, angle float64, side SpanSide) bool {
	first, second := OrderedAngles(start, end, side)
	return AngleInBetween(first, second, angle)
}

// AngleDifference 两个角度之间不考虑方向的最小差值，范围[0, π]
func AngleDifference(a, b float64) float64 {
	return math.Abs(wrapSigned(a - b))
}

// MovementRotationalDirection 计算物体相对某中心点运动的旋转方向
// 功能：把物体朝向分解为沿半径方向和切向的分量，根据切向分量判断旋转方向
// 参数：bearing-从中心点指向物体的方位角，heading-物体朝向
// 返回：旋转方向，切向分量
// 算法说明：
// 1. 切向分量 = 朝向单位向量 - 其在方位向量上的投影
// 2. 按方位角所在象限选取参考轴：第一象限(0,1)，第二象限(1,0)，第三象限(0,-1)，第四象限(-1,0)
// 3. 计算 t.x*axis.x - t.y*axis.y，大于0为逆时针，小于0为顺时针，等于0为径向
// 说明：单一参考轴得到的符号在四个象限间不一致，必须按象限切换参考轴
func MovementRotationalDirection(bearing, heading float64) (TurningDirection, Point) {
	bearing = CorrectRadian(bearing)
	// 象限边界上的方位角因浮点误差落入前一象限时，前一象限的参考轴恰与切向分量垂直
	if q := math.Round(bearing / (math.Pi / 2)); math.Abs(bearing-q*(math.Pi/2)) < quadrantSnap {
		bearing = CorrectRadian(q * (math.Pi / 2))
	}
	b := Point{X: math.Cos(bearing), Y: math.Sin(bearing)}
	h := Point{X: math.Cos(heading), Y: math.Sin(heading)}
	t := TangentialComponent(b, h)

	var axis Point
	switch {
	case bearing < math.Pi/2:
		axis = Point{X: 0, Y: 1}
	case bearing < math.Pi:
		axis = Point{X: 1, Y: 0}
	case bearing < 3*math.Pi/2:
		axis = Point{X: 0, Y: -1}
	default:
		axis = Point{X: -1, Y: 0}
	}
	v := t.X*axis.X - t.Y*axis.Y
	// 消除数值误差带来的伪切向分量
	if math.Abs(v) < 1e-12 {
		return Normal, t
	}
	if v > 0 {
		return Counterclockwise, t
	}
	return Clockwise, t
}

// TangentialComponent v去掉其在radial方向上投影后的分量
func TangentialComponent(radial, v Point) Point {
	n := radial.Dot2D(radial)
	if n < MinLength*MinLength {
		return v
	}
	k := radial.Dot2D(v) / n
	return Point{X: v.X - k*radial.X, Y: v.Y - k*radial.Y}
}

// AnglePointToPoint 屏幕坐标系（y向下）中从origin看向far的方位角（数学角度）
func AnglePointToPoint(origin, far Point) float64 {
	return CorrectRadian(math.Atan2(origin.Y-far.Y, far.X-origin.X))
}

// RotatePoint 将以数学坐标系表示的相对向量(x, y)按指定方向旋转angle
func RotatePoint(x, y, angle float64, direction TurningDirection) (float64, float64) {
	c, s := math.Cos(angle), math.Sin(angle)
	switch direction {
	case Clockwise:
		return x*c + y*s, -x*s + y*c
	case Counterclockwise:
		return x*c - y*s, x*s + y*c
	case Normal:
		return x, y
	}
	panic(fmt.Sprintf("geometry: invalid turning direction %d", int32(direction)))
}

// RotateAround 屏幕坐标系中将点p绕center按方向旋转angle
func RotateAround(center, p Point, angle float64, direction TurningDirection) Point {
	x, y := RotatePoint(p.X-center.X, center.Y-p.Y, angle, direction)
	return Point{X: center.X + x, Y: center.Y - y}
}
