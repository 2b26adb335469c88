package geometry

import (
	"math"

	fibgeo "git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

const (
	// MapScale 每米对应的像素数
	MapScale = 5.0
	// MinLength 退化几何（零长度线段、零半径）时的替代长度（像素）
	MinLength = 1e-6
)

// PixelsToMeters 像素转米
func PixelsToMeters(px float64) float64 {
	return px / MapScale
}

// MetersToPixels 米转像素
func MetersToPixels(m float64) float64 {
	return m * MapScale
}

// Point 屏幕坐标系（x向右，y向下）中的点，单位为像素，Z恒为0
type Point = fibgeo.Point

// Forward 从p沿数学角度heading前进distance像素（屏幕y轴向下）
func Forward(p Point, heading, distance float64) Point {
	return Point{X: p.X + distance*math.Cos(heading), Y: p.Y - distance*math.Sin(heading)}
}

// Distance 两点间平面距离
func Distance(a, b Point) float64 {
	return fibgeo.Distance2D(a, b)
}

// DistanceToLine 点p到过a、b两点的直线的距离，a、b重合时退化为点到点距离
func DistanceToLine(p, a, b Point) float64 {
	l := fibgeo.Distance2D(a, b)
	if l < MinLength {
		return Distance(p, a)
	}
	return math.Abs(fibgeo.Cross2D(b.Sub(a), p.Sub(a))) / l
}

// DistanceToSegment 点p到线段ab的距离
// 算法说明：计算p在ab上的投影长度并截断到[0,|ab|]，再求p到投影点的距离
func DistanceToSegment(p, a, b Point) float64 {
	l := fibgeo.Distance2D(a, b)
	if l < MinLength {
		return Distance(p, a)
	}
	line := fibgeo.NewLine(a, b)
	s := lo.Clamp(line.ProjectPointToS(p), 0, l)
	return Distance(p, fibgeo.Blend(a, b, s/l))
}

// PointOnCircle 圆上给定数学角度处的屏幕坐标
func PointOnCircle(center Point, radius, angle float64) Point {
	return Point{X: center.X + radius*math.Cos(angle), Y: center.Y - radius*math.Sin(angle)}
}

// ChangeDistance 保持p相对origin的方向不变，将其距离缩放到distance
func ChangeDistance(origin, p Point, distance float64) Point {
	d := p.Sub(origin)
	l := d.Length2D()
	if l < MinLength {
		return p
	}
	return origin.Add(d.Scale(distance / l))
}

// SectorBorderLines 环形扇区的两条径向边界线段，分别位于first和second角度，从内半径延伸到外半径
func SectorBorderLines(center Point, first, second, minRadius, maxRadius float64) (Segment, Segment) {
	return fibgeo.NewLine(PointOnCircle(center, minRadius, first), PointOnCircle(center, maxRadius, first)),
		fibgeo.NewLine(PointOnCircle(center, minRadius, second), PointOnCircle(center, maxRadius, second))
}

// PercentageDifference a与b的相对差异百分比：|a-b| / ((a+b)/2) * 100
func PercentageDifference(a, b float64) float64 {
	avg := (a + b) / 2
	if math.Abs(avg) < MinLength {
		if math.Abs(a-b) < MinLength {
			return 0
		}
		return 100
	}
	return math.Abs(a-b) / math.Abs(avg) * 100
}
