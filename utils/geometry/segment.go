package geometry

import (
	"math"

	fibgeo "git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
)

// Segment 线段，Start为起点，End为终点
type Segment = fibgeo.Line

// SegmentLength 线段长度
func SegmentLength(s Segment) float64 {
	return fibgeo.Distance2D(s.Start, s.End)
}

// FindIntersection 求两条线段的交点
// 功能：线段相交测试，补充处理共线重叠的情况
// 参数：a、b-两条线段
// 返回：交点，是否相交
// 算法说明：
// 1. 一般情况由GetLineIntersection求解
// 2. 两线段共线时，取落在另一线段上的第一个端点作为交点
func FindIntersection(a, b Segment) (Point, bool) {
	if p, n := fibgeo.GetLineIntersection(a, b); n > 0 {
		return p, true
	}
	if !collinear(a, b.Start) || !collinear(a, b.End) {
		return Point{}, false
	}
	for _, c := range []struct {
		line Segment
		p    Point
	}{{a, b.Start}, {a, b.End}, {b, a.Start}, {b, a.End}} {
		if onSegment(c.line, c.p) {
			return c.p, true
		}
	}
	return Point{}, false
}

// collinear p是否落在线段s所在直线上
func collinear(s Segment, p Point) bool {
	d := s.End.Sub(s.Start)
	l := d.Length2D()
	if l < MinLength {
		return fibgeo.Distance2D(s.Start, p) < mathutil.EPS
	}
	return math.Abs(fibgeo.Cross2D(d, p.Sub(s.Start)))/l < mathutil.EPS
}

// onSegment 已知p在s所在直线上时，判断p是否落在s上
func onSegment(s Segment, p Point) bool {
	l := SegmentLength(s)
	if l < MinLength {
		return fibgeo.Distance2D(s.Start, p) < mathutil.EPS
	}
	t := s.ProjectPointToS(p)
	return t >= -mathutil.EPS && t <= l+mathutil.EPS
}
