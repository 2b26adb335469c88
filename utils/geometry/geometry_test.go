package geometry_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
)

const eps = 1e-9

func deg(d float64) float64 {
	return d * math.Pi / 180
}

func TestCorrectRadian(t *testing.T) {
	for _, a := range []float64{-100, -2 * math.Pi, -1e-17, 0, 1, math.Pi, 2 * math.Pi, 7.5, 1000.25} {
		r := geometry.CorrectRadian(a)
		assert.GreaterOrEqual(t, r, 0.0, "a=%v", a)
		assert.Less(t, r, 2*math.Pi, "a=%v", a)
		assert.InDelta(t, r, geometry.CorrectRadian(a+2*math.Pi), 1e-9, "a=%v", a)
	}
	assert.InDelta(t, 3*math.Pi/2, geometry.CorrectRadian(-math.Pi/2), eps)
}

func TestClosestAngularDistance(t *testing.T) {
	// 顺时针：运动角减静止角
	assert.InDelta(t, deg(5), geometry.ClosestAngularDistance(0, deg(5), geometry.Clockwise), eps)
	assert.InDelta(t, deg(-85), geometry.ClosestAngularDistance(deg(90), deg(5), geometry.Clockwise), eps)
	// 2π处的静止角按0处理
	assert.InDelta(t, deg(5), geometry.ClosestAngularDistance(2*math.Pi, deg(5), geometry.Clockwise), eps)
	// 逆时针：静止角为0时按2π处理
	assert.InDelta(t, deg(5), geometry.ClosestAngularDistance(0, deg(355), geometry.Counterclockwise), eps)
	// 跨越回绕的结果落在(-π, π]
	assert.InDelta(t, deg(7), geometry.ClosestAngularDistance(deg(355), deg(2), geometry.Clockwise), eps)
	assert.InDelta(t, deg(-100), geometry.ClosestAngularDistance(deg(90), deg(350), geometry.Clockwise), eps)
	assert.Equal(t, 0.0, geometry.ClosestAngularDistance(1, 2, geometry.Normal))
}

func TestAngleInBetween(t *testing.T) {
	// 从π/2顺时针到0的圆弧即第一象限
	assert.True(t, geometry.AngleInBetween(math.Pi/2, 0, deg(45)))
	assert.False(t, geometry.AngleInBetween(math.Pi/2, 0, deg(135)))
	// 从0顺时针到π/2是剩下的3/4圆
	assert.True(t, geometry.AngleInBetween(0, math.Pi/2, deg(180)))
	assert.False(t, geometry.AngleInBetween(0, math.Pi/2, deg(45)))

	// 无论输入顺序，SmallSpan都选择较短的圆弧
	assert.True(t, geometry.AngleInBetweenOrdered(deg(80), deg(100), deg(90), geometry.SmallSpan))
	assert.True(t, geometry.AngleInBetweenOrdered(deg(100), deg(80), deg(90), geometry.SmallSpan))
	assert.False(t, geometry.AngleInBetweenOrdered(deg(100), deg(80), deg(270), geometry.SmallSpan))
	assert.True(t, geometry.AngleInBetweenOrdered(deg(100), deg(80), deg(270), geometry.BigSpan))
	// 跨越0的较短圆弧
	assert.True(t, geometry.AngleInBetweenOrdered(deg(350), deg(10), 0, geometry.SmallSpan))
}

func TestMovementRotationalDirectionConsistentAcrossQuadrants(t *testing.T) {
	// 物体绕中心逆时针（数学角度增加）运动时，每个象限得到同一个方向标记
	for _, b := range []float64{0, 30, 90, 120, 180, 200, 270, 300, 359} {
		bearing := deg(b)
		dir, tangent := geometry.MovementRotationalDirection(bearing, bearing+math.Pi/2)
		assert.Equal(t, geometry.Clockwise, dir, "bearing=%v", b)
		assert.InDelta(t, 1.0, tangent.Length2D(), 1e-9)

		dir, _ = geometry.MovementRotationalDirection(bearing, bearing-math.Pi/2)
		assert.Equal(t, geometry.Counterclockwise, dir, "bearing=%v", b)

		dir, _ = geometry.MovementRotationalDirection(bearing, bearing)
		assert.Equal(t, geometry.Normal, dir, "bearing=%v", b)
	}
}

func TestMovementRotationalDirectionAtQuadrantBorder(t *testing.T) {
	// 由屏幕坐标计算得到的270°可能略小于3π/2
	bearing := geometry.AnglePointToPoint(geometry.Point{X: 50, Y: 50}, geometry.Point{X: 50, Y: 80})
	dir, _ := geometry.MovementRotationalDirection(bearing, math.Pi)
	assert.Equal(t, geometry.Counterclockwise, dir)
	dir, _ = geometry.MovementRotationalDirection(3*math.Pi/2-1e-13, math.Pi)
	assert.Equal(t, geometry.Counterclockwise, dir)
	dir, _ = geometry.MovementRotationalDirection(math.Pi/2-1e-13, 0)
	assert.Equal(t, geometry.Counterclockwise, dir)
}

func TestRotateAround(t *testing.T) {
	c := geometry.Point{X: 100, Y: 100}
	p := geometry.Point{X: 110, Y: 100}
	// 屏幕坐标下数学逆时针旋转90度，点移动到中心正上方
	q := geometry.RotateAround(c, p, math.Pi/2, geometry.Counterclockwise)
	assert.InDelta(t, 100, q.X, 1e-9)
	assert.InDelta(t, 90, q.Y, 1e-9)
	q = geometry.RotateAround(c, p, math.Pi/2, geometry.Clockwise)
	assert.InDelta(t, 100, q.X, 1e-9)
	assert.InDelta(t, 110, q.Y, 1e-9)
	assert.Equal(t, p, geometry.RotateAround(c, p, 1, geometry.Normal))
}

func TestAnglePointToPoint(t *testing.T) {
	o := geometry.Point{X: 0, Y: 0}
	assert.InDelta(t, 0, geometry.AnglePointToPoint(o, geometry.Point{X: 1, Y: 0}), eps)
	// 屏幕上方是数学角度π/2
	assert.InDelta(t, math.Pi/2, geometry.AnglePointToPoint(o, geometry.Point{X: 0, Y: -1}), eps)
	assert.InDelta(t, 3*math.Pi/2, geometry.AnglePointToPoint(o, geometry.Point{X: 0, Y: 1}), eps)
}

func TestDistances(t *testing.T) {
	a := geometry.Point{X: 0, Y: 0}
	b := geometry.Point{X: 10, Y: 0}
	assert.InDelta(t, 5, geometry.Distance(geometry.Point{X: 3, Y: 4}, a), eps)
	assert.InDelta(t, 3, geometry.DistanceToLine(geometry.Point{X: 20, Y: 3}, a, b), eps)
	assert.InDelta(t, 5, geometry.DistanceToSegment(geometry.Point{X: 14, Y: 3}, a, b), eps)
	assert.InDelta(t, 3, geometry.DistanceToSegment(geometry.Point{X: 4, Y: 3}, a, b), eps)
	// 退化线段
	assert.InDelta(t, 5, geometry.DistanceToSegment(geometry.Point{X: 3, Y: 4}, a, a), eps)
	assert.InDelta(t, 5, geometry.DistanceToLine(geometry.Point{X: 3, Y: 4}, a, a), eps)
}

func TestFindIntersection(t *testing.T) {
	p, ok := geometry.FindIntersection(
		geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 10, Y: 10}},
		geometry.Segment{Start: geometry.Point{X: 0, Y: 10}, End: geometry.Point{X: 10, Y: 0}},
	)
	assert.True(t, ok)
	assert.InDelta(t, 5, p.X, eps)
	assert.InDelta(t, 5, p.Y, eps)

	_, ok = geometry.FindIntersection(
		geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 1, Y: 1}},
		geometry.Segment{Start: geometry.Point{X: 0, Y: 10}, End: geometry.Point{X: 10, Y: 0}},
	)
	assert.False(t, ok)

	// 共线重叠
	p, ok = geometry.FindIntersection(
		geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 10, Y: 0}},
		geometry.Segment{Start: geometry.Point{X: 5, Y: 0}, End: geometry.Point{X: 15, Y: 0}},
	)
	assert.True(t, ok)
	assert.Equal(t, geometry.Point{X: 5, Y: 0}, p)

	// 平行不相交
	_, ok = geometry.FindIntersection(
		geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 10, Y: 0}},
		geometry.Segment{Start: geometry.Point{X: 0, Y: 1}, End: geometry.Point{X: 10, Y: 1}},
	)
	assert.False(t, ok)

	// 共线但不重叠
	_, ok = geometry.FindIntersection(
		geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 10, Y: 0}},
		geometry.Segment{Start: geometry.Point{X: 11, Y: 0}, End: geometry.Point{X: 20, Y: 0}},
	)
	assert.False(t, ok)

	// 端点相接
	p, ok = geometry.FindIntersection(
		geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 10, Y: 0}},
		geometry.Segment{Start: geometry.Point{X: 10, Y: 0}, End: geometry.Point{X: 10, Y: 10}},
	)
	assert.True(t, ok)
	assert.InDelta(t, 10, p.X, eps)
	assert.InDelta(t, 0, p.Y, eps)
}

func TestForward(t *testing.T) {
	p := geometry.Forward(geometry.Point{X: 10, Y: 10}, math.Pi/2, 5)
	assert.InDelta(t, 10, p.X, eps)
	assert.InDelta(t, 5, p.Y, eps)
	assert.Zero(t, p.Z)
	s := geometry.Segment{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 3, Y: 4}}
	assert.InDelta(t, 5, geometry.SegmentLength(s), eps)
}

func TestSectorBorderLines(t *testing.T) {
	first, second := geometry.SectorBorderLines(geometry.Point{X: 50, Y: 50}, 0, math.Pi/2, 10, 20)
	assert.InDelta(t, 60, first.Start.X, eps)
	assert.InDelta(t, 70, first.End.X, eps)
	assert.InDelta(t, 40, second.Start.Y, eps)
	assert.InDelta(t, 30, second.End.Y, eps)
}

func TestHelpers(t *testing.T) {
	assert.InDelta(t, 10, geometry.PixelsToMeters(50), eps)
	assert.InDelta(t, 50, geometry.MetersToPixels(10), eps)
	assert.InDelta(t, 0, geometry.PercentageDifference(3, 3), eps)
	assert.InDelta(t, 40, geometry.PercentageDifference(4, 6), eps)
	p := geometry.ChangeDistance(geometry.Point{}, geometry.Point{X: 3, Y: 4}, 10)
	assert.InDelta(t, 6, p.X, eps)
	assert.InDelta(t, 8, p.Y, eps)
	assert.InDelta(t, math.Pi/2, geometry.AngleDifference(0, 3*math.Pi/2), eps)
}
