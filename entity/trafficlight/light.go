package trafficlight

import (
	"fmt"

	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/input"
)

// Color 信号灯颜色
type Color int32

const (
	Red Color = iota
	Amber
	Green
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Amber:
		return "amber"
	case Green:
		return "green"
	}
	return fmt.Sprintf("Color(%d)", int32(c))
}

// ParseColor 解析颜色名
func ParseColor(s string) (Color, error) {
	switch s {
	case "red":
		return Red, nil
	case "amber":
		return Amber, nil
	case "green":
		return Green, nil
	}
	return Red, fmt.Errorf("unknown traffic light color %q", s)
}

// Light 三相位固定配时信号灯
// 功能：按 红→绿→黄→红 循环切换，每个相位持续配置的时长
// 说明：elapsed记录自上次切换以来的时间，达到当前相位时长时切换并清零
type Light struct {
	id       int32
	position geometry.Point

	durations [3]float64 // 按Color索引的相位时长（秒）

	color   Color
	elapsed float64
}

// newLight 根据描述创建信号灯
func newLight(desc input.TrafficLightDescription) (*Light, error) {
	color, err := ParseColor(desc.DefaultColor)
	if err != nil {
		return nil, fmt.Errorf("traffic light %d: %w", desc.ID, err)
	}
	if desc.TimeRed <= 0 || desc.TimeAmber <= 0 || desc.TimeGreen <= 0 {
		return nil, fmt.Errorf("traffic light %d: phase durations must be positive (red %v, amber %v, green %v)",
			desc.ID, desc.TimeRed, desc.TimeAmber, desc.TimeGreen)
	}
	if desc.DefaultTimeIn < 0 {
		return nil, fmt.Errorf("traffic light %d: default_time_in must not be negative", desc.ID)
	}
	l := &Light{
		id:       desc.ID,
		position: desc.Position,
		color:    color,
		elapsed:  desc.DefaultTimeIn,
	}
	l.durations[Red] = desc.TimeRed
	l.durations[Amber] = desc.TimeAmber
	l.durations[Green] = desc.TimeGreen
	return l, nil
}

// next 相位顺序
func next(c Color) Color {
	switch c {
	case Red:
		return Green
	case Green:
		return Amber
	case Amber:
		return Red
	}
	panic(fmt.Sprintf("trafficlight: invalid color %d", int32(c)))
}

// update 推进相位计时
// 说明：每次调用至多切换一个相位，切换后计时清零
func (l *Light) update(dt float64) {
	l.elapsed += dt
	if l.elapsed >= l.durations[l.color] {
		l.color = next(l.color)
		l.elapsed = 0
	}
}

func (l *Light) ID() int32 {
	return l.id
}

func (l *Light) Position() geometry.Point {
	return l.position
}

func (l *Light) Color() Color {
	return l.color
}

// Elapsed 当前相位已持续的时间（秒）
func (l *Light) Elapsed() float64 {
	return l.elapsed
}
