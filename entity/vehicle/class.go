package vehicle

import (
	"fmt"

	"github.com/samber/lo"
)

// Class 车型
type Class int32

const (
	SUV Class = iota
	Truck
	Bus
	Bike

	classCount
)

// classAttr 车型的固定属性
type classAttr struct {
	name              string
	maxSpeed          float64 // 千米/小时
	acceleration      float64 // 米/秒²
	brakeDeceleration float64 // 米/秒²
	length            float64 // 米
	width             float64 // 米
	spawnThreshold    float64 // 累积出生概率阈值，按车型顺序递增，最后一个为1
}

var classAttrs = [classCount]classAttr{
	SUV:   {name: "SUV", maxSpeed: 120, acceleration: 10, brakeDeceleration: 200, length: 4.4, width: 1.8, spawnThreshold: 0.6},
	Truck: {name: "Truck", maxSpeed: 60, acceleration: 10, brakeDeceleration: 200, length: 6, width: 2.5, spawnThreshold: 0.7},
	Bus:   {name: "Bus", maxSpeed: 60, acceleration: 10, brakeDeceleration: 200, length: 6, width: 2.5, spawnThreshold: 0.8},
	Bike:  {name: "Bike", maxSpeed: 80, acceleration: 10, brakeDeceleration: 200, length: 1.5, width: 0.8, spawnThreshold: 1},
}

// Classes 全部车型，按出生阈值顺序
func Classes() []Class {
	return []Class{SUV, Truck, Bus, Bike}
}

// spawnThresholds 各车型的累积出生概率阈值
func spawnThresholds() []float64 {
	return lo.Map(Classes(), func(c Class, _ int) float64 {
		return c.attr().spawnThreshold
	})
}

func (c Class) attr() classAttr {
	if c < 0 || c >= classCount {
		panic(fmt.Sprintf("vehicle: invalid class %d", int32(c)))
	}
	return classAttrs[c]
}

func (c Class) String() string {
	return c.attr().name
}

// MaxSpeed 最高速度（米/秒）
func (c Class) MaxSpeed() float64 {
	return c.attr().maxSpeed * 1000 / 3600
}

// Acceleration 加速度（米/秒²）
func (c Class) Acceleration() float64 {
	return c.attr().acceleration
}

// BrakeDeceleration 制动减速度（米/秒²）
func (c Class) BrakeDeceleration() float64 {
	return c.attr().brakeDeceleration
}

// Length 车长（米）
func (c Class) Length() float64 {
	return c.attr().length
}

// Width 车宽（米）
func (c Class) Width() float64 {
	return c.attr().width
}
