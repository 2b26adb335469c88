package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

const (
	DefaultInterval               = 0.1
	DefaultTimeMultiplier         = 1.
	DefaultJumpThreshold          = 0.25
	DefaultMaxVehicles            = 50
	DefaultObservationDistance    = 10.
	DefaultDetectionRange         = 2.
	DefaultStopMargin             = 1.
	DefaultSafetyMargin           = 1.
	DefaultTurnAngleTolerance     = 44.
	DefaultTurnCollisionTolerance = 1.
	DefaultBoundsTolerance        = 10.
	DefaultFlushInterval          = 100
)

var ErrInvalidConfig = errors.New("invalid config")

// VehicleBehavior 运行时车辆行为参数（已填充默认值）
type VehicleBehavior struct {
	Braking                bool
	Turning                bool
	ObservationDistance    float64 // 米
	DetectionRange         float64 // 米
	StopMargin             float64 // 米
	SafetyMargin           float64 // 米
	TurnAngleTolerance     float64 // 弧度
	TurnCollisionTolerance float64 // 像素
	BoundsTolerance        float64 // 像素
}

// RuntimeConfig 运行时配置
// 功能：存储填充默认值并校验后的配置，供各模块读取
type RuntimeConfig struct {
	All Config          // 全部配置
	C   Control         // 全局控制配置
	B   VehicleBehavior // 车辆行为
}

// Parse 严格解析yaml配置，出现未知字段即报错
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("config parse err: %w", err)
	}
	return c, nil
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：填充默认值并检查取值范围
// 参数：config-原始配置对象
// 返回：运行时配置，配置非法时返回错误
// 算法说明：
// 1. 控制参数：步长与跳帧阈值为0时使用默认值；时间倍率与车辆上限仅在缺省时使用默认值，显式的0保留
// 2. 行为参数：开关缺省为开启，距离与容差为0时使用默认值，角度容差由度转为弧度
// 3. 检查所有距离、容差非负，角度容差不超过90度
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	c := config.Control
	if c.Step.Interval == 0 {
		c.Step.Interval = DefaultInterval
	}
	c.TimeMultiplier = lo.ToPtr(lo.FromPtrOr(c.TimeMultiplier, DefaultTimeMultiplier))
	if c.JumpThreshold == 0 {
		c.JumpThreshold = DefaultJumpThreshold
	}
	c.MaxVehicles = lo.ToPtr(lo.FromPtrOr(c.MaxVehicles, DefaultMaxVehicles))
	if config.Output.Recorder.FlushInterval == 0 {
		config.Output.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Step.Interval < 0 || *c.TimeMultiplier < 0 || c.JumpThreshold < 0 || *c.MaxVehicles < 0 || c.Step.Total < 0 {
		return nil, fmt.Errorf("%w: control values must not be negative: %+v", ErrInvalidConfig, c)
	}

	b := config.Behavior
	vb := VehicleBehavior{
		Braking:                lo.FromPtrOr(b.Braking, true),
		Turning:                lo.FromPtrOr(b.Turning, true),
		ObservationDistance:    lo.Ternary(b.ObservationDistance == 0, DefaultObservationDistance, b.ObservationDistance),
		DetectionRange:         lo.Ternary(b.DetectionRange == 0, DefaultDetectionRange, b.DetectionRange),
		StopMargin:             lo.Ternary(b.StopMargin == 0, DefaultStopMargin, b.StopMargin),
		SafetyMargin:           lo.Ternary(b.SafetyMargin == 0, DefaultSafetyMargin, b.SafetyMargin),
		TurnAngleTolerance:     lo.Ternary(b.TurnAngleTolerance == 0, DefaultTurnAngleTolerance, b.TurnAngleTolerance),
		TurnCollisionTolerance: lo.Ternary(b.TurnCollisionTolerance == 0, DefaultTurnCollisionTolerance, b.TurnCollisionTolerance),
		BoundsTolerance:        lo.Ternary(b.BoundsTolerance == 0, DefaultBoundsTolerance, b.BoundsTolerance),
	}
	for name, v := range map[string]float64{
		"observation_distance":     vb.ObservationDistance,
		"detection_range":          vb.DetectionRange,
		"stop_margin":              vb.StopMargin,
		"safety_margin":            vb.SafetyMargin,
		"turn_angle_tolerance":     vb.TurnAngleTolerance,
		"turn_collision_tolerance": vb.TurnCollisionTolerance,
		"bounds_tolerance":         vb.BoundsTolerance,
	} {
		if v < 0 {
			return nil, fmt.Errorf("%w: behavior.%s must not be negative, got %v", ErrInvalidConfig, name, v)
		}
	}
	if vb.TurnAngleTolerance > 90 {
		return nil, fmt.Errorf("%w: behavior.turn_angle_tolerance must be at most 90 degrees, got %v", ErrInvalidConfig, vb.TurnAngleTolerance)
	}
	vb.TurnAngleTolerance = vb.TurnAngleTolerance * math.Pi / 180

	switch config.Output.Recorder.Driver {
	case "", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("%w: unknown recorder driver %q", ErrInvalidConfig, config.Output.Recorder.Driver)
	}

	config.Control = c
	return &RuntimeConfig{
		All: config,
		C:   c,
		B:   vb,
	}, nil
}
