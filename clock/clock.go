package clock

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
)

const (
	minMultiplier = 0.
	maxMultiplier = 100.
)

// Clock 仿真时钟管理器
// 功能：管理仿真系统的时间推进，提供固定步长与实时两种dt来源
// 说明：实时模式下dt为两次调用间的墙上时间乘以时间倍率，单帧耗时超过跳帧阈值时本帧dt记为0
type Clock struct {
	DT         float64 // 固定步长（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)，实时模式下Total为0时不结束

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前步数

	realtime      bool
	multiplier    float64
	jumpThreshold time.Duration
	last          time.Time
	now           func() time.Time
}

// New 根据配置创建新的时钟实例
func New(c config.Control) *Clock {
	clk := &Clock{
		DT:            c.Step.Interval,
		START_STEP:    c.Step.Start,
		END_STEP:      c.Step.Start + c.Step.Total,
		realtime:      c.Realtime,
		multiplier:    lo.FromPtrOr(c.TimeMultiplier, config.DefaultTimeMultiplier),
		jumpThreshold: time.Duration(c.JumpThreshold * float64(time.Second)),
		now:           time.Now,
	}
	clk.Init()
	return clk
}

// Init 重置时钟状态
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
	c.last = c.now()
}

// Realtime 是否按墙上时钟推进
func (c *Clock) Realtime() bool {
	return c.realtime
}

// Multiplier 当前时间倍率
func (c *Clock) Multiplier() float64 {
	return c.multiplier
}

// SetTimeMultiplier 调整时间倍率，截断到[0, 100]
func (c *Clock) SetTimeMultiplier(m float64) {
	c.multiplier = lo.Clamp(m, minMultiplier, maxMultiplier)
}

// Scale 将一帧的实际耗时换算为仿真dt（秒）
// 算法说明：
// 1. 实际耗时超过跳帧阈值（窗口拖动、断点暂停等）时返回0
// 2. 否则返回 耗时 * 时间倍率
func (c *Clock) Scale(raw time.Duration) float64 {
	if c.jumpThreshold > 0 && raw > c.jumpThreshold {
		return 0
	}
	return raw.Seconds() * c.multiplier
}

// Next 推进一步并返回本步的dt
// 说明：固定步长模式下dt恒为DT*倍率（受跳帧阈值约束的是实际耗时，固定步长不受影响）
func (c *Clock) Next() float64 {
	var dt float64
	if c.realtime {
		now := c.now()
		dt = c.Scale(now.Sub(c.last))
		c.last = now
	} else {
		dt = c.DT * c.multiplier
	}
	c.InternalStep++
	c.T += dt
	return dt
}

// Finished 是否已到达结束步
func (c *Clock) Finished() bool {
	if c.realtime && c.END_STEP == c.START_STEP {
		return false
	}
	return c.InternalStep >= c.END_STEP
}

// String 将当前时间格式化为HH:MM:SS
func (c *Clock) String() string {
	hour, minute, second := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, int(second))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
