package task

import (
	"context"
	"flag"
	"time"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// stepResult 一步中各阶段的计数
type stepResult struct {
	Spawned    int
	Despawned  int
	Collisions int
}

// Step 推进一步
// 功能：按固定顺序执行一步中的所有阶段
// 参数：dt-本步时间间隔（秒），为0时车辆不移动但仍完成决策与碰撞统计
// 算法说明：
// 1. 出生：按出生点概率创建车辆
// 2. 信号灯推进，清空出生点瓦片占用标记
// 3. 消失：移除到达消失线或驶出地图的车辆
// 4. 逐车决策与运动
// 5. 碰撞统计
// 6. 写入记录器与指标，输出心跳日志
func (ctx *Context) Step(dt float64) error {
	var r stepResult
	r.Spawned = ctx.vehicleManager.Spawn(dt)
	ctx.network.Tick(dt)
	r.Despawned = ctx.vehicleManager.Despawn()
	ctx.vehicleManager.Update(dt)
	r.Collisions = ctx.vehicleManager.UpdateCollisions()

	stats := ctx.vehicleManager.Stats()
	if ctx.metrics != nil {
		ctx.metrics.observe(context.Background(), r, stats)
	}
	if ctx.recorder != nil {
		if err := ctx.recorder.Step(ctx.clock.InternalStep, stats); err != nil {
			return err
		}
	}
	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		log.Infof("STEP: %d(%v) vehicles=%d %v", ctx.clock.InternalStep, ctx.clock, stats.InFlight, stats)
	}
	log.Debugf("step %d: dt=%.4f %+v", ctx.clock.InternalStep, dt, r)
	return nil
}

// Run 运行
// 功能：推进时钟并逐步执行，直到到达结束步、上下文取消或调用Close
// 说明：实时模式下按固定步长的墙上时间节拍推进，dt由时钟按实际耗时换算
func (ctx *Context) Run(c context.Context) error {
	ctx.clock.Init()
	var tick <-chan time.Time
	if ctx.clock.Realtime() {
		ticker := time.NewTicker(time.Duration(ctx.clock.DT * float64(time.Second)))
		defer ticker.Stop()
		tick = ticker.C
	}
	var err error
	for !ctx.clock.Finished() && !ctx.closed.Load() {
		if tick != nil {
			select {
			case <-c.Done():
				err = c.Err()
			case <-tick:
			}
		} else if c.Err() != nil {
			err = c.Err()
		}
		if err != nil {
			break
		}
		dt := ctx.clock.Next()
		if err = ctx.Step(dt); err != nil {
			break
		}
	}
	if closeErr := ctx.Close(); err == nil {
		err = closeErr
	}
	return err
}
