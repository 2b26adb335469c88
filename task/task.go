package task

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/tilesim/clock"
	"github.com/tsinghua-fib-lab/tilesim/entity"
	"github.com/tsinghua-fib-lab/tilesim/entity/network"
	"github.com/tsinghua-fib-lab/tilesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
	"github.com/tsinghua-fib-lab/tilesim/utils/input"
	"github.com/tsinghua-fib-lab/tilesim/utils/randengine"
	"github.com/tsinghua-fib-lab/tilesim/utils/recorder"
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态，替代全局变量
// 说明：管理时钟、路网、车辆管理器、运行时配置、随机数引擎以及记录器和指标输出
type Context struct {
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 路网
	network *network.Network
	// 车辆管理器
	vehicleManager *vehicle.Manager
	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 随机数引擎
	generator *randengine.Engine

	// 运行记录器，未配置时为nil
	recorder *recorder.Recorder
	// 指标，未开启时为nil
	metrics *metrics

	// 用于初始化的输入
	initRes *input.Input
}

// NewContext 创建新的仿真任务上下文
// 功能：初始化仿真系统的所有组件和配置
// 参数：ctx-用于加载输入的上下文，c-配置对象
// 返回：初始化完成的Context实例；任一组件创建失败时返回错误
// 算法说明：
// 1. 填充默认值并校验配置
// 2. 加载路网描述并构建路网
// 3. 创建时钟、随机数引擎与车辆管理器
// 4. 按配置打开运行记录器并创建指标
func NewContext(ctx context.Context, c config.Config) (*Context, error) {
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	initRes, err := input.Init(ctx, c.Input)
	if err != nil {
		return nil, err
	}
	net, err := network.New(initRes.Map)
	if err != nil {
		return nil, fmt.Errorf("failed to build network %q: %w", initRes.Map.Name, err)
	}
	t := &Context{
		clock:         clock.New(rc.C),
		network:       net,
		runtimeConfig: rc,
		generator:     randengine.New(rc.C.Seed),
		initRes:       initRes,
	}
	t.vehicleManager = vehicle.NewManager(t)

	if rc.All.Output.Recorder.Driver != "" {
		if t.recorder, err = recorder.New(rc.All.Output.Recorder, net.Name()); err != nil {
			return nil, err
		}
	}
	if rc.All.Output.Metrics {
		if t.metrics, err = newMetrics(net.Name(), t.vehicleManager); err != nil {
			return nil, err
		}
	}
	w, h := net.Bounds()
	log.Infof("task ready: map %q %.0fx%.0f px, seed %d, steps [%d, %d)",
		net.Name(), w, h, rc.C.Seed, t.clock.START_STEP, t.clock.END_STEP)
	return t, nil
}

func (ctx *Context) GetInput() *input.Input {
	return ctx.initRes
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Network() entity.INetwork {
	return ctx.network
}

func (ctx *Context) VehicleManager() entity.IVehicleManager {
	return ctx.vehicleManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Generator() *randengine.Engine {
	return ctx.generator
}

// Recorder 运行记录器，未配置时返回nil接口
func (ctx *Context) Recorder() entity.IRecorder {
	if ctx.recorder == nil {
		return nil
	}
	return ctx.recorder
}

// Snapshot 仿真状态的只读快照，供绘制程序使用
type Snapshot struct {
	Step     int32                    `json:"step"`
	Time     float64                  `json:"time"`
	Network  network.Snapshot         `json:"network"`
	Vehicles []entity.VehicleSnapshot `json:"vehicles"`
	Stats    entity.RunStats          `json:"stats"`
}

func (ctx *Context) Snapshot() Snapshot {
	return Snapshot{
		Step:     ctx.clock.InternalStep,
		Time:     ctx.clock.T,
		Network:  ctx.network.Snapshot(),
		Vehicles: ctx.vehicleManager.Snapshot(),
		Stats:    ctx.vehicleManager.Stats(),
	}
}

// Close 写入剩余输出，重复调用无副作用
func (ctx *Context) Close() error {
	if ctx.closed.Swap(true) {
		return nil
	}
	stats := ctx.vehicleManager.Stats()
	log.Infof("engine complete at step %d: %v", ctx.clock.InternalStep, stats)
	if ctx.recorder != nil {
		return ctx.recorder.Close(stats)
	}
	return nil
}
