package entity

import (
	"github.com/tsinghua-fib-lab/tilesim/clock"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
	"github.com/tsinghua-fib-lab/tilesim/utils/randengine"
)

type ITaskContext interface {
	Clock() *clock.Clock
	Network() INetwork
	VehicleManager() IVehicleManager
	RuntimeConfig() *config.RuntimeConfig
	Generator() *randengine.Engine
	Recorder() IRecorder
}
