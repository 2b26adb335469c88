package task

import (
	"context"
	"fmt"

	"github.com/tsinghua-fib-lab/tilesim/entity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tsinghua-fib-lab/tilesim/task"

// metrics 仿真指标
// 说明：使用全局otel meter，嵌入程序未安装provider时为no-op
type metrics struct {
	attrs metric.MeasurementOption

	spawned      metric.Int64Counter
	despawned    metric.Int64Counter
	collisions   metric.Int64Counter
	configErrors metric.Int64Counter
	active       metric.Int64ObservableGauge

	lastConfigErrors int32
}

func newMetrics(mapName string, vm entity.IVehicleManager) (*metrics, error) {
	m := otel.Meter(instrumentationName)
	s := &metrics{
		attrs: metric.WithAttributes(attribute.String("map", mapName)),
	}

	var err error
	if s.spawned, err = m.Int64Counter(
		"sim.vehicles.spawned",
		metric.WithDescription("Total vehicles spawned"),
	); err != nil {
		return nil, fmt.Errorf("creating spawned counter: %w", err)
	}
	if s.despawned, err = m.Int64Counter(
		"sim.vehicles.despawned",
		metric.WithDescription("Total vehicles despawned"),
	); err != nil {
		return nil, fmt.Errorf("creating despawned counter: %w", err)
	}
	if s.collisions, err = m.Int64Counter(
		"sim.collisions",
		metric.WithDescription("Total new collisions between vehicle pairs"),
	); err != nil {
		return nil, fmt.Errorf("creating collisions counter: %w", err)
	}
	if s.configErrors, err = m.Int64Counter(
		"sim.config_errors",
		metric.WithDescription("Total unresolvable map configurations met by vehicles"),
	); err != nil {
		return nil, fmt.Errorf("creating config errors counter: %w", err)
	}
	if s.active, err = m.Int64ObservableGauge(
		"sim.vehicles.active",
		metric.WithDescription("Current number of vehicles on the map"),
	); err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}
	if _, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(s.active, int64(vm.Len()), s.attrs)
			return nil
		},
		s.active,
	); err != nil {
		return nil, fmt.Errorf("registering active callback: %w", err)
	}
	return s, nil
}

// observe 记录一步的增量
func (s *metrics) observe(ctx context.Context, r stepResult, stats entity.RunStats) {
	s.spawned.Add(ctx, int64(r.Spawned), s.attrs)
	s.despawned.Add(ctx, int64(r.Despawned), s.attrs)
	s.collisions.Add(ctx, int64(r.Collisions), s.attrs)
	if d := stats.ConfigErrors - s.lastConfigErrors; d > 0 {
		s.configErrors.Add(ctx, int64(d), s.attrs)
	}
	s.lastConfigErrors = stats.ConfigErrors
}
