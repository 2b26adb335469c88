package vehicle

import (
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/entity"
	"github.com/tsinghua-fib-lab/tilesim/entity/network"
	"github.com/tsinghua-fib-lab/tilesim/utils/container"
)

// Manager 车辆管理器
// 功能：管理所有车辆，负责出生、消失、逐车更新与碰撞统计
type Manager struct {
	ctx entity.ITaskContext

	data map[int32]*Vehicle
	// 按出生顺序排列，逐车更新时后更新的车辆能看到先更新车辆的新状态
	vehicles *container.IncrementalArray[*Vehicle]

	nextID  int32
	debugID int32

	despawnLines []geom.LineString
	thresholds   []float64

	stats entity.RunStats
}

// NewManager 创建车辆管理器
// 参数：ctx-任务上下文
// 返回：车辆管理器
func NewManager(ctx entity.ITaskContext) *Manager {
	return &Manager{
		ctx:      ctx,
		data:     make(map[int32]*Vehicle),
		vehicles: container.NewIncrementalArray[*Vehicle](),
		debugID:  -1,
		despawnLines: lo.FilterMap(ctx.Network().Despawns(), func(d *network.Despawn, _ int) (geom.LineString, bool) {
			seq := geom.NewSequence([]float64{d.Line.Start.X, d.Line.Start.Y, d.Line.End.X, d.Line.End.Y}, geom.DimXY)
			ls, err := geom.NewLineString(seq)
			if err != nil {
				log.Errorf("despawn %d ignored: %v", d.ID, err)
				return geom.LineString{}, false
			}
			return ls, true
		}),
		thresholds: spawnThresholds(),
	}
}

// Get 根据ID获取车辆，如果不存在则panic
func (m *Manager) Get(id int32) *Vehicle {
	if v, ok := m.data[id]; !ok {
		log.Panicf("no id %d in vehicle data", id)
		return nil
	} else {
		return v
	}
}

// GetOrError 根据ID获取车辆，如果不存在则返回错误
func (m *Manager) GetOrError(id int32) (*Vehicle, error) {
	if v, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in vehicle data", id)
	} else {
		return v, nil
	}
}

// Len 当前车辆数
func (m *Manager) Len() int {
	return m.vehicles.Len()
}

// Vehicles 当前全部车辆，调用方不得修改返回的切片
func (m *Manager) Vehicles() []*Vehicle {
	return m.vehicles.Data()
}

// Stats 累计统计
func (m *Manager) Stats() entity.RunStats {
	s := m.stats
	s.InFlight = int32(m.vehicles.Len())
	return s
}

// SetDebugVehicle 对指定车辆输出逐步调试信息，-1关闭
func (m *Manager) SetDebugVehicle(id int32) {
	if old, ok := m.data[m.debugID]; ok {
		old.debug = false
	}
	m.debugID = id
	if v, ok := m.data[id]; ok {
		v.debug = true
	}
}

func (m *Manager) reportConfigError() {
	m.stats.ConfigErrors++
}

// Spawn 出生阶段
// 功能：对每个抽中的出生点按累积阈值选择车型并创建车辆
// 参数：dt-时间步长（秒）
// 返回：本步出生的车辆数
// 说明：达到车辆数上限后不再出生
func (m *Manager) Spawn(dt float64) int {
	net := m.ctx.Network()
	rng := m.ctx.Generator()
	limit := lo.FromPtr(m.ctx.RuntimeConfig().C.MaxVehicles)
	n := 0
	for _, spawnID := range net.SpawnCandidates(dt, rng) {
		if limit > 0 && m.vehicles.Len()+m.vehicles.PendingLen() >= limit {
			break
		}
		class := Classes()[rng.CumulativePick(m.thresholds)]
		v := newVehicle(m.ctx, m, m.nextID, class, net.Spawn(spawnID))
		m.nextID++
		v.debug = v.id == m.debugID
		m.data[v.id] = v
		m.vehicles.Add(v)
		n++
		log.Debugf("spawn %v at spawn %d", v, spawnID)
	}
	m.vehicles.Prepare()
	m.stats.Spawned += int32(n)
	return n
}

// Despawn 消失阶段
// 功能：移除车身与消失线相交或驶出地图的车辆，并记录其行程
// 返回：本步消失的车辆数
func (m *Manager) Despawn() int {
	w, h := m.ctx.Network().Bounds()
	tolerance := m.ctx.RuntimeConfig().B.BoundsTolerance
	removed := lo.Filter(m.vehicles.Data(), func(v *Vehicle, _ int) bool {
		return v.outside(w, h, tolerance) || v.touches(m.despawnLines)
	})
	for _, v := range removed {
		v.trip.EndTime = m.ctx.Clock().T
		if r := m.ctx.Recorder(); r != nil {
			r.RecordTrip(v.trip)
		}
		m.vehicles.Remove(v)
		delete(m.data, v.id)
		log.Debugf("despawn %v", v)
	}
	m.vehicles.Prepare()
	m.stats.Despawned += int32(len(removed))
	return len(removed)
}

// Update 决策与运动阶段，按出生顺序逐车更新
func (m *Manager) Update(dt float64) {
	for _, v := range m.vehicles.Data() {
		v.update(dt)
	}
}

// UpdateCollisions 碰撞阶段
// 功能：重新计算每辆车正在碰撞的车辆集合，统计新发生的碰撞
// 返回：本步新增的碰撞数
// 算法说明：
// 1. 对每一对处在同一瓦片或互为前方瓦片的车辆，判断车身是否重叠
// 2. 上一步不在碰撞集合中的车对为新碰撞，每对只计一次
// 3. 新碰撞计入双方行程并写入记录器
func (m *Manager) UpdateCollisions() int {
	vehicles := m.vehicles.Data()
	previous := make(map[int32][]int32, len(vehicles))
	for _, v := range vehicles {
		previous[v.id] = v.colliding
		v.colliding = []int32{}
	}
	count := 0
	for i, a := range vehicles {
		for _, b := range vehicles[i+1:] {
			if !a.sharesTile(b) || !a.overlaps(b) {
				continue
			}
			a.colliding = append(a.colliding, b.id)
			b.colliding = append(b.colliding, a.id)
			if lo.Contains(previous[a.id], b.id) {
				continue
			}
			count++
			a.trip.Collisions++
			b.trip.Collisions++
			m.recordCollision(a, b)
		}
	}
	m.stats.Collisions += int32(count)
	return count
}

func (m *Manager) recordCollision(a, b *Vehicle) {
	c := entity.CollisionRecord{
		Time:     m.ctx.Clock().T,
		Step:     m.ctx.Clock().InternalStep,
		First:    a.id,
		Second:   b.id,
		Position: a.pos.Add(b.pos).Scale(0.5),
		Flags: map[string]bool{
			"first_braking":   a.braking,
			"first_turning":   a.Turning(),
			"first_waiting":   a.waitingForStop,
			"second_braking":  b.braking,
			"second_turning":  b.Turning(),
			"second_waiting":  b.waitingForStop,
			"same_tile":       a.locationTile == b.locationTile,
			"mutual_observed": a.closestVehicleID == b.id && b.closestVehicleID == a.id,
		},
	}
	log.WithField("step", c.Step).Infof("collision between %v and %v", a, b)
	if r := m.ctx.Recorder(); r != nil {
		r.RecordCollision(c)
	}
}

// Snapshot 车辆的只读快照
// 参数：ids-车辆ID，为空时返回全部车辆
// 说明：不存在的ID会被忽略并输出警告
func (m *Manager) Snapshot(ids ...int32) []entity.VehicleSnapshot {
	if len(ids) == 0 {
		return lo.Map(m.vehicles.Data(), func(v *Vehicle, _ int) entity.VehicleSnapshot {
			return v.Snapshot()
		})
	}
	snapshots := lo.FilterMap(ids, func(id int32, _ int) (entity.VehicleSnapshot, bool) {
		if v, ok := m.data[id]; ok {
			return v.Snapshot(), true
		}
		return entity.VehicleSnapshot{}, false
	})
	if missing := len(ids) - len(snapshots); missing > 0 {
		log.Warnf("snapshot: %d of %v not found", missing, ids)
	}
	return snapshots
}
