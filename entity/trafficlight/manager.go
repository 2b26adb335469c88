package trafficlight

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/utils/input"
)

// Manager 信号灯管理器
type Manager struct {
	data   map[int32]*Light
	lights []*Light
}

// NewManager 根据描述创建所有信号灯，ID重复或参数非法时返回错误
func NewManager(descs []input.TrafficLightDescription) (*Manager, error) {
	m := &Manager{
		data:   make(map[int32]*Light, len(descs)),
		lights: make([]*Light, 0, len(descs)),
	}
	for _, d := range descs {
		if _, ok := m.data[d.ID]; ok {
			return nil, fmt.Errorf("duplicated traffic light id %d", d.ID)
		}
		l, err := newLight(d)
		if err != nil {
			return nil, err
		}
		m.data[d.ID] = l
		m.lights = append(m.lights, l)
	}
	return m, nil
}

// Update 推进所有信号灯
func (m *Manager) Update(dt float64) {
	for _, l := range m.lights {
		l.update(dt)
	}
}

// Get 根据ID获取信号灯，不存在则panic
func (m *Manager) Get(id int32) *Light {
	if l, ok := m.data[id]; !ok {
		log.Panicf("no id %d in traffic light data", id)
		return nil
	} else {
		return l
	}
}

// GetOrError 根据ID获取信号灯
func (m *Manager) GetOrError(id int32) (*Light, error) {
	if l, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in traffic light data", id)
	} else {
		return l, nil
	}
}

// Has 是否存在该ID
func (m *Manager) Has(id int32) bool {
	_, ok := m.data[id]
	return ok
}

// Lights 按描述顺序返回所有信号灯
func (m *Manager) Lights() []*Light {
	return m.lights
}

// Colors 所有信号灯当前颜色
func (m *Manager) Colors() map[int32]Color {
	return lo.SliceToMap(m.lights, func(l *Light) (int32, Color) {
		return l.id, l.color
	})
}
