package trafficlight_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tilesim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/tilesim/utils/input"
)

func TestPhaseSequence(t *testing.T) {
	m, err := trafficlight.NewManager([]input.TrafficLightDescription{
		{ID: 3, TimeRed: 2, TimeGreen: 3, TimeAmber: 1, DefaultColor: "red"},
	})
	require.NoError(t, err)
	l := m.Get(3)

	colors := []trafficlight.Color{}
	for i := 0; i < 14; i++ {
		m.Update(0.5)
		colors = append(colors, l.Color())
	}
	r, g, a := trafficlight.Red, trafficlight.Green, trafficlight.Amber
	assert.Equal(t, []trafficlight.Color{
		r, r, r, g, // 2秒后变绿
		g, g, g, g, g, a, // 3秒后变黄
		a, r, // 1秒后变红
		r, r,
	}, colors)
}

func TestElapsedResetsOnTransition(t *testing.T) {
	m, err := trafficlight.NewManager([]input.TrafficLightDescription{
		{ID: 0, TimeRed: 1, TimeGreen: 1, TimeAmber: 1, DefaultColor: "green", DefaultTimeIn: 0.9},
	})
	require.NoError(t, err)
	l := m.Get(0)
	m.Update(0.2)
	assert.Equal(t, trafficlight.Amber, l.Color())
	assert.Equal(t, 0.0, l.Elapsed())
	m.Update(0.3)
	assert.InDelta(t, 0.3, l.Elapsed(), 1e-12)
	assert.Equal(t, map[int32]trafficlight.Color{0: trafficlight.Amber}, m.Colors())
}

func TestManagerErrors(t *testing.T) {
	_, err := trafficlight.NewManager([]input.TrafficLightDescription{
		{ID: 0, TimeRed: 1, TimeGreen: 1, TimeAmber: 1, DefaultColor: "blue"},
	})
	assert.Error(t, err)
	_, err = trafficlight.NewManager([]input.TrafficLightDescription{
		{ID: 0, TimeRed: 0, TimeGreen: 1, TimeAmber: 1, DefaultColor: "red"},
	})
	assert.Error(t, err)
	_, err = trafficlight.NewManager([]input.TrafficLightDescription{
		{ID: 0, TimeRed: 1, TimeGreen: 1, TimeAmber: 1, DefaultColor: "red"},
		{ID: 0, TimeRed: 1, TimeGreen: 1, TimeAmber: 1, DefaultColor: "red"},
	})
	assert.Error(t, err)

	m, err := trafficlight.NewManager(nil)
	require.NoError(t, err)
	_, err = m.GetOrError(1)
	assert.Error(t, err)
	assert.Panics(t, func() { m.Get(1) })
}
