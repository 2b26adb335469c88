package network

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/entity/trafficlight"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/input"
)

var (
	ErrUnreachableSpawn    = errors.New("unreachable spawn")
	ErrUnknownTrafficLight = errors.New("unknown traffic light")
	ErrDegenerateTurn      = errors.New("degenerate turn")
	ErrOverlappingTurns    = errors.New("overlapping turn zones")
	ErrInvalidSpawn        = errors.New("invalid spawn")
)

// Network 路网
// 功能：管理瓦片网格以及瓦片中的停车线、转弯、出生点、消失线和信号灯，提供车辆决策所需的查询
// 说明：元素ID按瓦片行优先顺序连续分配，每个瓦片对每类元素持有一个[start, end)区间，成员判断为O(1)
type Network struct {
	name     string
	tileSize float64
	rows     int32
	cols     int32

	tiles    []*Tile
	stops    []*Stop
	turns    []*Turn
	spawns   []*Spawn
	despawns []*Despawn

	lights *trafficlight.Manager

	// 出生点所在瓦片上是否有车，每步由Tick清空
	spawnTileOccupied []bool
}

// New 根据路网描述构建路网
// 功能：创建瓦片并按行优先顺序为各瓦片中的元素分配连续ID，校验元素引用与几何合法性
// 参数：desc-路网描述
// 返回：路网；描述存在配置错误时返回错误
// 算法说明：
// 1. 创建信号灯
// 2. 将描述中登记的瓦片按ID排序，未登记的瓦片为空
// 3. 依次为每个瓦片分配停车线、转弯、出生点ID并记录区间
// 4. 校验：停车线引用的信号灯存在；转弯满足0<min<max；出生点位置确实落在登记它的瓦片中
// 5. 消失线长度为0时替换为最小长度的线段
func New(desc *input.MapDescription) (*Network, error) {
	lights, err := trafficlight.NewManager(desc.TrafficLights)
	if err != nil {
		return nil, err
	}
	n := &Network{
		name:     desc.Name,
		tileSize: desc.TileSize,
		rows:     desc.Rows,
		cols:     desc.Columns,
		lights:   lights,
	}
	count := desc.Rows * desc.Columns
	n.tiles = make([]*Tile, count)
	n.spawnTileOccupied = make([]bool, count)
	catalogue := lo.SliceToMap(desc.Tiles, func(t input.TileDescription) (int32, input.TileDescription) {
		return t.Col + t.Row*desc.Columns, t
	})
	for id := int32(0); id < count; id++ {
		tile := &Tile{ID: id, Row: id / desc.Columns, Col: id % desc.Columns}
		n.tiles[id] = tile
		td := catalogue[id]

		tile.ranges[KindStop].Start = int32(len(n.stops))
		for _, s := range td.Stops {
			if !lights.Has(s.TrafficLight) {
				return nil, fmt.Errorf("%w: stop %d in tile %d refers to light %d", ErrUnknownTrafficLight, len(n.stops), id, s.TrafficLight)
			}
			n.stops = append(n.stops, &Stop{
				ID:           int32(len(n.stops)),
				Tile:         id,
				Line:         geometry.Segment{Start: s.Start, End: s.End},
				TrafficLight: s.TrafficLight,
			})
		}
		tile.ranges[KindStop].End = int32(len(n.stops))

		tile.ranges[KindTurn].Start = int32(len(n.turns))
		for _, t := range td.Turns {
			if t.MinDistance <= 0 || t.MaxDistance <= t.MinDistance {
				return nil, fmt.Errorf("%w: turn %d in tile %d has radii [%v, %v]", ErrDegenerateTurn, len(n.turns), id, t.MinDistance, t.MaxDistance)
			}
			turn := newTurn(int32(len(n.turns)), id, t.Center, t.MinDistance, t.MaxDistance, t.FirstAngle, t.SecondAngle, t.CanSkip)
			if turn.Span == 0 {
				return nil, fmt.Errorf("%w: turn %d in tile %d has zero span", ErrDegenerateTurn, turn.ID, id)
			}
			n.turns = append(n.turns, turn)
		}
		tile.ranges[KindTurn].End = int32(len(n.turns))

		tile.ranges[KindSpawn].Start = int32(len(n.spawns))
		for _, s := range td.Spawns {
			sid := int32(len(n.spawns))
			if at := n.TileIndex(s.Position); at != id || !n.inside(s.Position) {
				return nil, fmt.Errorf("%w: spawn %d at %+v is catalogued in tile %d but lies in tile %d", ErrUnreachableSpawn, sid, s.Position, id, at)
			}
			if s.Probability < 0 || s.Speed < 0 || s.Speed > 1 {
				return nil, fmt.Errorf("%w: spawn %d has probability %v and speed fraction %v", ErrInvalidSpawn, sid, s.Probability, s.Speed)
			}
			n.spawns = append(n.spawns, &Spawn{
				ID:            sid,
				Tile:          id,
				Position:      s.Position,
				Heading:       geometry.CorrectRadian(s.Angle * math.Pi / 180),
				SpeedFraction: s.Speed,
				Probability:   s.Probability,
			})
		}
		tile.ranges[KindSpawn].End = int32(len(n.spawns))
	}

	for i, d := range desc.Despawns {
		line := geometry.Segment{Start: d.Start, End: d.End}
		if geometry.SegmentLength(line) < 1 {
			log.Warnf("despawn %d has zero length, padded to 1px", i)
			line.End = line.Start.Add(geometry.Point{X: 1})
		}
		n.despawns = append(n.despawns, &Despawn{ID: int32(i), Line: line})
	}

	log.Infof("network %q: %d tiles, %d stops, %d turns, %d spawns, %d despawns, %d lights",
		n.name, len(n.tiles), len(n.stops), len(n.turns), len(n.spawns), len(n.despawns), len(lights.Lights()))
	return n, nil
}

func (n *Network) inside(p geometry.Point) bool {
	w, h := n.Bounds()
	return p.X >= 0 && p.Y >= 0 && p.X <= w && p.Y <= h
}

func (n *Network) Name() string {
	return n.name
}

// Bounds 地图宽高（像素）
func (n *Network) Bounds() (float64, float64) {
	return float64(n.cols) * n.tileSize, float64(n.rows) * n.tileSize
}

func (n *Network) TileSize() float64 {
	return n.tileSize
}

func (n *Network) Rows() int32 {
	return n.rows
}

func (n *Network) Columns() int32 {
	return n.cols
}

func (n *Network) TrafficLights() *trafficlight.Manager {
	return n.lights
}

// Tile 根据ID获取瓦片，不存在则panic
func (n *Network) Tile(id int32) *Tile {
	if id < 0 || int(id) >= len(n.tiles) {
		log.Panicf("no id %d in tile data", id)
	}
	return n.tiles[id]
}

// Turn 根据ID获取转弯，不存在则panic
func (n *Network) Turn(id int32) *Turn {
	if id < 0 || int(id) >= len(n.turns) {
		log.Panicf("no id %d in turn data", id)
	}
	return n.turns[id]
}

// TurnOrError 根据ID获取转弯
func (n *Network) TurnOrError(id int32) (*Turn, error) {
	if id < 0 || int(id) >= len(n.turns) {
		return nil, fmt.Errorf("no id %d in turn data", id)
	}
	return n.turns[id], nil
}

// Stop 根据ID获取停车线，不存在则panic
func (n *Network) Stop(id int32) *Stop {
	if id < 0 || int(id) >= len(n.stops) {
		log.Panicf("no id %d in stop data", id)
	}
	return n.stops[id]
}

// Spawn 根据ID获取出生点，不存在则panic
func (n *Network) Spawn(id int32) *Spawn {
	if id < 0 || int(id) >= len(n.spawns) {
		log.Panicf("no id %d in spawn data", id)
	}
	return n.spawns[id]
}

func (n *Network) Despawns() []*Despawn {
	return n.despawns
}

// Tick 推进信号灯并清空出生点瓦片的占用标记
func (n *Network) Tick(dt float64) {
	n.lights.Update(dt)
	for i := range n.spawnTileOccupied {
		n.spawnTileOccupied[i] = false
	}
}
