package network

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
	"github.com/tsinghua-fib-lab/tilesim/utils/randengine"
)

// NoTile 不存在的瓦片
const NoTile int32 = -1

// TileIndex 点所在瓦片的ID，越界的坐标截断到网格边缘
func (n *Network) TileIndex(p geometry.Point) int32 {
	col := lo.Clamp(int32(math.Floor(p.X/n.tileSize)), 0, n.cols-1)
	row := lo.Clamp(int32(math.Floor(p.Y/n.tileSize)), 0, n.rows-1)
	return col + row*n.cols
}

// TileOf 点所在瓦片的ID
// 说明：与TileIndex相同，但若该瓦片中有出生点，会把它标记为有车，阻止本步之后的出生
func (n *Network) TileOf(p geometry.Point) int32 {
	id := n.TileIndex(p)
	if n.TileContains(id, KindSpawn) {
		n.spawnTileOccupied[id] = true
	}
	return id
}

// SpawnTileOccupied 瓦片是否被标记为有车
func (n *Network) SpawnTileOccupied(tile int32) bool {
	if tile < 0 || int(tile) >= len(n.spawnTileOccupied) {
		return false
	}
	return n.spawnTileOccupied[tile]
}

// AdjacentTileInHeading 朝向指向的相邻瓦片
// 功能：把朝向量化为以坐标轴为中心的四个方向（右、上、左、下），返回该方向上的相邻瓦片
// 返回：相邻瓦片ID，位于网格边缘时返回NoTile
func (n *Network) AdjacentTileInHeading(tile int32, heading float64) int32 {
	if tile < 0 || int(tile) >= len(n.tiles) {
		return NoTile
	}
	h := geometry.CorrectRadian(heading)
	switch {
	case h <= math.Pi/4 || h > 7*math.Pi/4: // 右
		if (tile+1)%n.cols != 0 {
			return tile + 1
		}
	case h <= 3*math.Pi/4: // 上
		if tile >= n.cols {
			return tile - n.cols
		}
	case h <= 5*math.Pi/4: // 左
		if tile%n.cols != 0 {
			return tile - 1
		}
	default: // 下
		if tile < n.cols*(n.rows-1) {
			return tile + n.cols
		}
	}
	return NoTile
}

// TileContains 瓦片中是否有该类元素
func (n *Network) TileContains(tile int32, kind ElementKind) bool {
	if tile < 0 || int(tile) >= len(n.tiles) {
		return false
	}
	return !n.tiles[tile].ranges[kind].Empty()
}

// TileContainsSpecific 瓦片中是否有指定ID的元素
func (n *Network) TileContainsSpecific(tile int32, kind ElementKind, id int32) bool {
	if tile < 0 || int(tile) >= len(n.tiles) {
		return false
	}
	return n.tiles[tile].ranges[kind].Contains(id)
}

// ids 若干瓦片中某类元素的全部ID，忽略NoTile与重复瓦片
func (n *Network) ids(kind ElementKind, tiles ...int32) []int32 {
	res := make([]int32, 0)
	for _, t := range lo.Uniq(tiles) {
		if t < 0 || int(t) >= len(n.tiles) {
			continue
		}
		r := n.tiles[t].ranges[kind]
		for id := r.Start; id < r.End; id++ {
			res = append(res, id)
		}
	}
	return res
}

// SpawnCandidates 本步出生的出生点
// 功能：对每个所在瓦片未被占用的出生点进行一次概率为 probability*dt 的伯努利试验
// 参数：dt-时间步长（秒），rng-随机数引擎
// 返回：通过试验的出生点ID，按ID升序
func (n *Network) SpawnCandidates(dt float64, rng *randengine.Engine) []int32 {
	res := make([]int32, 0)
	for _, s := range n.spawns {
		if n.spawnTileOccupied[s.Tile] {
			continue
		}
		if rng.PTrue(s.Probability * dt) {
			res = append(res, s.ID)
		}
	}
	return res
}
