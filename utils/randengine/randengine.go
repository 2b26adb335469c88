// 随机数引擎，包装了golang.org/x/exp/rand，提供仿真中用到的随机决策
package randengine

import (
	"flag"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 说明：仿真单线程推进，同一种子下决策序列可复现，因此不加锁
type Engine struct {
	*rand.Rand
}

// New 创建随机数引擎，实际种子为seed与种子偏移量之和
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以概率p返回true（伯努利试验）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// CoinFlip 等概率返回true或false
func (e *Engine) CoinFlip() bool {
	return e.Intn(2) == 0
}

// Choice 从非空列表中等概率选取一个元素
func Choice[T any](e *Engine, items []T) T {
	if len(items) == 0 {
		panic("randengine: Choice from empty list")
	}
	return items[e.Intn(len(items))]
}

// CumulativePick 按累积阈值选取下标
// 功能：生成[0,1)随机数，返回第一个阈值不小于该随机数的下标
// 参数：thresholds-单调不减的累积阈值，最后一项应为1
// 返回：选中的下标；随机数超过所有阈值时返回最后一个下标
func (e *Engine) CumulativePick(thresholds []float64) int {
	r := e.Float64()
	for i, th := range thresholds {
		if r <= th {
			return i
		}
	}
	return len(thresholds) - 1
}
