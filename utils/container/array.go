package container

import (
	"github.com/samber/lo"
)

// IIncrementalItem 支持增量更新的元素接口
// 功能：元素记录自己在数组中的下标，用于删除时定位
type IIncrementalItem interface {
	Index() int         // 获取元素的索引
	SetIndex(index int) // 设置元素的索引
}

// IncrementalItemBase 增量元素基类，可嵌入结构体快速实现IIncrementalItem
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：Add/Remove先进入待处理列表，Prepare时统一生效
// 说明：与交换填补的实现不同，Prepare保持剩余元素的相对顺序，新元素按加入顺序追加在末尾。
// 车辆按数组顺序逐个决策，先处理的车辆会影响后处理车辆看到的状态，因此顺序必须稳定。
type IncrementalArray[T IIncrementalItem] struct {
	data   []T // 主数据数组
	add    []T // 待添加的元素列表
	remove []T // 待删除的元素列表
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:   make([]T, 0),
		add:    make([]T, 0),
		remove: make([]T, 0),
	}
}

// Len 获取当前数组长度（不含待添加元素）
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// PendingLen 待添加的元素数量
func (a *IncrementalArray[T]) PendingLen() int {
	return len(a.add)
}

// Data 获取当前数据，调用方不得修改返回的切片
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 增加元素（等到Prepare时才会真正增加）
func (a *IncrementalArray[T]) Add(value T) {
	a.add = append(a.add, value)
}

// Remove 删除元素（等到Prepare时才会真正删除）
func (a *IncrementalArray[T]) Remove(value T) {
	a.remove = append(a.remove, value)
}

// Prepare 执行增量操作
// 算法说明：
// 1. 按下标标记待删除位置，忽略越界或重复的删除请求
// 2. 顺序压缩主数组，跳过被标记的位置
// 3. 追加待添加元素
// 4. 重写所有元素的下标并清空待处理列表
func (a *IncrementalArray[T]) Prepare() {
	if len(a.remove) > 0 {
		drop := make(map[int]struct{}, len(a.remove))
		for _, x := range a.remove {
			if i := x.Index(); i >= 0 && i < len(a.data) {
				drop[i] = struct{}{}
			}
		}
		a.data = lo.Reject(a.data, func(_ T, i int) bool {
			_, ok := drop[i]
			return ok
		})
	}
	a.data = append(a.data, a.add...)
	for i, x := range a.data {
		x.SetIndex(i)
	}
	a.add = []T{}
	a.remove = []T{}
}
