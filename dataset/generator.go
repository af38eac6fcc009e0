package dataset

import (
	"fmt"
	"math/rand"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/pkg/conv"
)

// 采样生成器均使用独立的伪随机源（rand.New），保证：
//   - 固定 seed 下序列完全可复现
//   - 无关的带种子调用相互交错时互不干扰

// randomIter 以均匀随机、不重复的顺序产出行快照。
type randomIter struct {
	ds    *MemoryInteractionDataset
	rows  []*row
	order []int
	pos   int
}

func (it *randomIter) Next() (core.Record, bool) {
	if it.pos >= len(it.order) {
		return nil, false
	}
	r := it.rows[it.order[it.pos]]
	it.pos++
	return it.ds.record(r, it.ds.cols), true
}

// SelectRandomGenerator 返回随机行迭代器。query 非空时先按查询过滤。
// 单个迭代器生命周期内每行至多产出一次；重复使用需新建迭代器。
func (ds *MemoryInteractionDataset) SelectRandomGenerator(query string, seed int64) (core.RecordIter, error) {
	rows := ds.rows
	if query != "" {
		q, err := ds.compileQuery(query)
		if err != nil {
			return nil, err
		}
		matched := make([]*row, 0)
		for _, r := range ds.rows {
			ok, err := q.Matches(ds.rowMap(r))
			if err != nil {
				return nil, err
			}
			if ok {
				matched = append(matched, r)
			}
		}
		rows = matched
	}
	rng := rand.New(rand.NewSource(seed))
	return &randomIter{ds: ds, rows: rows, order: rng.Perm(len(rows))}, nil
}

// buildPositives 计算正交互集合：uid -> 正交互物品 iid 集合。
// threshold 为 nil 时出现即为正；否则交互值 >= *threshold 为正
// （交互值不可转为数值的行不计为正）。
func (ds *MemoryInteractionDataset) buildPositives(threshold *float64) (map[int]map[int]bool, error) {
	if ds.idx == nil {
		return nil, errNoInternalIDs
	}
	uidCI := ds.colIndex(core.ColUID)
	iidCI := ds.colIndex(core.ColIID)
	interCI := ds.colIndex(core.ColInteraction)
	if threshold != nil && interCI < 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: column %q is required for threshold-based positivity", core.ColInteraction))
	}

	positives := make(map[int]map[int]bool, len(ds.idx.uidToUser))
	for _, r := range ds.rows {
		if threshold != nil {
			v, ok := conv.ToFloat64(r.vals[interCI])
			if !ok || v < *threshold {
				continue
			}
		}
		uid, _ := conv.ToInt(r.vals[uidCI])
		iid, _ := conv.ToInt(r.vals[iidCI])
		if positives[uid] == nil {
			positives[uid] = make(map[int]bool)
		}
		positives[uid][iid] = true
	}
	return positives, nil
}

// nullPairIter 在全体 (uid, iid) 组合减去正交互集合的补集上做无重复均匀采样。
//
// 稀疏阶段使用拒绝采样（补集远大于已产出集合时命中率高）；
// 连续拒绝过多时一次性枚举剩余补集并洗牌，保证耗尽前有限步内必然产出、
// 耗尽后立即停止，而不是无限循环。
type nullPairIter struct {
	rng       *rand.Rand
	positives map[int]map[int]bool
	nUsers    int
	nItems    int
	total     int // 补集大小
	yielded   int
	seen      map[int64]bool
	queue     [][2]int // 枚举阶段的剩余补集（已洗牌）
}

const maxRejections = 64

func (it *nullPairIter) Next() (int, int, bool) {
	if it.yielded >= it.total {
		return 0, 0, false
	}
	if it.queue == nil {
		for attempt := 0; attempt < maxRejections; attempt++ {
			uid := it.rng.Intn(it.nUsers)
			iid := it.rng.Intn(it.nItems)
			if it.positives[uid][iid] {
				continue
			}
			key := int64(uid)*int64(it.nItems) + int64(iid)
			if it.seen[key] {
				continue
			}
			it.seen[key] = true
			it.yielded++
			return uid, iid, true
		}
		it.materialize()
	}
	pair := it.queue[len(it.queue)-1]
	it.queue = it.queue[:len(it.queue)-1]
	it.yielded++
	return pair[0], pair[1], true
}

// materialize 枚举尚未产出的补集并洗牌，进入排空阶段。
func (it *nullPairIter) materialize() {
	remaining := make([][2]int, 0, it.total-it.yielded)
	for uid := 0; uid < it.nUsers; uid++ {
		for iid := 0; iid < it.nItems; iid++ {
			if it.positives[uid][iid] {
				continue
			}
			if it.seen[int64(uid)*int64(it.nItems)+int64(iid)] {
				continue
			}
			remaining = append(remaining, [2]int{uid, iid})
		}
	}
	it.rng.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})
	it.queue = remaining
}

// NullInteractionPairGenerator 返回全局负交互对迭代器。
func (ds *MemoryInteractionDataset) NullInteractionPairGenerator(threshold *float64, seed int64) (core.PairIter, error) {
	positives, err := ds.buildPositives(threshold)
	if err != nil {
		return nil, err
	}
	nUsers := len(ds.idx.uidToUser)
	nItems := len(ds.idx.iidToItem)
	nPositive := 0
	for _, items := range positives {
		nPositive += len(items)
	}
	return &nullPairIter{
		rng:       rand.New(rand.NewSource(seed)),
		positives: positives,
		nUsers:    nUsers,
		nItems:    nItems,
		total:     nUsers*nItems - nPositive,
		seen:      make(map[int64]bool),
	}, nil
}

// userNullPairIter 产出单个用户的负交互对；该用户的补集在构建时
// 一次性枚举并洗牌，排空即止。
type userNullPairIter struct {
	uid   int
	queue []int
	pos   int
}

func (it *userNullPairIter) Next() (int, int, bool) {
	if it.pos >= len(it.queue) {
		return 0, 0, false
	}
	iid := it.queue[it.pos]
	it.pos++
	return it.uid, iid, true
}

// NullPairsForUser 返回指定用户的负交互对迭代器。
// 请求数量超过该用户负对空间时，调用方只会拿到现存的部分。
func (ds *MemoryInteractionDataset) NullPairsForUser(uid int, threshold *float64, seed int64) (core.PairIter, error) {
	positives, err := ds.buildPositives(threshold)
	if err != nil {
		return nil, err
	}
	if uid < 0 || uid >= len(ds.idx.uidToUser) {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: unknown uid %d", uid))
	}
	userPos := positives[uid]
	queue := make([]int, 0, len(ds.idx.iidToItem)-len(userPos))
	for iid := 0; iid < len(ds.idx.iidToItem); iid++ {
		if !userPos[iid] {
			queue = append(queue, iid)
		}
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	return &userNullPairIter{uid: uid, queue: queue}, nil
}
