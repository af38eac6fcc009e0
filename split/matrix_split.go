package split

import (
	"math/rand"
	"sort"

	"github.com/lasigeBioTM/DRecPy/core"
)

// MatrixSplitOptions 是 MatrixSplit 的可选项。
type MatrixSplitOptions struct {
	// UserTestRatio 抽入测试子矩阵的用户比例，(0, 1)。
	UserTestRatio float64

	// ItemTestRatio 抽入测试子矩阵的物品比例，(0, 1)。
	ItemTestRatio float64

	// Seed 用户/物品抽样使用的种子。
	Seed int64
}

// MatrixSplit 按用户比例 × 物品比例做矩阵留出：随机抽取一部分用户和
// 一部分物品，两者交叉处的交互进入测试集，其余全部留在训练集。
// 与 LeaveKOut 不同，该切分保证测试集中的用户与物品两个维度都对
// 训练集"部分冷"，适合评估对冷启动敏感的模型。
func MatrixSplit(ds core.InteractionDataset, opts MatrixSplitOptions) (train, test core.InteractionDataset, err error) {
	if opts.UserTestRatio <= 0 || opts.UserTestRatio >= 1 ||
		opts.ItemTestRatio <= 0 || opts.ItemTestRatio >= 1 {
		return nil, nil, core.NewDomainError(core.ModuleSplit, core.ErrorCodeInvalidInput,
			"split: test ratios should be within (0, 1)")
	}

	userCol, itemCol := core.ColUser, core.ColItem
	if ds.HasInternalIDs() {
		userCol, itemCol = core.ColUID, core.ColIID
	}
	it, err := ds.Values(userCol, itemCol)
	if err != nil {
		return nil, nil, err
	}

	type interaction struct {
		rid  int
		user any
		item any
	}
	var (
		rows      []interaction
		users     []any
		items     []any
		seenUsers = make(map[any]bool)
		seenItems = make(map[any]bool)
	)
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		user, item := rec[userCol], rec[itemCol]
		rows = append(rows, interaction{rid: rec.RID(), user: user, item: item})
		if !seenUsers[user] {
			seenUsers[user] = true
			users = append(users, user)
		}
		if !seenItems[item] {
			seenItems[item] = true
			items = append(items, item)
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	testUsers := sampleSet(rng, users, int(opts.UserTestRatio*float64(len(users))))
	testItems := sampleSet(rng, items, int(opts.ItemTestRatio*float64(len(items))))

	var testRIDs []int
	for _, r := range rows {
		if testUsers[r.user] && testItems[r.item] {
			testRIDs = append(testRIDs, r.rid)
		}
	}
	sort.Ints(testRIDs)

	test, err = ds.Drop(testRIDs, true, true)
	if err != nil {
		return nil, nil, err
	}
	train, err = ds.Drop(testRIDs, true, false)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// sampleSet 从 vals 中无放回抽取 n 个，返回集合形式。
func sampleSet(rng *rand.Rand, vals []any, n int) map[any]bool {
	if n > len(vals) {
		n = len(vals)
	}
	out := make(map[any]bool, n)
	for _, i := range rng.Perm(len(vals))[:n] {
		out[vals[i]] = true
	}
	return out
}
