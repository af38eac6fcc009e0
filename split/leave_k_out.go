// Package split 提供训练/测试数据集切分：逐用户 leave-k-out 与矩阵切分。
//
// 推荐的使用顺序是先 AssignInternalIDs 再切分：切分产出的两个数据集
// 都携带完整内部 id 索引的副本，uid/iid 在训练集与测试集之间保持一致，
// 这是 eval.RankingEvaluation 对测试集的前提。
package split

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/pkg/conv"
)

// LeaveKOutOptions 是 LeaveKOut 的可选项。
type LeaveKOutOptions struct {
	// K 每个用户划入测试集的交互数：>= 1 按条数，(0, 1) 按比例（向下取整）。
	K float64

	// MinUserInteractions 交互数低于此值的用户整体留在训练集。
	MinUserInteractions int

	// LastTimestamps 为 true 时按时间戳取最近的 K 条（模拟时序留出），
	// 否则按种子随机抽取。
	LastTimestamps bool

	// TimestampColumn 时间戳列名，默认 "timestamp"。
	TimestampColumn string

	// Seed 随机抽取使用的种子。
	Seed int64

	// MaxConcurrent 逐用户计算的最大并发数（<= 0 表示不限制）。
	// 每个用户使用独立的派生种子，结果与调度顺序无关。
	MaxConcurrent int
}

// userRows 是单个用户的全部交互（rid 加可选时间戳）。
type userRows struct {
	rids []int
	ts   []float64
}

// LeaveKOut 逐用户把 K 条交互划入测试集，其余留在训练集。
// 返回的两个数据集都是独立副本，不与输入共享可变状态。
func LeaveKOut(ctx context.Context, ds core.InteractionDataset, opts LeaveKOutOptions) (train, test core.InteractionDataset, err error) {
	if opts.K <= 0 {
		return nil, nil, core.NewDomainError(core.ModuleSplit, core.ErrorCodeInvalidInput,
			"split: k should be > 0")
	}
	tsCol := opts.TimestampColumn
	if tsCol == "" {
		tsCol = "timestamp"
	}

	// 已建立内部 id 时按 uid 分组，否则按原始 user 列分组
	keyCol := core.ColUser
	if ds.HasInternalIDs() {
		keyCol = core.ColUID
	}
	cols := []string{keyCol}
	if opts.LastTimestamps {
		cols = append(cols, tsCol)
	}
	it, err := ds.Values(cols...)
	if err != nil {
		return nil, nil, err
	}

	byUser := make(map[any]*userRows)
	var order []any
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		key := rec[keyCol]
		u := byUser[key]
		if u == nil {
			u = &userRows{}
			byUser[key] = u
			order = append(order, key)
		}
		u.rids = append(u.rids, rec.RID())
		if opts.LastTimestamps {
			ts, _ := conv.ToFloat64(rec[tsCol])
			u.ts = append(u.ts, ts)
		}
	}

	var (
		mu       sync.Mutex
		testRIDs []int
	)
	eg, _ := errgroup.WithContext(ctx)
	if opts.MaxConcurrent > 0 {
		eg.SetLimit(opts.MaxConcurrent)
	}
	for i, key := range order {
		u := byUser[key]
		userSeed := opts.Seed + int64(i)*1_000_003 // 派生种子只依赖首次出现顺序
		eg.Go(func() error {
			picked := pickTestRows(u, opts, userSeed)
			if len(picked) == 0 {
				return nil
			}
			mu.Lock()
			testRIDs = append(testRIDs, picked...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
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

// pickTestRows 为单个用户挑选划入测试集的 rid。
func pickTestRows(u *userRows, opts LeaveKOutOptions, seed int64) []int {
	n := len(u.rids)
	if n < opts.MinUserInteractions {
		return nil
	}
	k := int(opts.K)
	if opts.K < 1 {
		k = int(opts.K * float64(n))
	}
	if k <= 0 || k >= n {
		// 不足以同时留出测试集和非空训练集
		return nil
	}

	if opts.LastTimestamps {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		// 时间戳相同则按 rid 保证确定性
		sort.Slice(idx, func(a, b int) bool {
			if u.ts[idx[a]] != u.ts[idx[b]] {
				return u.ts[idx[a]] > u.ts[idx[b]]
			}
			return u.rids[idx[a]] > u.rids[idx[b]]
		})
		picked := make([]int, 0, k)
		for _, i := range idx[:k] {
			picked = append(picked, u.rids[i])
		}
		return picked
	}

	rng := rand.New(rand.NewSource(seed))
	picked := make([]int, 0, k)
	for _, i := range rng.Perm(n)[:k] {
		picked = append(picked, u.rids[i])
	}
	return picked
}
