// Package eval 实现排名评估流程：逐用户构建候选集（正例来自评估数据集、
// 负例来自数据集本身或负采样生成器）、调用模型的排序能力，并在一个或
// 多个截断深度上聚合排名指标。
package eval

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/pkg/conv"
)

// userInteraction 是单个用户在评估数据集中的一条交互。
type userInteraction struct {
	iid      int
	value    float64
	hasValue bool
}

// RankingEvaluation 评估模型的排名质量，返回 "指标名@k" 到分数的映射。
//
// testDS 为 nil 时在模型的训练集上评估。流程（逐用户）：
//  1. 按阈值与 NPosInteractions 确定正例物品集合（只截断，不补齐）
//  2. 确定负例：评估集中的非正交互（可截断），或在
//     GenerateNegativePairs 下通过负采样生成器补足到 NNegInteractions
//  3. Novelty 时剔除训练集中已知的候选物品
//  4. 无正例（或候选被 novelty 清空）的用户跳过，不参与聚合
//  5. 在最大 k 上排序一次，较小 k 由同一列表截断（避免重复调用模型）
//  6. 对每个 k、每个指标打分
//
// 聚合：逐指标逐 k 对未跳过用户取均值，四舍五入到 4 位小数；
// 全部用户被跳过时所有指标为 0。负采样不足不是错误：有多少用多少。
// 固定 Seed 时两次调用返回完全一致的结果。
func RankingEvaluation(ctx context.Context, model core.Recommender, testDS core.InteractionDataset, opts *RankingOptions) (map[string]float64, error) {
	if model == nil {
		return nil, errEval("Expected a model to evaluate.")
	}
	o := RankingOptions{}
	if opts != nil {
		o = *opts
		o.K = append([]int(nil), opts.K...)
		o.Metrics = append([]Metric(nil), opts.Metrics...)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	trainDS := model.TrainSet()
	evalDS := testDS
	if evalDS == nil {
		evalDS = trainDS
	}
	if evalDS == nil {
		return nil, errEval("Expected the model to expose a training dataset for train-time evaluation.")
	}
	if !evalDS.HasInternalIDs() {
		return nil, errEval("Expected the evaluation dataset to have internal ids assigned.")
	}

	// novelty 过滤读训练集的已知物品；训练集评估 + novelty 必然把候选清空，
	// 这是允许的（结果退化为全 0），但训练集必须已建立内部 id
	var knownItems map[int]map[int]bool
	if o.Novelty {
		if trainDS == nil || !trainDS.HasInternalIDs() {
			return nil, errEval("Expected the model to expose an indexed training dataset for novelty filtering.")
		}
		var err error
		knownItems, err = collectUserItems(trainDS)
		if err != nil {
			return nil, err
		}
	}

	byUser, userOrder, err := collectInteractions(evalDS)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(o.Seed))
	users := userOrder
	if o.NTestUsers != nil && *o.NTestUsers < len(users) {
		sampled := make([]int, 0, *o.NTestUsers)
		for _, i := range rng.Perm(len(users))[:*o.NTestUsers] {
			sampled = append(sampled, users[i])
		}
		users = sampled
	}

	maxK := o.maxK()
	keys := make([]string, 0, len(o.Metrics)*len(o.K))
	for _, m := range o.Metrics {
		for _, k := range o.K {
			keys = append(keys, fmt.Sprintf("%s@%d", m.Name, k))
		}
	}
	sums := make(map[string]float64, len(keys))
	counted := 0

	for _, uid := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// 每个用户固定消耗一个派生种子，保证用户顺序确定时全程可复现
		userSeed := rng.Int63()

		positives, negatives := splitByThreshold(byUser[uid], o.InteractionThreshold)

		if o.NPosInteractions != nil && len(positives) > *o.NPosInteractions {
			positives = sampleIIDs(rng, positives, *o.NPosInteractions)
		}

		if o.GenerateNegativePairs {
			gen, err := evalDS.NullPairsForUser(uid, o.InteractionThreshold, userSeed)
			if err != nil {
				return nil, err
			}
			negatives = negatives[:0]
			for len(negatives) < *o.NNegInteractions {
				_, iid, ok := gen.Next()
				if !ok {
					break // 负对空间耗尽：有多少用多少
				}
				negatives = append(negatives, iid)
			}
		} else if o.NNegInteractions != nil && len(negatives) > *o.NNegInteractions {
			negatives = sampleIIDs(rng, negatives, *o.NNegInteractions)
		}

		if o.Novelty {
			known := knownItems[uid]
			positives = filterKnown(positives, known)
			negatives = filterKnown(negatives, known)
		}

		if len(positives) == 0 {
			continue // 没有可命中的正例，该用户不参与聚合
		}

		relevant := make(map[int]bool, len(positives))
		candidates := make([]int, 0, len(positives)+len(negatives))
		for _, iid := range positives {
			if !relevant[iid] {
				relevant[iid] = true
				candidates = append(candidates, iid)
			}
		}
		for _, iid := range negatives {
			if !relevant[iid] {
				candidates = append(candidates, iid)
			}
		}

		ranked, err := model.Rank(ctx, uid, candidates, maxK)
		if err != nil {
			return nil, fmt.Errorf("rank uid %d: %w", uid, err)
		}
		recs := make([]int, len(ranked))
		for i, it := range ranked {
			recs[i] = it.IID
		}

		for _, m := range o.Metrics {
			for _, k := range o.K {
				sums[fmt.Sprintf("%s@%d", m.Name, k)] += m.Fn(recs, relevant, k, m.Options)
			}
		}
		counted++
	}

	out := make(map[string]float64, len(keys))
	for _, key := range keys {
		if counted == 0 {
			out[key] = 0
			continue
		}
		out[key] = math.Round(sums[key]/float64(counted)*10000) / 10000
	}
	return out, nil
}

// collectInteractions 一遍扫描评估数据集，把交互按 uid 分组，
// 并记录用户的首次出现顺序（评估用户群的确定性顺序）。
func collectInteractions(ds core.InteractionDataset) (map[int][]userInteraction, []int, error) {
	hasValue := false
	for _, c := range ds.Columns() {
		if c == core.ColInteraction {
			hasValue = true
			break
		}
	}
	cols := []string{core.ColUID, core.ColIID}
	if hasValue {
		cols = append(cols, core.ColInteraction)
	}
	it, err := ds.Values(cols...)
	if err != nil {
		return nil, nil, err
	}

	byUser := make(map[int][]userInteraction)
	var order []int
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		uid, _ := rec.Int(core.ColUID)
		iid, _ := rec.Int(core.ColIID)
		ui := userInteraction{iid: iid}
		if hasValue {
			if v, ok := conv.ToFloat64(rec[core.ColInteraction]); ok {
				ui.value = v
				ui.hasValue = true
			}
		}
		if _, seen := byUser[uid]; !seen {
			order = append(order, uid)
		}
		byUser[uid] = append(byUser[uid], ui)
	}
	return byUser, order, nil
}

// collectUserItems 收集每个用户交互过的物品集合（novelty 过滤用）。
func collectUserItems(ds core.InteractionDataset) (map[int]map[int]bool, error) {
	it, err := ds.Values(core.ColUID, core.ColIID)
	if err != nil {
		return nil, err
	}
	known := make(map[int]map[int]bool)
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		uid, _ := rec.Int(core.ColUID)
		iid, _ := rec.Int(core.ColIID)
		if known[uid] == nil {
			known[uid] = make(map[int]bool)
		}
		known[uid][iid] = true
	}
	return known, nil
}

// splitByThreshold 把用户的交互按正例判定拆为正例与负例物品列表。
// threshold 为 nil 时出现即为正，负例列表为空。
func splitByThreshold(interactions []userInteraction, threshold *float64) (positives, negatives []int) {
	for _, ui := range interactions {
		if threshold == nil || (ui.hasValue && ui.value >= *threshold) {
			positives = append(positives, ui.iid)
		} else {
			negatives = append(negatives, ui.iid)
		}
	}
	return positives, negatives
}

// sampleIIDs 从 iids 中无放回随机抽取 n 个（只截断，不补齐）。
func sampleIIDs(rng *rand.Rand, iids []int, n int) []int {
	out := make([]int, 0, n)
	for _, i := range rng.Perm(len(iids))[:n] {
		out = append(out, iids[i])
	}
	return out
}

// filterKnown 从 iids 中剔除已知物品。
func filterKnown(iids []int, known map[int]bool) []int {
	if len(known) == 0 {
		return iids
	}
	out := iids[:0]
	for _, iid := range iids {
		if !known[iid] {
			out = append(out, iid)
		}
	}
	return out
}
