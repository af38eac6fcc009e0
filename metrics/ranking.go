// Package metrics 实现排名质量指标（Precision@k、Recall@k、AP@k、
// HitRatio@k、NDCG@k、ReciprocalRank@k）。
//
// 所有指标共享同一签名：输入按从优到劣排列的候选物品（内部 id）、
// 相关物品集合、截断深度 k 以及可选的额外参数，输出 [0, 1] 内的标量。
// 指标不重新排序：同分物品的先后完全由模型给出的顺序决定。
package metrics

import "math"

// Func 是指标函数的统一签名。
// recommendations 按从优到劣排列；relevant 是真实相关物品集合；
// k 是截断深度；opts 携带指标特定的额外参数（可为 nil）。
type Func func(recommendations []int, relevant map[int]bool, k int, opts map[string]any) float64

// truncate 按 k 截断推荐列表。
func truncate(recommendations []int, k int) []int {
	if k > 0 && k < len(recommendations) {
		return recommendations[:k]
	}
	return recommendations
}

// hits 统计截断列表中相关物品的数量。
func hits(top []int, relevant map[int]bool) int {
	n := 0
	for _, iid := range top {
		if relevant[iid] {
			n++
		}
	}
	return n
}

// Precision 返回前 k 个推荐中相关物品的占比（分母为截断后的列表长度）。
func Precision(recommendations []int, relevant map[int]bool, k int, _ map[string]any) float64 {
	top := truncate(recommendations, k)
	if len(top) == 0 {
		return 0
	}
	return float64(hits(top, relevant)) / float64(len(top))
}

// Recall 返回前 k 个推荐覆盖的相关物品占全部相关物品的比例。
func Recall(recommendations []int, relevant map[int]bool, k int, _ map[string]any) float64 {
	if len(relevant) == 0 {
		return 0
	}
	top := truncate(recommendations, k)
	return float64(hits(top, relevant)) / float64(len(relevant))
}

// HitRatio 返回前 k 个推荐命中的相关物品比例。
func HitRatio(recommendations []int, relevant map[int]bool, k int, _ map[string]any) float64 {
	if len(relevant) == 0 {
		return 0
	}
	top := truncate(recommendations, k)
	return float64(hits(top, relevant)) / float64(len(relevant))
}

// AveragePrecision 返回截断平均精度：对每个命中位置 i 取 Precision@i，
// 求和后除以 min(|relevant|, k)。
func AveragePrecision(recommendations []int, relevant map[int]bool, k int, _ map[string]any) float64 {
	if len(relevant) == 0 {
		return 0
	}
	top := truncate(recommendations, k)
	sum := 0.0
	found := 0
	for i, iid := range top {
		if relevant[iid] {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	denom := len(relevant)
	if k > 0 && k < denom {
		denom = k
	}
	if denom == 0 {
		return 0
	}
	return sum / float64(denom)
}

// NDCG 返回二值相关性、log2 折损的归一化折损累积增益。
// 理想 DCG 取前 min(|relevant|, k) 个位置全部命中。
func NDCG(recommendations []int, relevant map[int]bool, k int, _ map[string]any) float64 {
	top := truncate(recommendations, k)
	dcg := 0.0
	for i, iid := range top {
		if relevant[iid] {
			dcg += 1 / math.Log2(float64(i)+2)
		}
	}
	ideal := len(relevant)
	if k > 0 && k < ideal {
		ideal = k
	}
	if ideal == 0 {
		return 0
	}
	idcg := 0.0
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}
	return dcg / idcg
}

// ReciprocalRank 返回前 k 个推荐中第一个相关物品排名的倒数；无命中时为 0。
func ReciprocalRank(recommendations []int, relevant map[int]bool, k int, _ map[string]any) float64 {
	top := truncate(recommendations, k)
	for i, iid := range top {
		if relevant[iid] {
			return 1 / float64(i+1)
		}
	}
	return 0
}
