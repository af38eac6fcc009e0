package core

import "context"

// RankedItem 是排序结果中的一个物品：内部 id 加模型打分。
// 列表内的顺序即模型给出的最终顺序，评估流程不会重新排序，
// 同分物品的先后由模型自身决定。
type RankedItem struct {
	IID   int
	Score float64
}

// Recommender 是推荐模型协作方的最小契约。
//
// 具体模型实现（KNN、矩阵分解、神经模型等）不属于本库；评估流程只通过
// 此接口消费模型的排序能力与训练集（novelty 过滤、训练集评估需要后者）。
type Recommender interface {
	// Rank 对给定用户的固定候选物品集合排序，返回分数最高的前 n 个物品，
	// 按从优到劣排列。n <= 0 时返回全部候选的排序结果。
	Rank(ctx context.Context, uid int, iids []int, n int) ([]RankedItem, error)

	// TrainSet 返回模型训练使用的交互数据集。
	TrainSet() InteractionDataset
}
