package eval

import (
	"fmt"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/metrics"
)

// Metric 是一项指标配置：展示名、打分函数与额外参数。
// 配置在评估开始前被立即校验（而不是等到第一次打分时才失败）。
type Metric struct {
	Name    string
	Fn      metrics.Func
	Options map[string]any
}

// RankingOptions 是 RankingEvaluation 的全部可选项。
// 指针字段为 nil 表示"未设置"，沿用默认行为。
type RankingOptions struct {
	// NTestUsers 从评估用户群中抽取的用户数；nil 表示全部。必须 > 0。
	NTestUsers *int

	// K 排名指标的截断深度，单个或多个；每个值必须 > 0。默认 [10]。
	K []int

	// NPosInteractions 每个用户的正交互上限；nil 表示不限。必须 > 0。
	// 超出上限时随机抽取（只截断，不补齐）。
	NPosInteractions *int

	// NNegInteractions 每个用户的负交互上限/目标数；nil 表示不限。必须 > 0。
	NNegInteractions *int

	// GenerateNegativePairs 为 true 时通过负采样生成器补负例，
	// 而不是只用评估数据集里已有的非正交互；要求 NNegInteractions 已设置。
	GenerateNegativePairs bool

	// InteractionThreshold 正例判定阈值；nil 表示"出现即为正"。
	InteractionThreshold *float64

	// Novelty 为 true 时从候选中剔除用户在训练集中已交互过的物品。
	Novelty bool

	// Seed 所有带随机性的步骤共用的种子；固定后两次评估结果完全一致。
	Seed int64

	// Metrics 指标配置；nil 表示默认的六项排名指标。
	Metrics []Metric
}

// Int 返回 v 的指针，便于内联填写可选项。
func Int(v int) *int { return &v }

// Float 返回 v 的指针，便于内联填写可选项。
func Float(v float64) *float64 { return &v }

// DefaultMetrics 返回默认的六项排名指标，展示名沿用通行缩写。
func DefaultMetrics() []Metric {
	return []Metric{
		{Name: "P", Fn: metrics.Precision},
		{Name: "R", Fn: metrics.Recall},
		{Name: "HR", Fn: metrics.HitRatio},
		{Name: "AP", Fn: metrics.AveragePrecision},
		{Name: "NDCG", Fn: metrics.NDCG},
		{Name: "RR", Fn: metrics.ReciprocalRank},
	}
}

// errEval 构造评估模块的校验错误，消息文本即对外约定的提示文本。
func errEval(format string, args ...any) error {
	return core.NewDomainError(core.ModuleEval, core.ErrorCodeInvalidInput,
		fmt.Sprintf(format, args...))
}

// validate 校验全部选项并填充默认值。校验失败立即返回，不做重试：
// 这些都是调用方的编程/配置错误。
func (o *RankingOptions) validate() error {
	if o.NTestUsers != nil && *o.NTestUsers <= 0 {
		return errEval("The number of test users (%d) should be > 0.", *o.NTestUsers)
	}
	if len(o.K) == 0 {
		o.K = []int{10}
	}
	ks := make([]int, 0, len(o.K))
	seenK := make(map[int]bool, len(o.K))
	for _, k := range o.K {
		if k <= 0 {
			return errEval("k (%d) should be > 0.", k)
		}
		if !seenK[k] {
			seenK[k] = true
			ks = append(ks, k)
		}
	}
	o.K = ks
	if o.NPosInteractions != nil && *o.NPosInteractions <= 0 {
		return errEval("The number of positive interactions (%d) should be nil or an integer > 0.", *o.NPosInteractions)
	}
	if o.NNegInteractions != nil && *o.NNegInteractions <= 0 {
		return errEval("The number of negative interactions (%d) should be nil or an integer > 0.", *o.NNegInteractions)
	}
	if o.GenerateNegativePairs && o.NNegInteractions == nil {
		return errEval("Cannot generate negative interaction pairs when the number of negative " +
			"interactions per user is not defined. Either set GenerateNegativePairs to false " +
			"or define the NNegInteractions parameter.")
	}
	if o.Metrics == nil {
		o.Metrics = DefaultMetrics()
	}
	seenName := make(map[string]bool, len(o.Metrics))
	for _, m := range o.Metrics {
		if m.Name == "" {
			return errEval("Expected every metric to have a non-empty name.")
		}
		if m.Fn == nil {
			return errEval("Expected metric %s to provide a scoring function.", m.Name)
		}
		if seenName[m.Name] {
			return errEval("Expected metric names to be unique, found duplicate %s.", m.Name)
		}
		seenName[m.Name] = true
	}
	return nil
}

// maxK 返回最大的截断深度；排序一次取最大 k，小 k 由同一列表截断得出。
func (o *RankingOptions) maxK() int {
	max := 0
	for _, k := range o.K {
		if k > max {
			max = k
		}
	}
	return max
}
