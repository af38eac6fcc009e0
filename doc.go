// Package drecpy 是一个推荐系统工具包：表示用户-物品交互数据、
// 评估推荐模型并报告排名质量指标。
//
// 设计要点：
// - Dataset-first: 所有模型与评估流程都消费 core.InteractionDataset
//   （带查询 DSL、稳定内部 id 与带种子的采样生成器的内存表格存储）
// - 评估可复现: 固定种子下逐用户候选构建、负采样与多截断指标聚合
//   完全确定
// - 模型可插拔: 具体模型只需实现 core.Recommender 的排序契约
package drecpy

import "github.com/lasigeBioTM/DRecPy/core"

// 轻量 facade：便于用户直接 import 根包使用核心抽象。
type InteractionDataset = core.InteractionDataset
type Record = core.Record
type Recommender = core.Recommender
type RankedItem = core.RankedItem

const (
	ColUser        = core.ColUser
	ColItem        = core.ColItem
	ColInteraction = core.ColInteraction
)
