// Package model 提供推荐模型协作方的辅助封装。
// 具体模型实现不属于本库；这里只包含围绕 core.Recommender 契约的包装器。
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/lasigeBioTM/DRecPy/core"
)

// CachedRecommender 包装任意 core.Recommender，把排序结果缓存到
// core.Store。对昂贵模型（RPC 模型、大型相似度模型）做重复评估时，
// 相同 (uid, 候选集, n) 的排序只计算一次。
//
// 缓存键由候选集内容决定（与顺序无关），候选集变化自然触发重新计算。
type CachedRecommender struct {
	base  core.Recommender
	cache core.Store
	ttl   int // 过期秒数，<= 0 表示不过期
}

var _ core.Recommender = (*CachedRecommender)(nil)

// NewCachedRecommender 创建缓存包装器。ttlSeconds <= 0 表示缓存不过期。
func NewCachedRecommender(base core.Recommender, cache core.Store, ttlSeconds int) *CachedRecommender {
	return &CachedRecommender{base: base, cache: cache, ttl: ttlSeconds}
}

// Rank 先查缓存，未命中时调用底层模型并回填。
// 缓存读写失败不致命：退化为直接调用底层模型。
func (c *CachedRecommender) Rank(ctx context.Context, uid int, iids []int, n int) ([]core.RankedItem, error) {
	key := c.cacheKey(uid, iids, n)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var cached []core.RankedItem
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	ranked, err := c.base.Rank(ctx, uid, iids, n)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(ranked); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return ranked, nil
}

// TrainSet 透传底层模型的训练集。
func (c *CachedRecommender) TrainSet() core.InteractionDataset {
	return c.base.TrainSet()
}

// cacheKey 生成缓存键：uid、n 加候选集的顺序无关哈希。
func (c *CachedRecommender) cacheKey(uid int, iids []int, n int) string {
	sorted := append([]int(nil), iids...)
	sort.Ints(sorted)
	h := fnv.New64a()
	var buf [8]byte
	for _, iid := range sorted {
		v := uint64(iid)
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	return fmt.Sprintf("rank:%d:%d:%x", uid, n, h.Sum64())
}
