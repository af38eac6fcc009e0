package dataset

import (
	"fmt"
	"math"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/pkg/conv"
	"github.com/lasigeBioTM/DRecPy/pkg/dsl"
)

// internalIndex 维护 原始 id <-> 内部 id 的双向映射。
// 内部 id 按首次出现顺序从 0 连续分配，user 与 item 各自独立编号，
// 且在数据集生命周期内保持稳定。
type internalIndex struct {
	userToUID map[any]int
	uidToUser []any
	itemToIID map[any]int
	iidToItem []any
}

// clone 深拷贝索引；nil 索引拷贝仍为 nil。
func (idx *internalIndex) clone() *internalIndex {
	if idx == nil {
		return nil
	}
	out := &internalIndex{
		userToUID: make(map[any]int, len(idx.userToUID)),
		uidToUser: append([]any(nil), idx.uidToUser...),
		itemToIID: make(map[any]int, len(idx.itemToIID)),
		iidToItem: append([]any(nil), idx.iidToItem...),
	}
	for k, v := range idx.userToUID {
		out.userToUID[k] = v
	}
	for k, v := range idx.itemToIID {
		out.itemToIID[k] = v
	}
	return out
}

var errNoInternalIDs = core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
	"dataset: internal ids were not assigned")

// AssignInternalIDs 扫描全部行，按首次出现顺序为 user/item 原始 id 分配
// 从 0 连续的内部 id，并追加 uid/iid 两列。结果只取决于行的迭代顺序。
// 已分配内部 id 的数据集再次调用返回错误：静默重分配会使外部持有的
// uid/iid 引用失效。
func (ds *MemoryInteractionDataset) AssignInternalIDs() error {
	if ds.idx != nil {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			"dataset: internal ids were already assigned")
	}
	userCI := ds.colIndex(core.ColUser)
	itemCI := ds.colIndex(core.ColItem)
	if userCI < 0 || itemCI < 0 {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: columns %q and %q are required to assign internal ids",
				core.ColUser, core.ColItem))
	}

	idx := &internalIndex{
		userToUID: make(map[any]int),
		itemToIID: make(map[any]int),
	}
	for _, r := range ds.rows {
		user := r.vals[userCI]
		uid, ok := idx.userToUID[user]
		if !ok {
			uid = len(idx.uidToUser)
			idx.userToUID[user] = uid
			idx.uidToUser = append(idx.uidToUser, user)
		}
		item := r.vals[itemCI]
		iid, ok := idx.itemToIID[item]
		if !ok {
			iid = len(idx.iidToItem)
			idx.itemToIID[item] = iid
			idx.iidToItem = append(idx.iidToItem, item)
		}
		r.vals = append(r.vals, uid, iid)
	}
	ds.cols = append(ds.cols, core.ColUID, core.ColIID)
	ds.idx = idx
	ds.queries = make(map[string]*dsl.Query) // schema 变化，缓存失效
	return nil
}

// RemoveInternalIDs 删除 uid/iid 两列并使索引失效；未分配时为空操作。
func (ds *MemoryInteractionDataset) RemoveInternalIDs() {
	if ds.idx == nil {
		return
	}
	uidCI := ds.colIndex(core.ColUID)
	iidCI := ds.colIndex(core.ColIID)
	keep := make([]int, 0, len(ds.cols)-2)
	for i := range ds.cols {
		if i != uidCI && i != iidCI {
			keep = append(keep, i)
		}
	}
	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = ds.cols[i]
	}
	for _, r := range ds.rows {
		vals := make([]any, len(keep))
		for j, i := range keep {
			vals[j] = r.vals[i]
		}
		r.vals = vals
	}
	ds.cols = cols
	ds.idx = nil
	ds.queries = make(map[string]*dsl.Query)
}

// UserToUID 把用户原始 id 转为内部 id。
func (ds *MemoryInteractionDataset) UserToUID(user any) (int, error) {
	if ds.idx == nil {
		return 0, errNoInternalIDs
	}
	uid, ok := ds.idx.userToUID[user]
	if !ok {
		return 0, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: unknown user %v", user))
	}
	return uid, nil
}

// UIDToUser 把用户内部 id 转回原始 id。
func (ds *MemoryInteractionDataset) UIDToUser(uid int) (any, error) {
	if ds.idx == nil {
		return nil, errNoInternalIDs
	}
	if uid < 0 || uid >= len(ds.idx.uidToUser) {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: unknown uid %d", uid))
	}
	return ds.idx.uidToUser[uid], nil
}

// ItemToIID 把物品原始 id 转为内部 id。
func (ds *MemoryInteractionDataset) ItemToIID(item any) (int, error) {
	if ds.idx == nil {
		return 0, errNoInternalIDs
	}
	iid, ok := ds.idx.itemToIID[item]
	if !ok {
		return 0, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: unknown item %v", item))
	}
	return iid, nil
}

// IIDToItem 把物品内部 id 转回原始 id。
func (ds *MemoryInteractionDataset) IIDToItem(iid int) (any, error) {
	if ds.idx == nil {
		return nil, errNoInternalIDs
	}
	if iid < 0 || iid >= len(ds.idx.iidToItem) {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: unknown iid %d", iid))
	}
	return ds.idx.iidToItem[iid], nil
}

// interactionVec 是两个交互向量方法的共用实现。
// 向量按"另一方"的内部 id 索引，长度等于其当前基数；
// 缺失处填 NaN 作为缺失哨兵（零是合法交互值，不能当哨兵用）。
func (ds *MemoryInteractionDataset) interactionVec(id int, keyCol, otherCol string, size int) ([]float64, error) {
	if ds.idx == nil {
		return nil, errNoInternalIDs
	}
	interCI := ds.colIndex(core.ColInteraction)
	if interCI < 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: column %q is required to build interaction vectors", core.ColInteraction))
	}
	keyCI := ds.colIndex(keyCol)
	otherCI := ds.colIndex(otherCol)

	vec := make([]float64, size)
	for i := range vec {
		vec[i] = math.NaN()
	}
	for _, r := range ds.rows {
		k, _ := conv.ToInt(r.vals[keyCI])
		if k != id {
			continue
		}
		other, _ := conv.ToInt(r.vals[otherCI])
		if v, ok := conv.ToFloat64(r.vals[interCI]); ok {
			vec[other] = v
		}
	}
	return vec, nil
}

// SelectUserInteractionVec 构建给定 uid 的交互向量（按 iid 索引）。
func (ds *MemoryInteractionDataset) SelectUserInteractionVec(uid int) ([]float64, error) {
	if ds.idx == nil {
		return nil, errNoInternalIDs
	}
	if uid < 0 || uid >= len(ds.idx.uidToUser) {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: unknown uid %d", uid))
	}
	return ds.interactionVec(uid, core.ColUID, core.ColIID, len(ds.idx.iidToItem))
}

// SelectItemInteractionVec 构建给定 iid 的交互向量（按 uid 索引）。
func (ds *MemoryInteractionDataset) SelectItemInteractionVec(iid int) ([]float64, error) {
	if ds.idx == nil {
		return nil, errNoInternalIDs
	}
	if iid < 0 || iid >= len(ds.idx.iidToItem) {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: unknown iid %d", iid))
	}
	return ds.interactionVec(iid, core.ColIID, core.ColUID, len(ds.idx.uidToUser))
}
