package core

// 交互数据集的固定列名约定。
// user/item/interaction 是外部数据源提供的可见列；
// rid/uid/iid 是运行时内部标识列，持久化时永远不会写出。
const (
	ColUser        = "user"        // 用户原始 id 列
	ColItem        = "item"        // 物品原始 id 列
	ColInteraction = "interaction" // 交互值列（评分/点击权重等）

	ColRID = "rid" // 行内部 id：插入时分配，删除后不复用
	ColUID = "uid" // 用户内部 id：从 0 连续分配
	ColIID = "iid" // 物品内部 id：从 0 连续分配
)

// Record 是数据集中的一行，以列名到标量值的映射表示。
// 每个 Record 总是携带 "rid"；内部 id 分配后还会携带 "uid" 和 "iid"。
type Record map[string]any

// RID 返回该行的内部行 id，未携带时返回 -1。
func (r Record) RID() int {
	if v, ok := r[ColRID].(int); ok {
		return v
	}
	return -1
}

// Int 按列名取 int 值，不存在或类型不符返回 (0, false)。
func (r Record) Int(column string) (int, bool) {
	switch v := r[column].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Float 按列名取 float64 值，不存在或类型不符返回 (0, false)。
func (r Record) Float(column string) (float64, bool) {
	switch v := r[column].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// RecordIter 是记录的一次性惰性迭代器：每次调用产生一个新的迭代器实例，
// 单个实例只能顺序消费一遍，不可重置。迭代期间不允许对底层数据集做结构性修改。
type RecordIter interface {
	// Next 返回下一条记录；耗尽后返回 (nil, false)。
	Next() (Record, bool)
}

// PairIter 是 (uid, iid) 负采样对的一次性惰性迭代器。
// 采样空间耗尽后 Next 返回 ok=false，而不是无限阻塞或报错。
type PairIter interface {
	Next() (uid int, iid int, ok bool)
}

// ApplyFunc 是 Apply 使用的列值变换函数：输入旧值，输出新值。
// 返回 error 时 Apply 立即中止并把该错误上抛。
type ApplyFunc func(old any) (any, error)

// InteractionDataset 是交互数据集的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（dataset）实现
//   - 遵循依赖倒置原则：评估流程、切分、模型协作方都只依赖此接口
//   - 单写者约束：同一实例同一时刻只允许一个逻辑拥有者读写；
//     Copy 产生完全独立的新拥有者，不共享任何可变状态
//
// 行为约定：
//   - 所有行共享相同的列集合；rid 在实例内唯一且不复用
//   - copy=true 的操作返回独立副本（行与内部 id 索引都被复制）；
//     copy=false 的操作原地修改接收者并返回接收者本身
//   - 需要内部 id 的操作在未分配内部 id 时立即返回 INVALID_INPUT 错误
type InteractionDataset interface {
	// Len 返回当前数据集的行数。
	Len() int

	// Columns 返回可见列名（含已分配的 uid/iid，不含 rid），按 schema 顺序。
	Columns() []string

	// HasInternalIDs 返回是否已分配内部 id。
	HasInternalIDs() bool

	// Select 按查询表达式过滤行。查询格式为 "column operator value"，
	// 多个条件用 ',' 分隔（AND 语义），例如 "user == '123', interaction > 3.5"。
	Select(query string, copy bool) (InteractionDataset, error)

	// SelectOne 返回满足查询的第一条记录；无匹配时返回 (nil, nil)。
	SelectOne(query string, columns ...string) (Record, error)

	// Exists 返回查询是否至少命中一行。
	Exists(query string) (bool, error)

	// Unique 按给定列组合的值元组去重，保留首次出现的行，维持相对顺序。
	// columns 为空时使用全部可见列。
	Unique(columns []string, copy bool) (InteractionDataset, error)

	// CountUnique 返回给定列组合上不同值元组的数量。
	CountUnique(columns ...string) (int, error)

	// Max 返回指定列的最大值，忽略值缺失的行；空数据集或列上没有可比较值时报错。
	Max(column string) (any, error)

	// Min 返回指定列的最小值，语义与 Max 对称。
	Min(column string) (any, error)

	// Drop 删除 rid 在 recordIDs 中的行；keep=true 时语义取反（只保留这些行）。
	Drop(recordIDs []int, copy bool, keep bool) (InteractionDataset, error)

	// Apply 用 fn 原地变换指定列中每一行的值（无 copy 变体，结构性修改）。
	Apply(column string, fn ApplyFunc) error

	// Values 返回惰性记录迭代器，可选投影到列子集。
	Values(columns ...string) (RecordIter, error)

	// ValuesList 返回全部记录的切片（Values 的立即求值形式）。
	ValuesList(columns ...string) ([]Record, error)

	// ValueRows 返回裸值序列形式的全部行，值按给定列顺序排列。
	ValueRows(columns ...string) ([][]any, error)

	// AssignInternalIDs 扫描全部行，按首次出现顺序为 user/item 原始 id 分配
	// 从 0 连续的内部 id，并为每一行追加 uid/iid 两列。
	// 对已分配内部 id 的数据集再次调用返回错误（静默重分配会使外部引用失效）。
	AssignInternalIDs() error

	// RemoveInternalIDs 删除 uid/iid 两列并使内部 id 索引失效。
	RemoveInternalIDs()

	// UserToUID 把用户原始 id 转为内部 id。未分配内部 id 时返回 INVALID_INPUT
	// 错误；原始 id 未知时返回 NOT_FOUND 错误（用 IsNotFound 区分）。
	UserToUID(user any) (int, error)

	// UIDToUser 把用户内部 id 转回原始 id，错误语义与 UserToUID 对称。
	UIDToUser(uid int) (any, error)

	// ItemToIID 把物品原始 id 转为内部 id，错误语义与 UserToUID 一致。
	ItemToIID(item any) (int, error)

	// IIDToItem 把物品内部 id 转回原始 id，错误语义与 UserToUID 一致。
	IIDToItem(iid int) (any, error)

	// SelectUserInteractionVec 构建给定 uid 的交互向量：按 iid 索引的稠密向量，
	// 有交互处填交互值，缺失处填 NaN（缺失哨兵，零是合法交互值所以不用零）。
	// 向量长度等于当前物品内部 id 基数。
	SelectUserInteractionVec(uid int) ([]float64, error)

	// SelectItemInteractionVec 构建给定 iid 的交互向量，按 uid 索引。
	SelectItemInteractionVec(iid int) ([]float64, error)

	// SelectRandomGenerator 返回一个惰性迭代器，以均匀随机且不重复的顺序产出
	// 行（query 非空时先过滤）。单个迭代器实例产完即止；重复使用需新建。
	SelectRandomGenerator(query string, seed int64) (RecordIter, error)

	// NullInteractionPairGenerator 返回负交互对迭代器：均匀随机地产出不属于
	// 正交互集合的 (uid, iid)，单个迭代器生命周期内不重复，采样空间耗尽后
	// 停止产出。threshold 为 nil 时"出现即为正"；否则交互值 >= *threshold 为正。
	NullInteractionPairGenerator(threshold *float64, seed int64) (PairIter, error)

	// NullPairsForUser 与 NullInteractionPairGenerator 相同，但只产出指定用户
	// 的负交互对。请求数量超过该用户剩余负对空间时只产出现存的部分。
	NullPairsForUser(uid int, threshold *float64, seed int64) (PairIter, error)

	// Save 把可见列（永远不含 rid/uid/iid）序列化为分隔文本文件。
	// columns 为空时写出全部可见列。
	Save(path string, columns []string, writeHeader bool) error

	// Copy 返回完全独立的数据集副本（行与内部 id 索引都被复制）。
	Copy() InteractionDataset
}
