// Package dataset 提供 core.InteractionDataset 的内存实现。
//
// 数据按行存储，schema 固定；rid 在插入时分配且永不复用；
// select/unique/drop 支持副本与原地两种模式，副本与原数据集
// 不共享任何可变状态（行与内部 id 索引都被复制）。
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/pkg/conv"
	"github.com/lasigeBioTM/DRecPy/pkg/dsl"
)

// row 是一行数据：不可变的行 id 加按列顺序排列的值。
type row struct {
	rid  int
	vals []any
}

// MemoryInteractionDataset 是内存实现的交互数据集。
// 单写者约束：同一实例不支持并发读写；Copy 产生完全独立的实例。
type MemoryInteractionDataset struct {
	cols    []string // 可见列（含已分配的 uid/iid），不含 rid
	rows    []*row
	nextRID int
	idx     *internalIndex // nil 表示未分配内部 id

	// queries 按查询文本缓存编译结果；schema 变化（分配/移除内部 id）时清空
	queries map[string]*dsl.Query
}

var _ core.InteractionDataset = (*MemoryInteractionDataset)(nil)

// New 创建一个空数据集。列名不允许重复，rid/uid/iid 是保留列名。
func New(columns ...string) (*MemoryInteractionDataset, error) {
	if len(columns) == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			"dataset: no columns given")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == core.ColRID || c == core.ColUID || c == core.ColIID {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
				fmt.Sprintf("dataset: column name %q is reserved", c))
		}
		if seen[c] {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
				fmt.Sprintf("dataset: duplicate column %q", c))
		}
		seen[c] = true
	}
	return &MemoryInteractionDataset{
		cols:    append([]string(nil), columns...),
		queries: make(map[string]*dsl.Query),
	}, nil
}

// FromRows 从内存表格数据创建数据集，这是外部数据源的统一入口。
// 每行的值个数必须与列数一致。
func FromRows(columns []string, rows [][]any) (*MemoryInteractionDataset, error) {
	ds, err := New(columns...)
	if err != nil {
		return nil, err
	}
	for _, vals := range rows {
		if err := ds.Add(vals...); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Add 追加一行并分配 rid。内部 id 分配之后不再允许追加，
// 否则新行的 uid/iid 会破坏"只分配一次"的索引约定。
func (ds *MemoryInteractionDataset) Add(values ...any) error {
	if ds.idx != nil {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotSupported,
			"dataset: cannot add rows after internal ids were assigned")
	}
	if len(values) != len(ds.cols) {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: expected %d values, got %d", len(ds.cols), len(values)))
	}
	ds.rows = append(ds.rows, &row{rid: ds.nextRID, vals: append([]any(nil), values...)})
	ds.nextRID++
	return nil
}

// Len 返回当前行数。
func (ds *MemoryInteractionDataset) Len() int { return len(ds.rows) }

// Columns 返回可见列名的副本。
func (ds *MemoryInteractionDataset) Columns() []string {
	return append([]string(nil), ds.cols...)
}

// HasInternalIDs 返回是否已分配内部 id。
func (ds *MemoryInteractionDataset) HasInternalIDs() bool { return ds.idx != nil }

func (ds *MemoryInteractionDataset) String() string {
	return fmt.Sprintf("MemoryInteractionDataset<rows=%d, columns=%v, internal_ids=%t>",
		len(ds.rows), ds.cols, ds.idx != nil)
}

// compileQuery 编译（或从缓存取出）查询。rid 总是可查询的。
func (ds *MemoryInteractionDataset) compileQuery(query string) (*dsl.Query, error) {
	if q, ok := ds.queries[query]; ok {
		return q, nil
	}
	queryable := append(ds.Columns(), core.ColRID)
	q, err := dsl.Compile(query, queryable)
	if err != nil {
		return nil, err
	}
	ds.queries[query] = q
	return q, nil
}

// rowMap 把一行展开为 列名 -> 值 的映射（含 rid），作为查询求值的输入。
func (ds *MemoryInteractionDataset) rowMap(r *row) map[string]any {
	m := make(map[string]any, len(ds.cols)+1)
	m[core.ColRID] = r.rid
	for i, c := range ds.cols {
		m[c] = r.vals[i]
	}
	return m
}

// handleColumns 校验并归一化列投影：空投影表示全部可见列；rid 总是允许。
func (ds *MemoryInteractionDataset) handleColumns(columns []string) ([]string, error) {
	if len(columns) == 0 {
		return ds.Columns(), nil
	}
	known := make(map[string]bool, len(ds.cols)+1)
	known[core.ColRID] = true
	for _, c := range ds.cols {
		known[c] = true
	}
	for _, c := range columns {
		if !known[c] {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
				fmt.Sprintf("dataset: unexpected column %q", c))
		}
	}
	return append([]string(nil), columns...), nil
}

// colIndex 返回列在 schema 中的下标，-1 表示不存在。
func (ds *MemoryInteractionDataset) colIndex(column string) int {
	for i, c := range ds.cols {
		if c == column {
			return i
		}
	}
	return -1
}

// record 按投影构建 Record。rid 总是携带。
func (ds *MemoryInteractionDataset) record(r *row, columns []string) core.Record {
	rec := make(core.Record, len(columns)+1)
	rec[core.ColRID] = r.rid
	for _, c := range columns {
		if c == core.ColRID {
			continue
		}
		rec[c] = r.vals[ds.colIndex(c)]
	}
	return rec
}

// replaceRows 原地替换行集合（copy=false 路径共用）。
func (ds *MemoryInteractionDataset) replaceRows(rows []*row) {
	ds.rows = rows
}

// withRows 构建包含给定行的独立副本（copy=true 路径共用）。
// rid 与 nextRID 保持不变：视图之间 rid 稳定，drop 的补集律依赖这一点。
func (ds *MemoryInteractionDataset) withRows(rows []*row) *MemoryInteractionDataset {
	out := &MemoryInteractionDataset{
		cols:    ds.Columns(),
		rows:    make([]*row, 0, len(rows)),
		nextRID: ds.nextRID,
		idx:     ds.idx.clone(),
		queries: make(map[string]*dsl.Query),
	}
	for _, r := range rows {
		out.rows = append(out.rows, &row{rid: r.rid, vals: append([]any(nil), r.vals...)})
	}
	return out
}

// Select 按查询过滤行，保持相对顺序。
func (ds *MemoryInteractionDataset) Select(query string, copy bool) (core.InteractionDataset, error) {
	q, err := ds.compileQuery(query)
	if err != nil {
		return nil, err
	}
	matched := make([]*row, 0)
	for _, r := range ds.rows {
		ok, err := q.Matches(ds.rowMap(r))
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	if copy {
		return ds.withRows(matched), nil
	}
	ds.replaceRows(matched)
	return ds, nil
}

// SelectOne 返回第一条匹配记录，无匹配时返回 (nil, nil)。
func (ds *MemoryInteractionDataset) SelectOne(query string, columns ...string) (core.Record, error) {
	q, err := ds.compileQuery(query)
	if err != nil {
		return nil, err
	}
	proj, err := ds.handleColumns(columns)
	if err != nil {
		return nil, err
	}
	for _, r := range ds.rows {
		ok, err := q.Matches(ds.rowMap(r))
		if err != nil {
			return nil, err
		}
		if ok {
			return ds.record(r, proj), nil
		}
	}
	return nil, nil
}

// Exists 返回查询是否至少命中一行。
func (ds *MemoryInteractionDataset) Exists(query string) (bool, error) {
	rec, err := ds.SelectOne(query)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Unique 按列组合去重，保留首次出现的行。
func (ds *MemoryInteractionDataset) Unique(columns []string, copy bool) (core.InteractionDataset, error) {
	proj, err := ds.handleColumns(columns)
	if err != nil {
		return nil, err
	}
	kept := make([]*row, 0)
	seen := make(map[string]bool)
	key := make([]any, len(proj))
	for _, r := range ds.rows {
		for i, c := range proj {
			if c == core.ColRID {
				key[i] = r.rid
			} else {
				key[i] = r.vals[ds.colIndex(c)]
			}
		}
		k := conv.TupleKey(key)
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, r)
	}
	if copy {
		return ds.withRows(kept), nil
	}
	ds.replaceRows(kept)
	return ds, nil
}

// CountUnique 返回列组合上不同值元组的数量。
func (ds *MemoryInteractionDataset) CountUnique(columns ...string) (int, error) {
	proj, err := ds.handleColumns(columns)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool)
	key := make([]any, len(proj))
	for _, r := range ds.rows {
		for i, c := range proj {
			if c == core.ColRID {
				key[i] = r.rid
			} else {
				key[i] = r.vals[ds.colIndex(c)]
			}
		}
		seen[conv.TupleKey(key)] = true
	}
	return len(seen), nil
}

// extreme 是 Max/Min 的共用单遍扫描，want 为 +1 取最大、-1 取最小。
func (ds *MemoryInteractionDataset) extreme(column string, want int) (any, error) {
	if len(ds.rows) == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			"dataset: empty dataset")
	}
	ci := ds.colIndex(column)
	if ci < 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: unexpected column %q", column))
	}
	var best any
	for _, r := range ds.rows {
		v := r.vals[ci]
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		cmp, ok := conv.Compare(v, best)
		if !ok {
			continue
		}
		if cmp == want {
			best = v
		}
	}
	if best == nil {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: column %q holds no comparable values", column))
	}
	return best, nil
}

// Max 返回指定列的最大值。
func (ds *MemoryInteractionDataset) Max(column string) (any, error) {
	return ds.extreme(column, 1)
}

// Min 返回指定列的最小值。
func (ds *MemoryInteractionDataset) Min(column string) (any, error) {
	return ds.extreme(column, -1)
}

// Drop 按 rid 集合删除（keep=false）或保留（keep=true）行。
func (ds *MemoryInteractionDataset) Drop(recordIDs []int, copy bool, keep bool) (core.InteractionDataset, error) {
	in := make(map[int]bool, len(recordIDs))
	for _, rid := range recordIDs {
		in[rid] = true
	}
	kept := make([]*row, 0, len(ds.rows))
	for _, r := range ds.rows {
		if in[r.rid] == keep {
			kept = append(kept, r)
		}
	}
	if copy {
		return ds.withRows(kept), nil
	}
	ds.replaceRows(kept)
	return ds, nil
}

// Apply 用 fn 原地变换指定列的所有值。内部 id 列不允许变换。
func (ds *MemoryInteractionDataset) Apply(column string, fn core.ApplyFunc) error {
	if fn == nil {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			"dataset: apply function is nil")
	}
	if column == core.ColRID || column == core.ColUID || column == core.ColIID {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: cannot apply to internal column %q", column))
	}
	ci := ds.colIndex(column)
	if ci < 0 {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: unexpected column %q", column))
	}
	for _, r := range ds.rows {
		nv, err := fn(r.vals[ci])
		if err != nil {
			return err
		}
		r.vals[ci] = nv
	}
	return nil
}

// recordIter 是 Values 的惰性迭代器：单遍、不可重置。
type recordIter struct {
	ds   *MemoryInteractionDataset
	proj []string
	pos  int
}

func (it *recordIter) Next() (core.Record, bool) {
	if it.pos >= len(it.ds.rows) {
		return nil, false
	}
	r := it.ds.rows[it.pos]
	it.pos++
	return it.ds.record(r, it.proj), true
}

// Values 返回惰性记录迭代器；每次调用产生全新的迭代器。
func (ds *MemoryInteractionDataset) Values(columns ...string) (core.RecordIter, error) {
	proj, err := ds.handleColumns(columns)
	if err != nil {
		return nil, err
	}
	return &recordIter{ds: ds, proj: proj}, nil
}

// ValuesList 返回全部记录的切片。
func (ds *MemoryInteractionDataset) ValuesList(columns ...string) ([]core.Record, error) {
	it, err := ds.Values(columns...)
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, 0, len(ds.rows))
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		out = append(out, rec)
	}
	return out, nil
}

// ValueRows 返回裸值序列形式的全部行，值按投影列顺序排列。
func (ds *MemoryInteractionDataset) ValueRows(columns ...string) ([][]any, error) {
	proj, err := ds.handleColumns(columns)
	if err != nil {
		return nil, err
	}
	out := make([][]any, 0, len(ds.rows))
	for _, r := range ds.rows {
		vals := make([]any, len(proj))
		for i, c := range proj {
			if c == core.ColRID {
				vals[i] = r.rid
			} else {
				vals[i] = r.vals[ds.colIndex(c)]
			}
		}
		out = append(out, vals)
	}
	return out, nil
}

// Save 把可见列写为分隔文本文件。rid/uid/iid 永远不会写出。
func (ds *MemoryInteractionDataset) Save(path string, columns []string, writeHeader bool) error {
	proj, err := ds.handleColumns(columns)
	if err != nil {
		return err
	}
	visible := make([]string, 0, len(proj))
	for _, c := range proj {
		if c == core.ColRID || c == core.ColUID || c == core.ColIID {
			continue
		}
		visible = append(visible, c)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(visible); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	line := make([]string, len(visible))
	for _, r := range ds.rows {
		for i, c := range visible {
			line[i] = conv.FormatScalar(r.vals[ds.colIndex(c)])
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Copy 返回完全独立的副本。
func (ds *MemoryInteractionDataset) Copy() core.InteractionDataset {
	return ds.withRows(ds.rows)
}
