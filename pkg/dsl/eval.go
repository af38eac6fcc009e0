// Package dsl 是交互数据集的查询 DSL 解释器，基于 CEL (Common Expression
// Language) 实现。CEL 具有类型安全、高性能、线程安全等特性。
//
// 查询语法（逗号分隔的条件，AND 语义）：
//   - 基础："user == '123'" / "item != 55"
//   - 数值："interaction > 3.5" / "interaction >= 2"
//   - 组合："user == '123', interaction > 3.5"
//
// 每个条件的格式为 "column operator value"，operator 支持
// ==、!=、<、<=、>、>=。值字面量按形态解析为字符串/数值/布尔；
// 引号包裹的值按原始字符串处理，与数值列比较时做类型宽容匹配。
package dsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/pkg/conv"
)

var (
	// envCache 按列集合缓存 CEL 环境：环境构建远比表达式编译昂贵，
	// 同一 schema 下的所有查询可以复用同一个环境。
	envCache   = make(map[string]*cel.Env)
	envCacheMu sync.Mutex
)

// clauseRe 匹配单个条件："column operator value"。
// 操作符按长度优先匹配，避免 "<=" 被拆成 "<" 加 "="。
var clauseRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(==|!=|<=|>=|<|>)\s*(.+?)\s*$`)

// Query 是一条编译完成的查询，可以对任意多行重复求值。
// 编译期完成列名校验与 CEL 程序构建，逐行求值只剩程序执行。
type Query struct {
	raw string
	prg cel.Program
}

// getEnv 获取或创建给定列集合的 CEL 环境。
// 每个列声明为 Dyn 类型变量，数值比较开启跨类型宽容（int 与 double 可比）。
func getEnv(columns []string) (*cel.Env, error) {
	key := strings.Join(columns, "\x1f")

	envCacheMu.Lock()
	defer envCacheMu.Unlock()

	if env, ok := envCache[key]; ok {
		return env, nil
	}

	opts := make([]cel.EnvOption, 0, len(columns)+1)
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	for _, col := range columns {
		opts = append(opts, cel.Variable(col, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	envCache[key] = env
	return env, nil
}

// Compile 解析并编译查询表达式。columns 是允许引用的列名集合；
// 引用未知列立即返回校验错误，而不是推迟到逐行求值时。
func Compile(query string, columns []string) (*Query, error) {
	clauses, err := splitClauses(query)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, core.NewDomainError(core.ModuleQuery, core.ErrorCodeInvalidInput,
			"query: empty query")
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	exprs := make([]string, 0, len(clauses))
	for _, cl := range clauses {
		m := clauseRe.FindStringSubmatch(cl)
		if m == nil {
			return nil, core.NewDomainError(core.ModuleQuery, core.ErrorCodeInvalidInput,
				fmt.Sprintf("query: malformed clause %q", strings.TrimSpace(cl)))
		}
		col, op, rawVal := m[1], m[2], m[3]
		if !known[col] {
			return nil, core.NewDomainError(core.ModuleQuery, core.ErrorCodeInvalidInput,
				fmt.Sprintf("query: unexpected column %q", col))
		}
		exprs = append(exprs, renderClause(col, op, rawVal))
	}

	env, err := getEnv(columns)
	if err != nil {
		return nil, fmt.Errorf("build env: %w", err)
	}

	celExpr := strings.Join(exprs, " && ")
	ast, issues := env.Compile(celExpr)
	if issues != nil && issues.Err() != nil {
		return nil, core.NewDomainError(core.ModuleQuery, core.ErrorCodeInvalidInput,
			fmt.Sprintf("query: compile error: %v", issues.Err()))
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}

	return &Query{raw: query, prg: prg}, nil
}

// Matches 对单行求值。row 必须包含编译时声明的所有列。
func (q *Query) Matches(row map[string]any) (bool, error) {
	out, _, err := q.prg.Eval(row)
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// String 返回编译前的原始查询文本。
func (q *Query) String() string { return q.raw }

// renderClause 把单个条件渲染为 CEL 子表达式。
//
// 引号包裹的值按原始字符串处理；当该字符串本身又是合法数值时，
// 等值比较渲染为 字符串匹配 OR 数值匹配（类型宽容），
// 排序比较直接用数值字面量（字符串与数值不存在有意义的大小关系）。
func renderClause(col, op, rawVal string) string {
	quoted, val := parseValue(rawVal)

	if quoted {
		if f, err := strconv.ParseFloat(val.(string), 64); err == nil {
			num := strconv.FormatFloat(f, 'g', -1, 64)
			switch op {
			case "==":
				return fmt.Sprintf("(%s == %s || %s == %s)", col, strconv.Quote(val.(string)), col, num)
			case "!=":
				return fmt.Sprintf("(%s != %s && %s != %s)", col, strconv.Quote(val.(string)), col, num)
			default:
				return fmt.Sprintf("%s %s %s", col, op, num)
			}
		}
		return fmt.Sprintf("%s %s %s", col, op, strconv.Quote(val.(string)))
	}

	switch v := val.(type) {
	case int:
		return fmt.Sprintf("%s %s %d", col, op, v)
	case float64:
		return fmt.Sprintf("%s %s %s", col, op, strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		return fmt.Sprintf("%s %s %t", col, op, v)
	default:
		// 未加引号的裸词按字符串字面量处理
		return fmt.Sprintf("%s %s %s", col, op, strconv.Quote(rawVal))
	}
}

// parseValue 解析值字面量。返回 (是否带引号, 解析后的值)。
func parseValue(raw string) (bool, any) {
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') ||
			(raw[0] == '"' && raw[len(raw)-1] == '"') {
			return true, raw[1 : len(raw)-1]
		}
	}
	return false, conv.ParseScalar(raw)
}

// splitClauses 按逗号切分查询，引号内部的逗号不作为分隔符。
func splitClauses(query string) ([]string, error) {
	var (
		clauses []string
		sb      strings.Builder
		inQuote rune
	)
	for _, r := range query {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
			sb.WriteRune(r)
		case r == '\'' || r == '"':
			inQuote = r
			sb.WriteRune(r)
		case r == ',':
			clauses = append(clauses, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if inQuote != 0 {
		return nil, core.NewDomainError(core.ModuleQuery, core.ErrorCodeInvalidInput,
			fmt.Sprintf("query: unterminated quote in %q", query))
	}
	if strings.TrimSpace(sb.String()) != "" || len(clauses) > 0 {
		clauses = append(clauses, sb.String())
	}

	out := clauses[:0]
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
