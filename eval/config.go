package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lasigeBioTM/DRecPy/metrics"
)

// Config 是排名评估的配置结构（支持 YAML/JSON），
// 用于把一次评估的全部参数放进版本管理而不是散落在代码里。
//
// 示例（YAML）：
//
//	ranking:
//	  k: [1, 5, 10]
//	  n_test_users: 100
//	  interaction_threshold: 4
//	  generate_negative_pairs: true
//	  n_neg_interactions: 20
//	  seed: 15
//	  metrics: [precision, recall, ndcg]
type Config struct {
	Ranking struct {
		NTestUsers            *int     `yaml:"n_test_users" json:"n_test_users"`
		K                     []int    `yaml:"k" json:"k"`
		NPosInteractions      *int     `yaml:"n_pos_interactions" json:"n_pos_interactions"`
		NNegInteractions      *int     `yaml:"n_neg_interactions" json:"n_neg_interactions"`
		GenerateNegativePairs bool     `yaml:"generate_negative_pairs" json:"generate_negative_pairs"`
		InteractionThreshold  *float64 `yaml:"interaction_threshold" json:"interaction_threshold"`
		Novelty               bool     `yaml:"novelty" json:"novelty"`
		Seed                  int64    `yaml:"seed" json:"seed"`
		Metrics               []string `yaml:"metrics" json:"metrics"`
	} `yaml:"ranking" json:"ranking"`
}

// LoadFromYAML 从 YAML 文件加载评估配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载评估配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// BuildOptions 根据配置构建 RankingOptions。
// metrics 字段中的名字通过注册表解析；未注册的名字返回包含已支持列表的错误。
func (c *Config) BuildOptions() (*RankingOptions, error) {
	opts := &RankingOptions{
		NTestUsers:            c.Ranking.NTestUsers,
		K:                     append([]int(nil), c.Ranking.K...),
		NPosInteractions:      c.Ranking.NPosInteractions,
		NNegInteractions:      c.Ranking.NNegInteractions,
		GenerateNegativePairs: c.Ranking.GenerateNegativePairs,
		InteractionThreshold:  c.Ranking.InteractionThreshold,
		Novelty:               c.Ranking.Novelty,
		Seed:                  c.Ranking.Seed,
	}
	for _, name := range c.Ranking.Metrics {
		m, ok := LookupMetric(name)
		if !ok {
			return nil, fmt.Errorf("unknown metric %q, supported: %v", name, RegisteredMetrics())
		}
		opts.Metrics = append(opts.Metrics, m)
	}
	return opts, nil
}

// 指标注册表：内置指标在 init 中注册，调用方可通过 RegisterMetric
// 挂接自定义指标，使其可以在配置文件中按名字引用。

var (
	metricRegistry   = make(map[string]Metric)
	metricRegistryMu sync.RWMutex
)

// RegisterMetric 注册一个可按名字引用的指标。
// displayName 是输出键 "<displayName>@<k>" 中使用的展示名。
func RegisterMetric(name, displayName string, fn metrics.Func, options map[string]any) {
	if name == "" || fn == nil {
		return
	}
	metricRegistryMu.Lock()
	defer metricRegistryMu.Unlock()
	metricRegistry[name] = Metric{Name: displayName, Fn: fn, Options: options}
}

// LookupMetric 按名字查找已注册的指标。
func LookupMetric(name string) (Metric, bool) {
	metricRegistryMu.RLock()
	defer metricRegistryMu.RUnlock()
	m, ok := metricRegistry[name]
	return m, ok
}

// RegisteredMetrics 返回当前已注册的指标名列表（排序），用于错误提示。
func RegisteredMetrics() []string {
	metricRegistryMu.RLock()
	defer metricRegistryMu.RUnlock()
	names := make([]string, 0, len(metricRegistry))
	for n := range metricRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterMetric("precision", "P", metrics.Precision, nil)
	RegisterMetric("recall", "R", metrics.Recall, nil)
	RegisterMetric("hit_ratio", "HR", metrics.HitRatio, nil)
	RegisterMetric("average_precision", "AP", metrics.AveragePrecision, nil)
	RegisterMetric("ndcg", "NDCG", metrics.NDCG, nil)
	RegisterMetric("reciprocal_rank", "RR", metrics.ReciprocalRank, nil)
}
