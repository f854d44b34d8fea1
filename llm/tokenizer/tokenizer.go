package tokenizer

import (
	"go.uber.org/zap"
)

// Counter 统一的 token 计数接口
type Counter interface {
	// CountTokens 返回文本的 token 数
	CountTokens(text string) (int, error)
	// Name 返回计数器名称
	Name() string
}

// ForModel 为模型返回计数器：优先 tiktoken，编码表加载失败（如离线）时退回估算器。
func ForModel(model string, logger *zap.Logger) Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	tk := NewTiktoken(model)
	if err := tk.init(); err != nil {
		logger.Warn("tiktoken 不可用，退回字符估算",
			zap.String("model", model),
			zap.Error(err))
		return NewEstimator()
	}
	return tk
}

// TrimToBudget 从最新一条开始向前保留文本，直到累计 token 超出 budget。
// 返回结果保持原有顺序；budget <= 0 表示不限制。
// 最新一条即使单独超出预算也会保留。
func TrimToBudget(c Counter, texts []string, budget int) []string {
	if budget <= 0 || len(texts) == 0 {
		return texts
	}
	used := 0
	start := len(texts)
	for i := len(texts) - 1; i >= 0; i-- {
		n, err := c.CountTokens(texts[i])
		if err != nil {
			n = len(texts[i]) / 4
		}
		if used+n > budget && start < len(texts) {
			break
		}
		used += n
		start = i
	}
	return texts[start:]
}
