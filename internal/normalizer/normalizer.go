package normalizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/divan/num2words"
	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-corrector-agent/internal/stats"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// 可朗读化改写用到的模式，启动时编译一次
var (
	// $12.34 / $5，前向否定保证美分恰好两位
	currencyPattern = regexp2.MustCompile(`\$(\d+)(?:\.(\d{2}))?(?!\d)`, regexp2.None)

	// 42%
	percentPattern = regexp2.MustCompile(`(\d+)%`, regexp2.None)

	// Jan. 1, 2024 这类缩写日期
	datePattern = regexp2.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\. (\d{1,2}), (\d{4})\b`, regexp2.None)

	// 1st / 22nd / 103rd，前向否定避免匹配小数后缀
	ordinalPattern = regexp2.MustCompile(`(?<!\w)(\d+)(st|nd|rd|th)\b`, regexp2.IgnoreCase)
)

var monthNames = map[string]string{
	"Jan": "January", "Feb": "February", "Mar": "March", "Apr": "April",
	"May": "May", "Jun": "June", "Jul": "July", "Aug": "August",
	"Sep": "September", "Oct": "October", "Nov": "November", "Dec": "December",
}

// Options 控制启用哪些改写规则
type Options struct {
	Currency bool
	Percent  bool
	Dates    bool
	Ordinals bool
}

// DefaultOptions 返回全部启用的选项
func DefaultOptions() Options {
	return Options{Currency: true, Percent: true, Dates: true, Ordinals: true}
}

// Normalizer 面向 TTS 的确定性文本规范化过滤器
//
// 把货币、百分比、缩写日期和序数词改写成可直接朗读的英文单词。
// 规则失败时保留原文继续，该阶段不会让整个流水线失败。
type Normalizer struct {
	opts   Options
	logger *zap.Logger
}

// New 创建规范化过滤器
func New(opts Options, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{opts: opts, logger: logger}
}

// Name 返回过滤器名称
func (n *Normalizer) Name() string {
	return "normalizer"
}

// Apply 对文档中所有可校正块做规范化
func (n *Normalizer) Apply(ctx context.Context, doc *document.Document) (*stats.FilterStats, error) {
	fs := stats.NewFilterStats(n.Name())
	defer fs.Finish()

	for _, block := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return fs, err
		}
		if !block.Correctable() {
			continue
		}
		fs.Blocks++

		normalized, err := n.NormalizeText(block.Content)
		if err != nil {
			// 规则出错只记日志，块保持原样
			n.logger.Warn("normalization failed, keeping original text",
				zap.Int("block", block.Index),
				zap.Error(err))
			fs.RecordError(block.Index, err)
			continue
		}
		if normalized != block.Content {
			block.Content = normalized
			fs.Changed++
		}
	}

	return fs, nil
}

// NormalizeText 对单段文本应用全部启用的规则
func (n *Normalizer) NormalizeText(text string) (string, error) {
	var err error
	if n.opts.Currency {
		if text, err = replaceAll(currencyPattern, text, currencyToWords); err != nil {
			return "", fmt.Errorf("currency normalization: %w", err)
		}
	}
	if n.opts.Percent {
		if text, err = replaceAll(percentPattern, text, percentToWords); err != nil {
			return "", fmt.Errorf("percent normalization: %w", err)
		}
	}
	if n.opts.Dates {
		if text, err = replaceAll(datePattern, text, dateToWords); err != nil {
			return "", fmt.Errorf("date normalization: %w", err)
		}
	}
	if n.opts.Ordinals {
		if text, err = replaceAll(ordinalPattern, text, ordinalToWords); err != nil {
			return "", fmt.Errorf("ordinal normalization: %w", err)
		}
	}
	return text, nil
}

// replaceAll 用求值函数替换全部匹配，求值失败时保留原始匹配文本
func replaceAll(re *regexp2.Regexp, text string, eval func(*regexp2.Match) (string, bool)) (string, error) {
	return re.ReplaceFunc(text, func(m regexp2.Match) string {
		if out, ok := eval(&m); ok {
			return out
		}
		return m.String()
	}, -1, -1)
}

func currencyToWords(m *regexp2.Match) (string, bool) {
	dollars, err := strconv.Atoi(m.GroupByNumber(1).String())
	if err != nil {
		return "", false
	}
	out := num2words.Convert(dollars) + " dollars"
	if g := m.GroupByNumber(2); g.Length > 0 {
		cents, err := strconv.Atoi(g.String())
		if err != nil {
			return "", false
		}
		out += " and " + num2words.Convert(cents) + " cents"
	}
	return out, true
}

func percentToWords(m *regexp2.Match) (string, bool) {
	v, err := strconv.Atoi(m.GroupByNumber(1).String())
	if err != nil {
		return "", false
	}
	return num2words.Convert(v) + " percent", true
}

func dateToWords(m *regexp2.Match) (string, bool) {
	month, ok := monthNames[m.GroupByNumber(1).String()]
	if !ok {
		return "", false
	}
	day, err := strconv.Atoi(m.GroupByNumber(2).String())
	if err != nil {
		return "", false
	}
	year, err := strconv.Atoi(m.GroupByNumber(3).String())
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s %s, %s", month, ordinalize(num2words.Convert(day)), num2words.ConvertAnd(year)), true
}

func ordinalToWords(m *regexp2.Match) (string, bool) {
	v, err := strconv.Atoi(m.GroupByNumber(1).String())
	if err != nil {
		return "", false
	}
	return ordinalize(num2words.Convert(v)), true
}

// ordinalize 把基数词变成序数词，只改最后一个单词
func ordinalize(words string) string {
	irregular := map[string]string{
		"one": "first", "two": "second", "three": "third",
		"five": "fifth", "eight": "eighth", "nine": "ninth",
		"twelve": "twelfth",
	}

	// 最后一个单词可能跟在空格或连字符后面
	cut := strings.LastIndexAny(words, " -")
	head, last := "", words
	if cut >= 0 {
		head, last = words[:cut+1], words[cut+1:]
	}

	switch {
	case irregular[last] != "":
		last = irregular[last]
	case strings.HasSuffix(last, "y"):
		last = strings.TrimSuffix(last, "y") + "ieth"
	default:
		last += "th"
	}
	return head + last
}
