package correction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk 一个待校正的子块
//
// Sep 是原文中紧邻该子块之前的分隔文本，按原顺序拼接
// Sep+Text 可以精确还原整个块。
type Chunk struct {
	Text string
	Sep  string
}

// Chunker 上下文窗口分块器
//
// 把超过后端 token 限制的文本块切成有序子块，只在段落或句子边界切分，
// 绝不从词中间断开。
type Chunker struct {
	maxTokens int
}

var paragraphBreakRegex = regexp.MustCompile(`\n{2,}`)

// NewChunker 创建分块器
func NewChunker(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Chunker{maxTokens: maxTokens}
}

// EstimateTokens 粗略估算 token 数，约 4 个字符一个 token
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// MaxTokens 返回分块器的 token 上限
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Split 将文本切分为不超过 token 上限的有序子块
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}
	if EstimateTokens(text) <= c.maxTokens {
		return []Chunk{{Text: text}}
	}

	var chunks []Chunk
	for _, seg := range splitParagraphs(text) {
		if EstimateTokens(seg.Text) <= c.maxTokens {
			chunks = appendPacked(chunks, seg, c.maxTokens)
			continue
		}
		for _, sent := range splitSentences(seg.Text, seg.Sep) {
			if EstimateTokens(sent.Text) <= c.maxTokens {
				chunks = appendPacked(chunks, sent, c.maxTokens)
				continue
			}
			// 超长句子退化为词边界切分
			for _, word := range splitWords(sent.Text, sent.Sep) {
				chunks = appendPacked(chunks, word, c.maxTokens)
			}
		}
	}
	return chunks
}

// Join 按原顺序把校正后的子块文本重组为一个块
//
// texts 与 chunks 一一对应；长度不一致时落回原始文本。
func Join(chunks []Chunk, texts []string) string {
	var sb strings.Builder
	for i, ch := range chunks {
		sb.WriteString(ch.Sep)
		if i < len(texts) {
			sb.WriteString(texts[i])
		} else {
			sb.WriteString(ch.Text)
		}
	}
	return sb.String()
}

// appendPacked 贪心地把片段并入最后一个子块，放不下时开新块
func appendPacked(chunks []Chunk, seg Chunk, maxTokens int) []Chunk {
	if len(chunks) > 0 {
		last := &chunks[len(chunks)-1]
		merged := last.Text + seg.Sep + seg.Text
		if EstimateTokens(merged) <= maxTokens {
			last.Text = merged
			return chunks
		}
	}
	return append(chunks, seg)
}

// splitParagraphs 按空行切分，保留精确的分隔文本
func splitParagraphs(text string) []Chunk {
	breaks := paragraphBreakRegex.FindAllStringIndex(text, -1)
	if len(breaks) == 0 {
		return []Chunk{{Text: text}}
	}

	var segs []Chunk
	prevEnd := 0
	sep := ""
	for _, br := range breaks {
		if br[0] > prevEnd {
			segs = append(segs, Chunk{Text: text[prevEnd:br[0]], Sep: sep})
		}
		sep = text[br[0]:br[1]]
		prevEnd = br[1]
	}
	if prevEnd < len(text) {
		segs = append(segs, Chunk{Text: text[prevEnd:], Sep: sep})
	} else if sep != "" && len(segs) > 0 {
		// 尾部空行并回最后一个段落，保证重组精确
		segs[len(segs)-1].Text += sep
	}
	return segs
}

// splitSentences 按句子边界切分，保留句间空白
//
// firstSep 作为第一个句子的前导分隔文本，保证重组时无缝。
func splitSentences(text, firstSep string) []Chunk {
	runes := []rune(text)
	var segs []Chunk
	sep := firstSep
	start := 0

	i := 0
	for i < len(runes) {
		if !isSentenceEnd(runes[i]) {
			i++
			continue
		}
		// 吞掉连续的结束符和随后的引号
		j := i + 1
		for j < len(runes) && (isSentenceEnd(runes[j]) || runes[j] == '"' || runes[j] == '\'' || runes[j] == ')') {
			j++
		}
		// 只有后面是空白才算句子边界
		if j >= len(runes) || !unicode.IsSpace(runes[j]) {
			i = j
			continue
		}
		segs = append(segs, Chunk{Text: string(runes[start:j]), Sep: sep})
		wsEnd := j
		for wsEnd < len(runes) && unicode.IsSpace(runes[wsEnd]) {
			wsEnd++
		}
		sep = string(runes[j:wsEnd])
		start = wsEnd
		i = wsEnd
	}

	if start < len(runes) {
		segs = append(segs, Chunk{Text: string(runes[start:]), Sep: sep})
	} else if sep != "" && len(segs) > 0 {
		// 尾部空白并回最后一个句子，保证重组精确
		segs[len(segs)-1].Text += sep
	}
	if len(segs) == 0 {
		return []Chunk{{Text: text, Sep: firstSep}}
	}
	return segs
}

// splitWords 按空白切分为单词片段
func splitWords(text, firstSep string) []Chunk {
	runes := []rune(text)
	var segs []Chunk
	sep := firstSep
	start := -1

	for i := 0; i <= len(runes); i++ {
		atEnd := i == len(runes)
		if !atEnd && !unicode.IsSpace(runes[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			segs = append(segs, Chunk{Text: string(runes[start:i]), Sep: sep})
			sep = ""
			start = -1
		}
		if !atEnd {
			sep += string(runes[i])
		}
	}
	// 尾部空白并回最后一个片段，保证重组精确
	if sep != "" && len(segs) > 0 {
		segs[len(segs)-1].Text += sep
	}
	return segs
}

// isSentenceEnd 判断是否是句子结束符
func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
}
