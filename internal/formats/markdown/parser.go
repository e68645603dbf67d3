package markdown

import (
	"regexp"
	"strings"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// Parser Markdown 解析器
//
// 块粒度：段落 / 标题 / 列表项 / 引用。代码围栏、数学块和表格
// 作为不可校正块原样透传。段落内的软换行会被合并成空格，这是
// 本适配器唯一记录在案的空白归一化。
type Parser struct {
	headingRegex   *regexp.Regexp
	listItemRegex  *regexp.Regexp
	quoteRegex     *regexp.Regexp
	tableLineRegex *regexp.Regexp
}

// NewParser 创建 Markdown 解析器
func NewParser() *Parser {
	return &Parser{
		headingRegex:   regexp.MustCompile(`^(#{1,6})\s+(.*)$`),
		listItemRegex:  regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+(.*)$`),
		quoteRegex:     regexp.MustCompile(`^>\s?(.*)$`),
		tableLineRegex: regexp.MustCompile(`^\s*\|.*\|\s*$`),
	}
}

// Parse 将 Markdown 文本解析为文档结构
//
// 块顺序严格等于阅读顺序。深层嵌套的行内标记按普通文本处理，
// 这是接受的已知局限而不是静默损坏。
func (p *Parser) Parse(text string, path string) *document.Document {
	doc := document.New(document.FormatMarkdown, path)

	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case strings.HasPrefix(trimmed, "```"):
			i = p.consumeCodeFence(doc, lines, i)

		case strings.HasPrefix(trimmed, "$$"):
			i = p.consumeMathBlock(doc, lines, i)

		case p.tableLineRegex.MatchString(line):
			i = p.consumeTable(doc, lines, i)

		case p.headingRegex.MatchString(line):
			m := p.headingRegex.FindStringSubmatch(line)
			doc.Append(m[2], document.BlockMetadata{
				Type:  document.BlockHeading,
				Level: len(m[1]),
				Line:  i + 1,
			})
			i++

		case p.listItemRegex.MatchString(line):
			i = p.consumeListItem(doc, lines, i)

		case p.quoteRegex.MatchString(line):
			i = p.consumeQuote(doc, lines, i)

		default:
			i = p.consumeParagraph(doc, lines, i)
		}
	}

	doc.Seal()
	return doc
}

// consumeCodeFence 收集整个代码围栏，含首尾 ``` 行
func (p *Parser) consumeCodeFence(doc *document.Document, lines []string, start int) int {
	end := start + 1
	for end < len(lines) {
		if strings.HasPrefix(strings.TrimSpace(lines[end]), "```") {
			end++
			break
		}
		end++
	}

	doc.Append(strings.Join(lines[start:end], "\n"), document.BlockMetadata{
		Type: document.BlockCode,
		Line: start + 1,
	})
	return end
}

// consumeMathBlock 收集 $$ ... $$ 数学块
func (p *Parser) consumeMathBlock(doc *document.Document, lines []string, start int) int {
	first := strings.TrimSpace(lines[start])

	// 单行形式 $$...$$
	if len(first) > 2 && strings.HasSuffix(first, "$$") {
		doc.Append(lines[start], document.BlockMetadata{
			Type: document.BlockMath,
			Line: start + 1,
		})
		return start + 1
	}

	end := start + 1
	for end < len(lines) {
		if strings.HasSuffix(strings.TrimSpace(lines[end]), "$$") {
			end++
			break
		}
		end++
	}

	doc.Append(strings.Join(lines[start:end], "\n"), document.BlockMetadata{
		Type: document.BlockMath,
		Line: start + 1,
	})
	return end
}

// consumeTable 收集连续的表格行
func (p *Parser) consumeTable(doc *document.Document, lines []string, start int) int {
	end := start
	for end < len(lines) && p.tableLineRegex.MatchString(lines[end]) {
		end++
	}

	doc.Append(strings.Join(lines[start:end], "\n"), document.BlockMetadata{
		Type: document.BlockTable,
		Line: start + 1,
	})
	return end
}

// consumeListItem 收集一个列表项，包括缩进的续行
func (p *Parser) consumeListItem(doc *document.Document, lines []string, start int) int {
	m := p.listItemRegex.FindStringSubmatch(lines[start])
	indent, marker, text := m[1], m[2], m[3]

	parts := []string{text}
	end := start + 1
	for end < len(lines) {
		next := lines[end]
		if strings.TrimSpace(next) == "" {
			break
		}
		// 新的结构行结束当前项
		if p.listItemRegex.MatchString(next) || p.headingRegex.MatchString(next) ||
			p.quoteRegex.MatchString(next) || p.tableLineRegex.MatchString(next) {
			break
		}
		// 续行必须比列表标记缩进更深
		if !strings.HasPrefix(next, indent+" ") && !strings.HasPrefix(next, indent+"\t") {
			break
		}
		parts = append(parts, strings.TrimSpace(next))
		end++
	}

	doc.Append(strings.Join(parts, " "), document.BlockMetadata{
		Type:    document.BlockListItem,
		Level:   len(indent) / 2,
		Ordered: isOrderedMarker(marker),
		Marker:  marker,
		Line:    start + 1,
	})
	return end
}

// consumeQuote 收集连续的引用行为一个引用块
func (p *Parser) consumeQuote(doc *document.Document, lines []string, start int) int {
	parts := []string{}
	end := start
	for end < len(lines) {
		m := p.quoteRegex.FindStringSubmatch(lines[end])
		if m == nil {
			break
		}
		parts = append(parts, m[1])
		end++
	}

	doc.Append(strings.Join(parts, " "), document.BlockMetadata{
		Type: document.BlockQuote,
		Line: start + 1,
	})
	return end
}

// consumeParagraph 收集连续非空行为一个段落，软换行并为空格
func (p *Parser) consumeParagraph(doc *document.Document, lines []string, start int) int {
	parts := []string{strings.TrimSpace(lines[start])}
	end := start + 1
	for end < len(lines) {
		next := lines[end]
		trimmed := strings.TrimSpace(next)
		if trimmed == "" {
			break
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "$$") ||
			p.headingRegex.MatchString(next) || p.listItemRegex.MatchString(next) ||
			p.quoteRegex.MatchString(next) || p.tableLineRegex.MatchString(next) {
			break
		}
		parts = append(parts, trimmed)
		end++
	}

	doc.Append(strings.Join(parts, " "), document.BlockMetadata{
		Type: document.BlockParagraph,
		Line: start + 1,
	})
	return end
}

func isOrderedMarker(marker string) bool {
	return marker != "-" && marker != "*" && marker != "+"
}
