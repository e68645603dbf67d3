package epub

import (
	"strings"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// parseOPF 从 OPF 包文件里提取 Dublin Core 元数据
//
// 只取 title / creator / language 三个字段，够用就好，
// 不为此引入完整的 XML 解析。
func parseOPF(data []byte, doc *document.Document) {
	content := string(data)

	doc.Metadata.Title = extractDCElement(content, "title")
	doc.Metadata.Author = extractDCElement(content, "creator")
	doc.Metadata.Language = extractDCElement(content, "language")
}

// extractDCElement 提取 <dc:xxx ...>text</dc:xxx> 的文本内容
func extractDCElement(content, name string) string {
	open := "<dc:" + name
	start := strings.Index(content, open)
	if start == -1 {
		return ""
	}

	// 跳过可能存在的属性，找到开标签的结束
	tagEnd := strings.Index(content[start:], ">")
	if tagEnd == -1 {
		return ""
	}
	textStart := start + tagEnd + 1

	close := "</dc:" + name + ">"
	end := strings.Index(content[textStart:], close)
	if end == -1 {
		return ""
	}

	return strings.TrimSpace(content[textStart : textStart+end])
}
