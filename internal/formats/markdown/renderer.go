package markdown

import (
	"strings"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// Renderer Markdown 渲染器，根据块元数据重建结构标记
type Renderer struct{}

// NewRenderer 创建 Markdown 渲染器
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render 将文档块序列渲染回 Markdown 文本
//
// 相邻列表项之间单个换行，其他块之间空行分隔，结尾保留一个换行。
func (r *Renderer) Render(doc *document.Document) string {
	var sb strings.Builder

	for i, block := range doc.Blocks {
		if i > 0 {
			if block.Metadata.Type == document.BlockListItem &&
				doc.Blocks[i-1].Metadata.Type == document.BlockListItem {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(r.renderBlock(block))
	}

	sb.WriteString("\n")
	return sb.String()
}

// renderBlock 渲染单个块
func (r *Renderer) renderBlock(block *document.TextBlock) string {
	meta := block.Metadata
	switch meta.Type {
	case document.BlockHeading:
		return strings.Repeat("#", meta.Level) + " " + block.Content

	case document.BlockListItem:
		indent := strings.Repeat("  ", meta.Level)
		return indent + meta.Marker + " " + block.Content

	case document.BlockQuote:
		return "> " + block.Content

	case document.BlockCode, document.BlockMath, document.BlockTable:
		// 不可校正块原样透传
		return block.Content

	default:
		return block.Content
	}
}
