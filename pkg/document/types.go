package document

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Format 文档格式类型
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatEPUB     Format = "epub"
	FormatUnknown  Format = "unknown"
)

// BlockType 文本块类型
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockListItem  BlockType = "list_item"
	BlockQuote     BlockType = "quote"
	BlockCode      BlockType = "code"
	BlockMath      BlockType = "math"
	BlockTable     BlockType = "table"
)

// BlockMetadata 块元数据，解析后不可变
type BlockMetadata struct {
	Type    BlockType // 块类型
	Level   int       // 标题级别或列表嵌套深度
	Ordered bool      // 是否是有序列表项
	Marker  string    // 列表项标记（如 "-"、"1."）
	File    string    // 来源文件（EPUB 内部路径）
	Line    int       // 来源行号（Markdown）
}

// TextBlock 最小可校正单元，每个段落/标题/列表项一个
//
// 解析之后块顺序固定，只有 Content 允许被过滤器修改。
type TextBlock struct {
	Content  string
	Metadata BlockMetadata
	Index    int
}

// Correctable 该块内容是否参与校正
//
// 代码、数学公式和表格按原样透传，不送入任何校正后端。
func (b *TextBlock) Correctable() bool {
	switch b.Metadata.Type {
	case BlockCode, BlockMath, BlockTable:
		return false
	default:
		return b.Content != ""
	}
}

// DocumentMetadata 文档元数据
type DocumentMetadata struct {
	Title    string
	Author   string
	Language string
}

// Document 表示一个待校正的文档
//
// Handle 是产出它的适配器私有的结构句柄，其他组件不得解释其内容。
type Document struct {
	ID       string
	Format   Format
	Path     string
	Metadata DocumentMetadata
	Blocks   []*TextBlock
	Handle   any

	sealedCount int
	sealed      bool
}

// New 创建空文档
func New(format Format, path string) *Document {
	return &Document{
		ID:     uuid.NewString(),
		Format: format,
		Path:   path,
		Blocks: []*TextBlock{},
	}
}

// Append 追加一个文本块并分配稳定的 Index
func (d *Document) Append(content string, meta BlockMetadata) *TextBlock {
	block := &TextBlock{
		Content:  NormalizeText(content),
		Metadata: meta,
		Index:    len(d.Blocks),
	}
	d.Blocks = append(d.Blocks, block)
	return block
}

// Seal 记录解析完成时的块数量，之后块数量不允许变化
func (d *Document) Seal() {
	d.sealedCount = len(d.Blocks)
	d.sealed = true
}

// CheckStructure 校验块数量不变式
//
// 任何过滤器改变了块数量都是致命的结构错误。
func (d *Document) CheckStructure() error {
	if !d.sealed {
		return nil
	}
	if len(d.Blocks) != d.sealedCount {
		return &StructuralMismatchError{Want: d.sealedCount, Got: len(d.Blocks)}
	}
	return nil
}

// BlockCount 返回当前块数量
func (d *Document) BlockCount() int {
	return len(d.Blocks)
}

// CorrectableBlocks 返回参与校正的块
func (d *Document) CorrectableBlocks() []*TextBlock {
	blocks := make([]*TextBlock, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Correctable() {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Snapshot 返回所有块内容的副本，用于失败时回滚
func (d *Document) Snapshot() []string {
	contents := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		contents[i] = b.Content
	}
	return contents
}

// Restore 将块内容恢复到之前的快照
func (d *Document) Restore(snapshot []string) {
	if len(snapshot) != len(d.Blocks) {
		return
	}
	for i, b := range d.Blocks {
		b.Content = snapshot[i]
	}
}

// NormalizeText 对文本做 NFC 规范化
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// Adapter 格式适配器接口
//
// Parse 保证块顺序等于文档阅读顺序；Render 根据元数据和结构句柄重建
// 结构标记，输出写到输入文件旁的 {name}_corrected.{ext}，绝不覆盖源文件。
type Adapter interface {
	// Parse 将文件解析为文档结构
	Parse(ctx context.Context, path string) (*Document, error)

	// Render 将文档渲染回原格式，返回输出文件路径
	Render(ctx context.Context, doc *Document) (string, error)

	// Format 返回适配器支持的格式
	Format() Format
}
