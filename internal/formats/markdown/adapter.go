package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// handle Markdown 适配器的结构句柄
type handle struct {
	sourcePath string
	blockCount int
}

// Adapter Markdown 格式适配器
//
// OutputDir 为空时输出写在输入文件旁，文件名追加 _corrected 后缀，
// 绝不覆盖源文件。
type Adapter struct {
	parser   *Parser
	renderer *Renderer

	OutputDir string
}

// NewAdapter 创建 Markdown 适配器
func NewAdapter(outputDir string) *Adapter {
	return &Adapter{
		parser:    NewParser(),
		renderer:  NewRenderer(),
		OutputDir: outputDir,
	}
}

// Format 返回适配器支持的格式
func (a *Adapter) Format() document.Format {
	return document.FormatMarkdown
}

// Parse 读取并解析 Markdown 文件
func (a *Adapter) Parse(ctx context.Context, path string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, document.NewAdapterError("parse", path, fmt.Errorf("failed to read file: %w", err))
	}

	doc := a.parser.Parse(string(data), path)
	doc.Handle = &handle{sourcePath: path, blockCount: doc.BlockCount()}

	// 第一个一级标题当作文档标题
	for _, b := range doc.Blocks {
		if b.Metadata.Type == document.BlockHeading && b.Metadata.Level == 1 {
			doc.Metadata.Title = b.Content
			break
		}
	}

	return doc, nil
}

// Render 渲染文档并写出校正结果文件，返回输出路径
func (a *Adapter) Render(ctx context.Context, doc *document.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h, ok := doc.Handle.(*handle)
	if !ok {
		return "", document.NewAdapterError("render", doc.Path, document.ErrForeignHandle)
	}
	if err := doc.CheckStructure(); err != nil {
		return "", err
	}
	if doc.BlockCount() != h.blockCount {
		return "", &document.StructuralMismatchError{Want: h.blockCount, Got: doc.BlockCount()}
	}

	outPath := a.outputPath(h.sourcePath)
	content := a.renderer.Render(doc)
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return "", document.NewAdapterError("render", outPath, fmt.Errorf("failed to write output: %w", err))
	}

	return outPath, nil
}

// outputPath 计算输出文件路径 {name}_corrected.md
func (a *Adapter) outputPath(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	if a.OutputDir != "" {
		dir = a.OutputDir
	}
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return filepath.Join(dir, base+"_corrected.md")
}
