package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// entry EPUB 内的一个 zip 条目
//
// HTML 条目解析后 htmlDoc 非空，渲染时从它重新序列化；
// 其他条目保留原始字节不动。
type entry struct {
	name    string
	data    []byte
	htmlDoc *goquery.Document
}

// handle EPUB 适配器的结构句柄
type handle struct {
	sourcePath string
	entries    []*entry
	bindings   []*goquery.Selection // 与 doc.Blocks 一一对应
	blockCount int
}

// Adapter EPUB 格式适配器
//
// 只提取子节点均为文本的 <p> 作为可校正块，表格、标题、列表
// 原样透传。整个 zip 的文件顺序和非 HTML 条目的字节保持不变。
type Adapter struct {
	OutputDir string
}

// NewAdapter 创建 EPUB 适配器
func NewAdapter(outputDir string) *Adapter {
	return &Adapter{OutputDir: outputDir}
}

// Format 返回适配器支持的格式
func (a *Adapter) Format() document.Format {
	return document.FormatEPUB
}

// Parse 读取 EPUB 文件并提取段落级文本块
func (a *Adapter) Parse(ctx context.Context, srcPath string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, document.NewAdapterError("parse", srcPath, fmt.Errorf("failed to read file: %w", err))
	}

	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, document.NewAdapterError("parse", srcPath, fmt.Errorf("failed to open EPUB as ZIP: %w", err))
	}

	doc := document.New(document.FormatEPUB, srcPath)
	h := &handle{sourcePath: srcPath}

	for _, file := range zipReader.File {
		fileData, err := readZipFile(file)
		if err != nil {
			return nil, document.NewAdapterError("parse", srcPath,
				fmt.Errorf("failed to read %s in EPUB: %w", file.Name, err))
		}

		e := &entry{name: file.Name, data: fileData}
		h.entries = append(h.entries, e)

		ext := strings.ToLower(path.Ext(file.Name))
		switch {
		case ext == ".html" || ext == ".xhtml" || ext == ".htm":
			htmlDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(fileData))
			if err != nil {
				// 解析失败的条目按原始字节透传
				continue
			}
			e.htmlDoc = htmlDoc
			a.extractBlocks(doc, h, file.Name, htmlDoc)

		case ext == ".opf":
			parseOPF(fileData, doc)
		}
	}

	h.blockCount = doc.BlockCount()
	doc.Handle = h
	doc.Seal()
	return doc, nil
}

// extractBlocks 提取子节点均为文本的 <p> 元素
func (a *Adapter) extractBlocks(doc *document.Document, h *handle, fileName string, htmlDoc *goquery.Document) {
	htmlDoc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() != 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		doc.Append(text, document.BlockMetadata{
			Type: document.BlockParagraph,
			File: fileName,
		})
		h.bindings = append(h.bindings, sel)
	})
}

// Render 把校正后的文本写回 HTML，重新打包 EPUB，返回输出路径
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
	if doc.BlockCount() != h.blockCount || len(h.bindings) != h.blockCount {
		return "", &document.StructuralMismatchError{Want: h.blockCount, Got: doc.BlockCount()}
	}

	// 校正后的内容写回绑定的 <p> 节点
	for i, block := range doc.Blocks {
		h.bindings[i].SetText(block.Content)
	}

	outPath := a.outputPath(h.sourcePath)
	if err := writeEPUB(outPath, h.entries); err != nil {
		return "", document.NewAdapterError("render", outPath, err)
	}

	return outPath, nil
}

// writeEPUB 重新打包 zip，mimetype 必须是第一个且不压缩的条目
func writeEPUB(outPath string, entries []*entry) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	for _, e := range entries {
		if e.name == "mimetype" {
			if err := writeEntry(zw, e, zip.Store); err != nil {
				return err
			}
		}
	}
	for _, e := range entries {
		if e.name == "mimetype" {
			continue
		}
		if err := writeEntry(zw, e, zip.Deflate); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize EPUB: %w", err)
	}
	return nil
}

// writeEntry 写一个 zip 条目，HTML 条目从 goquery 文档重新序列化
func writeEntry(zw *zip.Writer, e *entry, method uint16) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", e.name, err)
	}

	data := e.data
	if e.htmlDoc != nil {
		serialized, err := serializeHTML(e.htmlDoc)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", e.name, err)
		}
		data = serialized
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", e.name, err)
	}
	return nil
}

// serializeHTML 把 goquery 文档序列化回完整 HTML
func serializeHTML(doc *goquery.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Get(0)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readZipFile 读取单个 zip 条目内容
func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// outputPath 计算输出文件路径 {name}_corrected.epub
func (a *Adapter) outputPath(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	if a.OutputDir != "" {
		dir = a.OutputDir
	}
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return filepath.Join(dir, base+"_corrected.epub")
}
