package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

const sampleMarkdown = `# Title

First paragraph with
a soft line break.

## Section

- first item
- second item
  continued here
1. ordered one

> A quoted line
> spanning two lines.

` + "```go\nfmt.Println(\"hi\")\n```" + `

| a | b |
|---|---|
| 1 | 2 |

$$
x = y^2
$$

Closing paragraph.
`

func writeTempMarkdown(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseBlocks(t *testing.T) {
	path := writeTempMarkdown(t, sampleMarkdown)
	adapter := NewAdapter("")

	doc, err := adapter.Parse(context.Background(), path)
	require.NoError(t, err)

	types := make([]document.BlockType, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		types = append(types, b.Metadata.Type)
	}
	assert.Equal(t, []document.BlockType{
		document.BlockHeading,
		document.BlockParagraph,
		document.BlockHeading,
		document.BlockListItem,
		document.BlockListItem,
		document.BlockListItem,
		document.BlockQuote,
		document.BlockCode,
		document.BlockTable,
		document.BlockMath,
		document.BlockParagraph,
	}, types)

	assert.Equal(t, "Title", doc.Blocks[0].Content)
	assert.Equal(t, 1, doc.Blocks[0].Metadata.Level)
	assert.Equal(t, "Title", doc.Metadata.Title)

	// 软换行合并为空格
	assert.Equal(t, "First paragraph with a soft line break.", doc.Blocks[1].Content)

	// 列表项续行归入同一块
	assert.Equal(t, "second item continued here", doc.Blocks[4].Content)
	assert.Equal(t, "-", doc.Blocks[4].Metadata.Marker)
	assert.False(t, doc.Blocks[4].Metadata.Ordered)
	assert.True(t, doc.Blocks[5].Metadata.Ordered)
	assert.Equal(t, "1.", doc.Blocks[5].Metadata.Marker)

	assert.Equal(t, "A quoted line spanning two lines.", doc.Blocks[6].Content)

	// 代码、表格、数学块不可校正且内容原样
	for _, i := range []int{7, 8, 9} {
		assert.False(t, doc.Blocks[i].Correctable(), "block %d", i)
	}
	assert.Contains(t, doc.Blocks[7].Content, "fmt.Println")
	assert.Contains(t, doc.Blocks[8].Content, "|---|---|")
}

func TestRoundTripIdentity(t *testing.T) {
	path := writeTempMarkdown(t, sampleMarkdown)
	adapter := NewAdapter("")

	doc, err := adapter.Parse(context.Background(), path)
	require.NoError(t, err)

	outPath, err := adapter.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "sample_corrected.md"), outPath)

	// 往返后再解析，块序列必须完全一致
	doc2, err := adapter.Parse(context.Background(), outPath)
	require.NoError(t, err)
	require.Equal(t, doc.BlockCount(), doc2.BlockCount())
	for i := range doc.Blocks {
		assert.Equal(t, doc.Blocks[i].Content, doc2.Blocks[i].Content, "block %d", i)
		assert.Equal(t, doc.Blocks[i].Metadata.Type, doc2.Blocks[i].Metadata.Type, "block %d", i)
	}

	// 源文件未被覆盖
	original, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleMarkdown, string(original))
}

func TestRenderReconstructsMarkers(t *testing.T) {
	path := writeTempMarkdown(t, "## Heading\n\n- item one\n- item two\n\n> quote\n")
	adapter := NewAdapter("")

	doc, err := adapter.Parse(context.Background(), path)
	require.NoError(t, err)

	outPath, err := adapter.Render(context.Background(), doc)
	require.NoError(t, err)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "## Heading\n\n- item one\n- item two\n\n> quote\n", string(out))
}

func TestRenderStructuralMismatch(t *testing.T) {
	path := writeTempMarkdown(t, "one\n\ntwo\n")
	adapter := NewAdapter("")

	doc, err := adapter.Parse(context.Background(), path)
	require.NoError(t, err)

	// 模拟过滤器破坏了块数量不变式
	doc.Blocks = doc.Blocks[:1]

	_, err = adapter.Render(context.Background(), doc)
	var mismatch *document.StructuralMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Want)
	assert.Equal(t, 1, mismatch.Got)
	assert.True(t, document.IsFatal(err))
}

func TestRenderForeignHandle(t *testing.T) {
	adapter := NewAdapter("")
	doc := document.New(document.FormatMarkdown, "x.md")
	doc.Handle = "not a markdown handle"
	doc.Seal()

	_, err := adapter.Render(context.Background(), doc)
	assert.ErrorIs(t, err, document.ErrForeignHandle)
}

func TestParseMissingFile(t *testing.T) {
	adapter := NewAdapter("")
	_, err := adapter.Parse(context.Background(), "/nonexistent/file.md")
	var adapterErr *document.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "parse", adapterErr.Stage)
}

func TestOutputDirOverride(t *testing.T) {
	outDir := t.TempDir()
	path := writeTempMarkdown(t, "hello\n")
	adapter := NewAdapter(outDir)

	doc, err := adapter.Parse(context.Background(), path)
	require.NoError(t, err)

	outPath, err := adapter.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "sample_corrected.md"), outPath)
}
