package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-corrector-agent/internal/config"
	"github.com/nerdneilsfield/go-corrector-agent/internal/formats/epub"
	"github.com/nerdneilsfield/go-corrector-agent/internal/formats/markdown"
	"github.com/nerdneilsfield/go-corrector-agent/internal/logger"
	"github.com/nerdneilsfield/go-corrector-agent/internal/pipeline"
	"github.com/nerdneilsfield/go-corrector-agent/internal/stats"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

var (
	// 命令行标志变量
	cfgFile      string
	backendName  string
	modeName     string
	failFast     bool
	debugMode    bool
	verboseMode  bool // 显示详细日志
	dryRun       bool // 预演模式，只解析不校正
	listBackends bool
	outputDir    string
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "corrector [flags] input_file",
		Short: "面向 TTS 的批量文档校正工具",
		Long: `corrector 对长篇文档（Markdown、EPUB）做批量语法/拼写校正和
TTS 友好的文本规范化，保持文档结构不变，输出写到输入文件旁的
{name}_corrected.{ext}，绝不覆盖源文件。

支持的校正后端:
  - rulebased: LanguageTool 规则引擎（本地进程 → 远程 API → 禁用透传）
  - localmodel: llama.cpp 本地量化模型（OpenAI 兼容接口）
  - transformer: seq2seq 语法校正模型（束搜索 + 重复抑制）

后端组合模式:
  - replace: 只用选定后端
  - hybrid: 选定后端在前，规则引擎收尾
  - supplement: 规则引擎在前，选定后端补充`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if listBackends {
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			log := logger.NewLoggerWithVerbose(debugMode, verboseMode)
			defer func() {
				_ = log.Sync()
			}()

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				fatal(log, "加载配置失败", err)
			}
			applyFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				fatal(log, "配置无效", err)
			}

			reg, err := newRegistry(cfg, log)
			if err != nil {
				fatal(log, "初始化后端失败", err)
			}

			if listBackends {
				fmt.Println("可用的校正后端:")
				for _, name := range reg.List() {
					marker := "  "
					if name == cfg.Backend {
						marker = color.GreenString("* ")
					}
					fmt.Printf("%s%s\n", marker, name)
				}
				return
			}

			inputPath := args[0]
			adapter, err := adapterFor(inputPath, cfg.OutputDir)
			if err != nil {
				fatal(log, "无法处理该文件", err)
			}

			if dryRun {
				if err := runDryRun(cmd, cfg, adapter, inputPath); err != nil {
					fatal(log, "预演失败", err)
				}
				return
			}

			progress := newProgressRenderer()
			filters, err := buildFilters(cfg, reg, log, progress.Sink())
			if err != nil {
				fatal(log, "组装过滤器链失败", err)
			}

			run := pipeline.NewRun(adapter, filters, cfg.FailFast, log, progress.Sink())
			rs, err := run.Execute(cmd.Context(), inputPath)
			if err != nil {
				color.Red("校正失败: %v", err)
				os.Exit(1)
			}

			stats.RenderSummary(os.Stdout, rs)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认查找 ./corrector.yaml)")
	rootCmd.Flags().StringVarP(&backendName, "backend", "b", "", "校正后端 (rulebased|localmodel|transformer)")
	rootCmd.Flags().StringVarP(&modeName, "mode", "m", "", "后端组合模式 (replace|hybrid|supplement)")
	rootCmd.Flags().BoolVar(&failFast, "fail-fast", false, "首错即止，不产出输出文件")
	rootCmd.Flags().BoolVarP(&debugMode, "debug", "d", false, "调试模式")
	rootCmd.Flags().BoolVarP(&verboseMode, "verbose", "v", false, "显示详细日志")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "只解析并显示将要执行的操作")
	rootCmd.Flags().BoolVar(&listBackends, "list-backends", false, "列出可用的校正后端")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "输出目录 (默认输入文件所在目录)")

	return rootCmd
}

// applyFlags 命令行标志覆盖配置文件
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("backend") {
		cfg.Backend = backendName
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = modeName
	}
	if cmd.Flags().Changed("fail-fast") {
		cfg.FailFast = failFast
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if debugMode {
		cfg.Debug = true
	}
	if verboseMode {
		cfg.Verbose = true
	}
}

// adapterFor 按扩展名选择格式适配器
func adapterFor(path, outputDir string) (document.Adapter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return markdown.NewAdapter(outputDir), nil
	case ".epub":
		return epub.NewAdapter(outputDir), nil
	default:
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// runDryRun 只解析文档，显示将要执行的操作
func runDryRun(cmd *cobra.Command, cfg *config.Config, adapter document.Adapter, inputPath string) error {
	doc, err := adapter.Parse(cmd.Context(), inputPath)
	if err != nil {
		return err
	}

	fmt.Printf("输入文件: %s (%s)\n", inputPath, doc.Format)
	if doc.Metadata.Title != "" {
		fmt.Printf("标题: %s\n", doc.Metadata.Title)
	}
	fmt.Printf("文本块: %d 个，其中可校正 %d 个\n", doc.BlockCount(), len(doc.CorrectableBlocks()))
	fmt.Printf("后端: %s  模式: %s  fail-fast: %v\n", cfg.Backend, cfg.Mode, cfg.FailFast)
	fmt.Println("预演模式，未做任何校正。")
	return nil
}

// fatal 打印错误并退出
func fatal(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	color.Red("%s: %v", msg, err)
	os.Exit(1)
}
