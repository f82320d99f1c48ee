package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/app"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/drive"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/ingest"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/pipeline"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/report"
)

var (
	client     string
	question   string
	docType    string
	rulesPath  string
	searchTake int
	runTake    int
	googleCSV  string
	metaCSV    string
	outPath    string
	sheetPath  string
	sheetName  string
	exportKind string
	fileID     string
	clientsCfg string
	previewN   int
)

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Consolida CSVs do Google Ads e Meta Ads por mês e plataforma",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Pipeline.BuildKPIs(ctx, pipeline.KPIRequest{Client: client, GoogleCSV: googleCSV, MetaCSV: metaCSV})
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := writeOut(outPath, []byte(res.Text)); err != nil {
					return err
				}
			}
			fmt.Println(res.Text)
			fmt.Println("\nSalvo:", res.CSVPath)
			fmt.Println("Salvo:", res.TextPath)
			return nil
		})
	},
}

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Resume uma planilha de uma linha por registro",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Pipeline.AnalyzeSheet(sheetPath, sheetName)
			if err != nil {
				return err
			}
			printSheet(res)
			return nil
		})
	},
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Resume uma aba matriz (métrica por linha, período por coluna)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Pipeline.AnalyzeMatrix(sheetPath, sheetName)
			if err != nil {
				return err
			}
			printSheet(res)
			return nil
		})
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Mostra abas, colunas e sugestões de mapeamento de uma planilha",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if !isXLSX(sheetPath) {
				t, err := ingest.ReadCSVFile(sheetPath)
				if err != nil {
					return err
				}
				return ingest.Preview(os.Stdout, filepath.Base(sheetPath), t, a.Pipeline.Schema, previewN)
			}
			sheets, err := ingest.ListSheets(sheetPath)
			if err != nil {
				return err
			}
			fmt.Println("Sheets:", strings.Join(sheets, ", "))
			for _, sh := range sheets {
				t, err := ingest.ReadXLSX(sheetPath, sh)
				if err != nil {
					return err
				}
				fmt.Println()
				if err := ingest.Preview(os.Stdout, sh, t, a.Pipeline.Schema, previewN); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var xlsx2txtCmd = &cobra.Command{
	Use:   "xlsx2txt",
	Short: "Converte um .xlsx em texto tabulado em data/raw",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		base := drive.Sanitize(strings.TrimSuffix(filepath.Base(sheetPath), filepath.Ext(sheetPath)))
		out := cfg.Path("data", "raw", base+".txt")
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := ingest.XLSXToText(sheetPath, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Println("Salvo:", out)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Busca inteligente no Drive pelas regras da empresa",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.RequireDrive(); err != nil {
				return err
			}
			path := rulesPath
			if path == "" {
				path = a.Cfg.RulesPath
			}
			rules, err := drive.LoadRules(path)
			if err != nil {
				return err
			}
			files, err := drive.SearchPasses(ctx, a.Drive, client, docType, rules, 25)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("Nada encontrado com as regras. Ajuste tokens/pastas no arquivo de regras.")
				return nil
			}
			fmt.Println("Top resultados (ordenados por modifiedTime desc):")
			for i, f := range files {
				if i == searchTake {
					break
				}
				fmt.Printf("%d. %s\n", i+1, f)
			}
			if exportKind == "" || exportKind == "none" {
				return nil
			}
			b, ext, err := drive.Export(ctx, a.Drive, files[0], exportKind)
			if err != nil {
				return err
			}
			out := drive.OutputPath(a.Cfg.AppRoot, files[0].Name, ext)
			if err := writeOut(out, b); err != nil {
				return err
			}
			fmt.Println("Salvo:", out)
			return nil
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Baixa ou exporta um arquivo do Drive pelo ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.RequireDrive(); err != nil {
				return err
			}
			b, name, err := drive.DownloadByID(ctx, a.Drive, fileID)
			if err != nil {
				return err
			}
			out := a.Cfg.Path("data", "downloads", name)
			if err := writeOut(out, b); err != nil {
				return err
			}
			fmt.Println("Arquivo salvo em:", out)
			return nil
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Reconstrói a base de conhecimento com os .txt de data/raw",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.RequireLLM(); err != nil {
				return err
			}
			st, err := a.Pipeline.Indexer.IngestDir(ctx, a.Cfg.Path("data", "raw"))
			if err != nil {
				return err
			}
			fmt.Printf("Ingestão concluída: %d arquivos, %d chunks.\n", st.Files, st.Chunks)
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Exporta a entrega mais recente de cada tipo e reingere",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.RequireLLM(); err != nil {
				return err
			}
			if err := a.RequireDrive(); err != nil {
				return err
			}
			if err := a.Pipeline.UpdateIngestion(ctx, client); err != nil {
				return err
			}
			fmt.Println("Base atualizada para", client)
			return nil
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Responde uma pergunta com o contexto da base",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.RequireLLM(); err != nil {
				return err
			}
			ans, err := a.Pipeline.Asker.Ask(ctx, question, 0)
			if err != nil {
				return err
			}
			fmt.Println(ans)
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Gera o relatório executivo em Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.RequireLLM(); err != nil {
				return err
			}
			body, err := a.Pipeline.Asker.Ask(ctx, question, 0)
			if err != nil {
				return err
			}
			out := outPath
			if out == "" {
				out = a.Cfg.Path("reports", "relatorio.md")
			}
			if err := writeOut(out, []byte(report.BuildMarkdown(question, body, time.Now()))); err != nil {
				return err
			}
			fmt.Println("Relatório salvo em:", out)
			return nil
		})
	},
}

var pipelineCmd = &cobra.Command{
	Use:     "pipeline",
	Aliases: []string{"run"},
	Short:   "Roda o fluxo completo de um cliente e salva o relatório",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Pipeline.Run(ctx, pipeline.RunRequest{
				Client:    client,
				Question:  question,
				Type:      docType,
				Take:      runTake,
				Rules:     rulesPath,
				GoogleCSV: googleCSV,
				MetaCSV:   metaCSV,
			})
			if err != nil {
				return err
			}
			if res.Fallback {
				fmt.Println("Busca falhou; respondido em modo chat.")
			}
			fmt.Println(res.Markdown)
			fmt.Println("Relatório salvo em:", res.ReportPath)
			return nil
		})
	},
}

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Roda o pipeline para todos os clientes do arquivo de configuração",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			clients, err := pipeline.LoadClients(clientsCfg)
			if err != nil {
				return err
			}
			res := a.Pipeline.RunAll(ctx, clients)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"ok": res.OK, "failed": res.Failed}); err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d de %d clientes falharam", len(res.Failed), len(clients))
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{kpisCmd, pipelineCmd, searchCmd, updateCmd} {
		c.Flags().StringVar(&client, "client", "", `Cliente (ex.: "Start TI")`)
		c.MarkFlagRequired("client")
	}
	for _, c := range []*cobra.Command{kpisCmd, pipelineCmd} {
		c.Flags().StringVar(&googleCSV, "google_csv", "", "CSV exportado do Google Ads")
		c.Flags().StringVar(&metaCSV, "meta_csv", "", "CSV exportado do Meta Ads")
	}
	kpisCmd.Flags().StringVar(&outPath, "out", "", "Cópia extra do texto de KPIs")

	for _, c := range []*cobra.Command{sheetCmd, matrixCmd, previewCmd, xlsx2txtCmd} {
		c.Flags().StringVar(&sheetPath, "path", "", "Caminho da planilha")
		c.MarkFlagRequired("path")
	}
	sheetCmd.Flags().StringVar(&sheetName, "sheet", "", "Aba (padrão: a primeira)")
	matrixCmd.Flags().StringVar(&sheetName, "sheet", "", "Aba (ex.: 'BD MENSAL')")
	matrixCmd.MarkFlagRequired("sheet")
	previewCmd.Flags().IntVar(&previewN, "rows", 8, "Linhas de prévia por aba")

	for _, c := range []*cobra.Command{searchCmd, pipelineCmd} {
		c.Flags().StringVar(&docType, "type", "", "Tipo: daily, weekly, checkin, planejamento, replanejamento, benchmarking, chat")
		c.Flags().StringVar(&rulesPath, "rules", "", "Arquivo de regras (padrão: RULES_PATH)")
	}
	searchCmd.MarkFlagRequired("type")
	searchCmd.Flags().IntVar(&searchTake, "take", 3, "Quantos resultados listar")
	searchCmd.Flags().StringVar(&exportKind, "export", "none", "Exportar o 1º resultado: none, txt, csv, pdf")
	pipelineCmd.Flags().IntVar(&runTake, "take", 1, "Quantos arquivos da busca considerar")

	for _, c := range []*cobra.Command{askCmd, reportCmd, pipelineCmd} {
		c.Flags().StringVar(&question, "q", "", "Pergunta em linguagem natural")
		c.MarkFlagRequired("q")
	}
	reportCmd.Flags().StringVar(&outPath, "out", "", "Arquivo .md de saída (padrão: reports/relatorio.md)")

	downloadCmd.Flags().StringVar(&fileID, "id", "", "ID do arquivo no Drive")
	downloadCmd.MarkFlagRequired("id")

	runAllCmd.Flags().StringVar(&clientsCfg, "config", "clients.yaml", "Lista de clientes (YAML ou JSON)")
}

func printSheet(res pipeline.SheetResult) {
	fmt.Println(res.Summary)
	fmt.Println("\nSalvo:", res.CSVPath)
	fmt.Println("Salvo:", res.TextPath)
}

func isXLSX(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func writeOut(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
