package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/app"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/llm"
)

func offline(t *testing.T) string {
	t.Setenv("VECTOR_DB_PATH", app.MemoryDB)
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("LOG_LEVEL", "error")
	return t.TempDir()
}

func execute(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestKpisCommand(t *testing.T) {
	ws := offline(t)
	in := filepath.Join(ws, "google.csv")
	require.NoError(t, os.WriteFile(in, []byte("Day,Impressions,Clicks,Cost\n2024-01-05,1000,100,50.00\n"), 0o644))

	require.NoError(t, execute("kpis", "--root", ws, "--client", "Start TI", "--google_csv", in))
	assert.FileExists(t, filepath.Join(ws, "data", "derived", "ads_kpis_start_ti.csv"))
	assert.FileExists(t, filepath.Join(ws, "data", "raw", "ads_kpis_start_ti.txt"))
}

func TestXLSX2TxtCommand(t *testing.T) {
	ws := offline(t)
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Leads"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", 3))
	path := filepath.Join(ws, "Plan: Q1.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	require.NoError(t, execute("xlsx2txt", "--root", ws, "--path", path))
	b, err := os.ReadFile(filepath.Join(ws, "data", "raw", "Plan Q1.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "# Sheet: Sheet1\n")
}

func TestAskNeedsGemini(t *testing.T) {
	ws := offline(t)
	err := execute("ask", "--root", ws, "--q", "oi")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}
