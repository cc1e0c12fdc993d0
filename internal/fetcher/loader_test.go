package fetcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/risk-cli/internal/model"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadItems_Text(t *testing.T) {
	path := writeTestFile(t, "items.txt", "11.222.333/0001-81\n\n  Acme Gestora LTDA  \n")

	items, err := LoadItems(path)
	require.NoError(t, err)
	assert.Equal(t, []model.RawItem{
		model.StringItem("11.222.333/0001-81"),
		model.StringItem("Acme Gestora LTDA"),
	}, items)
}

func TestLoadItems_CSVRecords(t *testing.T) {
	path := writeTestFile(t, "items.csv", "CNPJ;Razao_Social\n11.222.333/0001-81;Acme Gestora LTDA\n;Beta Fundo SA\n")

	items, err := LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]string{"cnpj": "11.222.333/0001-81", "razao_social": "Acme Gestora LTDA"}, items[0].Record)
	assert.Equal(t, map[string]string{"cnpj": "", "razao_social": "Beta Fundo SA"}, items[1].Record)
}

func TestLoadItems_CSVSingleColumnWithHeader(t *testing.T) {
	path := writeTestFile(t, "items.csv", "cnpj\n11222333000181\n44555666000199\n")

	items, err := LoadItems(path)
	require.NoError(t, err)
	assert.Equal(t, model.StringItems([]string{"11222333000181", "44555666000199"}), items)
}

func TestLoadItems_CSVSingleColumnNoHeader(t *testing.T) {
	path := writeTestFile(t, "items.csv", "11222333000181\nAcme Gestora LTDA\n")

	items, err := LoadItems(path)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestLoadItems_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"cnpj", "nome"},
		{"11.222.333/0001-81", "Acme Gestora LTDA"},
		{"", ""},
		{"44.555.666/0001-99", "Beta Holdings SA"},
	})

	items, err := LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Beta Holdings SA", items[1].Record["nome"])
}

func TestLoadItems_JSONArray(t *testing.T) {
	path := writeTestFile(t, "items.json", `["11222333000181", {"cnpj": "44555666000199", "razao_social": "Beta SA"}, 42]`)

	items, err := LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "11222333000181", items[0].Value)
	assert.True(t, items[1].IsRecord())
	assert.True(t, items[2].Invalid)
}

func TestLoadItems_JSONEnvelope(t *testing.T) {
	path := writeTestFile(t, "items.json", `{"items": ["Acme Gestora LTDA"]}`)

	items, err := LoadItems(path)
	require.NoError(t, err)
	assert.Equal(t, model.StringItems([]string{"Acme Gestora LTDA"}), items)
}

func TestLoadItems_Errors(t *testing.T) {
	tests := []struct {
		name, file, content, wantErr string
	}{
		{"unsupported", "items.pdf", "x", "unsupported input format"},
		{"json scalar", "items.json", `"x"`, "expected '[' or '{'"},
		{"json without items", "items.json", `{"rows": []}`, `no "items" array`},
		{"json empty", "items.json", "  ", "empty document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadItems(writeTestFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadItems_MissingFile(t *testing.T) {
	_, err := LoadItems(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadCSV_SniffsDelimiter(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("a,b,c\n1,2,3\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "2", "3"}}, rows)

	rows, err = ReadCSV(strings.NewReader("a;b\n\"x,y\";2\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"x,y", "2"}}, rows)
}

func TestReadCSV_Options(t *testing.T) {
	input := "# comment\n a | b \n"
	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{Delimiter: '|', Comment: '#', TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestReadXLSX_SheetErrors(t *testing.T) {
	path := createTestXLSX(t, [][]string{{"a"}})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	rows, err := ReadXLSX(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRowsToItems_Empty(t *testing.T) {
	assert.Nil(t, RowsToItems(nil))
	assert.Nil(t, RowsToItems([][]string{{"", " "}}))
}
