package universe

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"DealScanner/internal/domain"
)

func TestLoadCSVSkipsFencesAndDuplicates(t *testing.T) {
	t.Parallel()

	input := "\ufeff```csv\n" +
		"기업명,주요사업,투자자,단계,신규,주차\n" +
		"부스터스,D2C 브랜드,FSN,시리즈B,Y,11월 2주차\n" +
		"엘리시젠,바이오,,시드,,11월 2주차\n" +
		"부스터스,duplicate,,,,\n" +
		",empty name,,,,\n" +
		"```\n"

	companies, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, companies, 2)

	assert.Equal(t, domain.Company{
		Name: "부스터스", Industry: "D2C 브랜드", Investors: "FSN", Stage: "시리즈B", IsNew: true, Week: "11월 2주차",
	}, companies[0])
	assert.Equal(t, "엘리시젠", companies[1].Name)
	assert.False(t, companies[1].IsNew)
}

func TestLoadCSVRequiresCompanyColumn(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV(strings.NewReader("name,industry\nfoo,bar\n"))
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestLoadXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "universe.xlsx")
	book := excelize.NewFile()
	rows := [][]any{
		{"기업명", "주요사업", "단계"},
		{"에봄에이아이", "AI", "시드"},
		{"부스터스", "커머스", "시리즈B"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow("Sheet1", cellName, &row))
	}
	require.NoError(t, book.SaveAs(path))
	require.NoError(t, book.Close())

	companies, err := Load(path)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "에봄에이아이", companies[0].Name)
	assert.Equal(t, "AI", companies[0].Industry)
	assert.Equal(t, "시리즈B", companies[1].Stage)
}

func TestLoadSources(t *testing.T) {
	t.Parallel()

	input := "source_number,source_name,source_url,collection_method,category,is_active\n" +
		"1,WOWTALE,https://wowtale.net,html,startup,true\n" +
		"100,Naver Search,https://openapi.naver.com,SEARCH_API,portal,false\n"
	sources, err := LoadSources(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, domain.MethodHTML, sources[0].Method)
	assert.True(t, sources[0].Active)
	assert.Equal(t, 100, sources[1].Number)
	assert.False(t, sources[1].Active)

	_, err = LoadSources(strings.NewReader("source_number,source_name,collection_method\n101,x,HTML\n"))
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = LoadSources(strings.NewReader("source_number,source_name,collection_method\n5,x,FAX\n"))
	assert.ErrorIs(t, err, domain.ErrConfig)
}
