package dataprocessing

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"testing"

	"poscope/internal/config"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

const (
	checkoutsCSV = `アカウント名,会計ID,開始日時,会計日時,削除日時,金額,客数
ub396203,1001,2024-04-08 11:58:00 +0900,2024-04-08 12:01:30 +0900,,540,1
ub396203,1002,2024-04-08 12:05:00 +0900,2024-04-08 12:06:00 +0900,2024-04-08 12:10:00 +0900,300,1
ub396207,1003,2024-04-09 18:00:00 +0900,2024-04-09 18:02:00 +0900,,"1,200",2
`
	itemsCSV = `会計ID,SKU,バーコード,名前,数量,金額,部門
1001,S1,4900000000011,カレー,1,540,主食
1002,S2,4900000000028,サラダ,1,300,副菜
1003,S3,4900000000035,うどん,2,1200,麺類
`
	paymentsCSV = `会計ID,支払い方法
1001,現金
1002,現金
1003,
1003,交通系IC
`
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		AccountStores: map[string]string{
			config.AccountWest: "west",
			config.AccountEast: "east",
		},
		SkipIdenticalArchives: true,
	}
}

func encodeSJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

// buildArchive zips raw member bytes in the given order
func buildArchive(t *testing.T, name string, members ...zipMember) Archive {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write(m.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return Archive{Name: name, Data: buf.Bytes()}
}

type zipMember struct {
	name string
	data []byte
}

func sjisMember(t *testing.T, name, content string) zipMember {
	return zipMember{name: name, data: encodeSJIS(t, content)}
}

func standardArchive(t *testing.T, name string, extra ...zipMember) Archive {
	members := []zipMember{
		sjisMember(t, FileCheckouts, checkoutsCSV),
		sjisMember(t, FileItems, itemsCSV),
		sjisMember(t, FilePayments, paymentsCSV),
	}
	return buildArchive(t, name, append(members, extra...)...)
}
