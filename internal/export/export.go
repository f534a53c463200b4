package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/querydeck/querydeck/internal/db"
	"github.com/querydeck/querydeck/internal/storage"
)

// Answer is one resolved question ready to be archived.
type Answer struct {
	ConversationID string
	Question       string
	SQL            string
	Table          db.Table
	AnsweredAt     time.Time
}

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

type ExportResult struct {
	Key         string
	RecordCount int64
	Size        int64
}

type parquetAnswerRow struct {
	RowIndex    int64  `parquet:"row_index"`
	Question    string `parquet:"question"`
	SQLText     string `parquet:"sql_text"`
	ColumnsJSON string `parquet:"columns_json"`
	PayloadJSON string `parquet:"payload_json"`
}

// EncodeAnswerToParquet flattens a result table into one parquet row per
// data row. Column order is preserved in columns_json so the original
// table can be reconstructed from payload_json objects.
func EncodeAnswerToParquet(answer Answer) (EncodeResult, error) {
	if answer.Table.RowCount() == 0 {
		return EncodeResult{}, fmt.Errorf("answer table has no rows")
	}

	columnsJSON, err := json.Marshal(answer.Table.Columns)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("encode columns: %w", err)
	}

	rows := make([]parquetAnswerRow, 0, len(answer.Table.Rows))
	for i, tableRow := range answer.Table.Rows {
		if len(tableRow) != len(answer.Table.Columns) {
			return EncodeResult{}, fmt.Errorf("row %d has %d values for %d columns", i, len(tableRow), len(answer.Table.Columns))
		}
		payload := make(map[string]any, len(tableRow))
		for j, column := range answer.Table.Columns {
			payload[column] = tableRow[j]
		}
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return EncodeResult{}, fmt.Errorf("encode row %d: %w", i, err)
		}
		rows = append(rows, parquetAnswerRow{
			RowIndex:    int64(i),
			Question:    answer.Question,
			SQLText:     answer.SQL,
			ColumnsJSON: string(columnsJSON),
			PayloadJSON: string(payloadJSON),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetAnswerRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{Data: buf.Bytes(), RecordCount: int64(len(rows))}, nil
}

// Exporter archives answered questions as parquet objects.
type Exporter struct {
	store  storage.ObjectStore
	logger *slog.Logger
	now    func() time.Time
}

func NewExporter(store storage.ObjectStore, logger *slog.Logger) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, logger: logger, now: time.Now}, nil
}

func (e *Exporter) Export(ctx context.Context, answer Answer) (ExportResult, error) {
	answeredAt := answer.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = e.now()
	}
	key, err := storage.BuildAnswerFilePath(answer.ConversationID, answeredAt)
	if err != nil {
		return ExportResult{}, err
	}

	encoded, err := EncodeAnswerToParquet(answer)
	if err != nil {
		return ExportResult{}, err
	}

	info, err := e.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("store answer object: %w", err)
	}

	e.logger.Info("answer exported",
		slog.String("conversation_id", answer.ConversationID),
		slog.String("key", key),
		slog.Int64("records", encoded.RecordCount),
	)
	return ExportResult{Key: key, RecordCount: encoded.RecordCount, Size: info.Size}, nil
}
