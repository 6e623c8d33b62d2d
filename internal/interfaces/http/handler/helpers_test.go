package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appanalytics "github.com/kpiplatform/backend/internal/application/analytics"
	appkpi "github.com/kpiplatform/backend/internal/application/kpi"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence/models"
	"github.com/kpiplatform/backend/internal/interfaces/http/handler"
	"github.com/kpiplatform/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var now = time.Date(2025, time.May, 20, 9, 30, 0, 0, time.UTC)

const maxFileSize = 256 << 10

type server struct {
	engine *gin.Engine
	audit  *persistence.GormAuditRepository
}

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	log := zap.NewNop()
	clock := func() time.Time { return now }

	entities := persistence.NewGormEntityRepository(db)
	pnl := persistence.NewGormPnLRepository(db)
	tb := persistence.NewGormTrialBalanceRepository(db)

	reports := appanalytics.NewReportService(entities, persistence.NewGormCategoryRepository(db), pnl, tb, log,
		appanalytics.WithClock(clock))
	uploads := appanalytics.NewUploadService(entities, pnl, tb, persistence.NewGormAnalyticsTransactionScope(db), log)
	kpis := appkpi.NewKPIService(
		persistence.NewGormKPIRepository(db),
		persistence.NewGormIndicatorRepository(db),
		persistence.NewGormBonusRepository(db),
		persistence.NewGormMonthStatusRepository(db),
		persistence.NewGormKPITransactionScope(db),
		log,
		appkpi.WithClock(clock),
	)

	engine, err := router.NewEngine(router.EngineConfig{ServiceName: "test", MaxBodySize: 4 << 20}, log, router.Handlers{
		System: handler.NewSystemHandler("kpi-backend", "test", sqlPinger{db: db}),
		Entity: handler.NewEntityHandler(reports),
		Upload: handler.NewUploadHandler(uploads, maxFileSize),
		Report: handler.NewReportHandler(reports),
		KPI:    handler.NewKPIHandler(kpis),
	})
	require.NoError(t, err)

	return &server{engine: engine, audit: persistence.NewGormAuditRepository(db)}
}

// do sends a JSON request as user and decodes the envelope
func (s *server) do(t *testing.T, method, path string, body any, user string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	return s.serve(t, req)
}

func (s *server) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// data decodes the envelope payload into v
func data[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

type sqlPinger struct {
	db *gorm.DB
}

func (p sqlPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// workbook renders rows into an in-memory xlsx
func workbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &cells))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func pnlWorkbook(t *testing.T) []byte {
	return workbook(t, [][]string{
		{"Сравнительный анализ финансовых результатов"},
		{"за май 2025"},
		{"№", "Наименование", "Факт", "План"},
		{"1", "Выручка", "1000", "1200"},
		{"2", "Себестоимость", "400", "500"},
		{"", "ИТОГО ПРОДАЖИ", "600", "700"},
	})
}

func trialBalanceWorkbook(t *testing.T) []byte {
	return workbook(t, [][]string{
		{"Оборотно-сальдовая ведомость за май 2025"},
		{"", ""},
		{"Счет", "Наименование", "Сальдо на начало", "", "Обороты за период", "", ""},
		{"", "", "Дебет", "Кредит", "", "Дебет", "Кредит"},
		{"10.01", "Материалы", "", "", "", "1510", "200"},
	})
}

// uploadRequest builds the multipart upload form
func uploadRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".xlsx")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", "accountant")
	return req
}
