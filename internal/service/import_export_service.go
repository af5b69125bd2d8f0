package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/redis"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/sheet"
)

// ── 导入导出模块业务错误 ──

var (
	ErrImportBadHeader        = errors.New("Intestazione non valida: servono le colonne HOSPITALITY, COGNOME, NOME")
	ErrImportNoData           = errors.New("Nessuna riga di dati nel file")
	ErrImportTooManyRows      = errors.New("Numero di righe oltre il limite consentito")
	ErrImportProgressNotFound = errors.New("Avanzamento importazione non trovato o scaduto")
	ErrExportGenerateFail     = errors.New("Generazione del file Excel non riuscita")
)

const (
	maxReportedImportErrors = 10
	importHistoryLimit      = 50
	exportSheetName         = "Ospiti"
)

var exportHeaders = []string{"SALA", "COGNOME", "NOME", "TAVOLO", "CHECK_IN", "DATA_CHECK_IN"}
var exportWidths = []float64{25, 20, 20, 10, 10, 22}

// ImportExportService 宾客批量导入导出接口
type ImportExportService interface {
	// ImportGuests 解析表格并批量创建宾客，progress 可为 nil
	ImportGuests(ctx context.Context, fileName string, r io.Reader, actorID string, progress func(int)) (*dto.ImportResult, error)
	// TrackProgress 返回把进度写入 Redis 的回调
	TrackProgress(ctx context.Context, importID string) func(int)
	GetProgress(ctx context.Context, importID string) (*dto.ImportProgressResponse, error)
	History(ctx context.Context) ([]dto.ImportHistoryResponse, error)
	// ExportGuests 导出宾客为 Excel，roomID 为空时导出全部
	ExportGuests(ctx context.Context, roomID string) (*bytes.Buffer, string, error)
}

type importExportService struct {
	repo    *repository.Repository
	rdb     *redis.Client
	maxRows int
	loc     *time.Location
	logger  *zap.Logger
}

// NewImportExportService 创建 ImportExportService 实例
func NewImportExportService(repo *repository.Repository, rdb *redis.Client, maxRows int, loc *time.Location, logger *zap.Logger) ImportExportService {
	return &importExportService{repo: repo, rdb: rdb, maxRows: maxRows, loc: loc, logger: logger}
}

// ────────────────────── 表头 ──────────────────────

// importColumn 同一逻辑列在表头中的全部下标，按取值优先级排列
type importColumn []int

// value 返回首个非空单元格
func (c importColumn) value(row []string) string {
	for _, idx := range c {
		if v := sheet.Cell(row, idx); v != "" {
			return v
		}
	}
	return ""
}

// importColumns 各逻辑列的下标，缺失时为空
type importColumns struct {
	room      importColumn
	lastName  importColumn
	firstName importColumn
	table     importColumn
	seat      importColumn
	checkedIn importColumn
	checkedAt importColumn
}

var headerAliases = map[string]string{
	"HOSPITALITY":   "room",
	"SALA":          "room",
	"COGNOME":       "last_name",
	"NOME":          "first_name",
	"TAVOLO":        "table",
	"POSTO":         "seat",
	"CHECK_IN":      "checked_in",
	"DATA_CHECK_IN": "checked_in_at",
}

// parseImportHeader 列顺序不限，表头去空格后大小写不敏感匹配。
// 同名列可重复出现（如 "COGNOME" 与 "COGNOME "），带空白的变体优先取值
func parseImportHeader(header []string) (importColumns, error) {
	var cols importColumns
	targets := map[string]*importColumn{
		"room":          &cols.room,
		"last_name":     &cols.lastName,
		"first_name":    &cols.firstName,
		"table":         &cols.table,
		"seat":          &cols.seat,
		"checked_in":    &cols.checkedIn,
		"checked_in_at": &cols.checkedAt,
	}
	// 第一轮收集带空白的表头，第二轮收集规整表头
	for _, wantPadded := range []bool{true, false} {
		for i, h := range header {
			trimmed := strings.TrimSpace(h)
			if (trimmed != h) != wantPadded {
				continue
			}
			if key, ok := headerAliases[strings.ToUpper(trimmed)]; ok {
				*targets[key] = append(*targets[key], i)
			}
		}
	}
	if len(cols.room) == 0 || len(cols.lastName) == 0 || len(cols.firstName) == 0 {
		return cols, ErrImportBadHeader
	}
	return cols, nil
}

// ────────────────────── ImportGuests ──────────────────────

func (s *importExportService) ImportGuests(ctx context.Context, fileName string, r io.Reader, actorID string, progress func(int)) (*dto.ImportResult, error) {
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}
	report(10)

	rows, err := sheet.ReadRows(r, fileName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	cols, err := parseImportHeader(rows[0])
	if err != nil {
		return nil, err
	}

	type dataRow struct {
		line  int
		cells []string
	}
	var data []dataRow
	for i, row := range rows[1:] {
		if sheet.IsBlankRow(row) {
			continue
		}
		// 表头为第 1 行
		data = append(data, dataRow{line: i + 2, cells: row})
	}
	if len(data) == 0 {
		return nil, ErrImportNoData
	}
	if s.maxRows > 0 && len(data) > s.maxRows {
		return nil, fmt.Errorf("%w: %d > %d", ErrImportTooManyRows, len(data), s.maxRows)
	}

	roomIDs, err := s.loadRoomIndex(ctx)
	if err != nil {
		return nil, err
	}
	report(20)

	caser := cases.Upper(language.Italian)
	now := time.Now().UTC()
	result := &dto.ImportResult{TotalRows: len(data), Errors: []string{}, CreatedRooms: []string{}}
	var allErrors []string
	guests := make([]model.Guest, 0, len(data))

	for i, d := range data {
		roomName := caser.String(cols.room.value(d.cells))
		lastName := cols.lastName.value(d.cells)
		firstName := cols.firstName.value(d.cells)

		switch {
		case roomName == "":
			allErrors = append(allErrors, fmt.Sprintf("Riga %d: manca la sala (HOSPITALITY)", d.line))
		case lastName == "":
			allErrors = append(allErrors, fmt.Sprintf("Riga %d: manca il cognome (COGNOME)", d.line))
		case firstName == "":
			allErrors = append(allErrors, fmt.Sprintf("Riga %d: manca il nome (NOME)", d.line))
		default:
			roomID, created, rerr := s.ensureRoom(ctx, roomIDs, roomName)
			if rerr != nil {
				allErrors = append(allErrors, fmt.Sprintf("Riga %d: impossibile creare la sala %s", d.line, roomName))
				break
			}
			if created {
				result.CreatedRooms = append(result.CreatedRooms, roomName)
			}
			g := model.Guest{
				RoomID:      roomID,
				FirstName:   firstName,
				LastName:    lastName,
				TableNumber: optionalCell(d.cells, cols.table),
				SeatNumber:  optionalCell(d.cells, cols.seat),
			}
			if isYes(cols.checkedIn.value(d.cells)) {
				at := now
				if raw := cols.checkedAt.value(d.cells); raw != "" {
					if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
						at = t.UTC()
					}
				}
				g.CheckedIn = true
				g.CheckedInAt = &at
				g.CheckedInBy = strPtr(actorID)
			}
			guests = append(guests, g)
		}

		report(20 + (i+1)*60/len(data))
	}
	report(85)

	// 写入失败时本批全部计为失败
	if len(guests) > 0 {
		if err := s.repo.Guest.BulkCreate(ctx, guests); err != nil {
			s.logger.Error("批量创建宾客失败", zap.String("file", fileName), zap.Error(err))
			allErrors = append(allErrors, fmt.Sprintf("Inserimento di %d ospiti non riuscito: %v", len(guests), err))
			guests = nil
		}
	}
	report(95)

	result.SuccessfulRows = len(guests)
	result.FailedRows = result.TotalRows - result.SuccessfulRows
	result.ErrorCount = len(allErrors)
	if len(allErrors) > maxReportedImportErrors {
		result.Errors = allErrors[:maxReportedImportErrors]
	} else if len(allErrors) > 0 {
		result.Errors = allErrors
	}

	// 导入历史写失败只记日志，不影响本次导入结果
	history := &model.ImportHistory{
		FileName:       fileName,
		TotalRows:      result.TotalRows,
		SuccessfulRows: result.SuccessfulRows,
		FailedRows:     result.FailedRows,
		Errors:         result.Errors,
	}
	if actorID != "" {
		history.ImportedBy = strPtr(actorID)
	}
	if err := s.repo.ImportHistory.Create(ctx, history); err != nil {
		s.logger.Warn("写入导入历史失败", zap.String("file", fileName), zap.Error(err))
	}
	report(100)

	s.logger.Info("宾客导入完成",
		zap.String("file", fileName),
		zap.Int("total", result.TotalRows),
		zap.Int("successful", result.SuccessfulRows),
		zap.Int("failed", result.FailedRows),
		zap.Strings("created_rooms", result.CreatedRooms),
	)
	return result, nil
}

// loadRoomIndex 以大写名称为键索引现有接待厅
func (s *importExportService) loadRoomIndex(ctx context.Context) (map[string]string, error) {
	rooms, err := s.repo.Room.List(ctx)
	if err != nil {
		s.logger.Error("查询接待厅列表失败", zap.Error(err))
		return nil, err
	}
	caser := cases.Upper(language.Italian)
	index := make(map[string]string, len(rooms))
	for _, r := range rooms {
		index[caser.String(strings.TrimSpace(r.Name))] = r.ID
	}
	return index, nil
}

// ensureRoom 按名称查找接待厅，不存在时创建；并发创建撞上唯一约束时回查
func (s *importExportService) ensureRoom(ctx context.Context, index map[string]string, name string) (string, bool, error) {
	if id, ok := index[name]; ok {
		return id, false, nil
	}
	room := &model.Room{Name: name}
	if err := s.repo.Room.Create(ctx, room); err != nil {
		if !pkgerrors.IsUniqueViolation(err) {
			s.logger.Error("导入时创建接待厅失败", zap.String("room", name), zap.Error(err))
			return "", false, err
		}
		existing, gerr := s.repo.Room.GetByName(ctx, name)
		if gerr != nil {
			return "", false, gerr
		}
		index[name] = existing.ID
		return existing.ID, false, nil
	}
	index[name] = room.ID
	return room.ID, true, nil
}

func optionalCell(row []string, col importColumn) *string {
	v := col.value(row)
	if v == "" {
		return nil
	}
	return &v
}

func isYes(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "SÌ", "SI", "SÍ", "YES", "Y", "TRUE", "1", "X":
		return true
	}
	return false
}

// ────────────────────── 进度 ──────────────────────

func (s *importExportService) TrackProgress(ctx context.Context, importID string) func(int) {
	if importID == "" {
		return nil
	}
	return func(p int) {
		if err := s.rdb.SetImportProgress(ctx, importID, p); err != nil {
			s.logger.Warn("写入导入进度失败", zap.String("import_id", importID), zap.Error(err))
		}
	}
}

func (s *importExportService) GetProgress(ctx context.Context, importID string) (*dto.ImportProgressResponse, error) {
	percent, found, err := s.rdb.GetImportProgress(ctx, importID)
	if err != nil {
		s.logger.Error("读取导入进度失败", zap.String("import_id", importID), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, ErrImportProgressNotFound
	}
	return &dto.ImportProgressResponse{ImportID: importID, Percent: percent}, nil
}

// ────────────────────── History ──────────────────────

func (s *importExportService) History(ctx context.Context) ([]dto.ImportHistoryResponse, error) {
	items, err := s.repo.ImportHistory.List(ctx, importHistoryLimit)
	if err != nil {
		s.logger.Error("查询导入历史失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ImportHistoryResponse, 0, len(items))
	for i := range items {
		h := &items[i]
		resp := dto.ImportHistoryResponse{
			ID:             h.ID,
			FileName:       h.FileName,
			TotalRows:      h.TotalRows,
			SuccessfulRows: h.SuccessfulRows,
			FailedRows:     h.FailedRows,
			Errors:         []string(h.Errors),
			ImportedBy:     h.ImportedBy,
			CreatedAt:      formatTime(h.CreatedAt),
		}
		if resp.Errors == nil {
			resp.Errors = []string{}
		}
		if h.Importer != nil {
			resp.ImporterName = h.Importer.DisplayName()
			resp.ImporterEmail = h.Importer.Email
		}
		out = append(out, resp)
	}
	return out, nil
}

// ────────────────────── ExportGuests ──────────────────────

func (s *importExportService) ExportGuests(ctx context.Context, roomID string) (*bytes.Buffer, string, error) {
	if roomID != "" {
		if _, err := s.repo.Room.GetByID(ctx, roomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", ErrRoomNotFound
			}
			s.logger.Error("查询接待厅失败", zap.String("room_id", roomID), zap.Error(err))
			return nil, "", err
		}
	}

	rooms, err := s.repo.Room.List(ctx)
	if err != nil {
		s.logger.Error("查询接待厅列表失败", zap.Error(err))
		return nil, "", err
	}
	roomNames := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = r.Name
	}

	guests, err := s.repo.Guest.List(ctx, repository.GuestListFilter{RoomID: roomID})
	if err != nil {
		s.logger.Error("查询宾客列表失败", zap.Error(err))
		return nil, "", err
	}

	sort.SliceStable(guests, func(i, j int) bool {
		ri, rj := roomNames[guests[i].RoomID], roomNames[guests[j].RoomID]
		if ri != rj {
			return ri < rj
		}
		if guests[i].LastName != guests[j].LastName {
			return guests[i].LastName < guests[j].LastName
		}
		return guests[i].FirstName < guests[j].FirstName
	})

	rows := make([][]string, 0, len(guests))
	for _, g := range guests {
		checked, at := "NO", ""
		if g.CheckedIn {
			checked = "SÌ"
			if g.CheckedInAt != nil {
				at = g.CheckedInAt.UTC().Format(time.RFC3339)
			}
		}
		table := ""
		if g.TableNumber != nil {
			table = *g.TableNumber
		}
		rows = append(rows, []string{roomNames[g.RoomID], g.LastName, g.FirstName, table, checked, at})
	}

	buf, err := sheet.WriteTable(exportSheetName, exportHeaders, rows, exportWidths)
	if err != nil {
		s.logger.Error("生成导出文件失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	filename := fmt.Sprintf("report_accessi_%s.xlsx", time.Now().In(s.loc).Format("2006-01-02"))
	return buf, filename, nil
}
