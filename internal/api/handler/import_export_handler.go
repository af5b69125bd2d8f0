package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/response"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportExportHandler 宾客导入导出 HTTP 处理器（仅管理员）
type ImportExportHandler struct {
	ieSvc       service.ImportExportService
	maxFileSize int64
}

// NewImportExportHandler 创建 ImportExportHandler
func NewImportExportHandler(ieSvc service.ImportExportService, maxFileSize int64) *ImportExportHandler {
	return &ImportExportHandler{ieSvc: ieSvc, maxFileSize: maxFileSize}
}

// ImportGuests 上传 Excel 批量导入宾客
// POST /api/v1/import/guests (multipart, 字段 file；可选请求头 X-Import-ID 用于查询进度)
func (h *ImportExportHandler) ImportGuests(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "Nessun file caricato")
		return
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "File troppo grande")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "Impossibile leggere il file caricato")
		return
	}
	defer f.Close()

	var progress func(int)
	if importID := c.GetHeader("X-Import-ID"); importID != "" {
		progress = h.ieSvc.TrackProgress(c.Request.Context(), importID)
	}

	result, err := h.ieSvc.ImportGuests(c.Request.Context(), fh.Filename, f, userID, progress)
	if err != nil {
		h.handleImportExportError(c, err)
		return
	}
	response.OK(c, result)
}

// GetProgress 导入进度
// GET /api/v1/import/progress/:id
func (h *ImportExportHandler) GetProgress(c *gin.Context) {
	result, err := h.ieSvc.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleImportExportError(c, err)
		return
	}
	response.OK(c, result)
}

// History 导入历史
// GET /api/v1/import/history
func (h *ImportExportHandler) History(c *gin.Context) {
	result, err := h.ieSvc.History(c.Request.Context())
	if err != nil {
		h.handleImportExportError(c, err)
		return
	}
	response.OK(c, result)
}

// ExportGuests 导出宾客 Excel
// GET /api/v1/export/guests?room_id=xxx
func (h *ImportExportHandler) ExportGuests(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi")
		return
	}

	buf, filename, err := h.ieSvc.ExportGuests(c.Request.Context(), req.RoomID)
	if err != nil {
		h.handleImportExportError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ImportExportHandler) handleImportExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 16001, "Intestazione non valida: servono le colonne HOSPITALITY, COGNOME, NOME")
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 16002, "Nessuna riga di dati nel file")
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 16003, "Numero di righe oltre il limite consentito")
	case errors.Is(err, sheet.ErrUnsupportedFormat):
		response.BadRequest(c, 16004, "Formato file non supportato: solo .xlsx / .xls")
	case errors.Is(err, sheet.ErrNoWorksheet), errors.Is(err, sheet.ErrEmptyWorksheet):
		response.BadRequest(c, 16005, "Nessun foglio di lavoro leggibile nel file")
	case errors.Is(err, service.ErrImportProgressNotFound):
		response.NotFound(c, 16006, "Avanzamento importazione non trovato o scaduto")
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 16101, "Sala non trovata")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
