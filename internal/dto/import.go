package dto

// ── 导入导出 DTO ──

// ImportResult 导入结果
// Errors 仅包含前 10 条，ErrorCount 为总数
type ImportResult struct {
	TotalRows      int      `json:"total_rows"`
	SuccessfulRows int      `json:"successful_rows"`
	FailedRows     int      `json:"failed_rows"`
	Errors         []string `json:"errors"`
	ErrorCount     int      `json:"error_count"`
	CreatedRooms   []string `json:"created_rooms"`
}

// ImportHistoryResponse 导入历史
type ImportHistoryResponse struct {
	ID             string   `json:"id"`
	FileName       string   `json:"file_name"`
	TotalRows      int      `json:"total_rows"`
	SuccessfulRows int      `json:"successful_rows"`
	FailedRows     int      `json:"failed_rows"`
	Errors         []string `json:"errors"`
	ImportedBy     *string  `json:"imported_by"`
	ImporterName   string   `json:"importer_name,omitempty"`
	ImporterEmail  string   `json:"importer_email,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// ImportProgressResponse 导入进度
type ImportProgressResponse struct {
	ImportID string `json:"import_id"`
	Percent  int    `json:"percent"`
}

// ExportRequest 导出筛选
type ExportRequest struct {
	RoomID string `form:"room_id" binding:"omitempty,uuid"`
}
