package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/service"
)

func newTestEmailHandler(email *mockEmailService) (*EmailHandler, *mockReportService, *mockDispatcher) {
	report := &mockReportService{}
	dispatcher := &mockDispatcher{}
	return NewEmailHandler(email, report, dispatcher, time.UTC), report, dispatcher
}

func TestEmailHandler_Stats_DefaultDays(t *testing.T) {
	mock := &mockEmailService{}
	h, _, _ := newTestEmailHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/email/stats", nil)

	r := gin.New()
	r.GET("/email/stats", h.Stats)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.statsDays != 7 {
		t.Errorf("expected default window of 7 days, got %d", mock.statsDays)
	}
}

func TestEmailHandler_Stats_InvalidDays(t *testing.T) {
	h, _, _ := newTestEmailHandler(&mockEmailService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/email/stats?days=0x", nil)

	r := gin.New()
	r.GET("/email/stats", h.Stats)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestEmailHandler_Preferences_SelfOnly(t *testing.T) {
	mock := &mockEmailService{}
	h, _, _ := newTestEmailHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/email/preferences", nil)

	r := gin.New()
	r.GET("/email/preferences", func(c *gin.Context) {
		setAuthAs(c, "hostess-001", model.RoleHostess)
		h.GetPreferences(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.prefUserID != "hostess-001" {
		t.Errorf("expected preferences of current user, got %q", mock.prefUserID)
	}
}

func TestEmailHandler_UpdatePreferences_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"QuietHours", service.ErrInvalidQuietHours, 17001},
		{"Frequency", service.ErrInvalidFrequency, 17002},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestEmailHandler(&mockEmailService{err: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("PUT", "/email/preferences", jsonBody(map[string]string{"quiet_hours_start": "22:00"}))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.PUT("/email/preferences", withAuth(h.UpdatePreferences))
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestEmailHandler_SendTest_ReportsFailure(t *testing.T) {
	h, _, _ := newTestEmailHandler(&mockEmailService{testOK: false})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/email/test", jsonBody(dto.SendTestEmailRequest{Recipient: "test@example.com"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/email/test", withAuth(h.SendTest))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	data, _ := resp.Data.(map[string]interface{})
	if data["success"] != false {
		t.Errorf("expected success=false, got %v", resp.Data)
	}
}

func TestEmailHandler_CheckInNotification_GuestNotFound(t *testing.T) {
	h, _, _ := newTestEmailHandler(&mockEmailService{err: service.ErrGuestNotFound})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/email/check-in-notification", jsonBody(dto.CheckInNotificationRequest{GuestID: testRoomID}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/email/check-in-notification", withAuth(h.CheckInNotification))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 17003 {
		t.Errorf("expected code 17003, got %d", resp.Code)
	}
}

func TestEmailHandler_DailyReport_Today(t *testing.T) {
	h, report, _ := newTestEmailHandler(&mockEmailService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/email/daily-report", nil)

	r := gin.New()
	r.POST("/email/daily-report", h.DailyReport)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if time.Since(report.day) > time.Minute {
		t.Errorf("expected report for today, got %v", report.day)
	}
}

func TestEmailHandler_ProcessPending(t *testing.T) {
	h, _, dispatcher := newTestEmailHandler(&mockEmailService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/email/process-pending", nil)

	r := gin.New()
	r.POST("/email/process-pending", h.ProcessPending)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || dispatcher.processed != 1 {
		t.Errorf("expected one sweep with 200, got status=%d sweeps=%d", w.Code, dispatcher.processed)
	}
}

func TestEmailHandler_Cleanup(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantDays   int
	}{
		{"DefaultRetention", "", 200, 0},
		{"ExplicitDays", "?days=30", 200, 30},
		{"InvalidDays", "?days=-1", 400, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockEmailService{}
			h, _, _ := newTestEmailHandler(mock)

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/email/cleanup"+tt.query, nil)

			r := gin.New()
			r.POST("/email/cleanup", h.Cleanup)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if mock.cleanDays != tt.wantDays {
				t.Errorf("expected days=%d, got %d", tt.wantDays, mock.cleanDays)
			}
		})
	}
}

func TestEmailHandler_SystemAlert_InternalError(t *testing.T) {
	h, _, _ := newTestEmailHandler(&mockEmailService{err: errors.New("db down")})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/email/system-alert", jsonBody(dto.SystemAlertRequest{AlertType: "database", Message: "lenta"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/email/system-alert", withAuth(h.SystemAlert))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
