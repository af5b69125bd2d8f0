package service

import (
	"time"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/dto"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
)

// timeLayout 接口统一输出的时间格式（UTC）
const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toProfileResponse(p *model.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func toRoomResponse(r *model.Room) dto.RoomResponse {
	return dto.RoomResponse{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: formatTime(r.CreatedAt),
		UpdatedAt: formatTime(r.UpdatedAt),
	}
}

func toRoomResponses(rooms []model.Room) []dto.RoomResponse {
	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, toRoomResponse(&rooms[i]))
	}
	return result
}

func toGuestResponse(g *model.Guest) *dto.GuestResponse {
	resp := &dto.GuestResponse{
		ID:          g.ID,
		RoomID:      g.RoomID,
		FirstName:   g.FirstName,
		LastName:    g.LastName,
		TableNumber: g.TableNumber,
		SeatNumber:  g.SeatNumber,
		CheckedIn:   g.CheckedIn,
		CheckedInAt: formatTimePtr(g.CheckedInAt),
		CheckedInBy: g.CheckedInBy,
		CreatedAt:   formatTime(g.CreatedAt),
		UpdatedAt:   formatTime(g.UpdatedAt),
	}
	if g.Room != nil {
		resp.RoomName = g.Room.Name
	}
	if g.CheckedInUser != nil {
		resp.CheckedInByName = g.CheckedInUser.DisplayName()
	}
	return resp
}

func toGuestResponses(guests []model.Guest) []dto.GuestResponse {
	result := make([]dto.GuestResponse, 0, len(guests))
	for i := range guests {
		result = append(result, *toGuestResponse(&guests[i]))
	}
	return result
}

func toAuditLogResponse(l *model.AuditLog) dto.AuditLogResponse {
	return dto.AuditLogResponse{
		ID:        l.ID,
		GuestID:   l.GuestID,
		UserID:    l.UserID,
		Action:    l.Action,
		OldData:   l.OldData,
		NewData:   l.NewData,
		CreatedAt: formatTime(l.CreatedAt),
	}
}

func toAuditLogResponses(logs []model.AuditLog) []dto.AuditLogResponse {
	result := make([]dto.AuditLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, toAuditLogResponse(&logs[i]))
	}
	return result
}

func toNotificationResponse(n *model.EmailNotification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:            n.ID,
		Recipient:     n.Recipient,
		RecipientName: n.RecipientName,
		Type:          n.Type,
		Subject:       n.Subject,
		Content:       n.Content,
		Priority:      n.Priority,
		Status:        n.Status,
		Metadata:      n.Metadata,
		Attempts:      n.Attempts,
		LastError:     n.LastError,
		SentAt:        formatTimePtr(n.SentAt),
		CreatedAt:     formatTime(n.CreatedAt),
		CreatedBy:     n.CreatedBy,
	}
}

func toPreferenceResponse(p *model.EmailPreference) *dto.EmailPreferenceResponse {
	resp := &dto.EmailPreferenceResponse{
		UserID:                       p.UserID,
		ReceiveCheckInNotifications:  p.ReceiveCheckInNotifications,
		ReceiveCheckOutNotifications: p.ReceiveCheckOutNotifications,
		ReceiveDailyReports:          p.ReceiveDailyReports,
		ReceiveSystemAlerts:          p.ReceiveSystemAlerts,
		EmailFrequency:               p.EmailFrequency,
		QuietHoursStart:              p.QuietHoursStart,
		QuietHoursEnd:                p.QuietHoursEnd,
	}
	if !p.UpdatedAt.IsZero() {
		resp.UpdatedAt = formatTime(p.UpdatedAt)
	}
	return resp
}

func strPtr(s string) *string { return &s }
