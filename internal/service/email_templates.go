package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/pkg/mailer"
)

// EmailTemplate 邮件模板，{key} 为占位符
type EmailTemplate struct {
	Subject string
	HTML    string
}

// ── 邮件模板（意大利语，面向场馆管理员） ──

var (
	TemplateGuestCheckIn = EmailTemplate{
		Subject: "🎯 Nuovo Check-in - {guestName}",
		HTML: `
      <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
        <h2 style="color: #2563eb;">✅ Check-in Effettuato</h2>
        <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
          <p><strong>Ospite:</strong> {guestName}</p>
          <p><strong>Sala:</strong> {roomName}</p>
          <p><strong>Tavolo:</strong> {tableNumber}</p>
          <p><strong>Hostess:</strong> {hostessName}</p>
          <p><strong>Orario:</strong> {checkInTime}</p>
        </div>
        <p style="color: #64748b; font-size: 14px;">
          Questo messaggio è stato generato automaticamente dal sistema Stadium Hospitality Manager.
        </p>
      </div>
    `,
	}

	TemplateGuestCheckOut = EmailTemplate{
		Subject: "🚪 Check-out - {guestName}",
		HTML: `
      <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
        <h2 style="color: #dc2626;">🚪 Check-out Effettuato</h2>
        <div style="background: #fef2f2; padding: 20px; border-radius: 8px; margin: 20px 0;">
          <p><strong>Ospite:</strong> {guestName}</p>
          <p><strong>Sala:</strong> {roomName}</p>
          <p><strong>Hostess:</strong> {hostessName}</p>
          <p><strong>Orario Check-out:</strong> {checkOutTime}</p>
          <p><strong>Durata Permanenza:</strong> {duration}</p>
        </div>
        <p style="color: #64748b; font-size: 14px;">
          Questo messaggio è stato generato automaticamente dal sistema Stadium Hospitality Manager.
        </p>
      </div>
    `,
	}

	TemplateDailyReport = EmailTemplate{
		Subject: "📊 Report Giornaliero Accessi - {date}",
		HTML: `
      <div style="font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto;">
        <h2 style="color: #059669;">📊 Report Accessi Giornaliero</h2>
        <p><strong>Data:</strong> {date}</p>

        <div style="display: grid; grid-template-columns: repeat(2, 1fr); gap: 20px; margin: 20px 0;">
          <div style="background: #ecfdf5; padding: 15px; border-radius: 8px;">
            <h3 style="margin: 0; color: #065f46;">Totale Check-in</h3>
            <p style="font-size: 24px; font-weight: bold; margin: 5px 0; color: #059669;">{totalCheckIns}</p>
          </div>
          <div style="background: #fef3f2; padding: 15px; border-radius: 8px;">
            <h3 style="margin: 0; color: #991b1b;">Totale Check-out</h3>
            <p style="font-size: 24px; font-weight: bold; margin: 5px 0; color: #dc2626;">{totalCheckOuts}</p>
          </div>
        </div>

        <h3>Dettaglio per Sala</h3>
        <div style="background: #f8fafc; padding: 20px; border-radius: 8px;">
          {roomsStats}
        </div>

        <h3>Top Hostess</h3>
        <div style="background: #f8fafc; padding: 20px; border-radius: 8px;">
          {hostessStats}
        </div>

        <p style="color: #64748b; font-size: 14px; margin-top: 30px;">
          Report generato automaticamente alle {reportTime}
        </p>
      </div>
    `,
	}

	TemplateSystemAlert = EmailTemplate{
		Subject: "🚨 Alert Sistema - {alertType}",
		HTML: `
      <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
        <h2 style="color: #dc2626;">🚨 Alert Sistema</h2>
        <div style="background: #fef2f2; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #dc2626;">
          <p><strong>Tipo Alert:</strong> {alertType}</p>
          <p><strong>Messaggio:</strong> {message}</p>
          <p><strong>Orario:</strong> {timestamp}</p>
          {details}
        </div>
        <p style="color: #64748b; font-size: 14px;">
          Alert generato automaticamente dal sistema di monitoraggio.
        </p>
      </div>
    `,
	}

	TemplateTest = EmailTemplate{
		Subject: "🧪 Test Email - Stadium Hospitality Manager",
		HTML: `
          <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
            <h2 style="color: #2563eb;">🧪 Email Test</h2>
            <p>Questo è un messaggio di test per verificare la configurazione delle email.</p>
            <p><strong>Orario invio:</strong> {sentAt}</p>
            <p style="color: #64748b; font-size: 14px;">
              Se ricevi questo messaggio, la configurazione email è corretta!
            </p>
          </div>
        `,
	}
)

// ── 显示文案 ──

const (
	fallbackRoomName    = "Sala Sconosciuta"
	fallbackHostessName = "Hostess"
	fallbackReportName  = "Sconosciuta"
	emptyReportSection  = "<p>Nessun dato disponibile</p>"
	testRecipientName   = "Test User"
	topHostessCount     = 5
)

// 时间显示格式（it-IT）
const (
	clockLayout   = "15:04"
	dateLayoutIT  = "2/1/2006"
	stampLayoutIT = "2/1/2006, 15:04:05"
)

// Render 以 data 替换模板主题与正文，正文中的字符串值按 HTML 转义
func (t EmailTemplate) Render(data map[string]interface{}) (subject, body string) {
	return mailer.Render(t.Subject, data), mailer.RenderHTML(t.HTML, data)
}

// CheckInEmailData 签到通知模板数据
type CheckInEmailData struct {
	GuestName   string
	RoomName    string
	TableNumber *string
	HostessName string
	CheckInTime time.Time
}

func (d CheckInEmailData) templateData(loc *time.Location) map[string]interface{} {
	table := "-"
	if d.TableNumber != nil && *d.TableNumber != "" {
		table = *d.TableNumber
	}
	return map[string]interface{}{
		"guestName":   d.GuestName,
		"roomName":    orDefault(d.RoomName, fallbackRoomName),
		"tableNumber": table,
		"hostessName": orDefault(d.HostessName, fallbackHostessName),
		"checkInTime": d.CheckInTime.In(loc).Format(clockLayout),
	}
}

// CheckOutEmailData 签退通知模板数据
type CheckOutEmailData struct {
	GuestName    string
	RoomName     string
	HostessName  string
	CheckOutTime time.Time
	Duration     time.Duration
}

func (d CheckOutEmailData) templateData(loc *time.Location) map[string]interface{} {
	return map[string]interface{}{
		"guestName":    d.GuestName,
		"roomName":     orDefault(d.RoomName, fallbackRoomName),
		"hostessName":  orDefault(d.HostessName, fallbackHostessName),
		"checkOutTime": d.CheckOutTime.In(loc).Format(clockLayout),
		"duration":     formatDuration(d.Duration),
	}
}

// DailyReportData 日报模板数据
type DailyReportData struct {
	Date           time.Time
	TotalCheckIns  int
	TotalCheckOuts int
	RoomsStats     string // HTML 片段
	HostessStats   string // HTML 片段
	GeneratedAt    time.Time
}

func (d DailyReportData) templateData(loc *time.Location) map[string]interface{} {
	return map[string]interface{}{
		"date":           d.Date.In(loc).Format(dateLayoutIT),
		"totalCheckIns":  d.TotalCheckIns,
		"totalCheckOuts": d.TotalCheckOuts,
		"roomsStats":     mailer.Trusted(orDefault(d.RoomsStats, emptyReportSection)),
		"hostessStats":   mailer.Trusted(orDefault(d.HostessStats, emptyReportSection)),
		"reportTime":     d.GeneratedAt.In(loc).Format(clockLayout),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// formatDuration 四舍五入到分钟："45m"、"2h 5m"
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// ── 日报统计 ──

type roomTally struct {
	name      string
	checkIns  int
	checkOuts int
}

// buildDailyReport 将审计联表行汇总为日报数据（按接待厅、按接待员前 5 名）
func buildDailyReport(rows []model.ActivityRow, day, now time.Time) DailyReportData {
	data := DailyReportData{Date: day, GeneratedAt: now}

	rooms := map[string]*roomTally{}
	var roomOrder []string
	hostess := map[string]int{}

	for _, row := range rows {
		room := fallbackReportName
		if row.RoomName != nil && *row.RoomName != "" {
			room = *row.RoomName
		}
		t, ok := rooms[room]
		if !ok {
			t = &roomTally{name: room}
			rooms[room] = t
			roomOrder = append(roomOrder, room)
		}

		switch row.Action {
		case model.AuditActionCheckIn:
			data.TotalCheckIns++
			t.checkIns++
		case model.AuditActionCheckOut:
			data.TotalCheckOuts++
			t.checkOuts++
		default:
			continue
		}

		name := fallbackReportName
		if row.UserFullName != nil && *row.UserFullName != "" {
			name = *row.UserFullName
		}
		hostess[name]++
	}

	var rb strings.Builder
	for _, name := range roomOrder {
		t := rooms[name]
		if t.checkIns == 0 && t.checkOuts == 0 {
			continue
		}
		fmt.Fprintf(&rb, "<p><strong>%s:</strong> %d check-in, %d check-out</p>", html.EscapeString(t.name), t.checkIns, t.checkOuts)
	}
	data.RoomsStats = rb.String()

	type hostessCount struct {
		name  string
		count int
	}
	ranked := make([]hostessCount, 0, len(hostess))
	for name, n := range hostess {
		ranked = append(ranked, hostessCount{name, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > topHostessCount {
		ranked = ranked[:topHostessCount]
	}

	var hb strings.Builder
	for _, h := range ranked {
		fmt.Fprintf(&hb, "<p><strong>%s:</strong> %d operazioni</p>", html.EscapeString(h.name), h.count)
	}
	data.HostessStats = hb.String()

	return data
}
