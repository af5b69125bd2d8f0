package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/bitandsolution/stadium-hospitality-manager/internal/model"
	"github.com/bitandsolution/stadium-hospitality-manager/internal/repository"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
)

var (
	errUniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	errFKViolation     = &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
)

// mockStore 组装全部 mock 仓储，Repository 的 db 为 nil，Transaction 直接在同一实例上执行
type mockStore struct {
	rooms         *mockRoomRepo
	guests        *mockGuestRepo
	profiles      *mockProfileRepo
	userRooms     *mockUserRoomRepo
	audit         *mockAuditLogRepo
	imports       *mockImportHistoryRepo
	notifications *mockEmailNotificationRepo
	preferences   *mockEmailPreferenceRepo
	recipients    *mockRecipientRepo
}

func newMockStore() *mockStore {
	rooms := newMockRoomRepo()
	guests := newMockGuestRepo(rooms)
	rooms.guests = guests
	profiles := newMockProfileRepo()
	return &mockStore{
		rooms:         rooms,
		guests:        guests,
		profiles:      profiles,
		userRooms:     newMockUserRoomRepo(rooms),
		audit:         &mockAuditLogRepo{},
		imports:       &mockImportHistoryRepo{},
		notifications: newMockEmailNotificationRepo(),
		preferences:   &mockEmailPreferenceRepo{prefs: map[string]*model.EmailPreference{}},
		recipients:    &mockRecipientRepo{byEvent: map[string][]model.Recipient{}},
	}
}

func (m *mockStore) repo() *repository.Repository {
	return &repository.Repository{
		Room:              m.rooms,
		Guest:             m.guests,
		Profile:           m.profiles,
		UserRoom:          m.userRooms,
		AuditLog:          m.audit,
		ImportHistory:     m.imports,
		EmailNotification: m.notifications,
		EmailPreference:   m.preferences,
		Recipient:         m.recipients,
	}
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	mu     sync.Mutex
	rooms  map[string]*model.Room
	seq    int
	guests *mockGuestRepo
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[string]*model.Room)}
}

// add 直接写入一个接待厅，测试准备数据用
func (m *mockRoomRepo) add(id, name string) *model.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &model.Room{ID: id, Name: name}
	m.rooms[id] = r
	return r
}

func (m *mockRoomRepo) nameTaken(name, exceptID string) bool {
	for id, r := range m.rooms {
		if id != exceptID && strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(room.Name, "") {
		return errUniqueViolation
	}
	if room.ID == "" {
		m.seq++
		room.ID = fmt.Sprintf("room-%d", m.seq)
	}
	cp := *room
	m.rooms[room.ID] = &cp
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) GetByName(_ context.Context, name string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if strings.EqualFold(r.Name, name) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) List(_ context.Context) ([]model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockRoomRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Room, error) {
	all, _ := m.List(ctx)
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	result := []model.Room{}
	for _, r := range all {
		if want[r.ID] {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if m.nameTaken(room.Name, room.ID) {
		return errUniqueViolation
	}
	cp := *room
	m.rooms[room.ID] = &cp
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rooms, id)
	return nil
}

func (m *mockRoomRepo) Stats(ctx context.Context, id string) (*model.RoomStats, error) {
	total, _ := m.guests.Count(ctx, repository.GuestListFilter{RoomID: id})
	yes := true
	checked, _ := m.guests.Count(ctx, repository.GuestListFilter{RoomID: id, CheckedIn: &yes})
	return &model.RoomStats{TotalGuests: total, CheckedIn: checked, Pending: total - checked}, nil
}

// ── Mock GuestRepository ──

type mockGuestRepo struct {
	mu      sync.Mutex
	guests  map[string]*model.Guest
	seq     int
	rooms   *mockRoomRepo
	bulkErr error
}

func newMockGuestRepo(rooms *mockRoomRepo) *mockGuestRepo {
	return &mockGuestRepo{guests: make(map[string]*model.Guest), rooms: rooms}
}

// add 直接写入一位宾客，测试准备数据用
func (m *mockGuestRepo) add(id, roomID, first, last string) *model.Guest {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &model.Guest{ID: id, RoomID: roomID, FirstName: first, LastName: last}
	m.guests[id] = g
	return g
}

func (m *mockGuestRepo) withRoom(g model.Guest) model.Guest {
	if r, err := m.rooms.GetByID(context.Background(), g.RoomID); err == nil {
		g.Room = r
	}
	return g
}

func (m *mockGuestRepo) Create(_ context.Context, guest *model.Guest) error {
	if _, err := m.rooms.GetByID(context.Background(), guest.RoomID); err != nil {
		return errFKViolation
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if guest.ID == "" {
		m.seq++
		guest.ID = fmt.Sprintf("guest-%d", m.seq)
	}
	cp := *guest
	m.guests[guest.ID] = &cp
	return nil
}

func (m *mockGuestRepo) BulkCreate(ctx context.Context, guests []model.Guest) error {
	if m.bulkErr != nil {
		return m.bulkErr
	}
	for i := range guests {
		if err := m.Create(ctx, &guests[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockGuestRepo) GetByID(_ context.Context, id string) (*model.Guest, error) {
	m.mu.Lock()
	g, ok := m.guests[id]
	var cp model.Guest
	if ok {
		cp = *g
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp = m.withRoom(cp)
	return &cp, nil
}

func (m *mockGuestRepo) match(g *model.Guest, f repository.GuestListFilter) bool {
	if f.RoomIDs != nil {
		found := false
		for _, id := range f.RoomIDs {
			if id == g.RoomID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.RoomID != "" && g.RoomID != f.RoomID {
		return false
	}
	if f.CheckedIn != nil && g.CheckedIn != *f.CheckedIn {
		return false
	}
	if f.CheckedInBy != "" && (g.CheckedInBy == nil || *g.CheckedInBy != f.CheckedInBy) {
		return false
	}
	if f.CheckedInFrom != nil && (g.CheckedInAt == nil || g.CheckedInAt.Before(*f.CheckedInFrom)) {
		return false
	}
	if f.CheckedInTo != nil && (g.CheckedInAt == nil || !g.CheckedInAt.Before(*f.CheckedInTo)) {
		return false
	}
	return true
}

func (m *mockGuestRepo) List(_ context.Context, filter repository.GuestListFilter) ([]model.Guest, error) {
	m.mu.Lock()
	var result []model.Guest
	for _, g := range m.guests {
		if m.match(g, filter) {
			result = append(result, *g)
		}
	}
	m.mu.Unlock()
	for i := range result {
		result[i] = m.withRoom(result[i])
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (m *mockGuestRepo) Search(ctx context.Context, term string, roomID, _ *string) ([]model.Guest, error) {
	filter := repository.GuestListFilter{}
	if roomID != nil {
		filter.RoomID = *roomID
	}
	all, _ := m.List(ctx, filter)
	term = strings.ToLower(term)
	result := []model.Guest{}
	for _, g := range all {
		if strings.Contains(strings.ToLower(g.FullName()), term) {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockGuestRepo) Update(_ context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "room_id":
			g.RoomID = v.(string)
		case "first_name":
			g.FirstName = v.(string)
		case "last_name":
			g.LastName = v.(string)
		case "table_number":
			g.TableNumber, _ = v.(*string)
		case "seat_number":
			g.SeatNumber, _ = v.(*string)
		case "updated_at":
			g.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (m *mockGuestRepo) CheckIn(ctx context.Context, id, actorID string, at time.Time) (*model.Guest, error) {
	m.mu.Lock()
	g, ok := m.guests[id]
	if ok {
		g.CheckedIn = true
		g.CheckedInAt = &at
		g.CheckedInBy = &actorID
		g.UpdatedAt = at
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockGuestRepo) CheckOut(ctx context.Context, id string) (*model.Guest, error) {
	m.mu.Lock()
	g, ok := m.guests[id]
	if ok {
		g.CheckedIn = false
		g.CheckedInAt = nil
		g.CheckedInBy = nil
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockGuestRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.guests[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.guests, id)
	return nil
}

func (m *mockGuestRepo) DeleteByRoom(_ context.Context, roomID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, g := range m.guests {
		if g.RoomID == roomID {
			delete(m.guests, id)
			n++
		}
	}
	return n, nil
}

func (m *mockGuestRepo) Count(_ context.Context, filter repository.GuestListFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, g := range m.guests {
		if m.match(g, filter) {
			n++
		}
	}
	return n, nil
}

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	seq      int
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

// add 直接写入一个账号，测试准备数据用
func (m *mockProfileRepo) add(id, email, fullName, role string) *model.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &model.Profile{ID: id, Email: email, FullName: fullName, Role: role}
	m.profiles[id] = p
	return p
}

func (m *mockProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, profile.Email) {
			return errUniqueViolation
		}
	}
	if profile.ID == "" {
		m.seq++
		profile.ID = fmt.Sprintf("profile-%d", m.seq)
	}
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) List(_ context.Context, role string) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.Profile{}
	for _, p := range m.profiles {
		if role == "" || p.Role == role {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

func (m *mockProfileRepo) Update(_ context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "full_name":
			p.FullName = v.(string)
		case "role":
			p.Role = v.(string)
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (m *mockProfileRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileRepo) Count(_ context.Context, role string) (int64, error) {
	list, _ := m.List(context.Background(), role)
	return int64(len(list)), nil
}

// ── Mock UserRoomRepository ──

type mockUserRoomRepo struct {
	mu       sync.Mutex
	assigned map[string]map[string]bool
	rooms    *mockRoomRepo
}

func newMockUserRoomRepo(rooms *mockRoomRepo) *mockUserRoomRepo {
	return &mockUserRoomRepo{assigned: make(map[string]map[string]bool), rooms: rooms}
}

func (m *mockUserRoomRepo) Assign(_ context.Context, userID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assigned[userID] == nil {
		m.assigned[userID] = make(map[string]bool)
	}
	m.assigned[userID][roomID] = true
	return nil
}

func (m *mockUserRoomRepo) Remove(_ context.Context, userID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assigned[userID], roomID)
	return nil
}

func (m *mockUserRoomRepo) Exists(_ context.Context, userID, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assigned[userID][roomID], nil
}

func (m *mockUserRoomRepo) ListRoomIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id := range m.assigned[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockUserRoomRepo) ListRooms(ctx context.Context, userID string) ([]model.Room, error) {
	ids, _ := m.ListRoomIDs(ctx, userID)
	return m.rooms.ListByIDs(ctx, ids)
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct {
	mu       sync.Mutex
	logs     []model.AuditLog
	activity []model.ActivityRow
	seq      int
}

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if log.ID == "" {
		log.ID = fmt.Sprintf("audit-%d", m.seq)
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockAuditLogRepo) List(_ context.Context, f repository.AuditLogFilter) ([]model.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.AuditLog{}
	// 最新在前
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if f.GuestID != "" && (l.GuestID == nil || *l.GuestID != f.GuestID) {
			continue
		}
		if f.UserID != "" && (l.UserID == nil || *l.UserID != f.UserID) {
			continue
		}
		if len(f.Actions) > 0 {
			ok := false
			for _, a := range f.Actions {
				if a == l.Action {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if f.Since != nil && l.CreatedAt.Before(*f.Since) {
			continue
		}
		if f.Until != nil && !l.CreatedAt.Before(*f.Until) {
			continue
		}
		result = append(result, l)
		if f.Limit > 0 && len(result) >= f.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockAuditLogRepo) ListActivity(_ context.Context, since, until time.Time) ([]model.ActivityRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.ActivityRow{}
	for _, a := range m.activity {
		if !a.CreatedAt.Before(since) && a.CreatedAt.Before(until) {
			result = append(result, a)
		}
	}
	return result, nil
}

// actions 返回全部审计动作（按写入顺序）
func (m *mockAuditLogRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

// ── Mock ImportHistoryRepository ──

type mockImportHistoryRepo struct {
	items     []model.ImportHistory
	createErr error
}

func (m *mockImportHistoryRepo) Create(_ context.Context, h *model.ImportHistory) error {
	if m.createErr != nil {
		return m.createErr
	}
	if h.ID == "" {
		h.ID = fmt.Sprintf("import-%d", len(m.items)+1)
	}
	m.items = append(m.items, *h)
	return nil
}

func (m *mockImportHistoryRepo) List(_ context.Context, limit int) ([]model.ImportHistory, error) {
	result := []model.ImportHistory{}
	for i := len(m.items) - 1; i >= 0; i-- {
		result = append(result, m.items[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// ── Mock EmailNotificationRepository ──

type mockEmailNotificationRepo struct {
	mu          sync.Mutex
	items       map[string]*model.EmailNotification
	order       []string
	seq         int
	cleanupDays int
	cleanupRows int64
}

func newMockEmailNotificationRepo() *mockEmailNotificationRepo {
	return &mockEmailNotificationRepo{items: make(map[string]*model.EmailNotification)}
}

func (m *mockEmailNotificationRepo) insert(n *model.EmailNotification) {
	m.seq++
	if n.ID == "" {
		n.ID = fmt.Sprintf("notif-%d", m.seq)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = model.NotificationStatusPending
	}
	cp := *n
	m.items[n.ID] = &cp
	m.order = append(m.order, n.ID)
}

func (m *mockEmailNotificationRepo) Create(_ context.Context, n *model.EmailNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(n)
	return nil
}

// CreateBatch 与 gorm 一致，把生成的 ID 回写到切片元素
func (m *mockEmailNotificationRepo) CreateBatch(_ context.Context, items []model.EmailNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		m.insert(&items[i])
	}
	return nil
}

func (m *mockEmailNotificationRepo) GetByID(_ context.Context, id string) (*model.EmailNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmailNotificationRepo) List(_ context.Context, f repository.NotificationFilter) ([]model.EmailNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.EmailNotification{}
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.items[m.order[i]]
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		result = append(result, *n)
		if f.Limit > 0 && len(result) >= f.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockEmailNotificationRepo) ListSince(_ context.Context, since time.Time) ([]model.EmailNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.EmailNotification{}
	for _, id := range m.order {
		if n := m.items[id]; !n.CreatedAt.Before(since) {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (m *mockEmailNotificationRepo) ListDue(_ context.Context, createdBefore time.Time, limit int) ([]model.EmailNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	result := []model.EmailNotification{}
	for _, id := range m.order {
		n := m.items[id]
		if n.Status == model.NotificationStatusPending && n.CreatedAt.Before(createdBefore) && !n.NextAttemptAt.After(now) {
			result = append(result, *n)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockEmailNotificationRepo) Claim(_ context.Context, id string, lease time.Duration) (*model.EmailNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	n, ok := m.items[id]
	if !ok || n.Status != model.NotificationStatusPending || n.NextAttemptAt.After(now) {
		return nil, pkgerrors.ErrInvalidTransition
	}
	n.Attempts++
	n.NextAttemptAt = now.Add(lease)
	cp := *n
	return &cp, nil
}

func (m *mockEmailNotificationRepo) transition(id string, apply func(n *model.EmailNotification)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok || n.Status != model.NotificationStatusPending {
		return pkgerrors.ErrInvalidTransition
	}
	apply(n)
	return nil
}

func (m *mockEmailNotificationRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	return m.transition(id, func(n *model.EmailNotification) {
		n.Status = model.NotificationStatusSent
		n.SentAt = &at
		n.LastError = nil
	})
}

func (m *mockEmailNotificationRepo) MarkFailed(_ context.Context, id string, reason string) error {
	return m.transition(id, func(n *model.EmailNotification) {
		n.Status = model.NotificationStatusFailed
		n.LastError = &reason
	})
}

func (m *mockEmailNotificationRepo) MarkRetry(_ context.Context, id string, reason string, next time.Time) error {
	return m.transition(id, func(n *model.EmailNotification) {
		n.LastError = &reason
		n.NextAttemptAt = next
	})
}

func (m *mockEmailNotificationRepo) MarkDead(_ context.Context, id string, reason string) error {
	return m.transition(id, func(n *model.EmailNotification) {
		n.Status = model.NotificationStatusDead
		n.LastError = &reason
	})
}

func (m *mockEmailNotificationRepo) Cleanup(_ context.Context, daysToKeep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupDays = daysToKeep
	return m.cleanupRows, nil
}

// all 按写入顺序返回全部通知快照
func (m *mockEmailNotificationRepo) all() []model.EmailNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.EmailNotification, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.items[id])
	}
	return out
}

// makeDue 把行的 next_attempt_at 与 created_at 拨回过去，模拟已到期
func (m *mockEmailNotificationRepo) makeDue(id string, age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[id]; ok {
		past := time.Now().UTC().Add(-age)
		n.CreatedAt = past
		n.NextAttemptAt = past
	}
}

// ── Mock EmailPreferenceRepository ──

type mockEmailPreferenceRepo struct {
	prefs map[string]*model.EmailPreference
}

func (m *mockEmailPreferenceRepo) GetByUserID(_ context.Context, userID string) (*model.EmailPreference, error) {
	if p, ok := m.prefs[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmailPreferenceRepo) Upsert(_ context.Context, pref *model.EmailPreference) error {
	if pref.ID == "" {
		pref.ID = "pref-" + pref.UserID
	}
	cp := *pref
	m.prefs[pref.UserID] = &cp
	return nil
}

// ── Mock RecipientRepository ──

type mockRecipientRepo struct {
	byEvent map[string][]model.Recipient
	admins  []string
	err     error
}

func (m *mockRecipientRepo) Resolve(_ context.Context, eventType string) ([]model.Recipient, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byEvent[eventType], nil
}

func (m *mockRecipientRepo) AdminEmails(_ context.Context) ([]string, error) {
	return m.admins, nil
}
