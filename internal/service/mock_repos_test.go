package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"maintenance-ops/backend/internal/model"
	"maintenance-ops/backend/internal/repository"
	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// ── 内存存储 ──
// 所有 mock 仓储共享一个 store；mockTx 串行执行事务并在出错时整体回滚，
// 效果上等同于排程行锁 + 数据库事务。

type mockStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	schedules     map[int64]*model.MaintenanceSchedule
	orders        map[int64]*model.ServiceOrder
	events        []*model.AuditEvent
	sequences     map[string]int64
	notifications map[int64]*model.Notification
	nextID        int64

	// 故障注入
	transientNextErrors int             // Sequence.Next 前 N 次返回 40001
	commitErrors        int             // 前 N 次提交返回 40001 并回滚
	orderLookupMisses   int             // GetByScheduleID 前 N 次假装查不到
	notificationErrFor  map[int64]error // 按接收人注入 Notification.Create 错误
	listDueErr          error           // ListDueBetween 返回错误
	nextCalls           int             // Sequence.Next 调用次数
}

func newMockStore() *mockStore {
	return &mockStore{
		schedules:          make(map[int64]*model.MaintenanceSchedule),
		orders:             make(map[int64]*model.ServiceOrder),
		sequences:          make(map[string]int64),
		notifications:      make(map[int64]*model.Notification),
		notificationErrFor: make(map[int64]error),
		nextID:             1000,
	}
}

func (s *mockStore) id() int64 {
	s.nextID++
	return s.nextID
}

type storeSnapshot struct {
	schedules     map[int64]model.MaintenanceSchedule
	orders        map[int64]model.ServiceOrder
	events        int
	sequences     map[string]int64
	notifications map[int64]model.Notification
}

func (s *mockStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := storeSnapshot{
		schedules:     make(map[int64]model.MaintenanceSchedule, len(s.schedules)),
		orders:        make(map[int64]model.ServiceOrder, len(s.orders)),
		events:        len(s.events),
		sequences:     make(map[string]int64, len(s.sequences)),
		notifications: make(map[int64]model.Notification, len(s.notifications)),
	}
	for k, v := range s.schedules {
		snap.schedules[k] = *v
	}
	for k, v := range s.orders {
		snap.orders[k] = *v
	}
	for k, v := range s.sequences {
		snap.sequences[k] = v
	}
	for k, v := range s.notifications {
		snap.notifications[k] = *v
	}
	return snap
}

func (s *mockStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = make(map[int64]*model.MaintenanceSchedule, len(snap.schedules))
	for k, v := range snap.schedules {
		v := v
		s.schedules[k] = &v
	}
	s.orders = make(map[int64]*model.ServiceOrder, len(snap.orders))
	for k, v := range snap.orders {
		v := v
		s.orders[k] = &v
	}
	s.events = s.events[:snap.events]
	s.sequences = snap.sequences
	s.notifications = make(map[int64]*model.Notification, len(snap.notifications))
	for k, v := range snap.notifications {
		v := v
		s.notifications[k] = &v
	}
}

func (s *mockStore) repository() *repository.Repository {
	repo := &repository.Repository{
		Schedule:     &mockScheduleRepo{s: s},
		ServiceOrder: &mockServiceOrderRepo{s: s},
		AuditEvent:   &mockAuditEventRepo{s: s},
		Sequence:     &mockSequenceRepo{s: s},
		Notification: &mockNotificationRepo{s: s},
	}
	repo.Tx = &mockTx{s: s, repo: repo}
	return repo
}

func (s *mockStore) putSchedule(sc *model.MaintenanceSchedule) *model.MaintenanceSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == 0 {
		sc.ID = s.id()
	}
	if sc.Version == 0 {
		sc.Version = 1
	}
	cp := *sc
	s.schedules[sc.ID] = &cp
	return sc
}

func (s *mockStore) schedule(id int64) *model.MaintenanceSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.schedules[id]; ok {
		cp := *sc
		return &cp
	}
	return nil
}

func (s *mockStore) ordersForSchedule(id int64) []model.ServiceOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ServiceOrder
	for _, o := range s.orders {
		if o.ScheduleID != nil && *o.ScheduleID == id {
			out = append(out, *o)
		}
	}
	return out
}

func (s *mockStore) eventsOf(action model.AuditAction) []model.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditEvent
	for _, e := range s.events {
		if e.ActionType == action {
			out = append(out, *e)
		}
	}
	return out
}

func (s *mockStore) allNotifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ── Mock Transactor ──

type mockTx struct {
	s    *mockStore
	repo *repository.Repository
}

func (m *mockTx) Transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(m.repo); err != nil {
		m.s.restore(snap)
		return err
	}
	m.s.mu.Lock()
	failCommit := m.s.commitErrors > 0
	if failCommit {
		m.s.commitErrors--
	}
	m.s.mu.Unlock()
	if failCommit {
		m.s.restore(snap)
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	return nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct{ s *mockStore }

func (m *mockScheduleRepo) Create(_ context.Context, sc *model.MaintenanceSchedule) error {
	m.s.putSchedule(sc)
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id int64) (*model.MaintenanceSchedule, error) {
	if sc := m.s.schedule(id); sc != nil {
		return sc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) GetForUpdate(ctx context.Context, id int64) (*model.MaintenanceSchedule, error) {
	return m.GetByID(ctx, id)
}

func (m *mockScheduleRepo) List(_ context.Context, f model.ScheduleFilter) ([]model.MaintenanceSchedule, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.MaintenanceSchedule
	for _, sc := range m.s.schedules {
		if f.Status != nil && sc.Status != *f.Status {
			continue
		}
		if f.EquipmentID != nil && sc.EquipmentID != *f.EquipmentID {
			continue
		}
		if f.AssignedUserID != nil && (sc.AssignedUserID == nil || *sc.AssignedUserID != *f.AssignedUserID) {
			continue
		}
		if f.OverdueAsOf != nil && !sc.IsOverdue(*f.OverdueAsOf) {
			continue
		}
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockScheduleRepo) ListDueBetween(_ context.Context, from, to time.Time, limit int) ([]model.MaintenanceSchedule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.listDueErr != nil {
		return nil, m.s.listDueErr
	}
	var out []model.MaintenanceSchedule
	for _, sc := range m.s.schedules {
		if sc.IsDueWithin(from, to) {
			out = append(out, *sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockScheduleRepo) ListOverdue(_ context.Context, today time.Time, limit int) ([]model.MaintenanceSchedule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.MaintenanceSchedule
	for _, sc := range m.s.schedules {
		if sc.IsOverdue(today) {
			out = append(out, *sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, sc *model.MaintenanceSchedule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.schedules[sc.ID]
	if !ok || cur.Version != sc.Version {
		return pkgerrors.ErrOptimisticLock
	}
	sc.Version++
	cp := *sc
	m.s.schedules[sc.ID] = &cp
	return nil
}

// ── Mock ServiceOrderRepository ──

type mockServiceOrderRepo struct{ s *mockStore }

func (m *mockServiceOrderRepo) Create(_ context.Context, o *model.ServiceOrder) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return gorm.ErrDuplicatedKey
		}
		if o.ScheduleID != nil && existing.ScheduleID != nil && *existing.ScheduleID == *o.ScheduleID {
			return gorm.ErrDuplicatedKey
		}
	}
	o.ID = m.s.id()
	o.Version = 1
	cp := *o
	m.s.orders[o.ID] = &cp
	return nil
}

func (m *mockServiceOrderRepo) GetByID(_ context.Context, id int64) (*model.ServiceOrder, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if o, ok := m.s.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockServiceOrderRepo) GetByScheduleID(_ context.Context, scheduleID int64) (*model.ServiceOrder, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.orderLookupMisses > 0 {
		m.s.orderLookupMisses--
		return nil, gorm.ErrRecordNotFound
	}
	for _, o := range m.s.orders {
		if o.ScheduleID != nil && *o.ScheduleID == scheduleID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockServiceOrderRepo) List(_ context.Context, f model.ServiceOrderFilter) ([]model.ServiceOrder, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.ServiceOrder
	for _, o := range m.s.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.EquipmentID != nil && o.EquipmentID != *f.EquipmentID {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockServiceOrderRepo) Update(_ context.Context, o *model.ServiceOrder) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.orders[o.ID]
	if !ok || cur.Version != o.Version {
		return pkgerrors.ErrOptimisticLock
	}
	o.Version++
	cp := *o
	m.s.orders[o.ID] = &cp
	return nil
}

// ── Mock AuditEventRepository ──

type mockAuditEventRepo struct{ s *mockStore }

func (m *mockAuditEventRepo) Create(_ context.Context, e *model.AuditEvent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e.ID = m.s.id()
	cp := *e
	m.s.events = append(m.s.events, &cp)
	return nil
}

func (m *mockAuditEventRepo) List(_ context.Context, f repository.AuditEventFilter) ([]model.AuditEvent, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.AuditEvent
	for _, e := range m.s.events {
		if f.EquipmentID != nil && e.EquipmentID != *f.EquipmentID {
			continue
		}
		if f.ScheduleID != nil && (e.ScheduleID == nil || *e.ScheduleID != *f.ScheduleID) {
			continue
		}
		if f.ServiceOrderID != nil && (e.ServiceOrderID == nil || *e.ServiceOrderID != *f.ServiceOrderID) {
			continue
		}
		if f.ActionType != nil && e.ActionType != *f.ActionType {
			continue
		}
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (m *mockAuditEventRepo) DetachSchedule(_ context.Context, scheduleID int64) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, e := range m.s.events {
		if e.ScheduleID != nil && *e.ScheduleID == scheduleID {
			e.ScheduleID = nil
			n++
		}
	}
	return n, nil
}

func (m *mockAuditEventRepo) DeleteByEquipment(_ context.Context, equipmentID int64) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	kept := m.s.events[:0]
	var n int64
	for _, e := range m.s.events {
		if e.EquipmentID == equipmentID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.s.events = kept
	return n, nil
}

// ── Mock SequenceRepository ──

type mockSequenceRepo struct{ s *mockStore }

func (m *mockSequenceRepo) Next(_ context.Context, entityType string, year int) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextCalls++
	if m.s.transientNextErrors > 0 {
		m.s.transientNextErrors--
		return 0, &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	key := entityType + ":" + strconv.Itoa(year)
	m.s.sequences[key]++
	return m.s.sequences[key], nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *mockStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.notificationErrFor[n.UserID]; err != nil {
		return err
	}
	n.ID = m.s.id()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	m.s.notifications[n.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id int64) (*model.Notification, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if n, ok := m.s.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) List(_ context.Context, f model.NotificationFilter) ([]model.Notification, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Notification
	for _, n := range m.s.notifications {
		if n.UserID != f.UserID || (f.UnreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID int64) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var c int64
	for _, n := range m.s.notifications {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *mockNotificationRepo) match(n *model.Notification, userID int64, refType string, refID int64) bool {
	return n.UserID == userID && n.ReferenceType == refType && n.ReferenceID != nil && *n.ReferenceID == refID
}

func (m *mockNotificationRepo) ExistsUnread(_ context.Context, userID int64, refType string, refID int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, n := range m.s.notifications {
		if m.match(n, userID, refType, refID) && !n.IsRead {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) ExistsSince(_ context.Context, userID int64, refType string, refID int64, since time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, n := range m.s.notifications {
		if m.match(n, userID, refType, refID) && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID int64, at time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n, ok := m.s.notifications[id]
	if !ok || n.UserID != userID || n.IsRead {
		return 0, nil
	}
	n.IsRead = true
	n.ReadAt = &at
	return 1, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID int64, at time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var c int64
	for _, n := range m.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			t := at
			n.ReadAt = &t
			c++
		}
	}
	return c, nil
}

// ── Mock Dispatcher ──

type mockDispatcher struct {
	mu        sync.Mutex
	delivered []model.Notification
}

func (d *mockDispatcher) Deliver(n *model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, *n)
}

func (d *mockDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}
