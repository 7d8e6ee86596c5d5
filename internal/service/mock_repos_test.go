package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// ── 内存数据集 ──
//
// 所有 mock 共享同一份数据并由同一把锁保护，
// 排课的唯一约束在 Create / Update 中按数据库语义执行。

type memStore struct {
	mu  sync.Mutex
	seq int

	slots       map[string]*model.TimeSlot
	rooms       map[string]*model.Room
	timetables  map[string]*model.Timetable
	entries     map[string]*model.TimetableEntry
	exceptions  map[string]*model.TimetableException
	constraints map[string]*model.Constraint
	classes     map[string]*model.Class
	subjects    map[string]*model.Subject
	teachers    map[string]*model.Teacher

	// beforeEntryWrite 在排课写入加锁前调用，用于模拟并发写入
	beforeEntryWrite func()
}

func newMemStore() *memStore {
	return &memStore{
		slots:       make(map[string]*model.TimeSlot),
		rooms:       make(map[string]*model.Room),
		timetables:  make(map[string]*model.Timetable),
		entries:     make(map[string]*model.TimetableEntry),
		exceptions:  make(map[string]*model.TimetableException),
		constraints: make(map[string]*model.Constraint),
		classes:     make(map[string]*model.Class),
		subjects:    make(map[string]*model.Subject),
		teachers:    make(map[string]*model.Teacher),
	}
}

// newMockRepository 组装未绑定数据库的 Repository，Transaction 直接执行回调
func newMockRepository() (*repository.Repository, *memStore) {
	st := newMemStore()
	return &repository.Repository{
		TimeSlot:   &mockTimeSlotRepo{st},
		Room:       &mockRoomRepo{st},
		Timetable:  &mockTimetableRepo{st},
		Entry:      &mockEntryRepo{st},
		Exception:  &mockExceptionRepo{st},
		Constraint: &mockConstraintRepo{st},
		Reference:  &mockReferenceRepo{st},
	}, st
}

func (st *memStore) nextID(prefix string) string {
	st.seq++
	return fmt.Sprintf("%s-%d", prefix, st.seq)
}

func (st *memStore) stamp(b *model.BaseModel) {
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// ── Mock TimeSlotRepository ──

type mockTimeSlotRepo struct{ st *memStore }

func (m *mockTimeSlotRepo) Create(_ context.Context, slot *model.TimeSlot) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, s := range m.st.slots {
		if s.InstitutionID == slot.InstitutionID && s.SequenceOrder == slot.SequenceOrder && !s.DeletedAt.Valid {
			return &repository.DuplicateError{Constraint: repository.ConstraintTimeSlotSequence, Err: errors.New("duplicate")}
		}
	}
	if slot.TimeSlotID == "" {
		slot.TimeSlotID = m.st.nextID("slot")
	}
	slot.Version = 1
	m.st.stamp(&slot.BaseModel)
	cp := *slot
	m.st.slots[slot.TimeSlotID] = &cp
	return nil
}

func (m *mockTimeSlotRepo) GetByID(_ context.Context, institutionID, id string) (*model.TimeSlot, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	s, ok := m.st.slots[id]
	if !ok || s.InstitutionID != institutionID || s.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockTimeSlotRepo) Lock(ctx context.Context, institutionID, id string, _ repository.LockMode) (*model.TimeSlot, error) {
	return m.GetByID(ctx, institutionID, id)
}

func (m *mockTimeSlotRepo) List(_ context.Context, institutionID string, includeInactive bool) ([]model.TimeSlot, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.TimeSlot
	for _, s := range m.st.slots {
		if s.InstitutionID != institutionID || s.DeletedAt.Valid || (!includeInactive && !s.IsActive) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SequenceOrder < result[j].SequenceOrder })
	return result, nil
}

func (m *mockTimeSlotRepo) SequenceTaken(_ context.Context, institutionID string, sequence int, excludeID string) (bool, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, s := range m.st.slots {
		if s.InstitutionID == institutionID && s.SequenceOrder == sequence && s.TimeSlotID != excludeID && !s.DeletedAt.Valid {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTimeSlotRepo) Update(_ context.Context, slot *model.TimeSlot) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.slots[slot.TimeSlotID]
	if !ok || cur.Version != slot.Version {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version++
	m.st.stamp(&slot.BaseModel)
	cp := *slot
	m.st.slots[slot.TimeSlotID] = &cp
	return nil
}

func (m *mockTimeSlotRepo) Delete(_ context.Context, id string, _ string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if s, ok := m.st.slots[id]; ok {
		s.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct{ st *memStore }

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if room.RoomID == "" {
		room.RoomID = m.st.nextID("room")
	}
	room.Version = 1
	m.st.stamp(&room.BaseModel)
	cp := *room
	m.st.rooms[room.RoomID] = &cp
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, institutionID, id string) (*model.Room, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	r, ok := m.st.rooms[id]
	if !ok || r.InstitutionID != institutionID || r.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRoomRepo) Lock(ctx context.Context, institutionID, id string, _ repository.LockMode) (*model.Room, error) {
	return m.GetByID(ctx, institutionID, id)
}

func (m *mockRoomRepo) List(_ context.Context, institutionID string, includeInactive bool) ([]model.Room, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Room
	for _, r := range m.st.rooms {
		if r.InstitutionID != institutionID || r.DeletedAt.Valid || (!includeInactive && !r.IsActive) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Building != result[j].Building {
			return result[i].Building < result[j].Building
		}
		if result[i].Floor != result[j].Floor {
			return result[i].Floor < result[j].Floor
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *mockRoomRepo) NameTaken(_ context.Context, institutionID, name, excludeID string) (bool, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, r := range m.st.rooms {
		if r.InstitutionID == institutionID && r.Name == name && r.RoomID != excludeID && !r.DeletedAt.Valid {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.rooms[room.RoomID]
	if !ok || cur.Version != room.Version {
		return pkgerrors.ErrOptimisticLock
	}
	room.Version++
	m.st.stamp(&room.BaseModel)
	cp := *room
	m.st.rooms[room.RoomID] = &cp
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id string, _ string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if r, ok := m.st.rooms[id]; ok {
		r.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

// ── Mock TimetableRepository ──

type mockTimetableRepo struct{ st *memStore }

func sameCombo(tt *model.Timetable, combo repository.TimetableCombo) bool {
	if tt.InstitutionID != combo.InstitutionID || tt.AcademicYearID != combo.AcademicYearID || tt.TimetableType != combo.TimetableType {
		return false
	}
	if (tt.TermID == nil) != (combo.TermID == nil) {
		return false
	}
	return tt.TermID == nil || *tt.TermID == *combo.TermID
}

func (m *mockTimetableRepo) Create(_ context.Context, tt *model.Timetable) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if tt.TimetableID == "" {
		tt.TimetableID = m.st.nextID("tt")
	}
	tt.Version = 1
	m.st.stamp(&tt.BaseModel)
	cp := *tt
	m.st.timetables[tt.TimetableID] = &cp
	return nil
}

func (m *mockTimetableRepo) GetByID(_ context.Context, institutionID, id string) (*model.Timetable, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	tt, ok := m.st.timetables[id]
	if !ok || tt.InstitutionID != institutionID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tt
	return &cp, nil
}

func (m *mockTimetableRepo) List(_ context.Context, institutionID string, filter repository.TimetableFilter, offset, limit int) ([]model.Timetable, int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var all []model.Timetable
	for _, tt := range m.st.timetables {
		if tt.InstitutionID != institutionID {
			continue
		}
		if filter.Status != "" && tt.Status != filter.Status {
			continue
		}
		if filter.TimetableType != "" && tt.TimetableType != filter.TimetableType {
			continue
		}
		if filter.AcademicYearID != "" && tt.AcademicYearID != filter.AcademicYearID {
			continue
		}
		all = append(all, *tt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TimetableID < all[j].TimetableID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Timetable{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockTimetableRepo) FindByStatus(_ context.Context, combo repository.TimetableCombo, status string) ([]model.Timetable, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Timetable
	for _, tt := range m.st.timetables {
		if tt.Status == status && sameCombo(tt, combo) {
			result = append(result, *tt)
		}
	}
	return result, nil
}

func (m *mockTimetableRepo) ListPublished(_ context.Context, institutionID string) ([]model.Timetable, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Timetable
	for _, tt := range m.st.timetables {
		if tt.InstitutionID == institutionID && tt.Status == model.TimetableStatusPublished {
			result = append(result, *tt)
		}
	}
	return result, nil
}

func (m *mockTimetableRepo) Update(_ context.Context, tt *model.Timetable) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.timetables[tt.TimetableID]
	if !ok || cur.Version != tt.Version {
		return pkgerrors.ErrOptimisticLock
	}
	tt.Version++
	m.st.stamp(&tt.BaseModel)
	cp := *tt
	m.st.timetables[tt.TimetableID] = &cp
	return nil
}

// ── Mock EntryRepository ──

type mockEntryRepo struct{ st *memStore }

// hydrate 复制排课并填充关联（调用方持有锁）
func (m *mockEntryRepo) hydrate(e *model.TimetableEntry) model.TimetableEntry {
	cp := *e
	cp.Class = m.st.classes[e.ClassID]
	cp.Subject = m.st.subjects[e.SubjectID]
	cp.Teacher = m.st.teachers[e.TeacherID]
	cp.TimeSlot = m.st.slots[e.TimeSlotID]
	cp.Room = nil
	if e.RoomID != nil {
		cp.Room = m.st.rooms[*e.RoomID]
	}
	return cp
}

// uniqueViolation 按数据库唯一约束检查 (调用方持有锁)
func (m *mockEntryRepo) uniqueViolation(e *model.TimetableEntry) error {
	for _, o := range m.st.entries {
		if o.EntryID == e.EntryID || o.TimetableID != e.TimetableID || o.DayOfWeek != e.DayOfWeek || o.TimeSlotID != e.TimeSlotID {
			continue
		}
		if o.TeacherID == e.TeacherID {
			return &repository.DuplicateError{Constraint: repository.ConstraintEntryTeacherSlot, Err: errors.New("duplicate")}
		}
		if o.SameRoom(e.RoomID) {
			return &repository.DuplicateError{Constraint: repository.ConstraintEntryRoomSlot, Err: errors.New("duplicate")}
		}
	}
	return nil
}

func (m *mockEntryRepo) sortedEntries() []*model.TimetableEntry {
	list := make([]*model.TimetableEntry, 0, len(m.st.entries))
	for _, e := range m.st.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].DayOfWeek != list[j].DayOfWeek {
			return list[i].DayOfWeek < list[j].DayOfWeek
		}
		si, sj := m.st.slots[list[i].TimeSlotID], m.st.slots[list[j].TimeSlotID]
		if si != nil && sj != nil && si.SequenceOrder != sj.SequenceOrder {
			return si.SequenceOrder < sj.SequenceOrder
		}
		return list[i].EntryID < list[j].EntryID
	})
	return list
}

func (m *mockEntryRepo) Create(_ context.Context, entry *model.TimetableEntry) error {
	if hook := m.st.beforeEntryWrite; hook != nil {
		hook()
	}
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if err := m.uniqueViolation(entry); err != nil {
		return err
	}
	if entry.EntryID == "" {
		entry.EntryID = m.st.nextID("entry")
	}
	entry.Version = 1
	m.st.stamp(&entry.BaseModel)
	cp := *entry
	cp.Class, cp.Subject, cp.Teacher, cp.Room, cp.TimeSlot = nil, nil, nil, nil, nil
	m.st.entries[entry.EntryID] = &cp
	return nil
}

func (m *mockEntryRepo) GetByID(_ context.Context, id string) (*model.TimetableEntry, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	e, ok := m.st.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.hydrate(e)
	return &cp, nil
}

func (m *mockEntryRepo) Lock(_ context.Context, id string, _ repository.LockMode) (*model.TimetableEntry, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	e, ok := m.st.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntryRepo) ListByTimetable(_ context.Context, timetableID string, filter repository.EntryFilter) ([]model.TimetableEntry, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.TimetableEntry
	for _, e := range m.sortedEntries() {
		if e.TimetableID != timetableID {
			continue
		}
		if filter.ClassID != "" && e.ClassID != filter.ClassID {
			continue
		}
		if filter.TeacherID != "" && e.TeacherID != filter.TeacherID {
			continue
		}
		if filter.RoomID != "" && (e.RoomID == nil || *e.RoomID != filter.RoomID) {
			continue
		}
		if filter.DayOfWeek != 0 && e.DayOfWeek != filter.DayOfWeek {
			continue
		}
		result = append(result, m.hydrate(e))
	}
	return result, nil
}

func (m *mockEntryRepo) ListByBucket(_ context.Context, bucket repository.Bucket) ([]model.TimetableEntry, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.TimetableEntry
	for _, e := range m.sortedEntries() {
		if e.TimetableID == bucket.TimetableID && e.DayOfWeek == bucket.DayOfWeek && e.TimeSlotID == bucket.TimeSlotID {
			result = append(result, m.hydrate(e))
		}
	}
	return result, nil
}

func (m *mockEntryRepo) FindTeacherOccupant(_ context.Context, bucket repository.Bucket, teacherID, excludeID string) (*model.TimetableEntry, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, e := range m.sortedEntries() {
		if e.TimetableID == bucket.TimetableID && e.DayOfWeek == bucket.DayOfWeek && e.TimeSlotID == bucket.TimeSlotID &&
			e.TeacherID == teacherID && e.EntryID != excludeID {
			cp := m.hydrate(e)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntryRepo) FindRoomOccupant(_ context.Context, bucket repository.Bucket, roomID, excludeID string) (*model.TimetableEntry, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, e := range m.sortedEntries() {
		if e.TimetableID == bucket.TimetableID && e.DayOfWeek == bucket.DayOfWeek && e.TimeSlotID == bucket.TimeSlotID &&
			e.RoomID != nil && *e.RoomID == roomID && e.EntryID != excludeID {
			cp := m.hydrate(e)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntryRepo) CountTeacherDay(_ context.Context, timetableID string, day int, teacherID, excludeID string) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for _, e := range m.st.entries {
		if e.TimetableID == timetableID && e.DayOfWeek == day && e.TeacherID == teacherID && e.EntryID != excludeID {
			n++
		}
	}
	return n, nil
}

func (m *mockEntryRepo) CountClassSubjectDay(_ context.Context, timetableID string, day int, classID, subjectID, excludeID string) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for _, e := range m.st.entries {
		if e.TimetableID == timetableID && e.DayOfWeek == day && e.ClassID == classID && e.SubjectID == subjectID && e.EntryID != excludeID {
			n++
		}
	}
	return n, nil
}

func (m *mockEntryRepo) CountBySlot(_ context.Context, slotID string) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for _, e := range m.st.entries {
		if e.TimeSlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (m *mockEntryRepo) CountBySlotDays(_ context.Context, slotID string, days []int) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for _, e := range m.st.entries {
		if e.TimeSlotID != slotID {
			continue
		}
		for _, d := range days {
			if e.DayOfWeek == d {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockEntryRepo) CountByRoom(_ context.Context, roomID string) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for _, e := range m.st.entries {
		if e.RoomID != nil && *e.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (m *mockEntryRepo) Update(_ context.Context, entry *model.TimetableEntry) error {
	if hook := m.st.beforeEntryWrite; hook != nil {
		hook()
	}
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.entries[entry.EntryID]
	if !ok || cur.Version != entry.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if err := m.uniqueViolation(entry); err != nil {
		return err
	}
	entry.Version++
	m.st.stamp(&entry.BaseModel)
	cp := *entry
	cp.Class, cp.Subject, cp.Teacher, cp.Room, cp.TimeSlot = nil, nil, nil, nil, nil
	m.st.entries[entry.EntryID] = &cp
	return nil
}

func (m *mockEntryRepo) Delete(_ context.Context, id string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	delete(m.st.entries, id)
	return nil
}

// ── Mock ExceptionRepository ──

type mockExceptionRepo struct{ st *memStore }

func (m *mockExceptionRepo) hydrate(e *model.TimetableException) model.TimetableException {
	cp := *e
	cp.Entry = m.st.entries[e.TimetableEntryID]
	cp.SubstituteTeacher, cp.SubstituteRoom = nil, nil
	if e.SubstituteTeacherID != nil {
		cp.SubstituteTeacher = m.st.teachers[*e.SubstituteTeacherID]
	}
	if e.SubstituteRoomID != nil {
		cp.SubstituteRoom = m.st.rooms[*e.SubstituteRoomID]
	}
	return cp
}

func (m *mockExceptionRepo) sorted(match func(*model.TimetableException) bool) []model.TimetableException {
	var result []model.TimetableException
	for _, e := range m.st.exceptions {
		if match(e) {
			result = append(result, m.hydrate(e))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExceptionDate.Equal(result[j].ExceptionDate) {
			return result[i].ExceptionDate.Before(result[j].ExceptionDate)
		}
		return result[i].ExceptionID < result[j].ExceptionID
	})
	return result
}

func (m *mockExceptionRepo) Create(_ context.Context, exc *model.TimetableException) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, e := range m.st.exceptions {
		if e.TimetableEntryID == exc.TimetableEntryID && e.ExceptionDate.Equal(exc.ExceptionDate) {
			return &repository.DuplicateError{Constraint: repository.ConstraintExceptionEntryDate, Err: errors.New("duplicate")}
		}
	}
	if exc.ExceptionID == "" {
		exc.ExceptionID = m.st.nextID("exc")
	}
	m.st.stamp(&exc.BaseModel)
	cp := *exc
	m.st.exceptions[exc.ExceptionID] = &cp
	return nil
}

func (m *mockExceptionRepo) GetByID(_ context.Context, id string) (*model.TimetableException, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	e, ok := m.st.exceptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m.hydrate(e)
	return &cp, nil
}

func (m *mockExceptionRepo) ListByEntry(_ context.Context, entryID string) ([]model.TimetableException, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	return m.sorted(func(e *model.TimetableException) bool { return e.TimetableEntryID == entryID }), nil
}

func (m *mockExceptionRepo) CountByEntry(_ context.Context, entryID string) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for _, e := range m.st.exceptions {
		if e.TimetableEntryID == entryID {
			n++
		}
	}
	return n, nil
}

func (m *mockExceptionRepo) ListByTimetable(_ context.Context, timetableID string, from, to *time.Time) ([]model.TimetableException, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	return m.sorted(func(e *model.TimetableException) bool {
		entry, ok := m.st.entries[e.TimetableEntryID]
		if !ok || entry.TimetableID != timetableID {
			return false
		}
		if from != nil && e.ExceptionDate.Before(*from) {
			return false
		}
		return to == nil || !e.ExceptionDate.After(*to)
	}), nil
}

func (m *mockExceptionRepo) ListByBucketDate(_ context.Context, bucket repository.Bucket, date time.Time) ([]model.TimetableException, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	return m.sorted(func(e *model.TimetableException) bool {
		entry, ok := m.st.entries[e.TimetableEntryID]
		return ok && entry.TimetableID == bucket.TimetableID && entry.DayOfWeek == bucket.DayOfWeek &&
			entry.TimeSlotID == bucket.TimeSlotID && e.ExceptionDate.Equal(date)
	}), nil
}

func (m *mockExceptionRepo) Delete(_ context.Context, id string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	delete(m.st.exceptions, id)
	return nil
}

func (m *mockExceptionRepo) DeleteByEntry(_ context.Context, entryID string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for id, e := range m.st.exceptions {
		if e.TimetableEntryID == entryID {
			delete(m.st.exceptions, id)
		}
	}
	return nil
}

func (m *mockExceptionRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var n int64
	for id, e := range m.st.exceptions {
		if e.ExceptionDate.Before(cutoff) {
			delete(m.st.exceptions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockExceptionRepo) LockDateSlot(_ context.Context, _ repository.Bucket, _ time.Time) error {
	return nil
}

// ── Mock ConstraintRepository ──

type mockConstraintRepo struct{ st *memStore }

func (m *mockConstraintRepo) Create(_ context.Context, c *model.Constraint) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if c.ConstraintID == "" {
		c.ConstraintID = m.st.nextID("constraint")
	}
	c.Version = 1
	m.st.stamp(&c.BaseModel)
	cp := *c
	m.st.constraints[c.ConstraintID] = &cp
	return nil
}

func (m *mockConstraintRepo) GetByID(_ context.Context, institutionID, id string) (*model.Constraint, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	c, ok := m.st.constraints[id]
	if !ok || c.InstitutionID != institutionID || c.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockConstraintRepo) List(_ context.Context, institutionID string, activeOnly bool) ([]model.Constraint, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var result []model.Constraint
	for _, c := range m.st.constraints {
		if c.InstitutionID != institutionID || c.DeletedAt.Valid || (activeOnly && !c.IsActive) {
			continue
		}
		result = append(result, *c)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockConstraintRepo) Update(_ context.Context, c *model.Constraint) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.constraints[c.ConstraintID]
	if !ok || cur.Version != c.Version {
		return pkgerrors.ErrOptimisticLock
	}
	c.Version++
	m.st.stamp(&c.BaseModel)
	cp := *c
	m.st.constraints[c.ConstraintID] = &cp
	return nil
}

func (m *mockConstraintRepo) Delete(_ context.Context, id string, _ string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if c, ok := m.st.constraints[id]; ok {
		c.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

// ── Mock ReferenceRepository ──

type mockReferenceRepo struct{ st *memStore }

func (m *mockReferenceRepo) GetClass(_ context.Context, institutionID, id string) (*model.Class, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if c, ok := m.st.classes[id]; ok && c.InstitutionID == institutionID {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReferenceRepo) GetSubject(_ context.Context, institutionID, id string) (*model.Subject, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if s, ok := m.st.subjects[id]; ok && s.InstitutionID == institutionID {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReferenceRepo) GetTeacher(_ context.Context, institutionID, id string) (*model.Teacher, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if t, ok := m.st.teachers[id]; ok && t.InstitutionID == institutionID {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── 测试数据 ──

const (
	testInstitution  = "inst-1"
	otherInstitution = "inst-2"
	testUser         = "user-1"
)

func editor() Actor {
	return Actor{UserID: testUser, InstitutionID: testInstitution, CanEdit: true}
}

func viewer() Actor {
	return Actor{UserID: "user-2", InstitutionID: testInstitution}
}

// fixture 一个机构的基础数据：班级 7A/7B、科目 Math/English、教师 A/B/C、
// 教室 R101/R102、周一至周五的第 1、2 节及午休，以及一张草稿课表
type fixture struct {
	store *memStore
	repo  *repository.Repository

	timetableID string
	period1     string
	period2     string
	lunch       string

	class7A, class7B   string
	math, english      string
	teacherA, teacherB string
	teacherC           string
	room101, room102   string
}

func newFixture() *fixture {
	repo, st := newMockRepository()
	f := &fixture{store: st, repo: repo}

	addClass := func(id, name string) string {
		st.classes[id] = &model.Class{ClassID: id, InstitutionID: testInstitution, Name: name}
		return id
	}
	addSubject := func(id, name string) string {
		st.subjects[id] = &model.Subject{SubjectID: id, InstitutionID: testInstitution, Name: name}
		return id
	}
	addTeacher := func(id, name string) string {
		st.teachers[id] = &model.Teacher{TeacherID: id, InstitutionID: testInstitution, Name: name}
		return id
	}
	addRoom := func(id, name string) string {
		st.rooms[id] = &model.Room{RoomID: id, InstitutionID: testInstitution, Name: name, Building: "A", RoomType: model.RoomTypeClassroom, IsActive: true,
			VersionedModel: model.VersionedModel{Version: 1}}
		return id
	}
	addSlot := func(id, name, slotType, start, end string, seq int) string {
		st.slots[id] = &model.TimeSlot{TimeSlotID: id, InstitutionID: testInstitution, Name: name, SlotType: slotType,
			StartTime: start, EndTime: end, SequenceOrder: seq, AppliesTo: model.IntArray{1, 2, 3, 4, 5}, IsActive: true,
			VersionedModel: model.VersionedModel{Version: 1}}
		return id
	}

	f.class7A = addClass("class-7a", "7A")
	f.class7B = addClass("class-7b", "7B")
	f.math = addSubject("subject-math", "Math")
	f.english = addSubject("subject-english", "English")
	f.teacherA = addTeacher("teacher-a", "Teacher-A")
	f.teacherB = addTeacher("teacher-b", "Teacher-B")
	f.teacherC = addTeacher("teacher-c", "Teacher-C")
	f.room101 = addRoom("room-101", "R101")
	f.room102 = addRoom("room-102", "R102")
	f.period1 = addSlot("slot-p1", "第一节", model.SlotTypeLesson, "08:00", "08:45", 1)
	f.period2 = addSlot("slot-p2", "第二节", model.SlotTypeLesson, "08:55", "09:40", 2)
	f.lunch = addSlot("slot-lunch", "午休", model.SlotTypeLunch, "12:00", "13:30", 3)

	f.timetableID = "tt-main"
	st.timetables[f.timetableID] = &model.Timetable{
		TimetableID:    f.timetableID,
		InstitutionID:  testInstitution,
		AcademicYearID: "year-2025",
		Name:           "2024-2025 春季课表",
		TimetableType:  model.TimetableTypeMain,
		Status:         model.TimetableStatusDraft,
		RevisionModel:  model.RevisionModel{Version: 1},
	}
	return f
}

// addEntry 直接写入数据集，绕过业务校验
func (f *fixture) addEntry(id, classID, subjectID, teacherID string, roomID *string, slotID string, day int) string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.entries[id] = &model.TimetableEntry{
		EntryID: id, TimetableID: f.timetableID, ClassID: classID, SubjectID: subjectID, TeacherID: teacherID,
		RoomID: roomID, TimeSlotID: slotID, DayOfWeek: day, RevisionModel: model.RevisionModel{Version: 1},
	}
	return id
}
