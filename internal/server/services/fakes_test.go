package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/observations"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/projects"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/stableids"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// -------- in-memory store --------

// memStore keeps rows in memory and answers the feed windows with the same
// predicates the SQL repositories use.
type memStore struct {
	mu           sync.Mutex
	projects     []*models.Project
	drawings     []*models.Drawing
	observations []*models.Observation
	nextID       int64

	// failCreate makes every observation insert fail with this error.
	failCreate error
	// failAssign fails the next stable-id assignment, then clears itself.
	failAssign error
	// onLock runs whenever an observation row is locked for update.
	onLock func()
	// afterCreatedQuery runs once, right after the observations created
	// window is read, against the live rows.
	afterCreatedQuery func()
}

func newMemStore() *memStore { return &memStore{nextID: 1000} }

type window int

const (
	wLive window = iota
	wCreated
	wUpdated
)

func match(m models.SyncMeta, w window, since time.Time) bool {
	if m.Deleted() {
		return false
	}
	switch w {
	case wCreated:
		return m.CreatedAt.After(since)
	case wUpdated:
		return m.UpdatedAt.After(since) && !m.CreatedAt.After(since)
	default:
		return true
	}
}

func tombstoned(m models.SyncMeta, since time.Time) bool {
	return m.Deleted() && m.DeletedAt.Time.After(since) && m.StableID != ""
}

func (s *memStore) addProject(id int64, stable string, created time.Time) *models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Project{SyncMeta: models.SyncMeta{ID: id, StableID: stable, CreatedAt: created, UpdatedAt: created}, Name: "Project"}
	s.projects = append(s.projects, p)
	return p
}

func (s *memStore) addDrawing(id int64, stable string, projectID int64, created time.Time) *models.Drawing {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &models.Drawing{
		SyncMeta:  models.SyncMeta{ID: id, StableID: stable, CreatedAt: created, UpdatedAt: created},
		ProjectID: projectID,
		Status:    models.DrawingStatusActive,
	}
	s.drawings = append(s.drawings, d)
	return d
}

// clone copies every row, the way a transaction snapshot freezes them.
func (s *memStore) clone() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &memStore{nextID: s.nextID}
	for _, p := range s.projects {
		cp := *p
		c.projects = append(c.projects, &cp)
	}
	for _, d := range s.drawings {
		cd := *d
		c.drawings = append(c.drawings, &cd)
	}
	for _, o := range s.observations {
		co := *o
		c.observations = append(c.observations, &co)
	}
	return c
}

func (s *memStore) observation(stableID string) *models.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observations {
		if o.StableID == stableID {
			c := *o
			return &c
		}
	}
	return nil
}

func (s *memStore) projectStableID(id int64) string {
	for _, p := range s.projects {
		if p.ID == id {
			return p.StableID
		}
	}
	return ""
}

func (s *memStore) drawingStableID(id int64) string {
	for _, d := range s.drawings {
		if d.ID == id {
			return d.StableID
		}
	}
	return ""
}

// -------- repositories --------

type memProjects struct {
	projects.Repository
	s *memStore
	// view answers the sync windows; it is a snapshot inside a transaction.
	view *memStore
}

func (r memProjects) sel(w window, since time.Time) ([]*models.Project, error) {
	v := r.view
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*models.Project
	for _, p := range v.projects {
		if match(p.SyncMeta, w, since) {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memProjects) SelectLive(context.Context, models.Scope) ([]*models.Project, error) {
	return r.sel(wLive, time.Time{})
}
func (r memProjects) SelectCreatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Project, error) {
	return r.sel(wCreated, since)
}
func (r memProjects) SelectUpdatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Project, error) {
	return r.sel(wUpdated, since)
}
func (r memProjects) SelectDeletedSince(_ context.Context, _ models.Scope, since time.Time) ([]string, error) {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	out := []string{}
	for _, p := range r.view.projects {
		if tombstoned(p.SyncMeta, since) {
			out = append(out, p.StableID)
		}
	}
	return out, nil
}

type memDrawings struct {
	drawings.Repository
	s *memStore
	// view answers the sync windows; it is a snapshot inside a transaction.
	view *memStore
}

func (r memDrawings) sel(w window, since time.Time) ([]*models.Drawing, error) {
	v := r.view
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*models.Drawing
	for _, d := range v.drawings {
		if match(d.SyncMeta, w, since) {
			c := *d
			c.ProjectStableID = v.projectStableID(d.ProjectID)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memDrawings) SelectLive(context.Context, models.Scope) ([]*models.Drawing, error) {
	return r.sel(wLive, time.Time{})
}
func (r memDrawings) SelectCreatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Drawing, error) {
	return r.sel(wCreated, since)
}
func (r memDrawings) SelectUpdatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Drawing, error) {
	return r.sel(wUpdated, since)
}
func (r memDrawings) SelectDeletedSince(_ context.Context, _ models.Scope, since time.Time) ([]string, error) {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	out := []string{}
	for _, d := range r.view.drawings {
		if tombstoned(d.SyncMeta, since) {
			out = append(out, d.StableID)
		}
	}
	return out, nil
}
func (r memDrawings) GetIDByStableID(_ context.Context, stableID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.drawings {
		if d.StableID == stableID && !d.Deleted() {
			return d.ID, nil
		}
	}
	return 0, common.ErrorNotFound
}

type memObservations struct {
	observations.Repository
	s *memStore
	// view answers the sync windows; it is a snapshot inside a transaction.
	view *memStore
}

func (r memObservations) sel(w window, since time.Time) ([]*models.Observation, error) {
	v := r.view
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*models.Observation
	for _, o := range v.observations {
		if match(o.SyncMeta, w, since) {
			c := *o
			c.DrawingStableID = v.drawingStableID(o.DrawingID)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memObservations) SelectLive(context.Context, models.Scope) ([]*models.Observation, error) {
	return r.sel(wLive, time.Time{})
}
func (r memObservations) SelectCreatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Observation, error) {
	out, err := r.sel(wCreated, since)
	r.s.mu.Lock()
	hook := r.s.afterCreatedQuery
	r.s.afterCreatedQuery = nil
	r.s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, err
}
func (r memObservations) SelectUpdatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Observation, error) {
	return r.sel(wUpdated, since)
}
func (r memObservations) SelectDeletedSince(_ context.Context, _ models.Scope, since time.Time) ([]string, error) {
	r.view.mu.Lock()
	defer r.view.mu.Unlock()
	out := []string{}
	for _, o := range r.view.observations {
		if tombstoned(o.SyncMeta, since) {
			out = append(out, o.StableID)
		}
	}
	return out, nil
}

func (r memObservations) GetForUpdate(_ context.Context, stableID string) (*models.Observation, error) {
	if r.s.onLock != nil {
		r.s.onLock()
	}
	if o := r.s.observation(stableID); o != nil {
		return o, nil
	}
	return nil, common.ErrorNotFound
}

func (r memObservations) Create(_ context.Context, o *models.Observation) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failCreate != nil {
		return 0, r.s.failCreate
	}
	for _, existing := range r.s.observations {
		if existing.StableID == o.StableID {
			return 0, common.ErrDuplicate
		}
	}
	r.s.nextID++
	c := *o
	c.ID = r.s.nextID
	r.s.observations = append(r.s.observations, &c)
	return c.ID, nil
}

func (r memObservations) Update(_ context.Context, o *models.Observation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.observations {
		if existing.ID == o.ID {
			c := *o
			r.s.observations[i] = &c
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r memObservations) SoftDelete(_ context.Context, stableID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.observations {
		if o.StableID == stableID && !o.Deleted() {
			o.DeletedAt = sql.NullTime{Time: at, Valid: true}
			o.UpdatedAt = at
			return true, nil
		}
	}
	return false, nil
}

type memStableIDs struct {
	stableids.Repository
	s *memStore
}

func (r memStableIDs) meta(table string, id int64) *models.SyncMeta {
	switch table {
	case syncproto.TableProjects:
		for _, p := range r.s.projects {
			if p.ID == id {
				return &p.SyncMeta
			}
		}
	case syncproto.TableDrawings:
		for _, d := range r.s.drawings {
			if d.ID == id {
				return &d.SyncMeta
			}
		}
	case syncproto.TableObservations:
		for _, o := range r.s.observations {
			if o.ID == id {
				return &o.SyncMeta
			}
		}
	}
	return nil
}

func (r memStableIDs) Assign(_ context.Context, table string, id int64, stableID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failAssign; err != nil {
		r.s.failAssign = nil
		return false, err
	}
	m := r.meta(table, id)
	if m == nil || m.StableID != "" {
		return false, nil
	}
	m.StableID = stableID
	return true, nil
}

func (r memStableIDs) Get(_ context.Context, table string, id int64) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.meta(table, id)
	if m == nil {
		return "", common.ErrorNotFound
	}
	return m.StableID, nil
}

// memRepoManager vends the in-memory repositories. Repositories bound to a
// transaction read the sync windows from a copy taken when the transaction
// first asks for one; writes always go to the live rows.
type memRepoManager struct {
	repomanager.RepositoryManager
	s *memStore

	mu    sync.Mutex
	views map[dbx.DBTX]*memStore
}

func (m *memRepoManager) view(db dbx.DBTX) *memStore {
	if _, ok := db.(*sql.Tx); !ok {
		return m.s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.views == nil {
		m.views = make(map[dbx.DBTX]*memStore)
	}
	v, ok := m.views[db]
	if !ok {
		v = m.s.clone()
		m.views[db] = v
	}
	return v
}

func (m *memRepoManager) Projects(db dbx.DBTX) projects.Repository {
	return memProjects{s: m.s, view: m.view(db)}
}
func (m *memRepoManager) Drawings(db dbx.DBTX) drawings.Repository {
	return memDrawings{s: m.s, view: m.view(db)}
}
func (m *memRepoManager) Observations(db dbx.DBTX) observations.Repository {
	return memObservations{s: m.s, view: m.view(db)}
}
func (m *memRepoManager) StableIDs(dbx.DBTX) stableids.Repository { return memStableIDs{s: m.s} }
