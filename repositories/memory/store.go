// Package memory is an in-process implementation of the repositories
// interfaces. It enforces the same uniqueness rules as the postgres schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
)

type submissionKey struct {
	kind models.SubmissionKind
	key  string
}

type dupeKey struct {
	a, b uuid.UUID
}

// Store holds every table behind a single mutex
type Store struct {
	mu sync.RWMutex

	users       map[uuid.UUID]*models.User
	refresh     map[uuid.UUID]*models.RefreshToken
	roles       map[uuid.UUID]*models.Role
	permissions map[string]uuid.UUID
	rolePerms   map[uuid.UUID]map[uuid.UUID]struct{}
	assignments map[uuid.UUID]*models.RoleAssignment // keyed by user id

	submissions   map[uuid.UUID]*models.Submission
	submissionKey map[submissionKey]uuid.UUID

	brands   map[uuid.UUID]*models.Brand
	polishes map[uuid.UUID]*models.Polish
	lookups  map[models.LookupTable]map[uuid.UUID]*models.LookupEntry
	dupes    map[dupeKey]struct{}

	audit []*models.AuditLog
}

// NewStore creates an empty store seeded with the default permissions and roles
func NewStore() *Store {
	s := &Store{
		users:         make(map[uuid.UUID]*models.User),
		refresh:       make(map[uuid.UUID]*models.RefreshToken),
		roles:         make(map[uuid.UUID]*models.Role),
		permissions:   make(map[string]uuid.UUID),
		rolePerms:     make(map[uuid.UUID]map[uuid.UUID]struct{}),
		assignments:   make(map[uuid.UUID]*models.RoleAssignment),
		submissions:   make(map[uuid.UUID]*models.Submission),
		submissionKey: make(map[submissionKey]uuid.UUID),
		brands:        make(map[uuid.UUID]*models.Brand),
		polishes:      make(map[uuid.UUID]*models.Polish),
		lookups:       make(map[models.LookupTable]map[uuid.UUID]*models.LookupEntry),
		dupes:         make(map[dupeKey]struct{}),
	}

	for _, name := range models.AllPermissions {
		s.permissions[name] = uuid.New()
	}
	for _, r := range models.DefaultRoles {
		role := &models.Role{ID: uuid.New(), Name: r.Name, Description: r.Description}
		s.roles[role.ID] = role
		s.rolePerms[role.ID] = make(map[uuid.UUID]struct{})
		for _, perm := range models.DefaultRolePermissions[r.Name] {
			s.rolePerms[role.ID][s.permissions[perm]] = struct{}{}
		}
	}
	return s
}

// Repositories returns the store behind every repository interface
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:           &userRepository{s},
		RefreshTokens:   &refreshTokenRepository{s},
		Roles:           &roleRepository{s},
		RoleAssignments: &roleAssignmentRepository{s},
		Submissions:     &submissionRepository{s},
		Catalog:         &catalogRepository{s},
		AuditLogs:       &auditRepository{s},
	}
}

// TransactionManager returns a manager whose transactions run directly against the store
func (s *Store) TransactionManager() repositories.TransactionManager {
	return transactionManager{}
}

// Ping always succeeds; it lets the store back the readiness check
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// AddBrand inserts a canonical brand
func (s *Store) AddBrand(name string) *models.Brand {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &models.Brand{ID: uuid.New(), Name: name}
	s.brands[b.ID] = b
	return b
}

// AddPolish inserts a canonical polish
func (s *Store) AddPolish(brandID uuid.UUID, name string) *models.Polish {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Polish{ID: uuid.New(), BrandID: brandID, Name: name}
	s.polishes[p.ID] = p
	return p
}

// AddLookup inserts a reference entry (type, color or formula)
func (s *Store) AddLookup(table models.LookupTable, name string) *models.LookupEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookups[table] == nil {
		s.lookups[table] = make(map[uuid.UUID]*models.LookupEntry)
	}
	e := &models.LookupEntry{ID: uuid.New(), Name: name}
	s.lookups[table][e.ID] = e
	return e
}

// LinkDupes records a canonical dupe link between two polishes
func (s *Store) LinkDupes(a, b uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first, second := models.OrderPolishPair(a, b)
	s.dupes[dupeKey{first, second}] = struct{}{}
}

// SubmissionCount returns how many submissions of a kind exist, whatever their status
func (s *Store) SubmissionCount(kind models.SubmissionKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sub := range s.submissions {
		if sub.Kind == kind {
			n++
		}
	}
	return n
}

// AuditLogs returns a snapshot of recorded audit entries
func (s *Store) AuditLogs() []*models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AuditLog, len(s.audit))
	copy(out, s.audit)
	return out
}

type transactionManager struct{}

type transaction struct {
	ctx context.Context
}

func (t transaction) Commit() error            { return nil }
func (t transaction) Rollback() error          { return nil }
func (t transaction) Context() context.Context { return t.ctx }

func (transactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return transaction{ctx: ctx}, nil
}

// InTransaction runs fn directly; each store method is atomic on its own
func (transactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, transaction{ctx: ctx})
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrUniqueViolation
		}
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepository) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type refreshTokenRepository struct{ s *Store }

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[token.UserID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *token
	r.s.refresh[token.ID] = &cp
	return nil
}

func (r *refreshTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t, ok := r.s.refresh[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *refreshTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.refresh[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.refresh, id)
	return nil
}

type roleRepository struct{ s *Store }

func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.Name == role.Name {
			return repositories.ErrUniqueViolation
		}
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	cp := *role
	r.s.roles[role.ID] = &cp
	r.s.rolePerms[role.ID] = make(map[uuid.UUID]struct{})
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if role, ok := r.s.roles[id]; ok {
		cp := *role
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *roleRepository) GrantPermission(ctx context.Context, roleID uuid.UUID, permissionName string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	permID, ok := r.s.permissions[permissionName]
	if !ok {
		return repositories.ErrNotFound
	}
	perms, ok := r.s.rolePerms[roleID]
	if !ok {
		return repositories.ErrNotFound
	}
	perms[permID] = struct{}{}
	return nil
}

func (r *roleRepository) PermissionNames(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	byID := make(map[uuid.UUID]string, len(r.s.permissions))
	for name, id := range r.s.permissions {
		byID[id] = name
	}
	var names []string
	for _, roleID := range roleIDs {
		for permID := range r.s.rolePerms[roleID] {
			names = append(names, byID[permID])
		}
	}
	sort.Strings(names)
	return names, nil
}

type roleAssignmentRepository struct{ s *Store }

func (r *roleAssignmentRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a, ok := r.s.assignments[userID]; ok {
		cp := *a
		return []*models.RoleAssignment{&cp}, nil
	}
	return nil, nil
}

func (r *roleAssignmentRepository) Upsert(ctx context.Context, userID, roleID uuid.UUID) (*models.RoleAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[userID]
	if !ok {
		a = models.NewRoleAssignment(userID, roleID)
		r.s.assignments[userID] = a
	} else {
		a.RoleID = roleID
		a.UpdatedAt = time.Now()
	}
	cp := *a
	return &cp, nil
}

func (r *roleAssignmentRepository) Delete(ctx context.Context, userID, roleID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[userID]
	if !ok || a.RoleID != roleID {
		return repositories.ErrNotFound
	}
	delete(r.s.assignments, userID)
	return nil
}

type submissionRepository struct{ s *Store }

func (r *submissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := submissionKey{sub.Kind, sub.NaturalKey}
	if _, taken := r.s.submissionKey[key]; taken {
		return repositories.ErrUniqueViolation
	}
	cp := *sub
	r.s.submissions[sub.ID] = &cp
	r.s.submissionKey[key] = sub.ID
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, kind models.SubmissionKind, id uuid.UUID) (*models.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if sub, ok := r.s.submissions[id]; ok && sub.Kind == kind {
		cp := *sub
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *submissionRepository) FindByNaturalKey(ctx context.Context, kind models.SubmissionKind, naturalKey string) (*models.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if id, ok := r.s.submissionKey[submissionKey{kind, naturalKey}]; ok {
		cp := *r.s.submissions[id]
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, kind models.SubmissionKind, id uuid.UUID, from, to models.SubmissionStatus, reviewerID uuid.UUID, at time.Time) (*models.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok || sub.Kind != kind || sub.Status != from {
		return nil, repositories.ErrStaleState
	}
	sub.Status = to
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &at
	sub.UpdatedAt = at
	cp := *sub
	return &cp, nil
}

func (r *submissionRepository) ListByStatus(ctx context.Context, kind models.SubmissionKind, status models.SubmissionStatus, limit, offset int) ([]*models.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var subs []*models.Submission
	for _, sub := range r.s.submissions {
		if sub.Kind == kind && sub.Status == status {
			cp := *sub
			subs = append(subs, &cp)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	if offset >= len(subs) {
		return nil, nil
	}
	subs = subs[offset:]
	if limit > 0 && limit < len(subs) {
		subs = subs[:limit]
	}
	return subs, nil
}

type catalogRepository struct{ s *Store }

func (r *catalogRepository) GetBrandByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if b, ok := r.s.brands[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *catalogRepository) GetBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.brands {
		if strings.EqualFold(b.Name, name) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *catalogRepository) GetPolishByID(ctx context.Context, id uuid.UUID) (*models.Polish, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := r.s.polishes[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *catalogRepository) GetPolishByName(ctx context.Context, brandID uuid.UUID, name string) (*models.Polish, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.polishes {
		if p.BrandID == brandID && strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *catalogRepository) GetLookupByID(ctx context.Context, table models.LookupTable, id uuid.UUID) (*models.LookupEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if e, ok := r.s.lookups[table][id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *catalogRepository) GetLookupByName(ctx context.Context, table models.LookupTable, name string) (*models.LookupEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.lookups[table] {
		if strings.EqualFold(e.Name, name) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *catalogRepository) DupeLinkExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	first, second := models.OrderPolishPair(a, b)
	_, ok := r.s.dupes[dupeKey{first, second}]
	return ok, nil
}

type auditRepository struct{ s *Store }

func (r *auditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *log
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *auditRepository) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var logs []*models.AuditLog
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		l := r.s.audit[i]
		if l.ResourceType == resourceType && l.ResourceID != nil && *l.ResourceID == resourceID {
			cp := *l
			logs = append(logs, &cp)
			if limit > 0 && len(logs) == limit {
				break
			}
		}
	}
	return logs, nil
}
