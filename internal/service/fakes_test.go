package service

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
)

// In-memory stores backing the service tests.

type fakePermissionStore struct {
	permissions map[string]models.Permission
	roleCounts  map[string]int
}

func newFakePermissionStore() *fakePermissionStore {
	return &fakePermissionStore{
		permissions: make(map[string]models.Permission),
		roleCounts:  make(map[string]int),
	}
}

func (f *fakePermissionStore) Create(_ context.Context, permission models.Permission) (models.Permission, error) {
	permission.CreatedAt = time.Now()
	permission.UpdatedAt = permission.CreatedAt
	f.permissions[permission.ID] = permission
	return permission, nil
}

func (f *fakePermissionStore) GetByID(_ context.Context, id string) (models.Permission, error) {
	permission, ok := f.permissions[id]
	if !ok {
		return models.Permission{}, repository.ErrPermissionNotFound
	}
	return permission, nil
}

func (f *fakePermissionStore) GetByIDs(_ context.Context, ids []string) ([]models.Permission, error) {
	var found []models.Permission
	for _, id := range ids {
		if permission, ok := f.permissions[id]; ok {
			found = append(found, permission)
		}
	}
	return found, nil
}

func (f *fakePermissionStore) List(_ context.Context) ([]models.Permission, error) {
	var all []models.Permission
	for _, permission := range f.permissions {
		all = append(all, permission)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	return all, nil
}

func (f *fakePermissionStore) ExistsByNameOrSlug(_ context.Context, name string, slug string, excludeID string) (bool, error) {
	for _, permission := range f.permissions {
		if permission.ID == excludeID {
			continue
		}
		if permission.Name == name || permission.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePermissionStore) Update(_ context.Context, permission models.Permission) (models.Permission, error) {
	if _, ok := f.permissions[permission.ID]; !ok {
		return models.Permission{}, repository.ErrPermissionNotFound
	}
	permission.UpdatedAt = time.Now()
	f.permissions[permission.ID] = permission
	return permission, nil
}

func (f *fakePermissionStore) Delete(_ context.Context, id string) error {
	if _, ok := f.permissions[id]; !ok {
		return repository.ErrPermissionNotFound
	}
	delete(f.permissions, id)
	return nil
}

func (f *fakePermissionStore) CountRoles(_ context.Context, permissionID string) (int, error) {
	return f.roleCounts[permissionID], nil
}

type fakeRoleStore struct {
	roles       map[string]models.Role
	permissions *fakePermissionStore
	userCounts  map[string]int
}

func newFakeRoleStore(permissions *fakePermissionStore) *fakeRoleStore {
	return &fakeRoleStore{
		roles:       make(map[string]models.Role),
		permissions: permissions,
		userCounts:  make(map[string]int),
	}
}

func (f *fakeRoleStore) attach(role models.Role, permissionIDs []string) models.Role {
	role.Permissions = nil
	for _, id := range permissionIDs {
		if permission, ok := f.permissions.permissions[id]; ok {
			role.Permissions = append(role.Permissions, permission)
		}
	}
	return role
}

func (f *fakeRoleStore) Create(_ context.Context, role models.Role, permissionIDs []string) (models.Role, error) {
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	role = f.attach(role, permissionIDs)
	f.roles[role.ID] = role
	for _, id := range permissionIDs {
		f.permissions.roleCounts[id]++
	}
	return role, nil
}

func (f *fakeRoleStore) GetByID(_ context.Context, id string) (models.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return models.Role{}, repository.ErrRoleNotFound
	}
	return role, nil
}

func (f *fakeRoleStore) GetBySlug(_ context.Context, slug string) (models.Role, error) {
	for _, role := range f.roles {
		if role.Slug == slug {
			return role, nil
		}
	}
	return models.Role{}, repository.ErrRoleNotFound
}

func (f *fakeRoleStore) List(_ context.Context) ([]models.Role, error) {
	var all []models.Role
	for _, role := range f.roles {
		all = append(all, role)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Priority > all[j].Priority })
	return all, nil
}

func (f *fakeRoleStore) ExistsByNameOrSlug(_ context.Context, name string, slug string, excludeID string) (bool, error) {
	for _, role := range f.roles {
		if role.ID == excludeID {
			continue
		}
		if role.Name == name || role.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoleStore) Update(_ context.Context, role models.Role) (models.Role, error) {
	existing, ok := f.roles[role.ID]
	if !ok {
		return models.Role{}, repository.ErrRoleNotFound
	}
	role.Permissions = existing.Permissions
	role.UpdatedAt = time.Now()
	f.roles[role.ID] = role
	return role, nil
}

func (f *fakeRoleStore) ReplacePermissions(_ context.Context, roleID string, permissionIDs []string) error {
	role, ok := f.roles[roleID]
	if !ok {
		return repository.ErrRoleNotFound
	}
	for _, p := range role.Permissions {
		f.permissions.roleCounts[p.ID]--
	}
	role = f.attach(role, permissionIDs)
	for _, id := range permissionIDs {
		f.permissions.roleCounts[id]++
	}
	f.roles[roleID] = role
	return nil
}

func (f *fakeRoleStore) Delete(_ context.Context, id string) error {
	if _, ok := f.roles[id]; !ok {
		return repository.ErrRoleNotFound
	}
	delete(f.roles, id)
	return nil
}

func (f *fakeRoleStore) CountUsers(_ context.Context, roleID string) (int, error) {
	return f.userCounts[roleID], nil
}

type fakeSessionStore struct {
	sessions map[string]models.Session
	seq      int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.Session)}
}

func (f *fakeSessionStore) activeByUser(userID string) []models.Session {
	var active []models.Session
	for _, session := range f.sessions {
		if session.UserID == userID && session.IsActive {
			active = append(active, session)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active
}

func (f *fakeSessionStore) Create(_ context.Context, session models.Session, maxActive int) (models.Session, error) {
	active := f.activeByUser(session.UserID)
	if maxActive > 0 && len(active) >= maxActive {
		delete(f.sessions, active[0].ID)
	}

	f.seq++
	session.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	session.UpdatedAt = session.CreatedAt
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeSessionStore) GetActiveByIDAndHash(_ context.Context, id string, refreshTokenHash []byte) (models.Session, error) {
	session, ok := f.sessions[id]
	if !ok || !session.IsActive || !bytes.Equal(session.RefreshTokenHash, refreshTokenHash) {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeSessionStore) ListActiveByUser(_ context.Context, userID string) ([]models.Session, error) {
	return f.activeByUser(userID), nil
}

func (f *fakeSessionStore) CountActiveByUser(_ context.Context, userID string) (int, error) {
	return len(f.activeByUser(userID)), nil
}

func (f *fakeSessionStore) MarkInactive(_ context.Context, sessionID string, userID string) error {
	session, ok := f.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil
	}
	session.IsActive = false
	session.UpdatedAt = time.Now()
	f.sessions[sessionID] = session
	return nil
}

func (f *fakeSessionStore) MarkAllInactive(_ context.Context, userID string) error {
	for id, session := range f.sessions {
		if session.UserID == userID {
			session.IsActive = false
			f.sessions[id] = session
		}
	}
	return nil
}

func (f *fakeSessionStore) Update(_ context.Context, session models.Session) error {
	if _, ok := f.sessions[session.ID]; !ok {
		return repository.ErrSessionNotFound
	}
	session.UpdatedAt = time.Now()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) RotateRefreshToken(_ context.Context, userID string, oldHash []byte, newHash []byte) error {
	for id, session := range f.sessions {
		if session.UserID == userID && session.IsActive && bytes.Equal(session.RefreshTokenHash, oldHash) {
			now := time.Now()
			session.RefreshTokenHash = newHash
			session.LastActivity = &now
			f.sessions[id] = session
		}
	}
	return nil
}

func (f *fakeSessionStore) TouchActivity(_ context.Context, userID string, ipAddress string, userAgent string) error {
	for id, session := range f.sessions {
		if session.UserID == userID && session.IsActive && session.IPAddress == ipAddress && session.UserAgent == userAgent {
			now := time.Now()
			session.LastActivity = &now
			f.sessions[id] = session
		}
	}
	return nil
}

func (f *fakeSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for id, session := range f.sessions {
		if session.Expired(now) {
			delete(f.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeSessionStore) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, session := range f.sessions {
		if !session.IsActive && session.UpdatedAt.Before(cutoff) {
			delete(f.sessions, id)
			removed++
		}
	}
	return removed, nil
}

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) (models.User, error) {
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByIDWithRole(ctx context.Context, id string) (models.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) FindByEmailWithRole(ctx context.Context, email string) (models.User, error) {
	return f.FindByEmail(ctx, email)
}

func (f *fakeUserStore) List(_ context.Context) ([]models.User, error) {
	var all []models.User
	for _, user := range f.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return all, nil
}

func (f *fakeUserStore) Update(_ context.Context, user models.User) (models.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) UpdateRefreshTokenHash(_ context.Context, userID string, hash []byte) error {
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.RefreshTokenHash = hash
	f.users[userID] = user
	return nil
}

type fakeFileStore struct {
	files map[string]models.File
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string]models.File)}
}

func (f *fakeFileStore) Create(_ context.Context, file models.File) (models.File, error) {
	file.CreatedAt = time.Now()
	file.UpdatedAt = file.CreatedAt
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeFileStore) GetByID(_ context.Context, id string) (models.File, error) {
	file, ok := f.files[id]
	if !ok {
		return models.File{}, repository.ErrFileNotFound
	}
	return file, nil
}

func (f *fakeFileStore) ListByOwner(_ context.Context, ownerID string) ([]models.File, error) {
	var owned []models.File
	for _, file := range f.files {
		if file.OwnerID == ownerID {
			owned = append(owned, file)
		}
	}
	return owned, nil
}

func (f *fakeFileStore) Delete(_ context.Context, id string) error {
	if _, ok := f.files[id]; !ok {
		return repository.ErrFileNotFound
	}
	delete(f.files, id)
	return nil
}

type fakeTemplateStore struct {
	templates map[string]models.NotificationTemplate
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{templates: make(map[string]models.NotificationTemplate)}
}

func (f *fakeTemplateStore) Create(_ context.Context, template models.NotificationTemplate) (models.NotificationTemplate, error) {
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt
	f.templates[template.ID] = template
	return template, nil
}

func (f *fakeTemplateStore) GetByID(_ context.Context, id string) (models.NotificationTemplate, error) {
	template, ok := f.templates[id]
	if !ok {
		return models.NotificationTemplate{}, repository.ErrTemplateNotFound
	}
	return template, nil
}

func (f *fakeTemplateStore) GetByCode(_ context.Context, code string) (models.NotificationTemplate, error) {
	for _, template := range f.templates {
		if template.Code == code {
			return template, nil
		}
	}
	return models.NotificationTemplate{}, repository.ErrTemplateNotFound
}

func (f *fakeTemplateStore) ExistsByCode(_ context.Context, code string, excludeID string) (bool, error) {
	for _, template := range f.templates {
		if template.ID != excludeID && template.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTemplateStore) List(_ context.Context) ([]models.NotificationTemplate, error) {
	var all []models.NotificationTemplate
	for _, template := range f.templates {
		all = append(all, template)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all, nil
}

func (f *fakeTemplateStore) Update(_ context.Context, template models.NotificationTemplate) (models.NotificationTemplate, error) {
	if _, ok := f.templates[template.ID]; !ok {
		return models.NotificationTemplate{}, repository.ErrTemplateNotFound
	}
	template.UpdatedAt = time.Now()
	f.templates[template.ID] = template
	return template, nil
}

func (f *fakeTemplateStore) Delete(_ context.Context, id string) error {
	if _, ok := f.templates[id]; !ok {
		return repository.ErrTemplateNotFound
	}
	delete(f.templates, id)
	return nil
}

type fakeIPWhitelistStore struct {
	entries map[string]models.IPWhitelistEntry
}

func newFakeIPWhitelistStore() *fakeIPWhitelistStore {
	return &fakeIPWhitelistStore{entries: make(map[string]models.IPWhitelistEntry)}
}

func (f *fakeIPWhitelistStore) Create(_ context.Context, entry models.IPWhitelistEntry) (models.IPWhitelistEntry, error) {
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f *fakeIPWhitelistStore) GetByID(_ context.Context, id string) (models.IPWhitelistEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return models.IPWhitelistEntry{}, repository.ErrIPWhitelistEntryNotFound
	}
	return entry, nil
}

func (f *fakeIPWhitelistStore) List(_ context.Context) ([]models.IPWhitelistEntry, error) {
	var all []models.IPWhitelistEntry
	for _, entry := range f.entries {
		all = append(all, entry)
	}
	return all, nil
}

func (f *fakeIPWhitelistStore) ListActive(_ context.Context) ([]models.IPWhitelistEntry, error) {
	var active []models.IPWhitelistEntry
	for _, entry := range f.entries {
		if entry.IsActive {
			active = append(active, entry)
		}
	}
	return active, nil
}

func (f *fakeIPWhitelistStore) Update(_ context.Context, entry models.IPWhitelistEntry) (models.IPWhitelistEntry, error) {
	if _, ok := f.entries[entry.ID]; !ok {
		return models.IPWhitelistEntry{}, repository.ErrIPWhitelistEntryNotFound
	}
	entry.UpdatedAt = time.Now()
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f *fakeIPWhitelistStore) Delete(_ context.Context, id string) error {
	if _, ok := f.entries[id]; !ok {
		return repository.ErrIPWhitelistEntryNotFound
	}
	delete(f.entries, id)
	return nil
}
