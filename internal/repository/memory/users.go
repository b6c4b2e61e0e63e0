package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

type userRecord struct {
	user domain.User
	seq  int64
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(user.Email, "") {
		return errDuplicate("users_email_key")
	}
	now, seq := r.s.tick()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = userRecord{user: *user, seq: seq}
	return nil
}

func (r *userRepo) Patch(_ context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.users[id]
	if !ok {
		return nil, errNotFound
	}
	if patch.Email != nil && r.emailTaken(*patch.Email, id) {
		return nil, errDuplicate("users_email_key")
	}

	u := &rec.user
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Company != nil {
		u.Company = *patch.Company
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.LastLogin != nil {
		at := *patch.LastLogin
		u.LastLogin = &at
	}
	u.UpdatedAt, _ = r.s.tick()
	r.s.users[id] = rec

	user := rec.user
	return &user, nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return errNotFound
	}
	for _, t := range r.s.tickets {
		if t.ticket.CreatorID == id {
			return errForeignKey()
		}
	}
	delete(r.s.users, id)
	for key, t := range r.s.tickets {
		if t.ticket.IsAssignedTo(id) {
			t.ticket.AssigneeID = nil
			r.s.tickets[key] = t
		}
	}
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.users[id]
	if !ok {
		return nil, errNotFound
	}
	user := rec.user
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rec := range r.s.users {
		if strings.EqualFold(rec.user.Email, email) {
			user := rec.user
			return &user, nil
		}
	}
	return nil, errNotFound
}

func (r *userRepo) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.User{}
	for _, id := range ids {
		if rec, ok := r.s.users[id]; ok {
			out = append(out, rec.user)
		}
	}
	return out, nil
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []userRecord{}
	for _, rec := range r.s.users {
		if matchUser(rec.user, filter) {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		c := compareUsers(matched[i], matched[j], filter.SortBy)
		if filter.Desc {
			return c > 0
		}
		return c < 0
	})

	out := make([]domain.User, 0, len(matched))
	for _, rec := range page(matched, filter.Limit, filter.Offset) {
		out = append(out, rec.user)
	}
	return out, len(matched), nil
}

func (r *userRepo) CountByRole(_ context.Context) (map[domain.Role]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[domain.Role]int)
	for _, rec := range r.s.users {
		counts[rec.user.Role]++
	}
	return counts, nil
}

func (r *userRepo) CountActive(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, rec := range r.s.users {
		if rec.user.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *userRepo) emailTaken(email, exceptID string) bool {
	for id, rec := range r.s.users {
		if id != exceptID && strings.EqualFold(rec.user.Email, email) {
			return true
		}
	}
	return false
}

func matchUser(u domain.User, f repository.UserFilter) bool {
	if len(f.Roles) > 0 {
		found := false
		for _, role := range f.Roles {
			if u.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Active != nil && u.IsActive != *f.Active {
		return false
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		if !containsFold(u.Name, term) && !containsFold(u.Email, term) && !containsFold(u.Company, term) {
			return false
		}
	}
	return true
}

func compareUsers(a, b userRecord, field string) int {
	var c int
	switch field {
	case "name":
		c = strings.Compare(a.user.Name, b.user.Name)
	case "email":
		c = strings.Compare(a.user.Email, b.user.Email)
	case "role":
		c = strings.Compare(string(a.user.Role), string(b.user.Role))
	case "lastLogin":
		c = compareTimePtr(a.user.LastLogin, b.user.LastLogin)
	default:
		c = a.user.CreatedAt.Compare(b.user.CreatedAt)
	}
	if c != 0 {
		return c
	}
	return compareInt(a.seq, b.seq)
}
