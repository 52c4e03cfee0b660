package fakeuserrepo

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return ur.copyOf(id)
}

func (ur *FakeUserRepo) GetByID(ID string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(ID)
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.users {
		c := *u
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Email < list[j].Email
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}

func (ur *FakeUserRepo) SetDeactivated(ID string, deactivated bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[ID]
	if !ok {
		return errors.ErrUserNotFound
	}
	u.Deactivated = deactivated
	return nil
}

func (ur *FakeUserRepo) SetLastLogin(ID string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[ID]
	if !ok {
		return errors.ErrUserNotFound
	}
	u.LastLogin = time.Now().UTC()
	return nil
}

// copyOf must be called with the lock held.
func (ur *FakeUserRepo) copyOf(id string) (*users.User, error) {
	u, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}
