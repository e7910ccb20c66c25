package server

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"studygroup/internal/models"
	"studygroup/internal/repositories"
)

// memStore is an in-memory stand-in for the PostgreSQL repositories used by
// the end-to-end router tests.
type memStore struct {
	mu            sync.Mutex
	users         []models.User
	groups        map[int]*models.Group
	groupMessages []models.GroupMessage
	messages      []models.Message
	seq           map[string]int
}

func newMemStore() *memStore {
	return &memStore{groups: map[int]*models.Group{}, seq: map[string]int{}}
}

func (s *memStore) next(table string) int {
	s.seq[table]++
	return s.seq[table]
}

func (s *memStore) summary(id int) (models.UserSummary, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return models.UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}, true
		}
	}
	return models.UserSummary{}, false
}

func (s *memStore) CreateUser(_ context.Context, username, passwordHash string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := models.User{ID: s.next("users"), Username: username, PasswordHash: passwordHash, ProfilePicture: models.DefaultProfilePicture, CreatedAt: time.Now()}
	s.users = append(s.users, user)
	return user, nil
}

func (s *memStore) GetUser(_ context.Context, userID int) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrUserNotFound
}

func (s *memStore) FindByUsername(_ context.Context, username string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.Username == username {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) ListOthers(_ context.Context, userID int) ([]models.UserSummary, error) {
	return s.SearchOthers(context.Background(), "", userID)
}

func (s *memStore) SearchOthers(_ context.Context, term string, userID int) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UserSummary
	for _, u := range s.users {
		if u.ID != userID && strings.Contains(strings.ToLower(u.Username), strings.ToLower(term)) {
			out = append(out, models.UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture})
		}
	}
	return out, nil
}

func (s *memStore) UpdateProfile(_ context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		u := &s.users[i]
		if u.ID != userID {
			continue
		}
		if update.Bio != "" {
			u.Bio = update.Bio
		}
		if update.ProfilePicture != "" {
			u.ProfilePicture = update.ProfilePicture
		}
		if update.Username != "" {
			u.Username = update.Username
		}
		return *u, nil
	}
	return models.User{}, repositories.ErrUserNotFound
}

func (s *memStore) CreateGroup(_ context.Context, creatorID int, name string, description string) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := &models.Group{ID: s.next("groups"), Name: name, Description: description, CreatedAt: time.Now(), Members: []int{creatorID}}
	s.groups[group.ID] = group
	return *group, nil
}

func (s *memStore) ListGroupsForUser(_ context.Context, userID int) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Group
	for _, g := range s.groups {
		if g.HasMember(userID) {
			out = append(out, copyGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetGroup(_ context.Context, groupID int) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return models.Group{}, repositories.ErrGroupNotFound
	}
	return copyGroup(g), nil
}

func (s *memStore) IsMember(_ context.Context, groupID int, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	return ok && g.HasMember(userID), nil
}

func (s *memStore) ListMembers(_ context.Context, groupID int) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UserSummary
	if g, ok := s.groups[groupID]; ok {
		for _, id := range g.Members {
			if u, ok := s.summary(id); ok {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (s *memStore) SearchNonMembers(_ context.Context, groupID int, term string) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groups[groupID]
	var out []models.UserSummary
	for _, u := range s.users {
		if g != nil && g.HasMember(u.ID) {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(term)) {
			out = append(out, models.UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture})
		}
	}
	return out, nil
}

func (s *memStore) AddMember(_ context.Context, groupID int, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok || g.HasMember(userID) {
		return nil
	}
	g.Members = append(g.Members, userID)
	sort.Ints(g.Members)
	return nil
}

func (s *memStore) RemoveMember(_ context.Context, groupID int, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	kept := g.Members[:0]
	for _, id := range g.Members {
		if id != userID {
			kept = append(kept, id)
		}
	}
	g.Members = kept
	return nil
}

func (s *memStore) UpdateGroup(_ context.Context, groupID int, name string, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		g.Name, g.Description = name, description
	}
	return nil
}

func (s *memStore) DeleteGroup(_ context.Context, groupID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.groupMessages[:0]
	for _, m := range s.groupMessages {
		if m.GroupID != groupID {
			kept = append(kept, m)
		}
	}
	s.groupMessages = kept
	delete(s.groups, groupID)
	return nil
}

func (s *memStore) CreateGroupMessage(_ context.Context, groupID int, fromID int, content string) (models.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, _ := s.summary(fromID)
	msg := models.GroupMessage{ID: s.next("group_messages"), GroupID: groupID, FromID: fromID, Content: content, CreatedAt: time.Now(), FromUsername: sender.Username}
	s.groupMessages = append(s.groupMessages, msg)
	return msg, nil
}

func (s *memStore) ListGroupMessages(_ context.Context, groupID int) ([]models.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GroupMessage
	for _, m := range s.groupMessages {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) CreateMessage(_ context.Context, fromID int, toID int, content string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, _ := s.summary(fromID)
	msg := models.Message{ID: s.next("messages"), FromID: fromID, ToID: toID, Content: content, CreatedAt: time.Now(), FromUsername: sender.Username, FromPicture: sender.ProfilePicture}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *memStore) ListConversation(_ context.Context, userID int, otherID int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if (m.FromID == userID && m.ToID == otherID) || (m.FromID == otherID && m.ToID == userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ListContacts(_ context.Context, userID int) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int]bool{}
	var out []models.UserSummary
	for _, m := range s.messages {
		other := 0
		switch userID {
		case m.FromID:
			other = m.ToID
		case m.ToID:
			other = m.FromID
		}
		if other == 0 || other == userID || seen[other] {
			continue
		}
		seen[other] = true
		if u, ok := s.summary(other); ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func copyGroup(g *models.Group) models.Group {
	out := *g
	out.Members = append([]int(nil), g.Members...)
	return out
}

var (
	_ repositories.UserRepository         = (*memStore)(nil)
	_ repositories.GroupRepository        = (*memStore)(nil)
	_ repositories.GroupMessageRepository = (*memStore)(nil)
	_ repositories.MessageRepository      = (*memStore)(nil)
)
