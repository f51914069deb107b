// Package contributor manages the collaborator list attached to a project.
// The list is plain state until the project is submitted; Validate re-checks
// it on the server.
package contributor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner       Role = "owner"
	RoleContributor Role = "contributor"
	RoleAdvisor     Role = "advisor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleContributor, RoleAdvisor:
		return true
	}
	return false
}

var (
	ErrSelf           = errors.New("ไม่สามารถเพิ่มตนเองเป็นผู้ร่วมโครงการได้")
	ErrDuplicate      = errors.New("contributor already added")
	ErrUnresolvedUser = errors.New("contributor must be a resolved user")
	ErrNameRequired   = errors.New("contributor name is required")
	ErrInvalidRole    = errors.New("invalid contributor role")
	ErrIndex          = errors.New("contributor index out of range")
)

// Contributor is either a registered user (UserID set) or an external member.
type Contributor struct {
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Username  string     `json:"username,omitempty"`
	Name      string     `json:"name,omitempty"`
	StudentID string     `json:"student_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	Role      Role       `json:"role"`
}

func (c Contributor) IsExternal() bool { return c.UserID == nil }

func (c Contributor) sameAs(o Contributor) bool {
	if c.IsExternal() != o.IsExternal() {
		return false
	}
	if !c.IsExternal() {
		return *c.UserID == *o.UserID
	}
	return strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(o.Name)) &&
		strings.TrimSpace(c.StudentID) == strings.TrimSpace(o.StudentID)
}

type List []Contributor

func (l List) contains(c Contributor) bool {
	for _, x := range l {
		if x.sameAs(c) {
			return true
		}
	}
	return false
}

// AddRegistered appends a registered user. current is the authenticated
// user, who cannot add themselves.
func (l *List) AddRegistered(current uuid.UUID, c Contributor) error {
	if c.UserID == nil || *c.UserID == uuid.Nil {
		return ErrUnresolvedUser
	}
	if *c.UserID == current {
		return ErrSelf
	}
	return l.add(c)
}

// AddExternal appends a member without an account.
func (l *List) AddExternal(c Contributor) error {
	c.UserID = nil
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	return l.add(c)
}

func (l *List) add(c Contributor) error {
	if c.Role == "" {
		c.Role = RoleContributor
	}
	if !c.Role.Valid() {
		return ErrInvalidRole
	}
	if l.contains(c) {
		return ErrDuplicate
	}
	*l = append(*l, c)
	return nil
}

func (l List) SetRole(i int, role Role) error {
	if i < 0 || i >= len(l) {
		return ErrIndex
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	l[i].Role = role
	return nil
}

func (l *List) RemoveAt(i int) error {
	if i < 0 || i >= len(*l) {
		return ErrIndex
	}
	*l = append((*l)[:i], (*l)[i+1:]...)
	return nil
}

// Validate checks a submitted list against the project owner.
func (l List) Validate(ownerID uuid.UUID) error {
	var seen List
	for i, c := range l {
		var err error
		if c.IsExternal() {
			err = seen.AddExternal(c)
		} else {
			err = seen.AddRegistered(ownerID, c)
		}
		if err != nil {
			return fmt.Errorf("contributors[%d]: %w", i, err)
		}
	}
	return nil
}

// UserIDs returns the ids of registered contributors.
func (l List) UserIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l))
	for _, c := range l {
		if c.UserID != nil {
			ids = append(ids, *c.UserID)
		}
	}
	return ids
}
