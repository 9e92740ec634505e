package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field limits mirrored by the users table.
const (
	MaxFullNameLength = 255
	MaxDocumentLength = 20
)

// User owns a logical set of contributions. Contributions are persisted
// independently, so the set is only populated when a caller loads it.
type User struct {
	BirthDate     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	contributions map[string]*Contribution
	ID            string
	FullName      string
	Document      string
}

// NewUser validates and creates a user.
func NewUser(id, fullName, document string, birthDate, now time.Time) (*User, error) {
	user := &User{
		ID:        id,
		FullName:  strings.TrimSpace(fullName),
		Document:  strings.TrimSpace(document),
		BirthDate: birthDate.UTC(),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	if err := user.Validate(now); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks the user invariants relative to now.
func (u *User) Validate(now time.Time) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: id must be a non-empty string", ErrInvalidUser)
	}

	if u.FullName == "" || len(u.FullName) > MaxFullNameLength {
		return fmt.Errorf("%w: fullName must be between 1 and %d characters", ErrInvalidUser, MaxFullNameLength)
	}

	if u.Document == "" || len(u.Document) > MaxDocumentLength {
		return fmt.Errorf("%w: document must be between 1 and %d characters", ErrInvalidUser, MaxDocumentLength)
	}

	if u.BirthDate.IsZero() {
		return fmt.Errorf("%w: birthDate must be a valid date", ErrInvalidUser)
	}

	if u.BirthDate.After(now) {
		return fmt.Errorf("%w: birthDate cannot be in the future", ErrInvalidUser)
	}

	return nil
}

// AddContribution attaches c to the user, rejecting contributions of other users.
func (u *User) AddContribution(c *Contribution) error {
	if c.UserID != u.ID {
		return fmt.Errorf("%w: contribution %s does not belong to user %s", ErrInvalidContribution, c.ID, u.ID)
	}

	if u.contributions == nil {
		u.contributions = make(map[string]*Contribution)
	}
	u.contributions[c.ID] = c

	return nil
}

// RemoveContribution detaches the contribution with the given id.
func (u *User) RemoveContribution(id string) {
	delete(u.contributions, id)
}

// Contributions returns the attached contributions in no particular order.
func (u *User) Contributions() []*Contribution {
	out := make([]*Contribution, 0, len(u.contributions))
	for _, c := range u.contributions {
		out = append(out, c)
	}

	return out
}
