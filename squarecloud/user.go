package squarecloud

import (
	"fmt"
	"time"
)

// PlanMemory is the memory quota of a user's plan, in MB.
type PlanMemory struct {
	Limit     int `json:"limit"`
	Available int `json:"available"`
	Used      int `json:"used"`
}

// Plan is a user's hosting plan.
type Plan struct {
	Name     string
	Memory   PlanMemory
	Duration *time.Time
}

// User is the account bound to the configured API key, including the
// account's application list.
type User struct {
	ID    string
	Tag   string
	Email string
	Plan  Plan
	Apps  []PartialApplication
}

type wireUser struct {
	User struct {
		ID    string `json:"id"`
		Tag   string `json:"tag"`
		Email string `json:"email"`
		Plan  struct {
			Name     string     `json:"name"`
			Memory   PlanMemory `json:"memory"`
			Duration int64      `json:"duration"`
		} `json:"plan"`
	} `json:"user"`
	Applications []PartialApplication `json:"applications"`
}

func (w wireUser) toUser() (*User, error) {
	if w.User.ID == "" {
		return nil, fmt.Errorf("malformed user payload: missing id")
	}

	user := &User{
		ID:    w.User.ID,
		Tag:   w.User.Tag,
		Email: w.User.Email,
		Plan: Plan{
			Name:   w.User.Plan.Name,
			Memory: w.User.Plan.Memory,
		},
		Apps: w.Applications,
	}
	if w.User.Plan.Duration != 0 {
		t := time.UnixMilli(w.User.Plan.Duration).UTC()
		user.Plan.Duration = &t
	}
	return user, nil
}
