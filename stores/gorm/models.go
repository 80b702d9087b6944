package gorm

import (
	"time"

	oa "github.com/ayursutra/ayurauth"
)

// AccountModel is the GORM mapping for demo accounts.
type AccountModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	DisplayName  string
	PhotoURL     string
	PasswordHash string `gorm:"not null"`
	Verified     bool   `gorm:"default:false"`
	Role         string `gorm:"default:patient"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AccountModel) TableName() string { return "accounts" }

func (m *AccountModel) toAccount() *oa.Account {
	return &oa.Account{
		ID:           m.ID,
		Email:        m.Email,
		DisplayName:  m.DisplayName,
		PhotoURL:     m.PhotoURL,
		PasswordHash: m.PasswordHash,
		Verified:     m.Verified,
		Role:         oa.ParseRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromAccount(a *oa.Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		PhotoURL:     a.PhotoURL,
		PasswordHash: a.PasswordHash,
		Verified:     a.Verified,
		Role:         string(a.Role),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
