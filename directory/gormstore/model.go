package gormstore

import (
	"strings"
	"time"

	eduAuth "github.com/MrEthical07/eduAuth"
)

// principalRow is one admin or user. EmailLower backs case-insensitive
// lookups; the unique indexes only cover rows that are not deleted.
type principalRow struct {
	ID         string `gorm:"primaryKey;size:36"`
	Role       string `gorm:"size:16;not null;index:idx_principals_email_live,unique,where:is_deleted = 0,priority:1;index:idx_principals_mobile_live,unique,where:is_deleted = 0,priority:1"`
	Name       string `gorm:"size:255;not null"`
	Email      string `gorm:"size:320;not null"`
	EmailLower string `gorm:"size:320;not null;index:idx_principals_email_live,priority:2"`
	Mobile     string `gorm:"size:16;not null;index:idx_principals_mobile_live,priority:2"`
	Password   string `gorm:"size:255;not null"`
	OTP        string `gorm:"size:16"`
	IsActive   bool   `gorm:"not null"`
	IsDeleted  bool   `gorm:"not null;default:false;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	ProfilePicture string `gorm:"size:512"`

	Gender      string `gorm:"size:32"`
	DateOfBirth string `gorm:"size:32"`
	Address     string `gorm:"size:512"`
	City        string `gorm:"size:128"`
	State       string `gorm:"size:128"`
	Pincode     string `gorm:"size:16"`
	SchoolName  string `gorm:"size:255"`
	ClassName   string `gorm:"size:64"`
}

func (principalRow) TableName() string {
	return "principals"
}

func toRow(p *eduAuth.Principal) principalRow {
	row := principalRow{
		ID:         p.ID,
		Role:       string(p.Role),
		Name:       p.Name,
		Email:      p.Email,
		EmailLower: strings.ToLower(strings.TrimSpace(p.Email)),
		Mobile:     p.Mobile,
		Password:   p.PasswordHash,
		OTP:        p.OTP,
		IsActive:   p.IsActive,
		IsDeleted:  p.IsDeleted,
		CreatedAt:  p.CreatedAt.UTC(),
		UpdatedAt:  p.UpdatedAt.UTC(),
	}
	if p.Admin != nil {
		row.ProfilePicture = p.Admin.ProfilePicture
	}
	if p.User != nil {
		row.Gender = p.User.Gender
		row.DateOfBirth = p.User.DateOfBirth
		row.Address = p.User.Address
		row.City = p.User.City
		row.State = p.User.State
		row.Pincode = p.User.Pincode
		row.SchoolName = p.User.SchoolName
		row.ClassName = p.User.ClassName
	}
	return row
}

func (r principalRow) principal() *eduAuth.Principal {
	p := &eduAuth.Principal{
		ID:           r.ID,
		Role:         eduAuth.Role(r.Role),
		Name:         r.Name,
		Email:        r.Email,
		Mobile:       r.Mobile,
		PasswordHash: r.Password,
		OTP:          r.OTP,
		IsActive:     r.IsActive,
		IsDeleted:    r.IsDeleted,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if p.Role == eduAuth.RoleAdmin {
		p.Admin = &eduAuth.AdminProfile{ProfilePicture: r.ProfilePicture}
	} else {
		p.User = &eduAuth.UserProfile{
			Gender:      r.Gender,
			DateOfBirth: r.DateOfBirth,
			Address:     r.Address,
			City:        r.City,
			State:       r.State,
			Pincode:     r.Pincode,
			SchoolName:  r.SchoolName,
			ClassName:   r.ClassName,
		}
	}
	return p
}
