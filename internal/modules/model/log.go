package model

import (
	"time"

	"github.com/google/uuid"
)

// LoginLog records every login attempt, successful or not.
type LoginLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Username  string     `gorm:"type:text;not null" json:"username"`
	IP        string     `gorm:"type:text;not null;default:''" json:"ip"`
	UserAgent string     `gorm:"type:text;not null;default:''" json:"user_agent"`
	Success   bool       `gorm:"not null" json:"success"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (LoginLog) TableName() string { return "login_logs" }

type VisitorView struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	IP        string     `gorm:"type:text;not null;default:''" json:"ip"`
	UserAgent string     `gorm:"type:text;not null;default:''" json:"user_agent"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (VisitorView) TableName() string { return "visitor_views" }

// ProjectReview is the audit trail of review decisions.
type ProjectReview struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID     `gorm:"type:uuid;not null;index" json:"project_id"`
	AdminID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"admin_id"`
	Status    ProjectStatus `gorm:"type:text;not null;check:status IN ('approved','rejected')" json:"status"`
	Comment   string        `gorm:"type:text;not null;default:''" json:"comment"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Admin   *User    `gorm:"foreignKey:AdminID;references:ID" json:"admin,omitempty"`
}

func (ProjectReview) TableName() string { return "project_reviews" }
