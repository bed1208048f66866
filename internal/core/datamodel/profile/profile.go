package profile

import "time"

type Profile struct {
	ID             int64      `gorm:"primaryKey"`
	TrackingID     string     `gorm:"column:tracking_id;uniqueIndex;not null"`
	Username       string     `gorm:"column:username;uniqueIndex;not null"`
	DisplayName    string     `gorm:"column:display_name;not null"`
	Email          *string    `gorm:"column:email"`
	Role           string     `gorm:"column:role;not null"`
	OrganizationID *int64     `gorm:"column:organization_id;index"`
	DepartmentID   *int64     `gorm:"column:department_id;index"`
	IsActive       bool       `gorm:"column:is_active;not null"`
	LastLoginAt    *time.Time `gorm:"column:last_login_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}

// LocalCredential is replaced, never edited, when the password changes.
type LocalCredential struct {
	ID           int64     `gorm:"primaryKey"`
	ProfileID    int64     `gorm:"column:profile_id;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Algorithm    string    `gorm:"column:algorithm;not null"`
	ChangedAt    time.Time `gorm:"column:changed_at;not null"`
}

func (LocalCredential) TableName() string {
	return "local_credentials"
}

type FederatedCredential struct {
	ID        int64     `gorm:"primaryKey"`
	ProfileID int64     `gorm:"column:profile_id;uniqueIndex;not null"`
	Provider  string    `gorm:"column:provider;uniqueIndex:idx_federated_provider_subject;not null"`
	Subject   string    `gorm:"column:subject;uniqueIndex:idx_federated_provider_subject;not null"`
	Email     string    `gorm:"column:email;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (FederatedCredential) TableName() string {
	return "federated_credentials"
}
