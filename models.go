package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleName identifies one of the seeded roles
type RoleName = string

const (
	// RoleNameUser is the default role assigned on signup
	RoleNameUser RoleName = "user"
	// RoleNameAdmin is the administrative role
	RoleNameAdmin RoleName = "admin"
)

// User is the user model. Email and username are stored lowercase; deleting
// a user cascades to every dependent row at the storage layer.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string    `bun:"username,notnull,unique" json:"username,omitempty"`
	Name          string    `bun:"name" json:"name,omitempty"`

	Password    *Password     `bun:"rel:has-one,join:id=user_id" json:"-"`
	Image       *UserImage    `bun:"rel:has-one,join:id=user_id" json:"image,omitempty"`
	Sessions    []*Session    `bun:"rel:has-many,join:id=user_id" json:"-"`
	Connections []*Connection `bun:"rel:has-many,join:id=user_id" json:"connections,omitempty"`
	Notes       []*Note       `bun:"rel:has-many,join:id=owner_id" json:"notes,omitempty"`
	Roles       []*Role       `bun:"m2m:role_users,join:User=Role" json:"roles,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Normalize lowercases the unique identity columns
func (u *User) Normalize() *User {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	return u
}

// Password holds the bcrypt hash for a user. One row per user; absent when
// the user only authenticates through a connection.
type Password struct {
	bun.BaseModel `bun:"table:passwords,alias:pwd"`
	UserID        uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	Hash          string    `bun:"hash,notnull" json:"-"`
}

// Session is a server side login session. Expiry is checked lazily at
// resolution time, expired rows are removed by logout or an external sweep.
type Session struct {
	bun.BaseModel  `bun:"table:sessions,alias:ses"`
	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	ExpirationDate time.Time `bun:"expiration_date,notnull" json:"expiration_date,omitempty"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the session is past its expiration instant
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpirationDate)
}

// Connection links an external identity provider account to a local user.
// (provider, provider_user_id) is globally unique.
type Connection struct {
	bun.BaseModel  `bun:"table:connections,alias:con"`
	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Provider       string    `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderUserID string    `bun:"provider_user_id,notnull" json:"provider_user_id,omitempty"`
	UserID         uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Verification is a pending one time code challenge for a (target, type)
// pair. At most one live row per pair; creating a second replaces the first.
type Verification struct {
	bun.BaseModel `bun:"table:verifications,alias:vrf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Type          string     `bun:"type,notnull" json:"type,omitempty"`
	Target        string     `bun:"target,notnull" json:"target,omitempty"`
	Secret        string     `bun:"secret,notnull" json:"-"`
	Algorithm     string     `bun:"algorithm,notnull" json:"algorithm,omitempty"`
	Digits        int        `bun:"digits,notnull" json:"digits,omitempty"`
	Period        int        `bun:"period,notnull" json:"period,omitempty"`
	CharSet       string     `bun:"char_set,notnull" json:"char_set,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the record has an expiry in the past
func (v *Verification) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && now.After(*v.ExpiresAt)
}

// Role is static reference data joined to users and permissions
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name,omitempty"`
	Description   string    `bun:"description" json:"description,omitempty"`

	Permissions []*Permission `bun:"m2m:permission_roles,join:Role=Permission" json:"permissions,omitempty"`
	Users       []*User       `bun:"m2m:role_users,join:Role=User" json:"-"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Permission access scopes
const (
	// AccessOwn limits the permission to resources the user owns
	AccessOwn = "own"
	// AccessAny grants the permission on any resource of the entity
	AccessAny = "any"
)

// Permission is one (action, entity, access) capability. The triple is
// unique.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:prm"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Action        string    `bun:"action,notnull" json:"action,omitempty"`
	Entity        string    `bun:"entity,notnull" json:"entity,omitempty"`
	Access        string    `bun:"access,notnull" json:"access,omitempty"`
	Description   string    `bun:"description" json:"description,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// RoleUser joins users to roles
type RoleUser struct {
	bun.BaseModel `bun:"table:role_users,alias:rlu"`
	UserID        uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User          *User     `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	RoleID        uuid.UUID `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role          *Role     `bun:"rel:belongs-to,join:role_id=id" json:"-"`
}

// PermissionRole joins permissions to roles
type PermissionRole struct {
	bun.BaseModel `bun:"table:permission_roles,alias:prl"`
	PermissionID  uuid.UUID   `bun:"permission_id,pk,type:uuid" json:"permission_id,omitempty"`
	Permission    *Permission `bun:"rel:belongs-to,join:permission_id=id" json:"-"`
	RoleID        uuid.UUID   `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role          *Role       `bun:"rel:belongs-to,join:role_id=id" json:"-"`
}

// Note is user content, cascade deleted with its owner
type Note struct {
	bun.BaseModel `bun:"table:notes,alias:nte"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string    `bun:"title,notnull" json:"title,omitempty"`
	Content       string    `bun:"content,notnull" json:"content,omitempty"`
	OwnerID       uuid.UUID `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`

	Images []*NoteImage `bun:"rel:has-many,join:id=note_id" json:"images,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// NoteImage is an attachment blob owned by exactly one note
type NoteImage struct {
	bun.BaseModel `bun:"table:note_images,alias:nti"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AltText       string    `bun:"alt_text" json:"alt_text,omitempty"`
	ContentType   string    `bun:"content_type,notnull" json:"content_type,omitempty"`
	Blob          []byte    `bun:"blob,notnull" json:"-"`
	NoteID        uuid.UUID `bun:"note_id,notnull,type:uuid" json:"note_id,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserImage is the profile image blob, at most one per user
type UserImage struct {
	bun.BaseModel `bun:"table:user_images,alias:uim"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AltText       string    `bun:"alt_text" json:"alt_text,omitempty"`
	ContentType   string    `bun:"content_type,notnull" json:"content_type,omitempty"`
	Blob          []byte    `bun:"blob,notnull" json:"-"`
	UserID        uuid.UUID `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// RegisterModels registers the m2m join models so bun can resolve the
// relation tags. Must run before queries touch the join tables; safe to
// call more than once on the same bun.DB.
func RegisterModels(db *bun.DB) {
	db.RegisterModel((*RoleUser)(nil))
	db.RegisterModel((*PermissionRole)(nil))
}
