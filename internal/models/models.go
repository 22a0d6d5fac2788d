package models

import "time"

// Firestore 的 collection 名稱
const (
	CollSections           = "sections"
	CollSectionMeta        = "sectionMeta"
	CollProducts           = "products"
	CollTechnologies       = "technologies"
	CollActivities         = "activities"
	CollActivityCategories = "activityCategories"
	CollInquiries          = "inquiries"
	CollAdminLogs          = "adminLogs"
)

// 作品的公開狀態（決定訪客是否看得到）
const (
	StatusPublic  = "公開"
	StatusPrivate = "非公開"
)

// 作品的部署狀態（僅供顯示）
const (
	DeployLive    = "公開中"
	DeployNotLive = "未公開"
)

// 詢問單狀態
const (
	InquiryPending    = "pending"
	InquiryInProgress = "in_progress"
	InquiryResolved   = "resolved"
)

const (
	SenderAdmin = "admin"
	SenderUser  = "user"
)

// SectionMeta 存在 sectionMeta collection，與 sections 的 data 分開存放。
type SectionMeta struct {
	ID          string `json:"id" firestore:"-"`
	DisplayName string `json:"displayName" firestore:"displayName"`
	Type        string `json:"type" firestore:"type"`
	Order       int    `json:"order" firestore:"order"`
	Editable    bool   `json:"editable" firestore:"editable"`
	SortOrder   string `json:"sortOrder,omitempty" firestore:"sortOrder,omitempty"` // asc / desc
}

func (m *SectionMeta) SetID(id string) { m.ID = id }

type Product struct {
	ID           string    `json:"id" firestore:"-"`
	Title        string    `json:"title" firestore:"title"`
	Description  string    `json:"description" firestore:"description"`
	Image        string    `json:"image" firestore:"image"`
	Link         string    `json:"link,omitempty" firestore:"link,omitempty"`
	GithubURL    string    `json:"githubUrl,omitempty" firestore:"githubUrl,omitempty"`
	Category     string    `json:"category,omitempty" firestore:"category,omitempty"`
	Technologies []string  `json:"technologies" firestore:"technologies"`
	Status       string    `json:"status" firestore:"status"`
	DeployStatus string    `json:"deployStatus" firestore:"deployStatus"`
	CreatedYear  int       `json:"createdYear" firestore:"createdYear"`
	CreatedMonth int       `json:"createdMonth" firestore:"createdMonth"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (p *Product) SetID(id string) { p.ID = id }

// Technology 的 name 已 trim，且在寫入時檢查唯一
type Technology struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name"`
	Category  string    `json:"category,omitempty" firestore:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

func (t *Technology) SetID(id string) { t.ID = id }

// Activity 用名稱（不是 id）參照分類
type Activity struct {
	ID          string    `json:"id" firestore:"-"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	Category    string    `json:"category" firestore:"category"`
	Date        string    `json:"date,omitempty" firestore:"date,omitempty"`
	Link        string    `json:"link,omitempty" firestore:"link,omitempty"`
	Image       string    `json:"image,omitempty" firestore:"image,omitempty"`
	Order       int       `json:"order" firestore:"order"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (a *Activity) SetID(id string) { a.ID = id }

type ActivityCategory struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name"`
	Order     int       `json:"order" firestore:"order"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (c *ActivityCategory) SetID(id string) { c.ID = id }

type Reply struct {
	ID         string    `json:"id" firestore:"id"`
	Message    string    `json:"message" firestore:"message"`
	SenderType string    `json:"senderType" firestore:"senderType"`
	SenderName string    `json:"senderName" firestore:"senderName"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}

type Inquiry struct {
	ID           string    `json:"id" firestore:"-"`
	Category     string    `json:"category" firestore:"category"`
	Subject      string    `json:"subject" firestore:"subject"`
	Message      string    `json:"message" firestore:"message"`
	ContactName  string    `json:"contactName" firestore:"contactName"`
	ContactEmail string    `json:"contactEmail" firestore:"contactEmail"`
	Status       string    `json:"status" firestore:"status"`
	Replies      []Reply   `json:"replies" firestore:"replies"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (i *Inquiry) SetID(id string) { i.ID = id }

type AdminLog struct {
	ID        string         `json:"id" firestore:"-"`
	Action    string         `json:"action" firestore:"action"`
	Entity    string         `json:"entity,omitempty" firestore:"entity,omitempty"`
	EntityID  string         `json:"entityId,omitempty" firestore:"entityId,omitempty"`
	UserID    string         `json:"userId,omitempty" firestore:"userId,omitempty"`
	UserEmail string         `json:"userEmail,omitempty" firestore:"userEmail,omitempty"`
	Details   map[string]any `json:"details,omitempty" firestore:"details,omitempty"`
	Level     string         `json:"level,omitempty" firestore:"level,omitempty"` // info / warn / error
	CreatedAt time.Time      `json:"createdAt" firestore:"createdAt"`
}

func (l *AdminLog) SetID(id string) { l.ID = id }
