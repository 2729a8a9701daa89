package model

import (
	"time"

	"gorm.io/datatypes"
)

// 职位类型。
const (
	JobTypeFullTime   = "full-time"
	JobTypePartTime   = "part-time"
	JobTypeInternship = "internship"
	JobTypeContract   = "contract"
	JobTypeRemote     = "remote"
)

// 经验级别。
const (
	ExperienceEntry     = "entry"
	ExperienceMid       = "mid"
	ExperienceSenior    = "senior"
	ExperienceExecutive = "executive"
)

// 申请状态。状态机允许任意状态之间切换（包括从 accepted 回到 pending），
// 只校验取值合法，不强制单向推进。
const (
	ApplicationPending  = "pending"
	ApplicationReviewed = "reviewed"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Job 表示一条招聘信息。
//
// 职位由发布者（PostedBy）独占管理：只有发布者可以修改或下架。
// 下架是软删除（IsActive 置 false），记录永远不会物理删除，
// 且不提供重新上架的入口。
type Job struct {
	ID        uint      `gorm:"primaryKey"` // 职位唯一标识
	CreatedAt time.Time `gorm:"index"`      // 发布时间
	UpdatedAt time.Time // 更新时间

	Title       string `gorm:"type:varchar(100);not null"` // 职位名称
	Description string `gorm:"type:text;not null"`         // 职位描述
	Company     string `gorm:"type:varchar(100);not null"` // 公司名称
	Location    string `gorm:"type:varchar(190);not null"` // 工作地点

	JobType         string `gorm:"type:varchar(16);not null;index"`        // full-time / part-time / internship / contract / remote
	ExperienceLevel string `gorm:"type:varchar(16);default:entry;index"`   // entry / mid / senior / executive

	SalaryMin      *int64 // 薪资下限（空表示不限）
	SalaryMax      *int64 // 薪资上限（两者都有时必须 >= SalaryMin）
	SalaryCurrency string `gorm:"type:varchar(8);default:USD"` // 薪资货币

	Skills       datatypes.JSONSlice[string] // 技能要求
	Requirements datatypes.JSONSlice[string] // 任职要求
	Benefits     datatypes.JSONSlice[string] // 福利待遇

	ApplicationDeadline *time.Time `gorm:"index"`                      // 投递截止时间（创建时必须是未来时间）
	ContactEmail        string     `gorm:"type:varchar(191);not null"` // 联系邮箱
	ApplicationLink     string     // 外部投递链接（可选，http/https）

	PostedBy     uint   `gorm:"not null;index"`                  // 发布者用户 ID
	Poster       User   `gorm:"foreignKey:PostedBy"`             // 发布者
	PostedByRole string `gorm:"type:varchar(16);not null;index"` // 发布时的角色快照

	Tags     datatypes.JSONSlice[string] // 派生标签（标题词 + 公司 + 技能，小写去重）
	IsActive bool                        `gorm:"default:true;index"` // 是否在架
	Views    int64                       `gorm:"default:0"`          // 浏览次数（原子自增）

	Applications []Application `gorm:"foreignKey:JobID"` // 收到的申请
}

// Application 表示一次投递，(JobID, UserID) 为联合主键。
//
// 联合主键保证同一用户对同一职位只能投递一次，重复投递由存储层的
// 条件插入原子拒绝，而不是先查后写。
type Application struct {
	JobID  uint `gorm:"primaryKey"` // 职位 ID
	UserID uint `gorm:"primaryKey"` // 申请人 ID
	User   User `gorm:"foreignKey:UserID"`

	AppliedAt time.Time // 投递时间
	Status    string    `gorm:"type:varchar(16);default:pending"` // pending / reviewed / accepted / rejected
}
