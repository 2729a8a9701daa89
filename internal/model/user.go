package model

import (
	"time"

	"gorm.io/datatypes"
)

// 用户角色。
const (
	RoleStudent = "student"
	RoleAlumni  = "alumni"
)

// ExperienceBuckets 是允许的工作年限区间。
var ExperienceBuckets = []string{"0-1", "1-3", "3-5", "5-10", "10+"}

// User 表示系统用户（在校学生或校友）。
type User struct {
	ID        uint      `gorm:"primaryKey"` // 用户 ID
	CreatedAt time.Time // 注册时间
	UpdatedAt time.Time // 更新时间

	Name     string `gorm:"type:varchar(50);not null"`              // 姓名
	Email    string `gorm:"type:varchar(191);uniqueIndex;not null"` // 邮箱（唯一，存小写）
	Password string `gorm:"not null"`                               // bcrypt 哈希
	Role     string `gorm:"type:varchar(16);not null;index"`        // 角色: student / alumni

	GraduationYear  *int                        // 毕业年份（校友必填）
	Major           string                      `gorm:"type:varchar(100);not null"` // 专业
	ProfilePicture  string                      // 头像链接
	Bio             string                      `gorm:"type:varchar(500)"` // 个人简介
	Skills          datatypes.JSONSlice[string] // 技能列表（去重、最多 20 个）
	Experience      string                      `gorm:"type:varchar(8);default:0-1"` // 工作年限区间
	CurrentPosition string                      `gorm:"type:varchar(100)"`           // 当前职位
	Company         string                      `gorm:"type:varchar(100)"`           // 所在公司
	LinkedinProfile string                      // LinkedIn 主页链接

	IsEmailVerified        bool       `gorm:"default:false"`          // 邮箱是否已验证
	EmailVerifyToken       string     `gorm:"type:varchar(64)"`       // 邮箱验证 token
	PasswordResetToken     string     `gorm:"type:varchar(64);index"` // 密码重置 token
	PasswordResetExpiresAt *time.Time // 密码重置 token 过期时间
	LastActive             time.Time  // 最近活跃时间（登录时更新）

	Jobs []Job `gorm:"foreignKey:PostedBy"` // 发布的职位
}
