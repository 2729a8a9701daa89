// Package validate 提供与存储无关的纯校验函数。
//
// 所有校验逻辑集中在这里，HTTP 层和持久层共用同一套判定，
// 保证无论从哪个入口写入都不会留下违反约束的记录。
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Varaprasad-34/college-job-portal/internal/model"
)

// MaxSkills 是技能列表的上限。
const MaxSkills = 20

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	linkedinRe = regexp.MustCompile(`^https://www\.linkedin\.com/in/[a-zA-Z0-9-]+/?$`)
	httpRe     = regexp.MustCompile(`^https?://.+`)
)

// FieldError 表示单个字段的校验失败。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// EmailSyntax 判断邮箱格式是否合法。
func EmailSyntax(email string) bool {
	return emailRe.MatchString(email)
}

// CollegeEmail 按角色校验邮箱域名策略。
//
// 学生必须使用以配置的校园域名结尾的邮箱；校友只要求格式合法。
func CollegeEmail(email, role, collegeDomain string) *FieldError {
	if !EmailSyntax(email) {
		return &FieldError{Field: "email", Message: "please provide a valid email address"}
	}
	if role == model.RoleStudent && !strings.HasSuffix(email, collegeDomain) {
		return &FieldError{
			Field:   "email",
			Message: fmt.Sprintf("students must use a valid %s email address", collegeDomain),
		}
	}
	return nil
}

// Role 判断角色取值是否合法。
func Role(role string) bool {
	return role == model.RoleStudent || role == model.RoleAlumni
}

// GraduationYear 校验毕业年份。
//
// 校友必填，且必须落在 [当前年份-50, 当前年份] 区间内；未来年份非法。
func GraduationYear(role string, year *int, now time.Time) *FieldError {
	if role != model.RoleAlumni {
		return nil
	}
	if year == nil {
		return &FieldError{Field: "graduationYear", Message: "graduation year is required for alumni"}
	}
	currentYear := now.Year()
	if *year > currentYear || *year < currentYear-50 {
		return &FieldError{Field: "graduationYear", Message: "please provide a valid graduation year"}
	}
	return nil
}

// ExperienceBucket 判断工作年限区间取值是否合法。
func ExperienceBucket(v string) bool {
	for _, b := range model.ExperienceBuckets {
		if v == b {
			return true
		}
	}
	return false
}

// LinkedinURL 校验 LinkedIn 主页链接；空值视为未填写，直接通过。
func LinkedinURL(u string) *FieldError {
	if u == "" {
		return nil
	}
	if !linkedinRe.MatchString(u) {
		return &FieldError{Field: "linkedinProfile", Message: "please provide a valid LinkedIn profile URL"}
	}
	return nil
}

// ApplicationURL 校验外部投递链接，必须是 http/https；空值通过。
func ApplicationURL(u string) *FieldError {
	if u == "" {
		return nil
	}
	if !httpRe.MatchString(u) {
		return &FieldError{Field: "applicationLink", Message: "please provide a valid application URL"}
	}
	return nil
}

// ContactEmail 校验联系邮箱格式。
func ContactEmail(email string) *FieldError {
	if !EmailSyntax(email) {
		return &FieldError{Field: "contactEmail", Message: "please provide a valid contact email"}
	}
	return nil
}

// SalaryRange 校验薪资区间：下限非负，上下限同时存在时上限不小于下限。
func SalaryRange(min, max *int64) *FieldError {
	if min != nil && *min < 0 {
		return &FieldError{Field: "salaryRange.min", Message: "minimum salary cannot be negative"}
	}
	if min != nil && max != nil && *max < *min {
		return &FieldError{Field: "salaryRange.max", Message: "maximum salary must be greater than minimum salary"}
	}
	return nil
}

// FutureDeadline 校验投递截止时间必须晚于当前时间；空值通过。
func FutureDeadline(t *time.Time, now time.Time) *FieldError {
	if t == nil {
		return nil
	}
	if !t.After(now) {
		return &FieldError{Field: "applicationDeadline", Message: "application deadline must be in the future"}
	}
	return nil
}

// JobType 判断职位类型取值是否合法。
func JobType(v string) bool {
	switch v {
	case model.JobTypeFullTime, model.JobTypePartTime, model.JobTypeInternship,
		model.JobTypeContract, model.JobTypeRemote:
		return true
	}
	return false
}

// ExperienceLevel 判断经验级别取值是否合法。
func ExperienceLevel(v string) bool {
	switch v {
	case model.ExperienceEntry, model.ExperienceMid, model.ExperienceSenior, model.ExperienceExecutive:
		return true
	}
	return false
}

// ApplicationStatus 判断申请状态取值是否合法。
func ApplicationStatus(v string) bool {
	switch v {
	case model.ApplicationPending, model.ApplicationReviewed,
		model.ApplicationAccepted, model.ApplicationRejected:
		return true
	}
	return false
}

// NormalizeSkills 去除首尾空白、丢弃空串、去重，并限制数量上限。
func NormalizeSkills(skills []string) ([]string, *FieldError) {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	if len(out) > MaxSkills {
		return nil, &FieldError{Field: "skills", Message: fmt.Sprintf("cannot have more than %d skills", MaxSkills)}
	}
	return out, nil
}

// DeriveTags 从标题、公司和技能派生搜索标签：全部小写并去重。
func DeriveTags(title, company string, skills []string) []string {
	raw := make([]string, 0, 8+len(skills))
	raw = append(raw, strings.Fields(strings.ToLower(title))...)
	if c := strings.TrimSpace(strings.ToLower(company)); c != "" {
		raw = append(raw, c)
	}
	for _, s := range skills {
		raw = append(raw, strings.ToLower(strings.TrimSpace(s)))
	}

	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}
