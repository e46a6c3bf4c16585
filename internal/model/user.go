package model

// UserRole 由外部认证服务写入 token，本服务只读取
type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == Student || r == Admin
}
