// Package authz 集中计算请求者对资源的能力，
// 读路径和写路径使用同一套规则，避免各接口各写一份漂移。
package authz

import "github.com/Welazure/Item-trade-backend/internal/models"

// Capability 请求者对某个资源的能力级别
type Capability int

const (
	None Capability = iota
	Owner
	Booker
	Admin
)

// For 统一的能力判定：管理员 > 所有者 > 预订者。
// 资源没有第二参与方时 bookerID 传 0。
func For(actorID uint, role models.Role, ownerID, bookerID uint) Capability {
	if role.IsAdmin() {
		return Admin
	}
	if actorID == ownerID {
		return Owner
	}
	if bookerID != 0 && actorID == bookerID {
		return Booker
	}
	return None
}

// Allowed reports whether the capability grants any access at all.
func (c Capability) Allowed() bool { return c != None }
