package authz

// WildcardClaim 通配claim，controller或action级别均可使用
const WildcardClaim = "*"

// AuthControllerName 内置认证controller的名字
const AuthControllerName = "auth"

// 认证controller下已登录用户始终可用的action（改密、登出）
var authAlwaysAllowedActions = map[string]bool{
	"changepassword": true,
	"logout":         true,
}

// Authorize 判定会话claim是否允许调用 (controller, action)。
// 纯claim查找，按顺序首个命中即放行：
//  1. 持有"*"claim（租户会话在签发时即被授予）
//  2. 认证controller的固定放行action
//  3. claims[controller] 包含action或"*"
//
// 租户会话的"*"claim在创建会话时授予，本函数不感知会话身份。
func Authorize(claims map[string][]string, controller, action string) bool {
	if _, ok := claims[WildcardClaim]; ok {
		return true
	}

	if controller == AuthControllerName && authAlwaysAllowedActions[action] {
		return true
	}

	actions, ok := claims[controller]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action || a == WildcardClaim {
			return true
		}
	}
	return false
}
