// Package rbac отвечает на вопрос "может ли роль выполнить действие над ресурсом".
// Таблица разрешений фиксирована при старте процесса: ни наследования ролей,
// ни wildcard - каждое разрешение перечислено у роли явно.
package rbac

import (
	"cubcen/auth-service/internal/app/auth/entity"
)

// Ресурсы дашборда
const (
	ResourceAgents    = "agents"
	ResourceTasks     = "tasks"
	ResourcePlatforms = "platforms"
	ResourceAnalytics = "analytics"
	ResourceErrors    = "errors"
	ResourceUsers     = "users"
)

// Действия
const (
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionExecute = "execute"
)

func perms(resource string, actions ...string) []entity.Permission {
	out := make([]entity.Permission, 0, len(actions))
	for _, a := range actions {
		out = append(out, entity.Permission{Resource: resource, Action: a})
	}
	return out
}

func concat(groups ...[]entity.Permission) []entity.Permission {
	var out []entity.Permission
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var rolePermissions = map[entity.Role][]entity.Permission{
	entity.RoleAdmin: concat(
		perms(ResourceAgents, ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExecute),
		perms(ResourceTasks, ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExecute),
		perms(ResourcePlatforms, ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		perms(ResourceAnalytics, ActionRead),
		perms(ResourceErrors, ActionRead),
		perms(ResourceUsers, ActionCreate, ActionRead, ActionUpdate, ActionDelete),
	),
	entity.RoleOperator: concat(
		perms(ResourceAgents, ActionRead, ActionUpdate, ActionExecute),
		perms(ResourceTasks, ActionCreate, ActionRead, ActionUpdate, ActionExecute),
		perms(ResourcePlatforms, ActionRead),
		perms(ResourceAnalytics, ActionRead),
		perms(ResourceErrors, ActionRead),
	),
	entity.RoleViewer: concat(
		perms(ResourceAgents, ActionRead),
		perms(ResourceTasks, ActionRead),
		perms(ResourcePlatforms, ActionRead),
		perms(ResourceAnalytics, ActionRead),
	),
}

// HasPermission - линейный поиск пары (resource, action) в списке роли.
// Неизвестная роль не имеет разрешений.
func HasPermission(role entity.Role, resource, action string) bool {
	for _, p := range rolePermissions[role] {
		if p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}

// PermissionsFor возвращает копию списка разрешений роли в порядке объявления
func PermissionsFor(role entity.Role) []entity.Permission {
	list := rolePermissions[role]
	out := make([]entity.Permission, len(list))
	copy(out, list)
	return out
}
