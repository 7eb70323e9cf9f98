package role

import (
	"fmt"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

var crudResources = []struct {
	resource string
	noun     string
}{
	{"users", "usuarios"},
	{"roles", "roles"},
	{"clients", "clientes"},
	{"vehicles", "vehículos"},
	{"drivers", "conductores"},
	{"orders", "pedidos"},
}

var actionVerbs = []struct {
	action string
	verb   string
}{
	{"create", "Crear"},
	{"read", "Ver"},
	{"update", "Actualizar"},
	{"delete", "Eliminar"},
}

// PermissionName is the catalog naming scheme: <resource>_<action>.
func PermissionName(resource, action string) string {
	return resource + "_" + action
}

// DefaultPermissions returns the built-in catalog in a stable order.
func DefaultPermissions() []types.NewPermissionParams {
	perms := make([]types.NewPermissionParams, 0, len(crudResources)*len(actionVerbs)+1)
	for _, res := range crudResources {
		for _, act := range actionVerbs {
			perms = append(perms, types.NewPermissionParams{
				Name:        PermissionName(res.resource, act.action),
				Resource:    res.resource,
				Action:      act.action,
				Description: fmt.Sprintf("%s %s", act.verb, res.noun),
			})
		}
	}
	return append(perms, types.NewPermissionParams{
		Name:        PermissionName("reports", "read"),
		Resource:    "reports",
		Action:      "read",
		Description: "Ver reportes",
	})
}
