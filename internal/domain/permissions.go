package domain

// Action names an operation guarded by role.
type Action string

const (
	ActionTicketCreate          Action = "ticket:create"
	ActionTicketReadAny         Action = "ticket:read-any"
	ActionTicketUpdateAny       Action = "ticket:update-any"
	ActionTicketRespondAny      Action = "ticket:respond-any"
	ActionTicketRespondInternal Action = "ticket:respond-internal"
	ActionTicketViewInternal    Action = "ticket:view-internal"
	ActionTicketAssign          Action = "ticket:assign"
	ActionTicketDelete          Action = "ticket:delete"
	ActionUserManage            Action = "user:manage"
	ActionUserTicketsAny        Action = "user:tickets-any"
	ActionStaffDirectory        Action = "staff:directory"
)

// Permissions maps each role to the actions it may perform regardless of
// ownership. Owner-only rules (own tickets, own profile) live in services.
var Permissions = map[Role]map[Action]bool{
	RoleUser: {
		ActionTicketCreate: true,
	},
	RoleSupport: {
		ActionTicketCreate:          true,
		ActionTicketReadAny:         true,
		ActionTicketUpdateAny:       true,
		ActionTicketRespondAny:      true,
		ActionTicketRespondInternal: true,
		ActionTicketViewInternal:    true,
		ActionTicketAssign:          true,
		ActionUserTicketsAny:        true,
		ActionStaffDirectory:        true,
	},
	RoleAdmin: {
		ActionTicketCreate:          true,
		ActionTicketReadAny:         true,
		ActionTicketUpdateAny:       true,
		ActionTicketRespondAny:      true,
		ActionTicketRespondInternal: true,
		ActionTicketViewInternal:    true,
		ActionTicketAssign:          true,
		ActionTicketDelete:          true,
		ActionUserManage:            true,
		ActionUserTicketsAny:        true,
		ActionStaffDirectory:        true,
	},
}

// Can reports whether the role is granted action.
func (r Role) Can(action Action) bool {
	return Permissions[r][action]
}
