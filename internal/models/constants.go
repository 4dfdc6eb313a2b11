package models

// Статусы задания
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// ValidTaskStatuses содержит все допустимые статусы задания.
var ValidTaskStatuses = map[string]struct{}{
	TaskStatusOpen:       {},
	TaskStatusInProgress: {},
	TaskStatusCompleted:  {},
	TaskStatusCancelled:  {},
}

// validTaskTransitions описывает граф переходов статусов задания.
// Терминальные статусы (completed, cancelled) переходов не имеют.
var validTaskTransitions = map[string]map[string]struct{}{
	TaskStatusOpen: {
		TaskStatusInProgress: {},
		TaskStatusCancelled:  {},
	},
	TaskStatusInProgress: {
		TaskStatusCompleted: {},
		TaskStatusCancelled: {},
	},
	TaskStatusCompleted: {},
	TaskStatusCancelled: {},
}

// CanTransitionTask проверяет, разрешён ли переход статуса задания from -> to.
func CanTransitionTask(from, to string) bool {
	next, ok := validTaskTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// IsTerminalTaskStatus возвращает true для статусов без исходящих переходов.
func IsTerminalTaskStatus(status string) bool {
	return len(validTaskTransitions[status]) == 0
}

// Статусы отклика
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// ValidBidStatuses содержит все допустимые статусы отклика.
var ValidBidStatuses = map[string]struct{}{
	BidStatusPending:  {},
	BidStatusAccepted: {},
	BidStatusRejected: {},
}

// Категории заданий
const (
	TaskCategoryCleaning     = "cleaning"
	TaskCategoryRepair       = "repair"
	TaskCategoryDelivery     = "delivery"
	TaskCategoryPlumbing     = "plumbing"
	TaskCategoryElectrical   = "electrical"
	TaskCategoryPainting     = "painting"
	TaskCategoryGardening    = "gardening"
	TaskCategoryMoving       = "moving"
	TaskCategoryAssembly     = "assembly"
	TaskCategoryInstallation = "installation"
	TaskCategoryOther        = "other"
)

// ValidTaskCategories содержит все допустимые категории заданий.
var ValidTaskCategories = map[string]struct{}{
	TaskCategoryCleaning:     {},
	TaskCategoryRepair:       {},
	TaskCategoryDelivery:     {},
	TaskCategoryPlumbing:     {},
	TaskCategoryElectrical:   {},
	TaskCategoryPainting:     {},
	TaskCategoryGardening:    {},
	TaskCategoryMoving:       {},
	TaskCategoryAssembly:     {},
	TaskCategoryInstallation: {},
	TaskCategoryOther:        {},
}

// Кто предоставляет инвентарь для задания
const (
	EquipmentByCustomer = "customer"
	EquipmentByWorker   = "worker"
)

// ValidEquipmentProviders содержит допустимые значения provided_by.
var ValidEquipmentProviders = map[string]struct{}{
	EquipmentByCustomer: {},
	EquipmentByWorker:   {},
}

// Роли пользователей
const (
	RoleCustomer = "customer"
	RoleWorker   = "worker"
)

// ValidRoles содержит все допустимые роли.
var ValidRoles = map[string]struct{}{
	RoleCustomer: {},
	RoleWorker:   {},
}
