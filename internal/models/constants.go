package models

// BookingStatus константы статусов бронирования
const (
	BookingStatusPendingAddressVerification   = "pending_address_verification"
	BookingStatusPending                      = "pending"
	BookingStatusPriceChangePending           = "price_change_pending"
	BookingStatusConfirmed                    = "confirmed"
	BookingStatusCompletedPendingVerification = "completed_pending_verification"
	BookingStatusCompleted                    = "completed"
	BookingStatusDisputed                     = "disputed"
	BookingStatusPostPaymentDispute           = "post_payment_dispute"
	BookingStatusCompletedWithIssues          = "completed_with_issues"
	BookingStatusCancelled                    = "cancelled"
)

// PaymentStatus константы статусов оплаты заказчиком
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// PayoutStatus константы статусов выплаты подрядчику
const (
	PayoutStatusPending  = "pending"
	PayoutStatusReleased = "released"
	PayoutStatusFrozen   = "frozen"
)

// VerificationStatus константы статусов проверки адреса
const (
	AddressStatusPending  = "pending"
	AddressStatusVerified = "verified"
	AddressStatusRejected = "rejected"
)

// Роли пользователей платформы
const (
	RoleCustomer   = "customer"
	RoleContractor = "contractor"
	RoleAdmin      = "admin"
)

// ApprovalStatus константы статусов допуска подрядчика
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// GrassLength допустимые значения высоты травы для расчёта цены
const (
	GrassLengthShort     = "short"
	GrassLengthLong      = "long"
	GrassLengthOvergrown = "overgrown"
)

// ValidBookingStatuses список валидных статусов бронирования
var ValidBookingStatuses = map[string]struct{}{
	BookingStatusPendingAddressVerification:   {},
	BookingStatusPending:                      {},
	BookingStatusPriceChangePending:           {},
	BookingStatusConfirmed:                    {},
	BookingStatusCompletedPendingVerification: {},
	BookingStatusCompleted:                    {},
	BookingStatusDisputed:                     {},
	BookingStatusPostPaymentDispute:           {},
	BookingStatusCompletedWithIssues:          {},
	BookingStatusCancelled:                    {},
}

// ValidGrassLengths список валидных значений высоты травы
var ValidGrassLengths = map[string]struct{}{
	GrassLengthShort:     {},
	GrassLengthLong:      {},
	GrassLengthOvergrown: {},
}

// ValidRoles список валидных ролей
var ValidRoles = map[string]struct{}{
	RoleCustomer:   {},
	RoleContractor: {},
	RoleAdmin:      {},
}

// bookingTransitions — единственная авторитетная таблица переходов жизненного
// цикла бронирования. Все проверки «можно ли перейти из A в B» идут через неё,
// статусные строки нигде больше не сравниваются вручную.
var bookingTransitions = map[string]map[string]struct{}{
	BookingStatusPendingAddressVerification: {
		BookingStatusPending:            {},
		BookingStatusPriceChangePending: {},
		BookingStatusCancelled:          {},
	},
	BookingStatusPriceChangePending: {
		BookingStatusPending:   {},
		BookingStatusCancelled: {},
	},
	BookingStatusPending: {
		BookingStatusConfirmed: {},
		BookingStatusCancelled: {},
	},
	BookingStatusConfirmed: {
		BookingStatusCompletedPendingVerification: {},
	},
	BookingStatusCompletedPendingVerification: {
		BookingStatusCompleted: {},
		BookingStatusDisputed:  {},
	},
	BookingStatusCompleted: {
		BookingStatusPostPaymentDispute: {},
	},
	BookingStatusDisputed: {
		BookingStatusCompleted:           {},
		BookingStatusCompletedWithIssues: {},
		BookingStatusCancelled:           {},
	},
	BookingStatusPostPaymentDispute: {
		BookingStatusCompleted:           {},
		BookingStatusCompletedWithIssues: {},
		BookingStatusCancelled:           {},
	},
}

// CanTransitionBooking отвечает, допустим ли переход бронирования из статуса
// from в статус to.
func CanTransitionBooking(from, to string) bool {
	targets, ok := bookingTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// IsTerminalBookingStatus отвечает, является ли статус конечным.
func IsTerminalBookingStatus(status string) bool {
	switch status {
	case BookingStatusCompleted, BookingStatusCompletedWithIssues, BookingStatusCancelled:
		return true
	}
	return false
}
