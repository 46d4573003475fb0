package repository

import "context"

// Repositories agrupa los repositorios que comparten una misma conexión
// o transacción.
type Repositories interface {
	Users() UserRepository
	Sessions() SessionRepository
	Courses() CourseRepository
	Registrations() RegistrationRepository
	Policies() PolicyRepository
	AuditLogs() AuditLogRepository
}

// DataAccess expone los repositorios fuera de transacción y la capacidad
// de ejecutar un bloque de forma atómica.
type DataAccess interface {
	Repositories

	// WithTx ejecuta fn dentro de una transacción. Si fn devuelve error
	// (o hace panic) se hace rollback de todo lo escrito vía tx.
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
}
