// Package repository define las interfaces de repositorio de dominio.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL o memoria).
//
// Las implementaciones concretas viven en internal/store/adapters/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│        Services (auth, registration, audit...)      │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  UserRepository, CourseRepository, AuditLogRepo...  │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	              ┌─────────┴─────────┐
//	              ▼                   ▼
//	       ┌─────────────┐     ┌─────────────┐
//	       │  adapters/  │     │  adapters/  │
//	       │     pg      │     │   memory    │
//	       └─────────────┘     └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Las entidades son valores; los servicios calculan el próximo estado
//     y lo persisten vía el repositorio
//   - Escrituras condicionadas devuelven ErrPreconditionFailed
//   - Errores de dominio están en errors.go
package repository
