// Package models contains GORM persistence models that map to database tables.
// Domain entities carry no GORM tags; each model converts to and from its
// entity with ToDomain and a *FromDomain constructor.
//
// Structure:
//   - base.go: BaseModel and the AutoMigrate list
//   - identifier.go: identifier_records
//   - property.go: landlords, listings, bookings, maintenance_tickets
//   - tenancy.go: leases, invoices
//   - revenue.go: monthly_revenue
//   - run.go: reconciliation_runs
package models
