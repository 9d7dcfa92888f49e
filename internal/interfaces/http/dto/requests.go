package dto

// IssueIdentifierRequest asks the registry for a new unique value
type IssueIdentifierRequest struct {
	EntityType string `json:"entity_type" binding:"required,oneof=listing booking lease invoice maintenance_ticket"`
	Prefix     string `json:"prefix" binding:"required,min=1,max=5,alpha,uppercase"`
}

// RevenueQuery selects stored revenue for a year and optional month
type RevenueQuery struct {
	Year  int  `form:"year" binding:"required,min=2000,max=2100"`
	Month *int `form:"month" binding:"omitempty,min=1,max=12"`
}

// CalculateRevenueRequest recomputes one month. Store defaults to true.
type CalculateRevenueRequest struct {
	Year  int   `json:"year" binding:"required,min=2000,max=2100"`
	Month int   `json:"month" binding:"required,min=1,max=12"`
	Store *bool `json:"store"`
}

// ExportQuery selects the year of a revenue export
type ExportQuery struct {
	Year int `form:"year" binding:"required,min=2000,max=2100"`
}

// RunsQuery limits the run history returned by the status endpoint
type RunsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
