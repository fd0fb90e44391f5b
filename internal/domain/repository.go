package domain

// Repository represents a GitHub repository belonging to an organization
type Repository struct {
	Org       string
	Name      string
	URL       string
	IsPrivate bool
}

// Team represents a GitHub organization team
type Team struct {
	Name string
	ID   int64
}
