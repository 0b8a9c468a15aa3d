package appraisal

import "strings"

type Role string

const (
	RoleDeveloper           Role = "DEVELOPER"
	RoleRequirementEngineer Role = "REQUIREMENT_ENGINEER"
	RoleManager             Role = "MANAGER"
)

var Roles = []Role{RoleDeveloper, RoleRequirementEngineer, RoleManager}

// ParseRole accepts the canonical names and the short forms used by the
// dashboard (USER, DEV, RE). Matching is case-insensitive.
func ParseRole(value string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEVELOPER", "DEV", "USER":
		return RoleDeveloper, nil
	case "REQUIREMENT_ENGINEER", "REQUIREMENTENGINEER", "RE":
		return RoleRequirementEngineer, nil
	case "MANAGER":
		return RoleManager, nil
	}
	return "", &InvalidRoleError{Value: value}
}

func (r Role) Valid() bool {
	switch r {
	case RoleDeveloper, RoleRequirementEngineer, RoleManager:
		return true
	}
	return false
}

const (
	CategoryAll                  = "All"
	CategoryCommunication        = "Communication"
	CategoryUserStoryQuality     = "User_Story_Quality"
	CategoryTimeManagement       = "Time_Management"
	CategoryTechnicalProficiency = "Technical_Proficiency"
)

var Categories = []string{
	CategoryCommunication,
	CategoryUserStoryQuality,
	CategoryTimeManagement,
	CategoryTechnicalProficiency,
}

const (
	LikertMin = 1
	LikertMax = 5
)

var likertLabels = map[int]string{
	1: "Needs Improvement",
	2: "Below Expectations",
	3: "Meets Expectations",
	4: "Exceeds Expectations",
	5: "Excellent",
}

// LikertLabel returns the display label for a score, or "" when out of range.
func LikertLabel(score int) string {
	return likertLabels[score]
}
