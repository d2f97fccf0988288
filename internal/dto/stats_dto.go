package dto

// DashboardStats summarises the whole roster.
type DashboardStats struct {
	TotalStudents      int            `json:"total_students"`
	TotalModules       int            `json:"total_modules"`
	TotalProjects      int            `json:"total_projects"`
	SubmittedProjects  int            `json:"submitted_projects"`
	PendingCorrections int            `json:"pending_corrections"`
	OverdueProjects    int            `json:"overdue_projects"`
	GradedProjects     int            `json:"graded_projects"`
	AverageGrade       float64        `json:"average_grade"`
	SubmissionRate     float64        `json:"submission_rate"`
	TotalAbsences      int            `json:"total_absences"`
	StatusDistribution map[string]int `json:"status_distribution"`
}

// ModuleStats aggregates the projects of one module.
type ModuleStats struct {
	ModuleID          string  `json:"module_id"`
	ModuleName        string  `json:"module_name"`
	Color             string  `json:"color"`
	TotalProjects     int     `json:"total_projects"`
	SubmittedProjects int     `json:"submitted_projects"`
	ValidatedProjects int     `json:"validated_projects"`
	AverageGrade      float64 `json:"average_grade"`
	SubmissionRate    float64 `json:"submission_rate"`
}

// StudentStats aggregates the projects a student takes part in.
type StudentStats struct {
	StudentID      string   `json:"student_id"`
	StudentNumber  string   `json:"student_number"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Email          string   `json:"email"`
	AbsenceCount   int      `json:"absence_count"`
	ProjectCount   int      `json:"project_count"`
	SubmittedCount int      `json:"submitted_count"`
	SubmissionRate int      `json:"submission_rate"`
	AverageGrade   *float64 `json:"average_grade"`
}
