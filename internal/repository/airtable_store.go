package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/pkg/airtable"
)

// Airtable table names.
const (
	AirtableStudentsTable = "Students"
	AirtableProjectsTable = "Projects"
	AirtableModulesTable  = "Modules"
)

const airtableDateLayout = "2006-01-02"

// AirtableClient is the subset of the REST client the store relies on.
type AirtableClient interface {
	List(ctx context.Context, table string) ([]airtable.Record, error)
	Get(ctx context.Context, table, id string) (airtable.Record, error)
	Create(ctx context.Context, table string, fields ...map[string]interface{}) ([]airtable.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]interface{}) (airtable.Record, error)
	Delete(ctx context.Context, table, id string) error
}

// AirtableStore maps the roster onto three Airtable tables.
type AirtableStore struct {
	client AirtableClient
	now    func() time.Time
}

// NewAirtableStore wraps a client.
func NewAirtableStore(client AirtableClient) *AirtableStore {
	return &AirtableStore{client: client, now: time.Now}
}

// Name implements Store.
func (s *AirtableStore) Name() string { return "airtable" }

// Close implements Store.
func (s *AirtableStore) Close() error { return nil }

// Students implements Store.
func (s *AirtableStore) Students() StudentRepository { return airtableStudents{s} }

// Modules implements Store.
func (s *AirtableStore) Modules() ModuleRepository { return airtableModules{s} }

// Projects implements Store.
func (s *AirtableStore) Projects() ProjectRepository { return airtableProjects{s} }

// isAirtableID reports whether the id was assigned by Airtable.
func isAirtableID(id string) bool {
	return strings.HasPrefix(id, "rec")
}

func (s *AirtableStore) save(ctx context.Context, table, id string, fields map[string]interface{}) (string, error) {
	if isAirtableID(id) {
		if _, err := s.client.Update(ctx, table, id, fields); err != nil {
			if airtable.IsNotFound(err) {
				return "", ErrNotFound
			}
			return "", err
		}
		return id, nil
	}

	created, err := s.client.Create(ctx, table, fields)
	if err != nil {
		return "", err
	}
	if len(created) == 0 {
		return "", fmt.Errorf("airtable returned no record for %s", table)
	}
	return created[0].ID, nil
}

func (s *AirtableStore) get(ctx context.Context, table, id string) (airtable.Record, error) {
	if !isAirtableID(id) {
		return airtable.Record{}, ErrNotFound
	}
	record, err := s.client.Get(ctx, table, id)
	if airtable.IsNotFound(err) {
		return airtable.Record{}, ErrNotFound
	}
	return record, err
}

func (s *AirtableStore) delete(ctx context.Context, table, id string) error {
	if !isAirtableID(id) {
		return ErrNotFound
	}
	err := s.client.Delete(ctx, table, id)
	if airtable.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// SaveRoster bulk-creates a roster in batches and rewrites project links to
// the record ids Airtable assigned to modules and students.
func (s *AirtableStore) SaveRoster(ctx context.Context, roster *models.Roster) error {
	studentIDs := make(map[string]string, len(roster.Students))
	studentFields := make([]map[string]interface{}, 0, len(roster.Students))
	for _, student := range roster.Students {
		studentFields = append(studentFields, studentToFields(student))
	}
	created, err := s.createBatched(ctx, AirtableStudentsTable, studentFields)
	if err != nil {
		return err
	}
	for i := range roster.Students {
		studentIDs[roster.Students[i].ID] = created[i]
		roster.Students[i].ID = created[i]
	}

	moduleIDs := make(map[string]string, len(roster.Modules))
	moduleFields := make([]map[string]interface{}, 0, len(roster.Modules))
	for i := range roster.Modules {
		roster.Modules[i].Normalize()
		moduleFields = append(moduleFields, moduleToFields(roster.Modules[i]))
	}
	created, err = s.createBatched(ctx, AirtableModulesTable, moduleFields)
	if err != nil {
		return err
	}
	for i := range roster.Modules {
		moduleIDs[roster.Modules[i].ID] = created[i]
		roster.Modules[i].ID = created[i]
	}

	now := s.now()
	projectFields := make([]map[string]interface{}, 0, len(roster.Projects))
	for i := range roster.Projects {
		project := &roster.Projects[i]
		if mapped, ok := moduleIDs[project.ModuleID]; ok {
			project.ModuleID = mapped
		}
		linked := make([]string, 0, len(project.StudentIDs))
		for _, id := range project.StudentIDs {
			if mapped, ok := studentIDs[id]; ok {
				linked = append(linked, mapped)
			} else if isAirtableID(id) {
				linked = append(linked, id)
			}
		}
		project.StudentIDs = linked
		stampProject(project, now)
		projectFields = append(projectFields, projectToFields(*project))
	}
	created, err = s.createBatched(ctx, AirtableProjectsTable, projectFields)
	if err != nil {
		return err
	}
	for i := range roster.Projects {
		roster.Projects[i].ID = created[i]
	}
	return nil
}

func (s *AirtableStore) createBatched(ctx context.Context, table string, fields []map[string]interface{}) ([]string, error) {
	ids := make([]string, 0, len(fields))
	for start := 0; start < len(fields); start += airtable.MaxBatchSize {
		end := start + airtable.MaxBatchSize
		if end > len(fields) {
			end = len(fields)
		}
		records, err := s.client.Create(ctx, table, fields[start:end]...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s batch: %w", table, err)
		}
		if len(records) != end-start {
			return nil, fmt.Errorf("airtable created %d of %d %s records", len(records), end-start, table)
		}
		for _, record := range records {
			ids = append(ids, record.ID)
		}
	}
	return ids, nil
}

type airtableStudents struct{ s *AirtableStore }

func (r airtableStudents) List(ctx context.Context) ([]models.Student, error) {
	records, err := r.s.client.List(ctx, AirtableStudentsTable)
	if err != nil {
		return nil, err
	}
	students := make([]models.Student, 0, len(records))
	for _, record := range records {
		students = append(students, studentFromRecord(record))
	}
	sortStudents(students)
	return students, nil
}

func (r airtableStudents) Get(ctx context.Context, id string) (models.Student, error) {
	record, err := r.s.get(ctx, AirtableStudentsTable, id)
	if err != nil {
		return models.Student{}, err
	}
	return studentFromRecord(record), nil
}

func (r airtableStudents) Save(ctx context.Context, student *models.Student) error {
	id, err := r.s.save(ctx, AirtableStudentsTable, student.ID, studentToFields(*student))
	if err != nil {
		return err
	}
	student.ID = id
	return nil
}

func (r airtableStudents) Delete(ctx context.Context, id string) error {
	return r.s.delete(ctx, AirtableStudentsTable, id)
}

type airtableModules struct{ s *AirtableStore }

func (r airtableModules) List(ctx context.Context) ([]models.Module, error) {
	records, err := r.s.client.List(ctx, AirtableModulesTable)
	if err != nil {
		return nil, err
	}
	modules := make([]models.Module, 0, len(records))
	for _, record := range records {
		modules = append(modules, moduleFromRecord(record))
	}
	sortModules(modules)
	return modules, nil
}

func (r airtableModules) Get(ctx context.Context, id string) (models.Module, error) {
	record, err := r.s.get(ctx, AirtableModulesTable, id)
	if err != nil {
		return models.Module{}, err
	}
	return moduleFromRecord(record), nil
}

func (r airtableModules) Save(ctx context.Context, module *models.Module) error {
	module.Normalize()
	id, err := r.s.save(ctx, AirtableModulesTable, module.ID, moduleToFields(*module))
	if err != nil {
		return err
	}
	module.ID = id
	return nil
}

func (r airtableModules) Delete(ctx context.Context, id string) error {
	return r.s.delete(ctx, AirtableModulesTable, id)
}

type airtableProjects struct{ s *AirtableStore }

func (r airtableProjects) List(ctx context.Context) ([]models.Project, error) {
	records, err := r.s.client.List(ctx, AirtableProjectsTable)
	if err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(records))
	for _, record := range records {
		projects = append(projects, projectFromRecord(record, r.s.now()))
	}
	sortProjects(projects)
	return projects, nil
}

func (r airtableProjects) Get(ctx context.Context, id string) (models.Project, error) {
	record, err := r.s.get(ctx, AirtableProjectsTable, id)
	if err != nil {
		return models.Project{}, err
	}
	return projectFromRecord(record, r.s.now()), nil
}

func (r airtableProjects) Save(ctx context.Context, project *models.Project) error {
	stampProject(project, r.s.now())
	id, err := r.s.save(ctx, AirtableProjectsTable, project.ID, projectToFields(*project))
	if err != nil {
		return err
	}
	project.ID = id
	return nil
}

func (r airtableProjects) Delete(ctx context.Context, id string) error {
	return r.s.delete(ctx, AirtableProjectsTable, id)
}

func studentToFields(student models.Student) map[string]interface{} {
	return map[string]interface{}{
		"firstName":     student.FirstName,
		"lastName":      student.LastName,
		"email":         student.Email,
		"studentNumber": student.StudentNumber,
		"photo":         student.Photo,
		"absenceCount":  int(models.NormalizeAbsence(student.AbsenceCount)),
	}
}

func studentFromRecord(record airtable.Record) models.Student {
	return models.Student{
		ID:            record.ID,
		FirstName:     stringField(record.Fields, "firstName"),
		LastName:      stringField(record.Fields, "lastName"),
		Email:         stringField(record.Fields, "email"),
		StudentNumber: stringField(record.Fields, "studentNumber"),
		Photo:         stringField(record.Fields, "photo"),
		AbsenceCount:  models.NormalizeAbsence(record.Fields["absenceCount"]),
	}
}

func moduleToFields(module models.Module) map[string]interface{} {
	return map[string]interface{}{
		"name":        module.Name,
		"description": module.Description,
		"color":       module.Color,
	}
}

func moduleFromRecord(record airtable.Record) models.Module {
	module := models.Module{
		ID:          record.ID,
		Name:        stringField(record.Fields, "name"),
		Description: stringField(record.Fields, "description"),
		Color:       stringField(record.Fields, "color"),
	}
	module.Normalize()
	return module
}

func projectToFields(project models.Project) map[string]interface{} {
	moduleLink := []string{}
	if project.ModuleID != "" {
		moduleLink = []string{project.ModuleID}
	}

	fields := map[string]interface{}{
		"moduleId":     moduleLink,
		"name":         project.Name,
		"description":  project.Description,
		"deadline":     project.Deadline.UTC().Format(airtableDateLayout),
		"studentIds":   project.StudentIDs,
		"status":       string(project.Status),
		"trackingType": string(project.TrackingType),
		"comments":     project.Comments,
		"createdAt":    project.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":    project.UpdatedAt.UTC().Format(time.RFC3339),
	}
	// Cleared optional values are sent as null so PATCH wipes them.
	fields["stepStatus"] = nil
	if project.StepStatus != "" {
		fields["stepStatus"] = string(project.StepStatus)
	}
	fields["submissionDate"] = nil
	if project.SubmissionDate != nil {
		fields["submissionDate"] = project.SubmissionDate.UTC().Format(airtableDateLayout)
	}
	fields["grade"] = nil
	if project.Grade != nil {
		fields["grade"] = *project.Grade
	}
	return fields
}

func projectFromRecord(record airtable.Record, now time.Time) models.Project {
	project := models.Project{
		ID:           record.ID,
		ModuleID:     firstLink(record.Fields["moduleId"]),
		Name:         stringField(record.Fields, "name"),
		Description:  stringField(record.Fields, "description"),
		StudentIDs:   stringSlice(record.Fields["studentIds"]),
		Status:       models.ProjectStatus(stringField(record.Fields, "status")),
		TrackingType: models.TrackingType(stringField(record.Fields, "trackingType")),
		StepStatus:   models.StepStatus(stringField(record.Fields, "stepStatus")),
		Comments:     stringField(record.Fields, "comments"),
	}

	project.Deadline = now
	if deadline, ok := timeField(record.Fields, "deadline"); ok {
		project.Deadline = deadline
	}
	if submitted, ok := timeField(record.Fields, "submissionDate"); ok {
		project.SubmissionDate = &submitted
	}
	if grade, ok := record.Fields["grade"].(float64); ok {
		project.Grade = &grade
	}
	project.CreatedAt = now
	if created, ok := timeField(record.Fields, "createdAt"); ok {
		project.CreatedAt = created
	}
	project.UpdatedAt = now
	if updated, ok := timeField(record.Fields, "updatedAt"); ok {
		project.UpdatedAt = updated
	}

	project.Normalize()
	return project
}

func stringField(fields map[string]interface{}, key string) string {
	if value, ok := fields[key].(string); ok {
		return value
	}
	return ""
}

func timeField(fields map[string]interface{}, key string) (time.Time, bool) {
	raw := strings.TrimSpace(stringField(fields, key))
	if raw == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(airtableDateLayout, raw); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}

func stringSlice(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return []string{}
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			result = append(result, s)
		}
	}
	return result
}

func firstLink(value interface{}) string {
	links := stringSlice(value)
	if len(links) == 0 {
		return ""
	}
	return links[0]
}
