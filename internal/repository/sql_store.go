package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

type studentRecord struct {
	ID            string `gorm:"primaryKey;size:64"`
	FirstName     string `gorm:"size:255;not null"`
	LastName      string `gorm:"size:255;not null;index"`
	Email         string `gorm:"size:255"`
	StudentNumber string `gorm:"size:64"`
	Photo         string `gorm:"type:text"`
	AbsenceCount  int    `gorm:"not null;default:0"`
}

func (studentRecord) TableName() string { return "students" }

type moduleRecord struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:255;not null;index"`
	Description string `gorm:"type:text"`
	Color       string `gorm:"size:16"`
}

func (moduleRecord) TableName() string { return "modules" }

type projectRecord struct {
	ID             string          `gorm:"primaryKey;size:64"`
	ModuleID       string          `gorm:"size:64;index"`
	Name           string          `gorm:"size:255;not null"`
	Description    string          `gorm:"type:text"`
	Deadline       datatypes.Date  `gorm:"not null"`
	StudentIDs     datatypes.JSON  `gorm:"type:json"`
	Status         string          `gorm:"size:64;not null"`
	TrackingType   string          `gorm:"size:32;not null"`
	StepStatus     string          `gorm:"size:64"`
	SubmissionDate *datatypes.Date
	Grade          *float64
	Comments       string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (projectRecord) TableName() string { return "projects" }

// SQLStore persists the roster in relational tables through GORM.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore builds the store and migrates its tables.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&studentRecord{}, &moduleRecord{}, &projectRecord{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

// Name implements Store.
func (s *SQLStore) Name() string { return "sql" }

// Close implements Store.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Students implements Store.
func (s *SQLStore) Students() StudentRepository { return sqlStudents{s} }

// Modules implements Store.
func (s *SQLStore) Modules() ModuleRepository { return sqlModules{s} }

// Projects implements Store.
func (s *SQLStore) Projects() ProjectRepository { return sqlProjects{s} }

func upsertAll(db *gorm.DB, value interface{}) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(value).Error
}

func deleteByID(db *gorm.DB, model interface{}, id string) error {
	result := db.Where("id = ?", id).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type sqlStudents struct{ s *SQLStore }

func (r sqlStudents) List(ctx context.Context) ([]models.Student, error) {
	var records []studentRecord
	if err := r.s.db.WithContext(ctx).Order("LOWER(last_name) ASC").Order("LOWER(first_name) ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	students := make([]models.Student, 0, len(records))
	for _, record := range records {
		students = append(students, record.toModel())
	}
	return students, nil
}

func (r sqlStudents) Get(ctx context.Context, id string) (models.Student, error) {
	var record studentRecord
	if err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return models.Student{}, mapNotFound(err)
	}
	return record.toModel(), nil
}

func (r sqlStudents) Save(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	record := newStudentRecord(*student)
	return upsertAll(r.s.db.WithContext(ctx), &record)
}

func (r sqlStudents) Delete(ctx context.Context, id string) error {
	return deleteByID(r.s.db.WithContext(ctx), &studentRecord{}, id)
}

func newStudentRecord(student models.Student) studentRecord {
	return studentRecord{
		ID:            student.ID,
		FirstName:     student.FirstName,
		LastName:      student.LastName,
		Email:         student.Email,
		StudentNumber: student.StudentNumber,
		Photo:         student.Photo,
		AbsenceCount:  int(models.NormalizeAbsence(student.AbsenceCount)),
	}
}

func (r studentRecord) toModel() models.Student {
	return models.Student{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		StudentNumber: r.StudentNumber,
		Photo:         r.Photo,
		AbsenceCount:  models.NormalizeAbsence(r.AbsenceCount),
	}
}

type sqlModules struct{ s *SQLStore }

func (r sqlModules) List(ctx context.Context) ([]models.Module, error) {
	var records []moduleRecord
	if err := r.s.db.WithContext(ctx).Order("LOWER(name) ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	modules := make([]models.Module, 0, len(records))
	for _, record := range records {
		modules = append(modules, record.toModel())
	}
	return modules, nil
}

func (r sqlModules) Get(ctx context.Context, id string) (models.Module, error) {
	var record moduleRecord
	if err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return models.Module{}, mapNotFound(err)
	}
	return record.toModel(), nil
}

func (r sqlModules) Save(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	module.Normalize()
	record := moduleRecord{ID: module.ID, Name: module.Name, Description: module.Description, Color: module.Color}
	return upsertAll(r.s.db.WithContext(ctx), &record)
}

func (r sqlModules) Delete(ctx context.Context, id string) error {
	return deleteByID(r.s.db.WithContext(ctx), &moduleRecord{}, id)
}

func (r moduleRecord) toModel() models.Module {
	module := models.Module{ID: r.ID, Name: r.Name, Description: r.Description, Color: r.Color}
	module.Normalize()
	return module
}

type sqlProjects struct{ s *SQLStore }

func (r sqlProjects) List(ctx context.Context) ([]models.Project, error) {
	var records []projectRecord
	if err := r.s.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(records))
	for _, record := range records {
		projects = append(projects, record.toModel())
	}
	return projects, nil
}

func (r sqlProjects) Get(ctx context.Context, id string) (models.Project, error) {
	var record projectRecord
	if err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return models.Project{}, mapNotFound(err)
	}
	return record.toModel(), nil
}

func (r sqlProjects) Save(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	stampProject(project, r.s.now())
	record, err := newProjectRecord(*project)
	if err != nil {
		return err
	}
	return upsertAll(r.s.db.WithContext(ctx), &record)
}

func (r sqlProjects) Delete(ctx context.Context, id string) error {
	return deleteByID(r.s.db.WithContext(ctx), &projectRecord{}, id)
}

func newProjectRecord(project models.Project) (projectRecord, error) {
	ids, err := json.Marshal(project.StudentIDs)
	if err != nil {
		return projectRecord{}, err
	}

	record := projectRecord{
		ID:           project.ID,
		ModuleID:     project.ModuleID,
		Name:         project.Name,
		Description:  project.Description,
		Deadline:     datatypes.Date(models.DateOnly(project.Deadline)),
		StudentIDs:   datatypes.JSON(ids),
		Status:       string(project.Status),
		TrackingType: string(project.TrackingType),
		StepStatus:   string(project.StepStatus),
		Grade:        project.Grade,
		Comments:     project.Comments,
		CreatedAt:    project.CreatedAt,
		UpdatedAt:    project.UpdatedAt,
	}
	if project.SubmissionDate != nil {
		submitted := datatypes.Date(models.DateOnly(*project.SubmissionDate))
		record.SubmissionDate = &submitted
	}
	return record, nil
}

func (r projectRecord) toModel() models.Project {
	var studentIDs []string
	if len(r.StudentIDs) > 0 {
		_ = json.Unmarshal(r.StudentIDs, &studentIDs)
	}

	project := models.Project{
		ID:           r.ID,
		ModuleID:     r.ModuleID,
		Name:         r.Name,
		Description:  r.Description,
		Deadline:     models.DateOnly(time.Time(r.Deadline)),
		StudentIDs:   studentIDs,
		Status:       models.ProjectStatus(r.Status),
		TrackingType: models.TrackingType(r.TrackingType),
		StepStatus:   models.StepStatus(r.StepStatus),
		Grade:        r.Grade,
		Comments:     r.Comments,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.SubmissionDate != nil {
		submitted := models.DateOnly(time.Time(*r.SubmissionDate))
		project.SubmissionDate = &submitted
	}
	project.Normalize()
	return project
}
