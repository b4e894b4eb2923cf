package hr

import (
	"path/filepath"
	"testing"

	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return store
}

func TestSQLiteStore_ResumeRoundTrip(t *testing.T) {
	store := newTestStore(t)

	r := NewResume("Ada", "ada@example.com")
	r.Skills = []string{"go", "sql"}
	r.Experience = []ExperienceEntry{
		{Company: "Acme", Position: "Engineer", StartDate: "2020-01-01", EndDate: "2022-01-01"},
	}
	gpa := 3.8
	r.Education = []EducationEntry{
		{Institution: "MIT", Degree: "BSc", FieldOfStudy: "CS", GraduationYear: 2019, GPA: &gpa},
	}

	id, err := store.CreateResume(r)
	if err != nil {
		t.Fatalf("CreateResume: %v", err)
	}

	got, err := store.GetResume(id)
	if err != nil {
		t.Fatalf("GetResume: %v", err)
	}
	if got.Name != "Ada" || got.Email != "ada@example.com" {
		t.Errorf("got %q/%q", got.Name, got.Email)
	}
	if len(got.Experience) != 1 || got.Experience[0].Company != "Acme" {
		t.Errorf("Experience = %v", got.Experience)
	}
	if len(got.Education) != 1 || got.Education[0].GPA == nil || *got.Education[0].GPA != 3.8 {
		t.Errorf("Education = %v", got.Education)
	}

	got.Summary = "Seasoned backend engineer"
	if err := store.UpdateResume(got); err != nil {
		t.Fatalf("UpdateResume: %v", err)
	}
	reloaded, _ := store.GetResume(id)
	if reloaded.Summary != "Seasoned backend engineer" {
		t.Errorf("Summary = %q", reloaded.Summary)
	}
}

func TestSQLiteStore_ListResumesBySkill(t *testing.T) {
	store := newTestStore(t)

	goDev := NewResume("Go Dev", "go@example.com")
	goDev.Skills = []string{"Go", "Docker"}
	pyDev := NewResume("Py Dev", "py@example.com")
	pyDev.Skills = []string{"Python"}
	for _, r := range []*Resume{goDev, pyDev} {
		if _, err := store.CreateResume(r); err != nil {
			t.Fatalf("CreateResume: %v", err)
		}
	}

	matches, err := store.ListResumes(ResumeFilter{Skill: "go"})
	if err != nil {
		t.Fatalf("ListResumes: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Go Dev" {
		t.Errorf("ListResumes(go) = %v, want just Go Dev", matches)
	}

	all, err := store.ListResumes(ResumeFilter{})
	if err != nil {
		t.Fatalf("ListResumes all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListResumes all: got %d, want 2", len(all))
	}
}

func TestSQLiteStore_JobRoundTripAndFilters(t *testing.T) {
	store := newTestStore(t)

	backend := NewJobDescription("Backend Engineer", "Own the API", LevelSenior)
	backend.RequiredSkills = []string{"go", "sql"}
	backend.Department = "platform"
	frontend := NewJobDescription("Frontend Engineer", "Own the UI", LevelMid)
	frontend.RequiredSkills = []string{"react"}
	frontend.Department = "product"

	for _, j := range []*JobDescription{backend, frontend} {
		if _, err := store.CreateJob(j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	got, err := store.GetJob(backend.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Title != "Backend Engineer" || got.ExperienceLevel != LevelSenior {
		t.Errorf("got %q/%q", got.Title, got.ExperienceLevel)
	}
	if len(got.RequiredSkills) != 2 {
		t.Errorf("RequiredSkills = %v", got.RequiredSkills)
	}

	senior := LevelSenior
	seniorJobs, err := store.ListJobs(JobFilter{Level: &senior})
	if err != nil {
		t.Fatalf("ListJobs senior: %v", err)
	}
	if len(seniorJobs) != 1 || seniorJobs[0].Title != "Backend Engineer" {
		t.Errorf("ListJobs senior = %v", seniorJobs)
	}

	product, err := store.ListJobs(JobFilter{Department: "product"})
	if err != nil {
		t.Fatalf("ListJobs product: %v", err)
	}
	if len(product) != 1 || product[0].Title != "Frontend Engineer" {
		t.Errorf("ListJobs product = %v", product)
	}
}

func TestSQLiteStore_FindMatchingJobs(t *testing.T) {
	store := newTestStore(t)

	platform := NewJobDescription("Platform Engineer", "Keep the lights on", LevelSenior)
	platform.RequiredSkills = []string{"go"}
	backend := NewJobDescription("Backend Engineer", "Own the API", LevelSenior)
	backend.RequiredSkills = []string{"go", "sql"}
	frontend := NewJobDescription("Frontend Engineer", "Own the UI", LevelMid)
	frontend.RequiredSkills = []string{"react"}

	for _, j := range []*JobDescription{platform, backend, frontend} {
		if _, err := store.CreateJob(j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	// postgresql is not required anywhere but is substring-related to sql.
	matches, err := store.FindMatchingJobs([]string{"go", "postgresql"}, nil, "", 0.1, 10)
	if err != nil {
		t.Fatalf("FindMatchingJobs: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (frontend filtered out): %v", len(matches), matches)
	}
	if matches[0].Job.Title != "Platform Engineer" || matches[0].MatchScore != 1.0 {
		t.Errorf("best match = %q (%v), want Platform Engineer at 1.0",
			matches[0].Job.Title, matches[0].MatchScore)
	}
	if matches[1].Job.Title != "Backend Engineer" {
		t.Errorf("second match = %q, want Backend Engineer", matches[1].Job.Title)
	}
	if matches[1].MatchScore < 0.59 || matches[1].MatchScore > 0.61 {
		t.Errorf("backend score = %v, want 0.6 (half match plus related-skill bonus)", matches[1].MatchScore)
	}

	// Raising the threshold drops the partial match.
	strict, err := store.FindMatchingJobs([]string{"go", "postgresql"}, nil, "", 0.9, 10)
	if err != nil {
		t.Fatalf("FindMatchingJobs strict: %v", err)
	}
	if len(strict) != 1 || strict[0].Job.Title != "Platform Engineer" {
		t.Errorf("strict matches = %v, want just Platform Engineer", strict)
	}

	// Level filter runs in SQL before scoring.
	mid := LevelMid
	midOnly, err := store.FindMatchingJobs([]string{"react"}, &mid, "", 0.1, 10)
	if err != nil {
		t.Fatalf("FindMatchingJobs mid: %v", err)
	}
	if len(midOnly) != 1 || midOnly[0].Job.Title != "Frontend Engineer" {
		t.Errorf("mid matches = %v, want just Frontend Engineer", midOnly)
	}
}

func TestSQLiteStore_ApplicationsAndCascade(t *testing.T) {
	store := newTestStore(t)

	resume := NewResume("Ada", "ada@example.com")
	resumeID, err := store.CreateResume(resume)
	if err != nil {
		t.Fatalf("CreateResume: %v", err)
	}
	job := NewJobDescription("Role", "desc", LevelMid)
	jobID, err := store.CreateJob(job)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	app := NewApplication(jobID, resumeID)
	appID, err := store.CreateApplication(app)
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	got, err := store.GetApplication(appID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if got.Status != ApplicationApplied {
		t.Errorf("Status = %q, want applied", got.Status)
	}
	if got.ApplicationDate.IsZero() {
		t.Error("ApplicationDate not persisted")
	}

	if !got.UpdateStatus(ApplicationInterviewing, "") {
		t.Fatal("applied -> interviewing should be allowed")
	}
	got.InterviewNotes = "solid take-home"
	if err := store.UpdateApplication(got); err != nil {
		t.Fatalf("UpdateApplication: %v", err)
	}

	interviewing := ApplicationInterviewing
	inFlight, err := store.ListApplications(ApplicationFilter{Status: &interviewing})
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(inFlight) != 1 || inFlight[0].InterviewNotes != "solid take-home" {
		t.Errorf("ListApplications = %v", inFlight)
	}

	// Deleting the resume cascades to its applications.
	if err := store.DeleteResume(resumeID); err != nil {
		t.Fatalf("DeleteResume: %v", err)
	}
	if _, err := store.GetApplication(appID); !errs.IsNotFound(err) {
		t.Errorf("GetApplication after cascade = %v, want not-found", err)
	}
}
