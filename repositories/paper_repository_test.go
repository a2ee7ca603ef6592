package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-tracker/models"
)

// Läuft nur gegen eine echte Datenbank: TEST_DATABASE_URL=postgres://... go test ./repositories
type PaperRepositorySuite struct {
	suite.Suite
	db   *gorm.DB
	repo PaperRepository
	ctx  context.Context
}

func TestPaperRepositorySuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, &PaperRepositorySuite{})
}

func (s *PaperRepositorySuite) SetupSuite() {
	db, err := gorm.Open(postgres.Open(os.Getenv("TEST_DATABASE_URL")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(db.Migrator().DropTable(&models.Paper{}))
	s.Require().NoError(Migrate(db))
	s.db = db
	s.repo = NewPaperRepository(db)
	s.ctx = context.Background()
}

func (s *PaperRepositorySuite) SetupTest() {
	s.Require().NoError(s.db.Exec("DELETE FROM papers").Error)
}

func (s *PaperRepositorySuite) newPaper(name string, status models.Status) *models.Paper {
	p := &models.Paper{
		ID:        uuid.NewString(),
		Name:      name,
		PDFLink:   "https://x/" + name + ".pdf",
		Deadline:  models.MustDate("2024-01-01"),
		Status:    status,
		DateAdded: models.NewDate(time.Now()),
	}
	s.Require().NoError(s.repo.Create(s.ctx, p))
	return p
}

func (s *PaperRepositorySuite) TestListNewestFirst() {
	first := s.newPaper("first", models.StatusCurrent)
	time.Sleep(10 * time.Millisecond)
	second := s.newPaper("second", models.StatusFuture)

	papers, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(papers, 2)
	s.Equal(second.ID, papers[0].ID)
	s.Equal(first.ID, papers[1].ID)
	s.Equal("2024-01-01", papers[0].Deadline.String())
	s.Nil(papers[0].ReviewFile)
}

func (s *PaperRepositorySuite) TestMergeUpdateStatusOnly() {
	p := s.newPaper("merge", models.StatusCurrent)
	summary := "keep me"
	s.Require().NoError(s.repo.Update(s.ctx, p.ID, models.PaperPatch{Summary: &summary}))

	status := models.StatusFuture
	s.Require().NoError(s.repo.Update(s.ctx, p.ID, models.PaperPatch{Status: &status}))

	got, err := s.repo.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFuture, got.Status)
	s.Require().NotNil(got.Summary)
	s.Equal("keep me", *got.Summary)
	s.Equal(p.Name, got.Name)
	s.Equal(p.PDFLink, got.PDFLink)
	s.Equal(p.Deadline.String(), got.Deadline.String())
}

func (s *PaperRepositorySuite) TestReviewFileRoundTrip() {
	p := s.newPaper("file", models.StatusCurrent)
	status := models.StatusCompleted
	artifact := &models.ReviewArtifact{Name: "r.pdf", URL: "https://blob/r.pdf", ContentType: "application/pdf", Key: "reviews/" + p.ID + "/1_r.pdf"}
	s.Require().NoError(s.repo.Update(s.ctx, p.ID, models.PaperPatch{Status: &status, ReviewFile: artifact}))

	got, err := s.repo.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(artifact, got.ReviewFile)

	completed, err := s.repo.ListByStatus(s.ctx, models.StatusCompleted)
	s.Require().NoError(err)
	s.Len(completed, 1)
}

func (s *PaperRepositorySuite) TestNotFound() {
	status := models.StatusFuture
	err := s.repo.Update(s.ctx, "missing", models.PaperPatch{Status: &status})
	s.True(models.IsNotFound(err))

	_, err = s.repo.GetByID(s.ctx, "missing")
	s.True(models.IsNotFound(err))

	s.True(models.IsNotFound(s.repo.Delete(s.ctx, "missing")))
}

func (s *PaperRepositorySuite) TestDelete() {
	p := s.newPaper("gone", models.StatusCurrent)
	s.Require().NoError(s.repo.Delete(s.ctx, p.ID))
	_, err := s.repo.GetByID(s.ctx, p.ID)
	s.True(models.IsNotFound(err))
}
