package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-tracker/models"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidInitial(t *testing.T) {
	assert.True(t, ValidInitial(models.StatusCurrent))
	assert.True(t, ValidInitial(models.StatusFuture))
	assert.False(t, ValidInitial(models.StatusCompleted))
	assert.False(t, ValidInitial(models.StatusMissed))
	assert.False(t, ValidInitial(""))
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		trigger  Trigger
		ok       bool
	}{
		{models.StatusCurrent, models.StatusFuture, TriggerStoreForLater, true},
		{models.StatusFuture, models.StatusCurrent, TriggerMoveToCurrent, true},
		{models.StatusMissed, models.StatusFuture, TriggerStoreForLater, true},
		{models.StatusMissed, models.StatusCurrent, TriggerResume, true},
		{models.StatusCurrent, models.StatusMissed, "", false},
		{models.StatusCurrent, models.StatusCompleted, "", false},
		{models.StatusFuture, models.StatusMissed, "", false},
		{models.StatusFuture, models.StatusCompleted, "", false},
		{models.StatusCompleted, models.StatusCurrent, "", false},
		{models.StatusCompleted, models.StatusFuture, "", false},
		{models.StatusCompleted, models.StatusMissed, "", false},
		{models.StatusCurrent, models.StatusCurrent, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			trigger, err := Transition(tt.from, tt.to)
			if !tt.ok {
				assert.True(t, errors.Is(err, models.ErrInvalidTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.trigger, trigger)
		})
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	for _, s := range models.AllStatuses {
		assert.False(t, CanTransition(models.StatusCompleted, s), "completed -> %s", s)
	}
}

func TestOverdueAndMissed(t *testing.T) {
	deadline := models.MustDate("2024-01-01")

	assert.False(t, IsOverdue(deadline, at("2024-01-01T00:00:00Z")))
	assert.True(t, IsOverdue(deadline, at("2024-01-01T00:00:01Z")))

	assert.False(t, IsMissedEligible(deadline, at("2024-01-05T12:00:00Z")))
	assert.False(t, IsMissedEligible(deadline, at("2024-01-08T00:00:00Z")))
	assert.True(t, IsMissedEligible(deadline, at("2024-01-08T00:00:01Z")))
	assert.True(t, IsMissedEligible(deadline, at("2024-01-10T00:00:00Z")))
}

func TestShowOverdueOnlyForCurrent(t *testing.T) {
	now := at("2024-01-03T00:00:00Z")
	p := models.Paper{Status: models.StatusCurrent, Deadline: models.MustDate("2024-01-01")}
	assert.True(t, ShowOverdue(p, now))

	p.Status = models.StatusFuture
	assert.False(t, ShowOverdue(p, now))
}

func samplePapers() []models.Paper {
	return []models.Paper{
		{ID: "a", Status: models.StatusCurrent, Deadline: models.MustDate("2024-01-01")},
		{ID: "b", Status: models.StatusCurrent, Deadline: models.MustDate("2024-01-05")},
		{ID: "c", Status: models.StatusFuture, Deadline: models.MustDate("2023-01-01")},
		{ID: "d", Status: models.StatusCompleted, Deadline: models.MustDate("2023-01-01")},
		{ID: "e", Status: models.StatusMissed, Deadline: models.MustDate("2023-01-01")},
	}
}

func TestSelectMissed(t *testing.T) {
	ids := SelectMissed(samplePapers(), at("2024-01-10T00:00:00Z"))
	assert.Equal(t, []string{"a"}, ids)
}

func TestSweepIsIdempotent(t *testing.T) {
	now := at("2024-01-20T00:00:00Z")
	in := samplePapers()

	once := Sweep(in, now)
	twice := Sweep(once, now)

	assert.Equal(t, once, twice)
	assert.Equal(t, models.StatusMissed, once[0].Status)
	assert.Equal(t, models.StatusMissed, once[1].Status)
	assert.Equal(t, models.StatusFuture, once[2].Status)
	assert.Equal(t, models.StatusCompleted, once[3].Status)
	// Eingabe bleibt unverändert
	assert.Equal(t, models.StatusCurrent, in[0].Status)
}

func TestAcceptedContentType(t *testing.T) {
	assert.True(t, AcceptedContentType("application/pdf"))
	assert.True(t, AcceptedContentType(ContentTypeDOCX))
	assert.True(t, AcceptedContentType("text/plain; charset=utf-8"))
	assert.False(t, AcceptedContentType("image/png"))
	assert.False(t, AcceptedContentType("application/msword"))
	assert.False(t, AcceptedContentType(""))
}

func TestPrepareCompletion(t *testing.T) {
	t.Run("rejects empty summary without file", func(t *testing.T) {
		_, err := PrepareCompletion("   \n\t", nil)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("summary only", func(t *testing.T) {
		c, err := PrepareCompletion("  great paper ", nil)
		require.NoError(t, err)
		require.NotNil(t, c.Summary)
		assert.Equal(t, "great paper", *c.Summary)
		assert.Nil(t, c.File)

		patch := c.Patch(nil)
		assert.Equal(t, models.StatusCompleted, *patch.Status)
		assert.Nil(t, patch.ReviewFile)
	})

	t.Run("file only", func(t *testing.T) {
		c, err := PrepareCompletion("", &Upload{Name: "r.pdf", ContentType: ContentTypePDF})
		require.NoError(t, err)
		assert.Nil(t, c.Summary)
		assert.NotNil(t, c.File)
	})

	t.Run("unsupported file type", func(t *testing.T) {
		_, err := PrepareCompletion("text", &Upload{Name: "r.png", ContentType: "image/png"})
		assert.True(t, models.IsValidation(err))
	})
}

func TestCompletionCheckFrom(t *testing.T) {
	c, err := PrepareCompletion("late", nil)
	require.NoError(t, err)

	assert.NoError(t, c.CheckFrom(models.StatusCurrent))
	assert.NoError(t, c.CheckFrom(models.StatusMissed))
	assert.ErrorIs(t, c.CheckFrom(models.StatusFuture), models.ErrInvalidTransition)
	assert.ErrorIs(t, c.CheckFrom(models.StatusCompleted), models.ErrInvalidTransition)
}
