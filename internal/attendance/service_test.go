package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/apperr"
	"qrattend/internal/roster"
	"qrattend/internal/store"
	"qrattend/internal/testutil"
)

func setup(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	students := roster.NewRepository(db)
	_, err := students.InsertIfAbsent(context.Background(), roster.Student{EnrollmentNo: "E100", Name: "Jane Doe"})
	require.NoError(t, err)
	return NewService(NewRepository(db), students), db
}

func countRows(t *testing.T, db *store.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Client.QueryRow(`SELECT COUNT(*) FROM attendance`).Scan(&n))
	return n
}

func boolPtr(v bool) *bool { return &v }

func TestMark_DefaultsToPresent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.Mark(ctx, "E100", "2024-01-05", nil))

	h, err := svc.History(ctx, "E100")
	require.NoError(t, err)
	require.Len(t, h.Records, 1)
	assert.Equal(t, NewDate(2024, 1, 5), h.Records[0].Date)
	assert.True(t, h.Records[0].Present)
	assert.Equal(t, "Jane Doe", h.Student.Name)
}

func TestMark_RemarkUpdatesInPlace(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.Mark(ctx, "E100", "2024-01-05", nil))
	require.NoError(t, svc.Mark(ctx, "E100", "2024-01-05", boolPtr(false)))

	h, err := svc.History(ctx, "E100")
	require.NoError(t, err)
	require.Len(t, h.Records, 1)
	assert.False(t, h.Records[0].Present)
	assert.Equal(t, 1, countRows(t, db))

	require.NoError(t, svc.Mark(ctx, "E100", "2024-01-05T09:30:00+05:30", boolPtr(true)))
	h, err = svc.History(ctx, "E100")
	require.NoError(t, err)
	require.Len(t, h.Records, 1)
	assert.True(t, h.Records[0].Present)
}

func TestMark_ConcurrentMarksKeepOneRecord(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- svc.Mark(ctx, "E100", "2024-02-01", boolPtr(i%2 == 0))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, countRows(t, db))
}

func TestMark_Validation(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	err := svc.Mark(ctx, "", "2024-01-05", nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	err = svc.Mark(ctx, "E100", "", nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	err = svc.Mark(ctx, "E100", "05/01/2024", nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	err = svc.Mark(ctx, "E999", "2024-01-05", nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Equal(t, 0, countRows(t, db))
}

func TestMark_StoreFailureIsRetryable(t *testing.T) {
	svc, db := setup(t)
	require.NoError(t, db.Close())

	err := svc.Mark(context.Background(), "E100", "2024-01-05", nil)
	require.Error(t, err)
	assert.True(t, apperr.Retryable(err))
	assert.Equal(t, "database error", apperr.Message(err))
}

func TestHistory_OrderedNewestFirst(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for _, d := range []string{"2024-01-03", "2024-01-10", "2023-12-31", "2024-01-05"} {
		require.NoError(t, svc.Mark(ctx, "E100", d, nil))
	}

	h, err := svc.History(ctx, "E100")
	require.NoError(t, err)
	var got []string
	for _, r := range h.Records {
		got = append(got, r.Date.String())
	}
	assert.Equal(t, []string{"2024-01-10", "2024-01-05", "2024-01-03", "2023-12-31"}, got)
}

func TestHistory_EmptyAndMissing(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	h, err := svc.History(ctx, "E100")
	require.NoError(t, err)
	assert.NotNil(t, h.Records)
	assert.Empty(t, h.Records)

	_, err = svc.History(ctx, "nobody")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

type failingFinder struct{}

func (failingFinder) GetByEnrollment(context.Context, string) (*roster.Student, error) {
	return nil, errors.New("pool exhausted")
}

func TestHistory_LookupFailure(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(NewRepository(db), failingFinder{})

	_, err := svc.History(context.Background(), "E100")
	assert.True(t, apperr.Retryable(err))
}
