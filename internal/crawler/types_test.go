package crawler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func completeRecord() Record {
	return Record{
		Title:       "UX Designer",
		Company:     "Acme",
		Description: strings.Repeat("Design delightful flows. ", 4),
		SourceURL:   "https://jobs.example.com/1",
	}
}

func TestRecordComplete(t *testing.T) {
	t.Parallel()

	require.True(t, completeRecord().Complete())

	rec := completeRecord()
	rec.Company = ""
	require.False(t, rec.Complete())
	require.Equal(t, []string{"company"}, rec.MissingFields())
}

func TestRecordShortDescriptionIsIncomplete(t *testing.T) {
	t.Parallel()

	rec := completeRecord()
	rec.Description = strings.Repeat("x", 30)
	require.False(t, rec.Complete())
	require.Equal(t, []string{"description"}, rec.MissingFields())

	rec.Description = strings.Repeat("x", MinDescriptionLength)
	require.True(t, rec.Complete())
}

func TestRecordMissingFieldsOrder(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"title", "company", "description", "source_url"}, Record{}.MissingFields())
}

func TestRunStatisticsAdd(t *testing.T) {
	t.Parallel()

	total := RunStatistics{PagesVisited: 1, Errors: 2}
	total.Add(RunStatistics{PagesVisited: 2, Persisted: 3, Duplicates: 1, CategoriesFailed: 1})
	require.Equal(t, RunStatistics{PagesVisited: 3, Persisted: 3, Duplicates: 1, Errors: 2, CategoriesFailed: 1}, total)
}

func TestFetchErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := error(&FetchError{URL: "https://example.com", StatusCode: 503, Err: cause})
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "status 503")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, "https://example.com", fetchErr.URL)
}

func TestExtractionErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ExtractionError{Source: "domestika", Title: "UX Designer", Fields: []string{"company"}}
	require.Equal(t, `extract domestika entry "UX Designer": missing company`, err.Error())
}

func TestResultConstructors(t *testing.T) {
	t.Parallel()

	require.Equal(t, ResultOK, OK(completeRecord()).Kind)
	require.Equal(t, "off-topic", Skip("off-topic").Reason)
	require.Equal(t, "error", Fail(errors.New("boom")).Kind.String())
}
