package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
	"github.com/joseph-ayodele/certverify/internal/extract"
	"github.com/joseph-ayodele/certverify/internal/fetch"
	"github.com/joseph-ayodele/certverify/internal/repository"
)

const fullText = "My Ref.: EX/2019/0042\n" +
	constants.CanonicalTitle + "\n" +
	"Name in Full: Jane Perera\n" +
	"Index Number: 4521367\n" +
	"Year of Examination: 2019\n"

type fakeOwners struct {
	owners map[string]*entity.Owner
}

func (f *fakeOwners) Get(_ context.Context, id string) (*entity.Owner, error) {
	if o, ok := f.owners[id]; ok {
		return o, nil
	}
	return nil, common.NotFound("owner "+id+" not found", nil)
}

func (f *fakeOwners) Upsert(_ context.Context, o *entity.Owner) (*entity.Owner, error) {
	f.owners[o.ID] = o
	return o, nil
}

func (f *fakeOwners) List(context.Context) ([]*entity.Owner, error) { return nil, nil }

type fakeCerts struct {
	mu        sync.Mutex
	certs     []*entity.Certificate
	saved     map[string]*entity.Analysis
	saveErr   error
	savePanic bool
	listErr   error
}

func (f *fakeCerts) Get(_ context.Context, id string) (*entity.Certificate, error) {
	for _, c := range f.certs {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, common.NotFound("certificate not found", nil)
}

func (f *fakeCerts) ListByOwner(_ context.Context, ownerID string) ([]*entity.Certificate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*entity.Certificate
	for _, c := range f.certs {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCerts) Create(_ context.Context, c *entity.Certificate) (*entity.Certificate, error) {
	f.certs = append(f.certs, c)
	return c, nil
}

func (f *fakeCerts) SaveAnalysis(_ context.Context, _, certificateID string, a *entity.Analysis) error {
	if f.savePanic {
		panic("store connection reset")
	}
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string]*entity.Analysis)
	}
	f.saved[certificateID] = a
	return nil
}

// textExtractor treats the payload as already-flattened text; payloads
// starting with "corrupt" fail and "panic" panics.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, data []byte) (extract.TextExtractionResult, error) {
	s := string(data)
	switch {
	case strings.HasPrefix(s, "corrupt"):
		return extract.TextExtractionResult{}, fmt.Errorf("%w: bad xref", extract.ErrDocumentParse)
	case strings.HasPrefix(s, "panic"):
		panic("parser blew up")
	}
	return extract.TextExtractionResult{Text: s, Pages: 1, Method: "test"}, nil
}

// documents serves payloads by URL; unknown URLs fail like a 404.
func documents(payloads map[string]string, calls *atomic.Int32) fetch.Fetcher {
	return fetch.FetcherFunc(func(ctx context.Context, locator string) ([]byte, error) {
		if calls != nil {
			calls.Add(1)
		}
		if err := ctx.Err(); err != nil {
			return nil, common.Retrieval("download", err)
		}
		body, ok := payloads[locator]
		if !ok {
			return nil, common.Retrieval("unexpected status: 404 Not Found", nil)
		}
		return []byte(body), nil
	})
}

func newTestAnalyzer(f fetch.Fetcher, certs *fakeCerts, opts ...Option) *Analyzer {
	owners := &fakeOwners{owners: map[string]*entity.Owner{
		"tutor-1": {ID: "tutor-1", Name: "Jane Perera"},
		"tutor-2": {ID: "tutor-2"},
	}}
	return NewAnalyzer(nil, f, textExtractor{}, nil, owners, certs, opts...)
}

func TestAnalyzeOne_Verified(t *testing.T) {
	certs := &fakeCerts{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAnalyzer(documents(map[string]string{"https://f/a.pdf": fullText}, nil), certs, WithClock(func() time.Time { return fixed }))

	rec, err := a.AnalyzeOne(context.Background(), "tutor-1", "cert-1", "https://f/a.pdf")
	require.NoError(t, err)

	assert.Equal(t, constants.StatusVerified, rec.Status)
	assert.Equal(t, "Verification passed", rec.Message)
	assert.Equal(t, "tutor-1", rec.OwnerID)
	assert.Equal(t, "Jane Perera", rec.OwnerName)
	assert.Equal(t, "cert-1", rec.CertificateID)
	assert.Equal(t, "EX/2019/0042", *rec.ReferenceNumber)
	assert.Equal(t, constants.CanonicalTitle, *rec.Title)
	assert.Equal(t, "Jane Perera", *rec.Name)
	assert.Equal(t, "4521367", *rec.IndexNumber)
	assert.Equal(t, "2019", *rec.Year)
	assert.Equal(t, fullText, rec.ExtractedText)
	assert.Equal(t, fixed, rec.AnalyzedAt)
	assert.NotEqual(t, uuid.Nil, rec.AnalysisID)
	assert.True(t, rec.Persisted)

	saved := certs.saved["cert-1"]
	require.NotNil(t, saved)
	assert.Equal(t, rec.Analysis(), saved)
}

func TestAnalyzeOne_MissingIndexNumber(t *testing.T) {
	text := strings.Replace(fullText, "Index Number: 4521367\n", "", 1)
	a := newTestAnalyzer(documents(map[string]string{"https://f/a.pdf": text}, nil), &fakeCerts{})

	rec, err := a.AnalyzeOne(context.Background(), "tutor-1", "cert-1", "https://f/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusNotVerified, rec.Status)
	assert.Equal(t, "Your certificate has an issue. Missing fields: index_number", rec.Message)
	assert.Nil(t, rec.IndexNumber)
}

func TestAnalyzeOne_UnnamedOwner(t *testing.T) {
	a := newTestAnalyzer(documents(map[string]string{"https://f/a.pdf": fullText}, nil), &fakeCerts{})
	rec, err := a.AnalyzeOne(context.Background(), "tutor-2", "cert-1", "https://f/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rec.OwnerName)
}

func TestAnalyzeOne_Errors(t *testing.T) {
	var calls atomic.Int32
	payloads := map[string]string{
		"https://f/ok.pdf":      fullText,
		"https://f/corrupt.pdf": "corrupt",
	}
	tests := []struct {
		name      string
		ownerID   string
		certID    string
		locator   string
		wantErr   error
		wantFetch bool
	}{
		{name: "unknown owner", ownerID: "ghost", certID: "c", locator: "https://f/ok.pdf", wantErr: common.ErrNotFound},
		{name: "download failure", ownerID: "tutor-1", certID: "c", locator: "https://f/missing.pdf", wantErr: common.ErrRetrieval, wantFetch: true},
		{name: "parse failure", ownerID: "tutor-1", certID: "c", locator: "https://f/corrupt.pdf", wantErr: common.ErrExtraction, wantFetch: true},
		{name: "missing certificate id", ownerID: "tutor-1", certID: "", locator: "https://f/ok.pdf", wantErr: common.ErrInvalidInput},
		{name: "missing url", ownerID: "tutor-1", certID: "c", locator: "", wantErr: common.ErrInvalidInput},
		{name: "unsupported scheme", ownerID: "tutor-1", certID: "c", locator: "ftp://f/ok.pdf", wantErr: common.ErrInvalidInput},
		{name: "file locator not enabled", ownerID: "tutor-1", certID: "c", locator: "file:///srv/ok.pdf", wantErr: common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls.Store(0)
			certs := &fakeCerts{}
			a := newTestAnalyzer(documents(payloads, &calls), certs)

			rec, err := a.AnalyzeOne(context.Background(), tt.ownerID, tt.certID, tt.locator)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantFetch, calls.Load() > 0)
			assert.Empty(t, certs.saved, "nothing is written for a failed analysis")
		})
	}
}

func TestAnalyzeOne_LocatorSchemes(t *testing.T) {
	payloads := map[string]string{"file:///srv/certs/ok.pdf": fullText}
	a := newTestAnalyzer(documents(payloads, nil), &fakeCerts{}, WithLocatorSchemes(constants.SchemeFile))

	rec, err := a.AnalyzeOne(context.Background(), "tutor-1", "c1", "file:///srv/certs/ok.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusVerified, rec.Status)

	_, err = a.AnalyzeOne(context.Background(), "tutor-1", "c1", "https://f/ok.pdf")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestAnalyzeOne_PlainFetchErrorIsRetrieval(t *testing.T) {
	f := fetch.FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("connection refused")
	})
	a := newTestAnalyzer(f, &fakeCerts{})
	_, err := a.AnalyzeOne(context.Background(), "tutor-1", "c", "https://f/a.pdf")
	assert.ErrorIs(t, err, common.ErrRetrieval)
}

func TestAnalyzeOne_PersistenceFailureIsNotFatal(t *testing.T) {
	certs := &fakeCerts{saveErr: common.Persistence("save analysis", errors.New("disk full"))}
	a := newTestAnalyzer(documents(map[string]string{"https://f/a.pdf": fullText}, nil), certs)

	rec, err := a.AnalyzeOne(context.Background(), "tutor-1", "cert-1", "https://f/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusVerified, rec.Status)
	assert.False(t, rec.Persisted)
}

func TestAnalyzeOne_Idempotent(t *testing.T) {
	text := strings.Replace(fullText, "Year of Examination: 2019\n", "", 1)
	a := newTestAnalyzer(documents(map[string]string{"https://f/a.pdf": text}, nil), &fakeCerts{})

	first, err := a.AnalyzeOne(context.Background(), "tutor-1", "cert-1", "https://f/a.pdf")
	require.NoError(t, err)
	second, err := a.AnalyzeOne(context.Background(), "tutor-1", "cert-1", "https://f/a.pdf")
	require.NoError(t, err)

	assert.Equal(t, first.CandidateRecord, second.CandidateRecord)
	assert.Equal(t, first.Verdict, second.Verdict)
}

func TestAnalyzeAll_IsolatesFailures(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			certs := &fakeCerts{certs: []*entity.Certificate{
				{ID: "c1", OwnerID: "tutor-1", FileURL: "https://f/1.pdf"},
				{ID: "c2", OwnerID: "tutor-1", FileURL: "https://f/gone.pdf"},
				{ID: "c3", OwnerID: "tutor-1", FileURL: "https://f/3.pdf"},
				{ID: "other", OwnerID: "tutor-2", FileURL: "https://f/1.pdf"},
			}}
			payloads := map[string]string{
				"https://f/1.pdf": fullText,
				"https://f/3.pdf": "Name in Full: Someone\n",
			}
			a := newTestAnalyzer(documents(payloads, nil), certs, WithWorkers(workers))

			res, err := a.AnalyzeAll(context.Background(), "tutor-1")
			require.NoError(t, err)

			assert.Equal(t, "tutor-1", res.Owner.ID)
			assert.Equal(t, "Certificate data extracted successfully for owner tutor-1!", res.Message)
			require.Len(t, res.Records, 2)
			assert.Equal(t, "c1", res.Records[0].CertificateID)
			assert.Equal(t, constants.StatusVerified, res.Records[0].Status)
			assert.Equal(t, "c3", res.Records[1].CertificateID)
			assert.Equal(t, constants.StatusNotVerified, res.Records[1].Status)

			require.Len(t, res.Skipped, 1)
			assert.Equal(t, "c2", res.Skipped[0].CertificateID)
			assert.Equal(t, string(constants.StageDownloading), res.Skipped[0].Stage)
			assert.Len(t, certs.saved, 2)
		})
	}
}

func TestAnalyzeAll_SkipReasons(t *testing.T) {
	certs := &fakeCerts{certs: []*entity.Certificate{
		{ID: "no-url", OwnerID: "tutor-1"},
		{ID: "corrupt", OwnerID: "tutor-1", FileURL: "https://f/corrupt.pdf"},
		{ID: "panics", OwnerID: "tutor-1", FileURL: "https://f/panic.pdf"},
		{ID: "good", OwnerID: "tutor-1", FileURL: "https://f/good.pdf"},
	}}
	payloads := map[string]string{
		"https://f/corrupt.pdf": "corrupt",
		"https://f/panic.pdf":   "panic",
		"https://f/good.pdf":    fullText,
	}
	a := newTestAnalyzer(documents(payloads, nil), certs, WithWorkers(2))

	res, err := a.AnalyzeAll(context.Background(), "tutor-1")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "good", res.Records[0].CertificateID)

	stages := map[string]string{}
	for _, s := range res.Skipped {
		stages[s.CertificateID] = s.Stage
	}
	assert.Equal(t, map[string]string{
		"no-url":  string(constants.StageDownloading),
		"corrupt": string(constants.StageExtracting),
		"panics":  string(constants.StageExtracting),
	}, stages)
	assert.Equal(t, "no-url", res.Skipped[0].CertificateID, "skips keep certificate order")
}

func TestAnalyzeAll_PersistenceFailureKeepsRecords(t *testing.T) {
	certs := &fakeCerts{
		certs:   []*entity.Certificate{{ID: "c1", OwnerID: "tutor-1", FileURL: "https://f/1.pdf"}},
		saveErr: common.Persistence("save analysis", errors.New("read-only")),
	}
	a := newTestAnalyzer(documents(map[string]string{"https://f/1.pdf": fullText}, nil), certs)

	res, err := a.AnalyzeAll(context.Background(), "tutor-1")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].Persisted)
	assert.Empty(t, res.Skipped)
}

func TestAnalyzeAll_PanickingStoreKeepsRecords(t *testing.T) {
	certs := &fakeCerts{
		certs: []*entity.Certificate{
			{ID: "c1", OwnerID: "tutor-1", FileURL: "https://f/1.pdf"},
			{ID: "c2", OwnerID: "tutor-1", FileURL: "https://f/2.pdf"},
		},
		savePanic: true,
	}
	a := newTestAnalyzer(documents(map[string]string{"https://f/1.pdf": fullText, "https://f/2.pdf": fullText}, nil), certs)

	res, err := a.AnalyzeAll(context.Background(), "tutor-1")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	for _, r := range res.Records {
		assert.Equal(t, constants.StatusVerified, r.Status)
		assert.False(t, r.Persisted)
	}
	assert.Empty(t, res.Skipped)

	rec, err := a.AnalyzeOne(context.Background(), "tutor-1", "c1", "https://f/1.pdf")
	require.NoError(t, err)
	assert.False(t, rec.Persisted)
}

func TestAnalyzeAll_NoCertificates(t *testing.T) {
	a := newTestAnalyzer(documents(nil, nil), &fakeCerts{})
	res, err := a.AnalyzeAll(context.Background(), "tutor-2")
	require.NoError(t, err)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Skipped)
}

func TestAnalyzeAll_OwnerErrors(t *testing.T) {
	a := newTestAnalyzer(documents(nil, nil), &fakeCerts{})
	_, err := a.AnalyzeAll(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = a.AnalyzeAll(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	a = newTestAnalyzer(documents(nil, nil), &fakeCerts{listErr: errors.New("db down")})
	_, err = a.AnalyzeAll(context.Background(), "tutor-1")
	assert.ErrorIs(t, err, common.ErrInternal)
}

func TestAnalyzeAll_MaxDocuments(t *testing.T) {
	certs := &fakeCerts{}
	payloads := map[string]string{}
	for i := 1; i <= 5; i++ {
		url := fmt.Sprintf("https://f/%d.pdf", i)
		payloads[url] = fullText
		certs.certs = append(certs.certs, &entity.Certificate{ID: fmt.Sprintf("c%d", i), OwnerID: "tutor-1", FileURL: url})
	}
	var calls atomic.Int32
	a := newTestAnalyzer(documents(payloads, &calls), certs, WithMaxDocuments(3))

	res, err := a.AnalyzeAll(context.Background(), "tutor-1")
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "c4", res.Skipped[0].CertificateID)
	assert.Equal(t, string(constants.StagePending), res.Skipped[0].Stage)
}

func TestAnalyzeAll_Cancelled(t *testing.T) {
	certs := &fakeCerts{certs: []*entity.Certificate{
		{ID: "c1", OwnerID: "tutor-1", FileURL: "https://f/1.pdf"},
		{ID: "c2", OwnerID: "tutor-1", FileURL: "https://f/1.pdf"},
	}}
	var calls atomic.Int32
	a := newTestAnalyzer(documents(map[string]string{"https://f/1.pdf": fullText}, &calls), certs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := a.AnalyzeAll(ctx, "tutor-1")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestAnalyzer_WithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, common.DatabaseConfig{
		Driver: common.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString()),
	}, nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	owners := repository.NewOwnerRepository(db, nil)
	certs := repository.NewCertificateRepository(db, nil)
	_, err = owners.Upsert(ctx, &entity.Owner{ID: "tutor-1", Name: "Jane Perera"})
	require.NoError(t, err)
	_, err = certs.Create(ctx, &entity.Certificate{ID: "c1", OwnerID: "tutor-1", FileURL: "https://f/1.pdf"})
	require.NoError(t, err)

	a := NewAnalyzer(nil, documents(map[string]string{"https://f/1.pdf": fullText}, nil), textExtractor{}, nil, owners, certs)
	res, err := a.AnalyzeAll(ctx, "tutor-1")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].Persisted)

	stored, err := certs.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, stored.Analysis)
	assert.Equal(t, constants.StatusVerified, stored.Analysis.Status)
	assert.Equal(t, res.Records[0].AnalysisID, stored.Analysis.AnalysisID)

	// analysing a certificate id the owner does not have still returns the verdict
	rec, err := a.AnalyzeOne(ctx, "tutor-1", "not-stored", "https://f/1.pdf")
	require.NoError(t, err)
	assert.False(t, rec.Persisted)
}
